package vm

import (
	"errors"
	"fmt"

	"github.com/pgesim/engine/internal/core/fault"
	"go.uber.org/zap"
)

// ErrUnimplementedOpcode is wrapped when a descriptor names an opcode with no
// registered implementation.
var ErrUnimplementedOpcode = errors.New("unimplemented opcode")

// Args are the operands of one opcode call: A is the opcode's own argument,
// B the first argument of the descriptor (only set for the second opcode).
type Args struct {
	A int16
	B int16
}

// OpFunc is the signature of an opcode implementation. The result counts as
// true when its low byte is non-zero.
type OpFunc func(m *Machine, a Args) uint16

type opEntry struct {
	name string
	fn   OpFunc
}

// Registry maps opcode ids to their implementations.
type Registry struct {
	ops map[uint8]*opEntry
	log *zap.Logger
}

func NewRegistry(log *zap.Logger) *Registry {
	return &Registry{
		ops: make(map[uint8]*opEntry),
		log: log,
	}
}

// DefaultRegistry returns a registry holding the full opcode catalogue.
func DefaultRegistry(log *zap.Logger) *Registry {
	reg := NewRegistry(log)
	registerInputOps(reg)
	registerCollisionOps(reg)
	registerGroupOps(reg)
	registerEntityOps(reg)
	registerMiscOps(reg)
	return reg
}

// Register maps an opcode id to fn, replacing any previous entry.
func (reg *Registry) Register(op uint8, name string, fn OpFunc) {
	reg.ops[op] = &opEntry{name: name, fn: fn}
}

// Name returns the registered name of op.
func (reg *Registry) Name(op uint8) (string, bool) {
	e, ok := reg.ops[op]
	if !ok {
		return "", false
	}
	return e.name, true
}

// Len returns the number of registered opcodes.
func (reg *Registry) Len() int { return len(reg.ops) }

// Dispatch runs opcode op. Unknown ids and panicking implementations are
// fatal engine errors.
func (reg *Registry) Dispatch(m *Machine, op uint8, a Args) (uint16, error) {
	entry, ok := reg.ops[op]
	if !ok {
		reg.log.Error("未知操作碼",
			zap.Uint8("opcode", op),
			zap.Int("entity", m.ctx.Index.Int()),
		)
		return 0, fault.Engine("dispatch", fmt.Errorf("opcode 0x%02X: %w", op, ErrUnimplementedOpcode))
	}
	return reg.safeCall(entry, m, a, op)
}

// safeCall executes an opcode with panic recovery so a bad script surfaces as
// an error from Step instead of crashing the driver.
func (reg *Registry) safeCall(entry *opEntry, m *Machine, a Args, op uint8) (res uint16, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reg.log.Error("操作碼 panic 已恢復",
				zap.Uint8("opcode", op),
				zap.String("name", entry.name),
				zap.Int("entity", m.ctx.Index.Int()),
				zap.Any("panic", rec),
			)
			res = 0
			err = fault.Enginef("dispatch", "opcode 0x%02X (%s) panic: %v", op, entry.name, rec)
		}
	}()
	return entry.fn(m, a), nil
}
