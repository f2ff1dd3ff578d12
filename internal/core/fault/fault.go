package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal simulation error.
type Kind int

const (
	KindCorruption Kind = iota + 1 // loaded level data is inconsistent
	KindEngine                     // engine bug or declared capacity exceeded
)

func (k Kind) String() string {
	switch k {
	case KindCorruption:
		return "data corruption"
	case KindEngine:
		return "engine"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Error is a fatal condition that aborts the current tick. Recoverable
// conditions never produce one.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Corrupt reports inconsistent level data (bad node id, missing descriptor, ...).
func Corrupt(op, format string, args ...any) error {
	return &Error{Kind: KindCorruption, Op: op, Err: fmt.Errorf(format, args...)}
}

// Engine reports an engine-side failure. err may be a sentinel the caller
// wants to match with errors.Is.
func Engine(op string, err error) error {
	return &Error{Kind: KindEngine, Op: op, Err: err}
}

// Enginef is Engine with a formatted message.
func Enginef(op, format string, args ...any) error {
	return &Error{Kind: KindEngine, Op: op, Err: fmt.Errorf(format, args...)}
}

func IsCorruption(err error) bool { return kindOf(err) == KindCorruption }
func IsEngine(err error) bool     { return kindOf(err) == KindEngine }

func kindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}
