package system

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSystem struct {
	phase Phase
	name  string
	trace *[]string
	err   error
}

func (p *stubSystem) Phase() Phase { return p.phase }
func (p *stubSystem) Update(time.Duration) {
	*p.trace = append(*p.trace, p.name)
}
func (p *stubSystem) Err() error { return p.err }

func TestRunnerPhaseOrder(t *testing.T) {
	var trace []string
	r := NewRunner()
	r.Register(&stubSystem{phase: PhasePersist, name: "persist", trace: &trace})
	r.Register(&stubSystem{phase: PhaseStep, name: "step", trace: &trace})
	r.Register(&stubSystem{phase: PhaseInput, name: "input", trace: &trace})
	r.Register(&stubSystem{phase: PhaseEvents, name: "events-a", trace: &trace})
	r.Register(&stubSystem{phase: PhaseEvents, name: "events-b", trace: &trace})

	require.NoError(t, r.Tick(time.Millisecond))
	assert.Equal(t, []string{"input", "step", "events-a", "events-b", "persist"}, trace)

	trace = trace[:0]
	r.TickPhase(PhaseEvents, 0)
	assert.Equal(t, []string{"events-a", "events-b"}, trace)
}

func TestRunnerStopsOnFailure(t *testing.T) {
	var trace []string
	boom := errors.New("boom")
	r := NewRunner()
	r.Register(&stubSystem{phase: PhaseStep, name: "step", trace: &trace, err: boom})
	r.Register(&stubSystem{phase: PhasePersist, name: "persist", trace: &trace})

	err := r.Tick(0)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step phase")
	assert.Equal(t, []string{"step"}, trace)
}
