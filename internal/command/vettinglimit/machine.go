package vettinglimit

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Phase is the workflow state.
type Phase int

const (
	Inactive Phase = iota
	Waiting        // for the panel to be posted
	Active         // counting tickets
)

func (p Phase) String() string {
	switch p {
	case Waiting:
		return "waiting"
	case Active:
		return "active"
	}
	return "inactive"
}

// State is a copy of the machine's state.
type State struct {
	Phase      Phase
	Limit      int
	Current    int
	Panel      *discordgo.Message
	Generation uint64
}

// Outcome is the result of counting one ticket.
type Outcome struct {
	Counted bool
	// Reached is set when this ticket hit the limit. The machine is then
	// inactive again and Panel is the message to delete.
	Reached bool
	Current int
	Limit   int
	Panel   *discordgo.Message
}

// Machine is the admission-limit state. Every method is one locked
// read-decide-write step. Each run gets a new generation; event callbacks
// carry the generation they were registered for and become no-ops once it is
// stale.
type Machine struct {
	mu      sync.Mutex
	phase   Phase
	limit   int
	current int
	panel   *discordgo.Message
	gen     uint64
}

// Limit starts a run when inactive, or changes the limit of the current one.
// It returns the run's generation and whether a new run started.
func (m *Machine) Limit(n int) (gen uint64, started bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase != Inactive {
		m.limit = n
		return m.gen, false
	}
	m.gen++
	m.phase = Waiting
	m.limit = n
	m.current = 0
	m.panel = nil
	return m.gen, true
}

// Cancel ends the current run. It returns the generation that was cancelled,
// or false if there was nothing to cancel.
func (m *Machine) Cancel() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.phase == Inactive {
		return 0, false
	}
	gen := m.gen
	m.reset()
	return gen, true
}

// PanelPosted moves a waiting run to active. It reports false if gen is
// stale or the run is not waiting.
func (m *Machine) PanelPosted(gen uint64, panel *discordgo.Message) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.phase != Waiting {
		return false
	}
	m.phase = Active
	m.current = 0
	m.panel = panel
	return true
}

// Count records one ticket for run gen.
func (m *Machine) Count(gen uint64) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.phase != Active {
		return Outcome{}
	}
	m.current++
	out := Outcome{Counted: true, Current: m.current, Limit: m.limit}
	if m.current >= m.limit {
		out.Reached = true
		out.Panel = m.panel
		m.reset()
	}
	return out
}

// Snapshot returns the current state without changing it.
func (m *Machine) Snapshot() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{Phase: m.phase, Limit: m.limit, Current: m.current, Panel: m.panel, Generation: m.gen}
}

// reset returns to inactive. The generation is bumped so callbacks of the
// finished run see themselves as stale.
func (m *Machine) reset() {
	m.gen++
	m.phase = Inactive
	m.limit = 0
	m.current = 0
	m.panel = nil
}
