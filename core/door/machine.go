package door

import (
	"context"

	"github.com/looplab/fsm"
)

// Events accepted by the door machine.
const (
	EventCommandOpen   = "command_open"
	EventCommandClose  = "command_close"
	EventSensorClosed  = "sensor_closed"
	EventSensorOpen    = "sensor_open"
	EventTravelTimeout = "travel_timeout"
)

// CommandEvent maps a command to its machine event.
func CommandEvent(c Command) string {
	if c == CommandClose {
		return EventCommandClose
	}
	return EventCommandOpen
}

// Machine tracks a door through its travel cycle. Commands only apply to
// settled or unknown doors; a moving door ignores them until a sensor edge
// or the travel timeout resolves the motion. A timeout while closing leaves
// the position unknown because the door may have reversed on an obstruction.
type Machine struct {
	fsm *fsm.FSM
}

// NewMachine returns a machine starting at the given state. Fresh doors
// start at StateUnknown.
func NewMachine(initial State) *Machine {
	return &Machine{fsm: fsm.NewFSM(
		initial.String(),
		fsm.Events{
			{Name: EventCommandOpen, Src: []string{StateClosed.String(), StateUnknown.String()}, Dst: StateOpening.String()},
			{Name: EventCommandClose, Src: []string{StateOpen.String(), StateUnknown.String()}, Dst: StateClosing.String()},
			{Name: EventSensorClosed, Src: []string{StateOpen.String(), StateClosing.String(), StateOpening.String(), StateUnknown.String()}, Dst: StateClosed.String()},
			{Name: EventSensorOpen, Src: []string{StateClosed.String()}, Dst: StateOpening.String()},
			{Name: EventSensorOpen, Src: []string{StateUnknown.String()}, Dst: StateOpen.String()},
			{Name: EventTravelTimeout, Src: []string{StateOpening.String()}, Dst: StateOpen.String()},
			{Name: EventTravelTimeout, Src: []string{StateClosing.String()}, Dst: StateUnknown.String()},
		},
		fsm.Callbacks{},
	)}
}

// State returns the current door state.
func (m *Machine) State() State {
	s, _ := ParseState(m.fsm.Current())
	return s
}

// Apply feeds one event to the machine. It returns the resulting state and
// whether the event caused a transition. Events that do not apply to the
// current state leave it unchanged.
func (m *Machine) Apply(ctx context.Context, event string) (State, bool) {
	if err := m.fsm.Event(ctx, event); err != nil {
		return m.State(), false
	}
	return m.State(), true
}

// Reset forces the machine to a state regardless of the transition table.
// Used to reconcile against an authoritative report.
func (m *Machine) Reset(s State) {
	m.fsm.SetState(s.String())
}
