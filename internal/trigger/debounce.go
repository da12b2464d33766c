package trigger

import "strings"

// SnapCommand is the only command the controller board sends.
const SnapCommand = "snap"

// IsSnap reports whether a line from the trigger channel is a snap command.
func IsSnap(line string) bool {
	return strings.TrimSpace(line) == SnapCommand
}

// State of the trigger line as seen by the capture loop.
type State int

const (
	Idle State = iota
	Asserted
)

func (s State) String() string {
	if s == Asserted {
		return "asserted"
	}
	return "idle"
}

// Debouncer turns a per-iteration "snap present" reading into single
// accepted triggers. Any iteration without a snap token returns it to Idle,
// whether the channel carried other text or nothing at all.
type Debouncer struct {
	state State
}

// Observe records one loop iteration's reading and reports whether it is an
// accepted trigger (the Idle to Asserted edge).
func (d *Debouncer) Observe(present bool) bool {
	if !present {
		d.state = Idle
		return false
	}
	if d.state == Asserted {
		return false
	}
	d.state = Asserted
	return true
}

// State returns the current debounce state.
func (d *Debouncer) State() State {
	return d.state
}

// Reset forces the debouncer back to Idle.
func (d *Debouncer) Reset() {
	d.state = Idle
}
