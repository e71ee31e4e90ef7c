package gpio

// Trap is one register write seen by a Recorder.
type Trap struct {
	Reg   uint32
	Value uint32
}

// Recorder is a Bus that remembers every trap. OnTrap, when set, runs
// after the trap is recorded and its error is returned to the writer.
type Recorder struct {
	Traps  []Trap
	OnTrap func(reg, value uint32) error
}

// Trap implements Bus.
func (r *Recorder) Trap(reg, value uint32) error {
	r.Traps = append(r.Traps, Trap{Reg: reg, Value: value})
	if r.OnTrap != nil {
		return r.OnTrap(reg, value)
	}
	return nil
}

// Last returns the most recent trap on reg.
func (r *Recorder) Last(reg uint32) (Trap, bool) {
	for i := len(r.Traps) - 1; i >= 0; i-- {
		if r.Traps[i].Reg == reg {
			return r.Traps[i], true
		}
	}
	return Trap{}, false
}
