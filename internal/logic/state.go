package logic

import "sync/atomic"

// State holds the four rig flags. Each flag is an independent atomic word;
// there is no cross-field atomicity.
type State struct {
	On          atomic.Bool
	Rotating    atomic.Bool
	Emergency   atomic.Bool
	StopThenOff atomic.Bool
}

// Load reads every flag into a Snapshot. Mode, speed and walk index are left for the
// caller to fill in.
func (st *State) Load() Snapshot {
	return Snapshot{
		On:          st.On.Load(),
		Rotating:    st.Rotating.Load(),
		Emergency:   st.Emergency.Load(),
		StopThenOff: st.StopThenOff.Load(),
	}
}
