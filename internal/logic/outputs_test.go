package logic

import "testing"

func TestWithIndicator(t *testing.T) {
	if got := WithIndicator(0, true); got != LEDOn {
		t.Errorf("on: got %08b, want %08b", got, LEDOn)
	}
	if got := WithIndicator(0xff, false); got != 0xff&^LEDOn {
		t.Errorf("off over full register: got %08b", got)
	}
}

func TestToggleIndicatorAlternates(t *testing.T) {
	reg := WithIndicator(0, false)
	reg = ToggleIndicator(reg)
	if reg&indicatorMask != LEDOn {
		t.Errorf("first toggle: got %02b, want %02b", reg&indicatorMask, LEDOn)
	}
	reg = ToggleIndicator(reg)
	if reg&indicatorMask != LEDOff {
		t.Errorf("second toggle: got %02b, want %02b", reg&indicatorMask, LEDOff)
	}
}

func TestWithWalkLightKeepsIndicator(t *testing.T) {
	reg := WithIndicator(0, true)
	for _, p := range WalkPattern {
		got := WithWalkLight(reg, p)
		if got&indicatorMask != LEDOn {
			t.Errorf("pattern %06b: indicator clobbered: %08b", p, got)
		}
		if WalkLightOf(got) != p {
			t.Errorf("pattern %06b: got walk light %06b", p, WalkLightOf(got))
		}
	}
	if got := WithWalkLight(WithWalkLight(reg, 0b100000), 0); got != reg {
		t.Errorf("clear walk light: got %08b, want %08b", got, reg)
	}
}

func TestCommutationSinglePhaseChange(t *testing.T) {
	// Adjacent phases share exactly one energised coil.
	for i := range Commutation {
		a, b := Commutation[i], Commutation[(i+1)%len(Commutation)]
		shared := a & b
		if shared == 0 || shared&(shared-1) != 0 {
			t.Errorf("phase %d->%d: %04b & %04b share %04b", i, (i+1)%4, a, b, shared)
		}
	}
}
