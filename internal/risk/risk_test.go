package risk

import "testing"

func TestDefaultPolicyBoundaries(t *testing.T) {
	p := DefaultPolicy()
	cases := []struct {
		score int
		want  Action
	}{
		{0, Allow},
		{29, Allow},
		{69, Allow},
		{70, Confirm},
		{79, Confirm},
		{80, Block},
		{85, Block},
		{100, Block},
	}
	for _, c := range cases {
		if got := p.Evaluate(c.score); got != c.want {
			t.Errorf("Evaluate(%d) = %v, want %v", c.score, got, c.want)
		}
	}
}

func TestCustomPolicy(t *testing.T) {
	p := NewPolicy(
		Band{Min: 90, Action: Block},
		Band{Min: 50, Action: Confirm},
	)
	if got := p.Evaluate(89); got != Confirm {
		t.Errorf("Evaluate(89) = %v, want Confirm", got)
	}
	if got := p.Evaluate(49); got != Allow {
		t.Errorf("Evaluate(49) = %v, want Allow", got)
	}
	if got := p.Evaluate(90); got != Block {
		t.Errorf("Evaluate(90) = %v, want Block", got)
	}
}

func TestValidScore(t *testing.T) {
	for _, s := range []int{0, 50, 100} {
		if !ValidScore(s) {
			t.Errorf("ValidScore(%d) = false", s)
		}
	}
	for _, s := range []int{-1, 101} {
		if ValidScore(s) {
			t.Errorf("ValidScore(%d) = true", s)
		}
	}
}
