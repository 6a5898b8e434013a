package cosched

import "testing"

func TestPriorityZeroValueIsNormal(t *testing.T) {
	var p Priority
	if p != Normal {
		t.Fatalf("zero value of Priority = %v, want Normal", p)
	}
	if Attr{}.CPUPriority != Normal {
		t.Fatalf("zero-value Attr.CPUPriority = %v, want Normal", Attr{}.CPUPriority)
	}
}

func TestPriorityIndexOrdersHighFirst(t *testing.T) {
	cases := []struct {
		p    Priority
		want int
	}{
		{High, 0},
		{Normal, 1},
		{Low, 2},
	}
	for _, c := range cases {
		if got := c.p.index(); got != c.want {
			t.Errorf("%v.index() = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestPriorityOrNormal(t *testing.T) {
	if Unchanged.orNormal() != Normal {
		t.Errorf("Unchanged.orNormal() = %v, want Normal", Unchanged.orNormal())
	}
	if High.orNormal() != High {
		t.Errorf("High.orNormal() = %v, want High", High.orNormal())
	}
}

func TestPriorityString(t *testing.T) {
	cases := map[Priority]string{
		High: "high", Normal: "normal", Low: "low", Unchanged: "unchanged",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("%v.String() = %q, want %q", p, got, want)
		}
	}
}
