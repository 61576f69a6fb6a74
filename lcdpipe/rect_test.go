package lcdpipe

import "testing"

func TestRectUnion(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{"overlapping", Rect{0, 0, 100, 100}, Rect{50, 50, 100, 100}, Rect{0, 0, 150, 150}},
		{"disjoint", Rect{0, 0, 10, 10}, Rect{100, 100, 10, 10}, Rect{0, 0, 110, 110}},
		{"contained", Rect{0, 0, 100, 100}, Rect{10, 10, 20, 20}, Rect{0, 0, 100, 100}},
		{"empty operand", Rect{}, Rect{5, 5, 10, 10}, Rect{5, 5, 10, 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Union(tt.b); got != tt.want {
				t.Errorf("Union(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
			if got := tt.b.Union(tt.a); got != tt.want {
				t.Errorf("union not commutative: %v", got)
			}
		})
	}
}

func TestRectClip(t *testing.T) {
	bounds := Rect{0, 0, 320, 170}
	tests := []struct {
		name string
		r    Rect
		want Rect
	}{
		{"inside", Rect{10, 10, 20, 20}, Rect{10, 10, 20, 20}},
		{"overhang right", Rect{310, 0, 50, 10}, Rect{310, 0, 10, 10}},
		{"overhang bottom", Rect{0, 160, 10, 50}, Rect{0, 160, 10, 10}},
		{"negative origin", Rect{-5, -5, 20, 20}, Rect{0, 0, 15, 15}},
		{"fully outside", Rect{400, 400, 10, 10}, Rect{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.Clip(bounds); got != tt.want {
				t.Errorf("Clip(%v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}

func TestRectIntersectsAndArea(t *testing.T) {
	a := Rect{0, 0, 100, 100}
	if !a.Intersects(Rect{50, 50, 100, 100}) {
		t.Error("expected overlap")
	}
	if a.Intersects(Rect{100, 0, 10, 10}) {
		t.Error("touching rects must not count as overlapping")
	}
	if got := (Rect{0, 0, 320, 170}).Area(); got != 54400 {
		t.Errorf("Area = %d, want 54400", got)
	}
	if got := (Rect{}).Area(); got != 0 {
		t.Errorf("empty area = %d", got)
	}
}

func TestRectIn(t *testing.T) {
	bounds := Rect{0, 0, 320, 170}
	if !(Rect{150, 45, 100, 8}).In(bounds) {
		t.Error("rect should fit")
	}
	if (Rect{300, 160, 100, 8}).In(bounds) {
		t.Error("overhanging rect should not fit")
	}
}
