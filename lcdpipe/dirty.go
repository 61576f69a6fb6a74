package lcdpipe

import "fmt"

const (
	// DefaultMaxRegions caps the number of merged rects carried per frame
	// before the tracker falls back to a full-frame transfer.
	DefaultMaxRegions = 10

	// DefaultMergeRatio is the area-overhead ratio under which two rects
	// are coalesced into their bounding box. Tunable; validate against the
	// target panel's timing.
	DefaultMergeRatio = 1.3
)

// DirtySet is the per-frame output of the tracker: at most the configured
// number of merged rects, or the full-frame fallback. It is built at frame
// start and consumed exactly once by the chain builder.
type DirtySet struct {
	Rects     []Rect
	FullFrame bool
}

// Empty reports whether nothing needs to be transferred this frame.
func (d DirtySet) Empty() bool {
	return !d.FullFrame && len(d.Rects) == 0
}

// Tracker accumulates dirty rects between frames, merging and clipping them
// so the transfer stage sees a bounded number of regions.
type Tracker struct {
	bounds     Rect
	maxRegions int
	mergeRatio float64

	pending []Rect
	full    bool
}

// NewTracker builds a tracker for a buffer of the given bounds.
func NewTracker(bounds Rect, maxRegions int, mergeRatio float64) (*Tracker, error) {
	if bounds.Empty() {
		return nil, fmt.Errorf("lcdpipe: tracker bounds %v are empty", bounds)
	}
	if maxRegions <= 0 {
		return nil, fmt.Errorf("lcdpipe: region cap must be positive, got %d", maxRegions)
	}
	if mergeRatio < 1.0 {
		return nil, fmt.Errorf("lcdpipe: merge ratio %.2f below 1.0 would reject exact unions", mergeRatio)
	}
	return &Tracker{
		bounds:     bounds,
		maxRegions: maxRegions,
		mergeRatio: mergeRatio,
		pending:    make([]Rect, 0, maxRegions),
	}, nil
}

// Add records a changed region. The rect is clipped to the tracker bounds;
// a rect whose bounding-box union with a pending rect costs no more than
// mergeRatio times their combined area is merged in place. Exceeding the
// region cap collapses everything into a full-frame rect, the expected
// degradation path rather than an error.
func (t *Tracker) Add(r Rect) {
	if t.full {
		return
	}
	r = r.Clip(t.bounds)
	if r.Empty() {
		return
	}
	for i, p := range t.pending {
		u := p.Union(r)
		if float64(u.Area()) <= t.mergeRatio*float64(p.Area()+r.Area()) {
			t.pending[i] = u
			t.remergeFrom(i)
			return
		}
	}
	if len(t.pending) >= t.maxRegions {
		t.ForceFull()
		return
	}
	t.pending = append(t.pending, r)
}

// remergeFrom re-checks a grown rect against the rest of the pending list,
// since one union can make further unions profitable.
func (t *Tracker) remergeFrom(i int) {
	for {
		grown := t.pending[i]
		merged := false
		for j := 0; j < len(t.pending); j++ {
			if j == i {
				continue
			}
			u := grown.Union(t.pending[j])
			if float64(u.Area()) <= t.mergeRatio*float64(grown.Area()+t.pending[j].Area()) {
				t.pending[i] = u
				t.pending = append(t.pending[:j], t.pending[j+1:]...)
				if j < i {
					i--
				}
				merged = true
				break
			}
		}
		if !merged {
			return
		}
	}
}

// ForceFull marks the whole frame dirty, used after a transfer fault and on
// cap overflow.
func (t *Tracker) ForceFull() {
	t.full = true
	t.pending = t.pending[:0]
}

// Take returns the accumulated DirtySet and resets the tracker for the next
// frame.
func (t *Tracker) Take() DirtySet {
	ds := DirtySet{FullFrame: t.full}
	if !t.full && len(t.pending) > 0 {
		ds.Rects = make([]Rect, len(t.pending))
		copy(ds.Rects, t.pending)
	}
	t.pending = t.pending[:0]
	t.full = false
	return ds
}
