package lcdpipe

import (
	"fmt"
	"hash/fnv"
	"sort"
	"sync"
)

// Zone is a named UI region with a cheap content signature used to detect
// "nothing changed, skip this zone".
type Zone struct {
	Name    string
	Bounds  Rect
	lastSig uint64
	hasSig  bool
}

// Registry holds the zone table and owns the dirty tracker. MarkDirty and
// MarkValue are the only inbound surface into the pipeline; external
// collaborators (HTTP redraw requests, input watchers) go through it too.
type Registry struct {
	mu      sync.Mutex
	bounds  Rect
	zones   map[string]*Zone
	tracker *Tracker
	tel     *Telemetry
}

// NewRegistry builds an empty registry over the buffer bounds. tel may be
// nil when no telemetry is wanted (tests).
func NewRegistry(bounds Rect, maxRegions int, mergeRatio float64, tel *Telemetry) (*Registry, error) {
	tr, err := NewTracker(bounds, maxRegions, mergeRatio)
	if err != nil {
		return nil, err
	}
	return &Registry{
		bounds:  bounds,
		zones:   make(map[string]*Zone),
		tracker: tr,
		tel:     tel,
	}, nil
}

// AddZone declares a named region. Bounds outside the buffer are a
// configuration error and refuse to start.
func (g *Registry) AddZone(name string, bounds Rect) error {
	if name == "" {
		return fmt.Errorf("lcdpipe: zone name must not be empty")
	}
	if bounds.Empty() || !bounds.In(g.bounds) {
		return fmt.Errorf("lcdpipe: zone %q bounds %v outside buffer %v", name, bounds, g.bounds)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.zones[name]; ok {
		return fmt.Errorf("lcdpipe: zone %q already registered", name)
	}
	g.zones[name] = &Zone{Name: name, Bounds: bounds}
	return nil
}

// ZoneBounds returns the declared rect of a zone.
func (g *Registry) ZoneBounds(name string) (Rect, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	z, ok := g.zones[name]
	if !ok {
		return Rect{}, false
	}
	return z.Bounds, true
}

// ZoneNames returns the registered zone names, sorted for stable output.
func (g *Registry) ZoneNames() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	names := make([]string, 0, len(g.zones))
	for n := range g.zones {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// MarkDirty records that rect r of the named zone changed. The rect is
// clipped to the zone's declared bounds before entering the tracker.
// Unknown zones are ignored; redraw requests arrive from outside and a
// stale zone name must not take the pipeline down.
func (g *Registry) MarkDirty(name string, r Rect) {
	g.mu.Lock()
	defer g.mu.Unlock()
	z, ok := g.zones[name]
	if !ok {
		return
	}
	g.tracker.Add(r.Clip(z.Bounds))
}

// MarkZoneDirty marks the zone's whole declared rect.
func (g *Registry) MarkZoneDirty(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	z, ok := g.zones[name]
	if !ok {
		return
	}
	g.tracker.Add(z.Bounds)
}

// MarkValue is the signature gate used by zone painters: it compares sig
// against the zone's last-rendered signature and, when unchanged, skips the
// zone (counted in telemetry) and reports false. Otherwise it stores sig,
// marks r dirty and reports true.
func (g *Registry) MarkValue(name string, sig uint64, r Rect) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	z, ok := g.zones[name]
	if !ok {
		return false
	}
	if z.hasSig && z.lastSig == sig {
		if g.tel != nil {
			g.tel.zonesSkipped.Add(1)
		}
		return false
	}
	z.lastSig = sig
	z.hasSig = true
	g.tracker.Add(r.Clip(z.Bounds))
	return true
}

// InvalidateSignatures drops all stored signatures so every zone repaints
// and re-marks, used together with a forced full-frame redraw.
func (g *Registry) InvalidateSignatures() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, z := range g.zones {
		z.hasSig = false
	}
}

// ForceFull collapses the current frame to a full-frame transfer.
func (g *Registry) ForceFull() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.tracker.ForceFull()
}

// TakeDirty hands the accumulated DirtySet to the frame scheduler and
// resets for the next frame.
func (g *Registry) TakeDirty() DirtySet {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tracker.Take()
}

// Signature hashes a rendered value so painters get a cheap content
// signature without keeping the string around.
func Signature(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
