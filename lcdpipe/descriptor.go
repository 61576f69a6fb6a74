package lcdpipe

import "fmt"

// DefaultMaxChunk is the hardware per-descriptor byte limit of the display
// peripheral's DMA engine.
const DefaultMaxChunk = 4092

// Descriptor describes one contiguous slice of the front buffer to move in
// a single engine transfer. Descriptors live in the builder's arena and are
// linked by arena index rather than pointer; the hardware submission layer
// resolves indices when it walks a run.
type Descriptor struct {
	Offset int  // byte offset into the source buffer
	Length int  // valid bytes, always <= MaxChunk
	First  bool // first descriptor of the frame, for controller sync
	Next   int  // arena index of the next descriptor in the run, -1 ends it
}

// Run is the descriptor sub-chain covering a single address window. The
// window's pixel bytes are the concatenation of the run's descriptors in
// link order.
type Run struct {
	Window Rect
	Head   int // arena index of the first descriptor
}

// Chain is one frame's worth of transfer work: the descriptor arena plus
// the ordered runs that reference into it. The chain is owned by the
// builder until handed to the panel driver, which treats it as read-only
// for the duration of the transfer.
type Chain struct {
	desc []Descriptor
	runs []Run
}

// Runs returns the address-window runs in transfer order.
func (c *Chain) Runs() []Run { return c.runs }

// Len returns the total descriptor count.
func (c *Chain) Len() int { return len(c.desc) }

// RunDescriptors materializes the descriptor sequence of one run by
// following the arena links.
func (c *Chain) RunDescriptors(r Run) []Descriptor {
	var out []Descriptor
	for i := r.Head; i >= 0; i = c.desc[i].Next {
		out = append(out, c.desc[i])
	}
	return out
}

// ChainBuilder slices the bytes covered by a DirtySet into hardware-legal
// descriptor runs.
type ChainBuilder struct {
	width    int
	height   int
	maxChunk int

	arena []Descriptor // reused across frames
}

// NewChainBuilder validates geometry against the chunk limit. A limit
// smaller than one pixel can never make progress and refuses to start; an
// odd limit would split a pixel across descriptors and misalign every
// pixel after it in the window.
func NewChainBuilder(width, height, maxChunk int) (*ChainBuilder, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("lcdpipe: invalid chain geometry %dx%d", width, height)
	}
	if maxChunk < 2 {
		return nil, fmt.Errorf("lcdpipe: max chunk %d below one pixel", maxChunk)
	}
	if maxChunk%2 != 0 {
		return nil, fmt.Errorf("lcdpipe: max chunk %d must be whole pixels", maxChunk)
	}
	return &ChainBuilder{width: width, height: height, maxChunk: maxChunk}, nil
}

// MaxChunk returns the per-descriptor byte limit the builder honors.
func (b *ChainBuilder) MaxChunk() int { return b.maxChunk }

// Build converts the DirtySet into a chain against the committed front
// buffer's layout. Full-frame sets ignore zone clipping and emit a single
// run over the whole panel; the buffer is contiguous in memory, so that run
// is one span split only by the chunk limit.
func (b *ChainBuilder) Build(ds DirtySet) (*Chain, error) {
	b.arena = b.arena[:0]
	c := &Chain{}

	if ds.FullFrame {
		full := Rect{W: b.width, H: b.height}
		b.appendRun(c, full)
		c.desc = b.arena
		return c, nil
	}

	bounds := Rect{W: b.width, H: b.height}
	for _, r := range ds.Rects {
		if !r.In(bounds) || r.Empty() {
			return nil, fmt.Errorf("lcdpipe: dirty rect %v outside buffer %dx%d", r, b.width, b.height)
		}
		b.appendRun(c, r)
	}
	c.desc = b.arena
	return c, nil
}

// appendRun emits the descriptor sub-chain for one rect. A rect narrower
// than the buffer produces one span per row, because DMA only moves
// contiguous memory; a full-width rect collapses to a single span across
// all of its rows.
func (b *ChainBuilder) appendRun(c *Chain, r Rect) {
	stride := b.width * 2
	head := len(b.arena)

	if r.X == 0 && r.W == b.width {
		off := r.Y * stride
		b.appendSpan(off, r.H*stride)
	} else {
		for y := r.Y; y < r.Y+r.H; y++ {
			off := y*stride + r.X*2
			b.appendSpan(off, r.W*2)
		}
	}

	// Link the run and flag the very first descriptor of the frame.
	for i := head; i < len(b.arena)-1; i++ {
		b.arena[i].Next = i + 1
	}
	if len(b.arena) > head {
		b.arena[len(b.arena)-1].Next = -1
		if head == 0 {
			b.arena[0].First = true
		}
		c.runs = append(c.runs, Run{Window: r, Head: head})
	}
}

// appendSpan splits one contiguous byte range by the chunk limit.
func (b *ChainBuilder) appendSpan(off, length int) {
	for length > 0 {
		n := min(length, b.maxChunk)
		b.arena = append(b.arena, Descriptor{Offset: off, Length: n, Next: -1})
		off += n
		length -= n
	}
}
