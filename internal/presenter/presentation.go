// Package presenter implements the presentation state machine that every
// window replicates. Local operations and inbound sync messages share one
// mutation path: an operation builds the message it will publish and applies
// that same message to the local replica.
package presenter

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/TattooNOW/tattoonow-show/internal/broadcast"
	"github.com/TattooNOW/tattoonow-show/internal/models"
)

// Option configures a Presentation
type Option func(*Presentation)

// WithOrigin sets the origin id stamped on published messages
func WithOrigin(origin string) Option {
	return func(p *Presentation) { p.origin = origin }
}

// WithStartIndex sets the initial slide, clamped to the sequence
func WithStartIndex(index int) Option {
	return func(p *Presentation) { p.startIndex = index }
}

// WithNotesContext makes this replica the notes-context source: it rebroadcasts
// the active slide's context on every slide change and whenever a notes window
// announces it is ready.
func WithNotesContext(episode models.Episode) Option {
	return func(p *Presentation) {
		ep := episode
		p.episode = &ep
	}
}

// Presentation is one window's replica of the presentation state
type Presentation struct {
	mu         sync.Mutex
	origin     string
	slides     []models.Slide
	bus        broadcast.Bus
	episode    *models.Episode
	startIndex int

	index          int
	showQR         bool
	showLowerThird bool
	layout         models.PortfolioLayout
	selectedImage  *int
	autoMode       bool
	slideElapsed   time.Duration
	showElapsed    time.Duration
	showStarted    bool
	// autoFired latches once auto-advance fires and is cleared only when the
	// slide index changes.
	autoFired bool
}

// New creates a replica over slides. bus may be nil for a detached replica.
func New(slides []models.Slide, bus broadcast.Bus, opts ...Option) *Presentation {
	p := &Presentation{
		slides: slides,
		bus:    bus,
		layout: models.LayoutGrid,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.origin == "" {
		p.origin = uuid.NewString()
	}
	p.index = p.clamp(p.startIndex)
	return p
}

// Origin returns the id this replica stamps on its messages
func (p *Presentation) Origin() string {
	return p.origin
}

// Slides returns the compiled slide sequence
func (p *Presentation) Slides() []models.Slide {
	return p.slides
}

func (p *Presentation) clamp(index int) int {
	if index < 0 || len(p.slides) == 0 {
		return 0
	}
	if index > len(p.slides)-1 {
		return len(p.slides) - 1
	}
	return index
}

// apply is the only place replica state changes. It reports whether the slide
// index changed. Callers hold p.mu.
func (p *Presentation) apply(msg broadcast.StateMessage) bool {
	switch msg.Kind {
	case broadcast.StateSlide:
		if len(p.slides) == 0 {
			return false
		}
		changed := false
		if next := p.clamp(msg.Index); next != p.index {
			p.index = next
			p.slideElapsed = 0
			p.autoFired = false
			p.showStarted = true
			changed = true
			if o := p.slides[next].Overlays; o != nil {
				p.showQR = p.showQR || o.QR
				p.showLowerThird = p.showLowerThird || o.LowerThird
			}
		}
		p.selectedImage = nil
		p.layout = models.LayoutGrid
		return changed
	case broadcast.StateShowQR:
		p.showQR = msg.Value
	case broadcast.StateShowLowerThird:
		p.showLowerThird = msg.Value
	case broadcast.StateLayout:
		p.layout = msg.Layout
		if p.layout != models.LayoutFullscreen {
			p.layout = models.LayoutGrid
			p.selectedImage = nil
		}
	case broadcast.StateSelectedImage:
		if msg.Image != nil {
			img := *msg.Image
			p.selectedImage = &img
			p.layout = models.LayoutFullscreen
		} else {
			p.selectedImage = nil
			p.layout = models.LayoutGrid
		}
	case broadcast.StateAutoMode:
		p.autoMode = msg.Value
	}
	return false
}

// commit applies msg locally and publishes it. It takes p.mu.
func (p *Presentation) commit(msg broadcast.StateMessage) bool {
	msg.Origin = p.origin
	p.mu.Lock()
	changed := p.apply(msg)
	var ctx *broadcast.NotesContext
	if changed {
		ctx = p.notesContextLocked()
	}
	p.mu.Unlock()

	p.publish(msg)
	p.publishContext(ctx)
	return changed
}

func (p *Presentation) publish(msg broadcast.Message) {
	if p.bus != nil {
		p.bus.Publish(msg)
	}
}

func (p *Presentation) publishContext(ctx *broadcast.NotesContext) {
	if ctx == nil {
		return
	}
	p.publish(broadcast.ContextMessage{Origin: p.origin, Kind: broadcast.ContextUpdate, Context: ctx})
}

// NextSlide advances one slide. At the last slide it does nothing.
func (p *Presentation) NextSlide() bool {
	p.mu.Lock()
	target := p.index + 1
	ok := target < len(p.slides)
	p.mu.Unlock()
	if !ok {
		return false
	}
	return p.commit(broadcast.StateMessage{Kind: broadcast.StateSlide, Index: target})
}

// PreviousSlide steps back one slide. At the first slide it does nothing.
func (p *Presentation) PreviousSlide() bool {
	p.mu.Lock()
	target := p.index - 1
	ok := target >= 0 && len(p.slides) > 0
	p.mu.Unlock()
	if !ok {
		return false
	}
	return p.commit(broadcast.StateMessage{Kind: broadcast.StateSlide, Index: target})
}

// JumpToSlide moves to index, clamped to the sequence
func (p *Presentation) JumpToSlide(index int) bool {
	p.mu.Lock()
	empty := len(p.slides) == 0
	target := p.clamp(index)
	p.mu.Unlock()
	if empty {
		return false
	}
	return p.commit(broadcast.StateMessage{Kind: broadcast.StateSlide, Index: target})
}

// JumpToSegment moves to the first slide produced by the rundown entry with
// the given label. Unknown labels are a no-op.
func (p *Presentation) JumpToSegment(label string) bool {
	i, ok := models.FirstSlideForLabel(p.slides, label)
	if ok {
		p.JumpToSlide(i)
	}
	return ok
}

// ToggleQR flips the QR overlay and returns its new value
func (p *Presentation) ToggleQR() bool {
	p.mu.Lock()
	v := !p.showQR
	p.mu.Unlock()
	p.commit(broadcast.StateMessage{Kind: broadcast.StateShowQR, Value: v})
	return v
}

// ToggleLowerThird flips the lower-third overlay and returns its new value
func (p *Presentation) ToggleLowerThird() bool {
	p.mu.Lock()
	v := !p.showLowerThird
	p.mu.Unlock()
	p.commit(broadcast.StateMessage{Kind: broadcast.StateShowLowerThird, Value: v})
	return v
}

// TogglePortfolioLayout flips between grid and fullscreen
func (p *Presentation) TogglePortfolioLayout() models.PortfolioLayout {
	p.mu.Lock()
	layout := models.LayoutFullscreen
	if p.layout == models.LayoutFullscreen {
		layout = models.LayoutGrid
	}
	p.mu.Unlock()
	p.commit(broadcast.StateMessage{Kind: broadcast.StateLayout, Layout: layout})
	return layout
}

// SelectImage zooms into image; nil returns to the grid
func (p *Presentation) SelectImage(image *int) {
	var img *int
	if image != nil {
		v := *image
		img = &v
	}
	p.commit(broadcast.StateMessage{Kind: broadcast.StateSelectedImage, Image: img})
}

// ToggleAutoMode flips between manual and automatic advancement
func (p *Presentation) ToggleAutoMode() bool {
	p.mu.Lock()
	v := !p.autoMode
	p.mu.Unlock()
	p.commit(broadcast.StateMessage{Kind: broadcast.StateAutoMode, Value: v})
	return v
}

// Tick adds d to the elapsed counters and fires auto-advance at most once
// per threshold crossing. It reports whether it advanced.
func (p *Presentation) Tick(d time.Duration) bool {
	if d < 0 {
		d = 0
	}
	p.mu.Lock()
	if len(p.slides) == 0 {
		p.mu.Unlock()
		return false
	}
	p.slideElapsed += d
	if p.showStarted {
		p.showElapsed += d
	}

	dur := time.Duration(p.slides[p.index].DurationMs) * time.Millisecond
	fire := p.autoMode && !p.autoFired && dur > 0 && p.slideElapsed >= dur && p.index < len(p.slides)-1
	if !fire {
		p.mu.Unlock()
		return false
	}
	p.autoFired = true
	msg := broadcast.StateMessage{Origin: p.origin, Kind: broadcast.StateSlide, Index: p.index + 1}
	changed := p.apply(msg)
	var ctx *broadcast.NotesContext
	if changed {
		ctx = p.notesContextLocked()
	}
	p.mu.Unlock()

	p.publish(msg)
	p.publishContext(ctx)
	return changed
}

// Receive applies a message published by another window. Messages carrying
// this replica's own origin are ignored. Conflicting commands resolve
// last-write-wins in delivery order.
func (p *Presentation) Receive(msg broadcast.Message) {
	switch m := msg.(type) {
	case broadcast.StateMessage:
		if m.Origin == p.origin || m.Validate() != nil {
			return
		}
		p.mu.Lock()
		changed := p.apply(m)
		var ctx *broadcast.NotesContext
		if changed {
			ctx = p.notesContextLocked()
		}
		p.mu.Unlock()
		p.publishContext(ctx)
	case broadcast.ContextMessage:
		if m.Origin == p.origin || m.Kind != broadcast.ContextReady {
			return
		}
		p.mu.Lock()
		ctx := p.notesContextLocked()
		p.mu.Unlock()
		p.publishContext(ctx)
	}
}

// Snapshot returns a copy of the current state
func (p *Presentation) Snapshot() models.PresentationState {
	p.mu.Lock()
	defer p.mu.Unlock()
	var img *int
	if p.selectedImage != nil {
		v := *p.selectedImage
		img = &v
	}
	return models.PresentationState{
		CurrentSlideIndex: p.index,
		ShowQR:            p.showQR,
		ShowLowerThird:    p.showLowerThird,
		PortfolioLayout:   p.layout,
		SelectedImage:     img,
		AutoMode:          p.autoMode,
		SlideElapsedMs:    p.slideElapsed.Milliseconds(),
		ShowElapsedMs:     p.showElapsed.Milliseconds(),
		SlideCount:        len(p.slides),
	}
}

// SyncMessages expresses the current state in the operation vocabulary so a
// newly opened window can rebuild its replica from them.
func (p *Presentation) SyncMessages() []broadcast.StateMessage {
	s := p.Snapshot()
	msgs := []broadcast.StateMessage{
		{Origin: p.origin, Kind: broadcast.StateSlide, Index: s.CurrentSlideIndex},
		{Origin: p.origin, Kind: broadcast.StateShowQR, Value: s.ShowQR},
		{Origin: p.origin, Kind: broadcast.StateShowLowerThird, Value: s.ShowLowerThird},
		{Origin: p.origin, Kind: broadcast.StateAutoMode, Value: s.AutoMode},
	}
	if s.SelectedImage != nil {
		msgs = append(msgs, broadcast.StateMessage{Origin: p.origin, Kind: broadcast.StateSelectedImage, Image: s.SelectedImage})
	} else {
		msgs = append(msgs, broadcast.StateMessage{Origin: p.origin, Kind: broadcast.StateLayout, Layout: s.PortfolioLayout})
	}
	return msgs
}
