package presenter

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/TattooNOW/tattoonow-show/internal/broadcast"
	"github.com/TattooNOW/tattoonow-show/internal/models"
)

func makeSlides(durations ...int64) []models.Slide {
	slides := make([]models.Slide, len(durations))
	for i, d := range durations {
		slides[i] = models.Slide{
			Type:       models.SlideScript,
			Script:     &models.ScriptContent{Title: "Slide"},
			DurationMs: d,
			EntryIndex: i,
		}
	}
	return slides
}

// recordingBus captures published messages synchronously.
type recordingBus struct {
	msgs []broadcast.Message
}

func (b *recordingBus) Publish(msg broadcast.Message) { b.msgs = append(b.msgs, msg) }

func (b *recordingBus) Subscribe(broadcast.Topic) *broadcast.Subscription { return nil }

func (b *recordingBus) state() []broadcast.StateMessage {
	var out []broadcast.StateMessage
	for _, m := range b.msgs {
		if s, ok := m.(broadcast.StateMessage); ok {
			out = append(out, s)
		}
	}
	return out
}

func TestInitialState(t *testing.T) {
	p := New(makeSlides(0, 0, 0), nil, WithStartIndex(9))
	s := p.Snapshot()
	if s.CurrentSlideIndex != 2 {
		t.Errorf("start index not clamped: %d", s.CurrentSlideIndex)
	}
	if s.ShowQR || s.ShowLowerThird || s.AutoMode || s.PortfolioLayout != models.LayoutGrid || s.SelectedImage != nil {
		t.Errorf("unexpected initial state %+v", s)
	}
}

func TestCursorBoundaries(t *testing.T) {
	bus := &recordingBus{}
	p := New(makeSlides(0, 0, 0), bus)

	if p.PreviousSlide() {
		t.Error("PreviousSlide at 0 reported a change")
	}
	if got := p.Snapshot().CurrentSlideIndex; got != 0 {
		t.Fatalf("index %d after PreviousSlide at 0", got)
	}
	if len(bus.msgs) != 0 {
		t.Errorf("no-op published %d messages", len(bus.msgs))
	}

	p.NextSlide()
	p.NextSlide()
	if p.NextSlide() {
		t.Error("NextSlide at last reported a change")
	}
	if got := p.Snapshot().CurrentSlideIndex; got != 2 {
		t.Fatalf("index %d, want 2", got)
	}
	if n := len(bus.state()); n != 2 {
		t.Errorf("got %d published messages, want 2", n)
	}
}

func TestCursorInvariantRandomWalk(t *testing.T) {
	slides := makeSlides(0, 0, 0, 0, 0)
	p := New(slides, nil)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		switch rng.Intn(3) {
		case 0:
			p.NextSlide()
		case 1:
			p.PreviousSlide()
		case 2:
			p.JumpToSlide(rng.Intn(20) - 10)
		}
		s := p.Snapshot()
		if s.CurrentSlideIndex < 0 || s.CurrentSlideIndex >= len(slides) {
			t.Fatalf("step %d: index %d out of range", i, s.CurrentSlideIndex)
		}
		if s.SelectedImage != nil || s.PortfolioLayout != models.LayoutGrid {
			t.Fatalf("step %d: navigation left zoom state %+v", i, s)
		}
	}
}

func TestResetOnNavigate(t *testing.T) {
	p := New(makeSlides(0, 0), nil)
	img := 3
	p.SelectImage(&img)
	s := p.Snapshot()
	if s.PortfolioLayout != models.LayoutFullscreen || s.SelectedImage == nil || *s.SelectedImage != 3 {
		t.Fatalf("SelectImage did not zoom: %+v", s)
	}
	p.NextSlide()
	s = p.Snapshot()
	if s.SelectedImage != nil || s.PortfolioLayout != models.LayoutGrid {
		t.Errorf("zoom survived navigation: %+v", s)
	}
}

func TestOverlayAndLayoutToggles(t *testing.T) {
	p := New(makeSlides(0), nil)
	if !p.ToggleQR() || !p.Snapshot().ShowQR {
		t.Error("ToggleQR did not enable")
	}
	if p.ToggleQR() || p.Snapshot().ShowQR {
		t.Error("ToggleQR did not disable")
	}
	if !p.ToggleLowerThird() {
		t.Error("ToggleLowerThird did not enable")
	}
	if p.TogglePortfolioLayout() != models.LayoutFullscreen {
		t.Error("layout did not flip to fullscreen")
	}
	img := 1
	p.SelectImage(&img)
	if p.TogglePortfolioLayout() != models.LayoutGrid {
		t.Error("layout did not flip to grid")
	}
	if p.Snapshot().SelectedImage != nil {
		t.Error("grid layout kept a selected image")
	}
	p.SelectImage(&img)
	p.SelectImage(nil)
	if s := p.Snapshot(); s.SelectedImage != nil || s.PortfolioLayout != models.LayoutGrid {
		t.Errorf("SelectImage(nil) should return to grid: %+v", s)
	}
	if !p.ToggleAutoMode() {
		t.Error("ToggleAutoMode did not enable")
	}
}

func TestJumpToSegment(t *testing.T) {
	slides := makeSlides(0, 0, 0, 0)
	slides[2].RundownLabel = "Panel"
	slides[3].RundownLabel = "Panel"
	p := New(slides, nil)

	if !p.JumpToSegment("Panel") {
		t.Fatal("JumpToSegment returned false")
	}
	if got := p.Snapshot().CurrentSlideIndex; got != 2 {
		t.Errorf("index %d, want 2", got)
	}
	if p.JumpToSegment("Missing") {
		t.Error("unknown label reported success")
	}
	if got := p.Snapshot().CurrentSlideIndex; got != 2 {
		t.Errorf("unknown label moved cursor to %d", got)
	}
}

func TestEnteringSlideAppliesOverlayDirectives(t *testing.T) {
	slides := makeSlides(0, 0, 0)
	slides[1].Overlays = &models.Overlays{QR: true, LowerThird: true}
	p := New(slides, nil)
	remote := New(slides, nil, WithOrigin("audience:1"))

	p.NextSlide()
	s := p.Snapshot()
	if !s.ShowQR || !s.ShowLowerThird {
		t.Fatalf("overlays not applied on entry: %+v", s)
	}

	// the operator can still switch an overlay off while on the slide
	if p.ToggleQR() {
		t.Error("ToggleQR should disable the QR overlay")
	}
	p.NextSlide()
	if p.Snapshot().ShowQR {
		t.Error("a slide without directives re-enabled the QR overlay")
	}

	remote.Receive(broadcast.StateMessage{Origin: "controller:1", Kind: broadcast.StateSlide, Index: 1})
	if rs := remote.Snapshot(); !rs.ShowQR || !rs.ShowLowerThird {
		t.Errorf("replica did not apply overlays on entry: %+v", rs)
	}
}

func TestElapsedCounters(t *testing.T) {
	p := New(makeSlides(0, 0, 0), nil)
	p.Tick(500 * time.Millisecond)
	s := p.Snapshot()
	if s.SlideElapsedMs != 500 || s.ShowElapsedMs != 0 {
		t.Fatalf("before first advance: %+v", s)
	}
	p.NextSlide()
	p.Tick(300 * time.Millisecond)
	s = p.Snapshot()
	if s.SlideElapsedMs != 300 || s.ShowElapsedMs != 300 {
		t.Fatalf("after advance: %+v", s)
	}
	p.NextSlide()
	p.Tick(200 * time.Millisecond)
	s = p.Snapshot()
	if s.SlideElapsedMs != 200 {
		t.Errorf("slide elapsed not reset: %d", s.SlideElapsedMs)
	}
	if s.ShowElapsedMs != 500 {
		t.Errorf("show elapsed reset or skipped: %d", s.ShowElapsedMs)
	}
}

func TestAutoAdvanceSingleFire(t *testing.T) {
	bus := &recordingBus{}
	p := New(makeSlides(5000, 5000, 5000), bus)
	p.ToggleAutoMode()

	p.Tick(4999 * time.Millisecond)
	if got := p.Snapshot().CurrentSlideIndex; got != 0 {
		t.Fatalf("advanced early to %d", got)
	}
	// one large sample crossing the threshold several times over
	if !p.Tick(20 * time.Second) {
		t.Fatal("Tick did not advance")
	}
	if got := p.Snapshot().CurrentSlideIndex; got != 1 {
		t.Fatalf("index %d, want exactly 1", got)
	}
	slides := 0
	for _, m := range bus.state() {
		if m.Kind == broadcast.StateSlide {
			slides++
		}
	}
	if slides != 1 {
		t.Errorf("published %d slide messages, want 1", slides)
	}
}

func TestAutoAdvanceDisabledAndLastSlide(t *testing.T) {
	p := New(makeSlides(1000, 1000), nil)
	p.Tick(5 * time.Second)
	if got := p.Snapshot().CurrentSlideIndex; got != 0 {
		t.Fatalf("manual mode advanced to %d", got)
	}

	p.ToggleAutoMode()
	p.Tick(time.Millisecond)
	if got := p.Snapshot().CurrentSlideIndex; got != 1 {
		t.Fatalf("index %d, want 1", got)
	}
	for i := 0; i < 5; i++ {
		if p.Tick(5 * time.Second) {
			t.Fatal("advanced past the last slide")
		}
	}
}

func TestAutoAdvanceIgnoresZeroDuration(t *testing.T) {
	p := New(makeSlides(0, 1000), nil)
	p.ToggleAutoMode()
	if p.Tick(time.Hour) {
		t.Fatal("zero-duration slide auto-advanced")
	}
}

func TestEmptySequence(t *testing.T) {
	p := New(nil, nil)
	if p.NextSlide() || p.PreviousSlide() || p.JumpToSlide(3) || p.Tick(time.Second) {
		t.Fatal("operation on empty sequence reported a change")
	}
	if s := p.Snapshot(); s.CurrentSlideIndex != 0 || s.SlideCount != 0 {
		t.Errorf("unexpected state %+v", s)
	}
}

func TestReceiveMirrorsLocalOperations(t *testing.T) {
	slides := makeSlides(0, 0, 0)
	origin := &recordingBus{}
	a := New(slides, origin, WithOrigin("a"))
	b := New(slides, nil, WithOrigin("b"))

	img := 1
	a.NextSlide()
	a.ToggleQR()
	a.ToggleLowerThird()
	a.SelectImage(&img)
	a.ToggleAutoMode()
	a.NextSlide()
	a.TogglePortfolioLayout()

	for _, m := range origin.msgs {
		b.Receive(m)
	}
	sa, sb := a.Snapshot(), b.Snapshot()
	sa.SlideElapsedMs, sb.SlideElapsedMs = 0, 0
	if sa.CurrentSlideIndex != sb.CurrentSlideIndex || sa.ShowQR != sb.ShowQR ||
		sa.ShowLowerThird != sb.ShowLowerThird || sa.AutoMode != sb.AutoMode ||
		sa.PortfolioLayout != sb.PortfolioLayout || (sa.SelectedImage == nil) != (sb.SelectedImage == nil) {
		t.Errorf("replicas diverged:\n a=%+v\n b=%+v", sa, sb)
	}
}

func TestReceiveIgnoresOwnOrigin(t *testing.T) {
	p := New(makeSlides(0, 0), nil, WithOrigin("self"))
	p.Receive(broadcast.StateMessage{Origin: "self", Kind: broadcast.StateSlide, Index: 1})
	if got := p.Snapshot().CurrentSlideIndex; got != 0 {
		t.Errorf("own message applied, index %d", got)
	}
	p.Receive(broadcast.StateMessage{Origin: "other", Kind: broadcast.StateSlide, Index: 1})
	if got := p.Snapshot().CurrentSlideIndex; got != 1 {
		t.Errorf("remote message not applied, index %d", got)
	}
}

func TestLastWriteWins(t *testing.T) {
	p := New(makeSlides(0, 0, 0, 0), nil, WithOrigin("p"))
	p.Receive(broadcast.StateMessage{Origin: "x", Kind: broadcast.StateSlide, Index: 3})
	p.Receive(broadcast.StateMessage{Origin: "y", Kind: broadcast.StateSlide, Index: 1})
	if got := p.Snapshot().CurrentSlideIndex; got != 1 {
		t.Errorf("index %d, want last write 1", got)
	}
}

func TestNotesContextOnSlideChangeAndReady(t *testing.T) {
	bus := &recordingBus{}
	slides := makeSlides(0, 0)
	slides[1].Script.PresenterNotes = "breathe"
	p := New(slides, bus, WithOrigin("presenter"), WithNotesContext(models.Episode{Number: 12, Title: "Flash"}))

	p.NextSlide()
	var ctx *broadcast.NotesContext
	for _, m := range bus.msgs {
		if c, ok := m.(broadcast.ContextMessage); ok {
			ctx = c.Context
		}
	}
	if ctx == nil || ctx.SlideIndex != 1 || ctx.PresenterNotes != "breathe" || ctx.Episode.Number != 12 {
		t.Fatalf("unexpected context %+v", ctx)
	}

	bus.msgs = nil
	p.Receive(broadcast.ContextMessage{Origin: "notes", Kind: broadcast.ContextReady})
	if len(bus.msgs) != 1 {
		t.Fatalf("ready produced %d messages, want 1", len(bus.msgs))
	}
	if c := bus.msgs[0].(broadcast.ContextMessage); c.Kind != broadcast.ContextUpdate || c.Context.SlideIndex != 1 {
		t.Errorf("unexpected resend %+v", c)
	}

	bus.msgs = nil
	p.ToggleQR()
	for _, m := range bus.msgs {
		if _, ok := m.(broadcast.ContextMessage); ok {
			t.Error("overlay toggle rebroadcast notes context")
		}
	}
}

func TestBuildNotesContextFormatsDuration(t *testing.T) {
	slides := makeSlides(125000, 0)
	ctx := BuildNotesContext(slides, 0, models.Episode{})
	if ctx.Duration != "2:05" || ctx.DurationMs != 125000 {
		t.Errorf("got duration %q (%d ms), want 2:05", ctx.Duration, ctx.DurationMs)
	}
	if ctx := BuildNotesContext(slides, 1, models.Episode{}); ctx.Duration != "" {
		t.Errorf("zero-length slide got duration %q", ctx.Duration)
	}
}

func TestSyncMessagesRebuildReplica(t *testing.T) {
	slides := makeSlides(0, 0, 0)
	src := New(slides, nil, WithOrigin("src"))
	src.JumpToSlide(2)
	src.ToggleLowerThird()
	img := 4
	src.SelectImage(&img)

	fresh := New(slides, nil, WithOrigin("fresh"))
	for _, m := range src.SyncMessages() {
		fresh.Receive(m)
	}
	s := fresh.Snapshot()
	if s.CurrentSlideIndex != 2 || !s.ShowLowerThird || s.SelectedImage == nil || *s.SelectedImage != 4 {
		t.Errorf("replica not rebuilt: %+v", s)
	}
}

func TestRunnerConvergesAcrossWindows(t *testing.T) {
	bus := broadcast.NewMemoryBus()
	defer bus.Close()
	slides := makeSlides(0, 0, 0)

	presenter := New(slides, bus, WithOrigin("presenter"))
	audience := New(slides, bus, WithOrigin("audience"))
	ra := NewRunner(audience, bus, 5*time.Millisecond)
	ra.Start(context.Background())
	defer ra.Stop()

	presenter.NextSlide()
	presenter.ToggleQR()

	deadline := time.Now().Add(2 * time.Second)
	for {
		s := audience.Snapshot()
		if s.CurrentSlideIndex == 1 && s.ShowQR {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("audience replica did not converge: %+v", s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRunnerAutoAdvance(t *testing.T) {
	bus := broadcast.NewMemoryBus()
	defer bus.Close()
	p := New(makeSlides(20, 0, 0), bus)
	p.ToggleAutoMode()

	r := NewRunner(p, bus, 5*time.Millisecond)
	r.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for p.Snapshot().CurrentSlideIndex != 1 {
		if time.Now().After(deadline) {
			t.Fatal("runner did not auto-advance")
		}
		time.Sleep(5 * time.Millisecond)
	}
	r.Stop()
	r.Stop()
	if n := bus.Subscribers(broadcast.TopicState); n != 0 {
		t.Errorf("runner leaked %d state subscriptions", n)
	}
	if got := p.Snapshot().CurrentSlideIndex; got != 1 {
		t.Errorf("index %d, want 1", got)
	}
}
