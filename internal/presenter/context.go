package presenter

import (
	"github.com/TattooNOW/tattoonow-show/internal/broadcast"
	"github.com/TattooNOW/tattoonow-show/internal/models"
	"github.com/TattooNOW/tattoonow-show/internal/rundown"
)

// NotesContext returns the notes context for the active slide, or nil when
// this replica is not the notes-context source or holds no slides.
func (p *Presentation) NotesContext() *broadcast.NotesContext {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.notesContextLocked()
}

func (p *Presentation) notesContextLocked() *broadcast.NotesContext {
	if p.episode == nil || len(p.slides) == 0 {
		return nil
	}
	return BuildNotesContext(p.slides, p.index, *p.episode)
}

// BuildNotesContext assembles the notes window payload for slides[index]
func BuildNotesContext(slides []models.Slide, index int, episode models.Episode) *broadcast.NotesContext {
	if index < 0 || index >= len(slides) {
		return nil
	}
	slide := &slides[index]
	ctx := &broadcast.NotesContext{
		SlideIndex:     index,
		SlideCount:     len(slides),
		SlideType:      string(slide.Type),
		Title:          slide.Heading(),
		RundownLabel:   slide.RundownLabel,
		TargetTimeCode: slide.TargetTimeCode,
		DurationMs:     slide.DurationMs,
		Episode:        episode,
	}
	if slide.DurationMs > 0 {
		ctx.Duration = rundown.FormatDuration(slide.DurationMs)
	}
	switch slide.Type {
	case models.SlideScript:
		if s := slide.Script; s != nil {
			ctx.Subtitle = s.Subtitle
			ctx.Script = s.Script
			ctx.TalkingPoints = s.TalkingPoints
			ctx.PresenterNotes = s.PresenterNotes
			ctx.Cue = s.Cue
		}
	case models.SlideEducation:
		if e := slide.Education; e != nil {
			ctx.TalkingPoints = e.KeyPoints
		}
	case models.SlideTitle:
		if t := slide.Title; t != nil {
			ctx.Subtitle = t.Caption
		}
	case models.SlidePortfolio:
		if pf := slide.Portfolio; pf != nil {
			ctx.Subtitle = pf.Handle
		}
	}
	if index+1 < len(slides) {
		ctx.Next = slides[index+1].Heading()
	}
	return ctx
}
