package rundown

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/TattooNOW/tattoonow-show/internal/models"
)

// EntryKind is the closed vocabulary of rundown entry types
type EntryKind string

const (
	KindUnknown    EntryKind = ""
	KindTitleCard  EntryKind = "title-card"
	KindEndCard    EntryKind = "end-card"
	KindBumper     EntryKind = "bumper"
	KindIntro      EntryKind = "intro"
	KindOutro      EntryKind = "outro"
	KindGuestIntro EntryKind = "guest-intro"
	KindPortfolio  EntryKind = "portfolio"
	KindDiscussion EntryKind = "discussion"
	KindPanelIntro EntryKind = "panel-intro"
	KindEducation  EntryKind = "education"
	KindTextQA     EntryKind = "text-qa"
	KindClips      EntryKind = "clips"
	KindAdBreak    EntryKind = "ad-break"
	KindVariety    EntryKind = "variety"
)

const (
	endCardCaption = "Thanks for watching"
	snippetLimit   = 280
)

var kindAliases = map[string]EntryKind{
	"title-card":     KindTitleCard,
	"title":          KindTitleCard,
	"cold-open":      KindTitleCard,
	"end-card":       KindEndCard,
	"intro":          KindIntro,
	"show-intro":     KindIntro,
	"skeleton-intro": KindIntro,
	"host-intro":     KindIntro,
	"open":           KindIntro,
	"outro":          KindOutro,
	"show-outro":     KindOutro,
	"skeleton-outro": KindOutro,
	"close":          KindOutro,
	"guest-intro":    KindGuestIntro,
	"portfolio":      KindPortfolio,
	"discussion":     KindDiscussion,
	"panel":          KindDiscussion,
	"panel-intro":    KindPanelIntro,
	"education":      KindEducation,
	"text-qa":        KindTextQA,
	"clips":          KindClips,
	"variety":        KindVariety,
}

func normalizeType(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "_", "-")
	return strings.ReplaceAll(s, " ", "-")
}

// Classify resolves an entry to its kind. The legacy "segment" and "skeleton"
// types dispatch on the entry's Segment field.
func Classify(entry *models.RundownEntry) EntryKind {
	t := normalizeType(entry.Type)
	if (t == "segment" || t == "skeleton" || t == "") && entry.Segment != "" {
		t = normalizeType(entry.Segment)
	}
	switch {
	case strings.Contains(t, "bumper"):
		return KindBumper
	case strings.Contains(t, "ad-break"):
		return KindAdBreak
	}
	if kind, ok := kindAliases[t]; ok {
		return kind
	}
	return KindUnknown
}

// expandEntry returns the slides for one entry plus a diagnostic reason when
// the entry was dropped or degraded.
func expandEntry(ep *models.Episode, entry *models.RundownEntry, tapes map[string]*models.Tape) ([]models.Slide, string) {
	kind := Classify(entry)
	tape := tapes[entry.TapeID]
	if entry.TapeID == "" {
		tape = nil
	}

	switch kind {
	case KindBumper:
		return nil, ""
	case KindTitleCard:
		return []models.Slide{titleSlide(ep, "")}, ""
	case KindEndCard:
		return []models.Slide{titleSlide(ep, endCardCaption)}, ""
	case KindIntro, KindOutro:
		return []models.Slide{inlineSlide(entry, defaultHeading(kind))}, ""
	case KindAdBreak:
		return adBreakSlides(entry, tape, tapes), ""
	}

	var slides []models.Slide
	matched := false
	if tape != nil {
		slides, matched = expandTape(kind, entry, tape)
	}
	if matched {
		return slides, ""
	}

	var reason string
	switch {
	case kind == KindUnknown:
		reason = fmt.Sprintf("unrecognized entry type %q", entry.Type)
	case entry.TapeID == "":
		reason = fmt.Sprintf("%s entry has no tape", kind)
	case tape == nil:
		reason = fmt.Sprintf("tape %q not resolved", entry.TapeID)
	case kind == KindPortfolio && entry.Config != nil && entry.Config.Range != nil:
		rng := *entry.Config.Range
		reason = fmt.Sprintf("range [%d,%d] selects no media from tape %q", rng[0], rng[1], entry.TapeID)
	default:
		reason = fmt.Sprintf("tape %q lacks %s content", entry.TapeID, kind)
	}
	if entry.HasInlineContent() {
		return []models.Slide{inlineSlide(entry, entry.Label)}, reason + "; using inline content"
	}
	return nil, reason + "; dropped"
}

// expandTape applies the tape-dependent expansion rules. The boolean is false
// when the kind does not use a tape or the tape lacks the required content.
func expandTape(kind EntryKind, entry *models.RundownEntry, tape *models.Tape) ([]models.Slide, bool) {
	switch kind {
	case KindGuestIntro:
		return []models.Slide{guestIntroSlide(entry, tape)}, true
	case KindPortfolio:
		var rng *[2]int
		if entry.Config != nil {
			rng = entry.Config.Range
		}
		slide := portfolioSlide(tape, rng)
		if rng != nil && len(slide.Portfolio.Media) == 0 {
			return nil, false
		}
		return []models.Slide{slide}, true
	case KindDiscussion, KindVariety:
		return []models.Slide{talkingPointsSlide(entry, tape)}, true
	case KindPanelIntro:
		if len(tape.Panelists) == 0 {
			return nil, false
		}
		return []models.Slide{panelIntroSlide(entry, tape)}, true
	case KindEducation:
		return educationSlides(tape), true
	case KindTextQA:
		return textQASlides(entry, tape), true
	case KindClips:
		return clipsSlides(tape), true
	}
	return nil, false
}

func defaultHeading(kind EntryKind) string {
	switch kind {
	case KindIntro:
		return "Show Intro"
	case KindOutro:
		return "Show Outro"
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func scriptSlide(content models.ScriptContent) models.Slide {
	return models.Slide{Type: models.SlideScript, Script: &content}
}

func titleSlide(ep *models.Episode, caption string) models.Slide {
	return models.Slide{
		Type: models.SlideTitle,
		Title: &models.TitleContent{
			EpisodeNumber: ep.Number,
			Title:         ep.Title,
			AirDate:       ep.AirDate,
			Host:          ep.Host,
			Guest:         ep.Guest,
			Caption:       caption,
		},
	}
}

func inlineSlide(entry *models.RundownEntry, heading string) models.Slide {
	return scriptSlide(models.ScriptContent{
		Title:          firstNonEmpty(entry.Title, heading, entry.Label),
		Script:         entry.Script,
		TalkingPoints:  entry.TalkingPoints,
		PresenterNotes: entry.PresenterNotes,
	})
}

func guestIntroSlide(entry *models.RundownEntry, tape *models.Tape) models.Slide {
	content := models.ScriptContent{
		Title:          firstNonEmpty(entry.Title, tape.Title),
		PresenterNotes: firstNonEmpty(tape.PresenterNotes, entry.PresenterNotes),
	}
	if s := tape.Subject; s != nil {
		content.Title = firstNonEmpty(s.Name, content.Title)
		content.TalkingPoints = nonEmpty(s.Title, s.Location, s.Handle, s.Bio)
	}
	return scriptSlide(content)
}

// clampRange bounds an inclusive [start, end] pair to n items. ok is false
// when nothing remains.
func clampRange(rng [2]int, n int) (start, end int, ok bool) {
	start, end = rng[0], rng[1]
	if start < 0 {
		start = 0
	}
	if end > n-1 {
		end = n - 1
	}
	return start, end, start <= end && n > 0
}

func portfolioSlide(tape *models.Tape, rng *[2]int) models.Slide {
	media := tape.Media()
	offset := 0
	if rng != nil {
		start, end, ok := clampRange(*rng, len(media))
		if ok {
			media, offset = media[start:end+1], start
		} else {
			media = nil
		}
	}
	content := &models.PortfolioContent{Title: tape.Title, Media: media, Offset: offset}
	if s := tape.Subject; s != nil {
		content.Title = firstNonEmpty(s.Name, tape.Title)
		content.Handle = s.Handle
	}
	return models.Slide{Type: models.SlidePortfolio, Portfolio: content}
}

func talkingPointsSlide(entry *models.RundownEntry, tape *models.Tape) models.Slide {
	points := tape.TalkingPoints
	if len(points) == 0 {
		points = entry.TalkingPoints
	}
	return scriptSlide(models.ScriptContent{
		Title:          firstNonEmpty(entry.Title, tape.Title, entry.Label),
		Script:         entry.Script,
		TalkingPoints:  points,
		PresenterNotes: firstNonEmpty(tape.PresenterNotes, entry.PresenterNotes),
	})
}

func panelIntroSlide(entry *models.RundownEntry, tape *models.Tape) models.Slide {
	media := make([]models.Media, 0, len(tape.Panelists))
	for _, p := range tape.Panelists {
		media = append(media, models.Media{
			URL:      p.Headshot,
			Kind:     models.MediaImage,
			Caption:  p.Name,
			Subtitle: p.Title,
		})
	}
	return models.Slide{
		Type: models.SlidePortfolio,
		Portfolio: &models.PortfolioContent{
			Title: firstNonEmpty(entry.Title, tape.Title, "Meet the Panel"),
			Media: media,
		},
	}
}

func educationSlides(tape *models.Tape) []models.Slide {
	slides := make([]models.Slide, 0, len(tape.Slides)+1)
	for _, s := range tape.Slides {
		slides = append(slides, models.Slide{
			Type: models.SlideEducation,
			Education: &models.EducationContent{
				Title:     s.Title,
				Visual:    s.Visual,
				KeyPoints: s.KeyPoints,
				Stats:     s.Stats,
			},
		})
	}
	if strings.TrimSpace(tape.PresenterNotes) != "" {
		slides = append(slides, scriptSlide(models.ScriptContent{PresenterNotes: tape.PresenterNotes}))
	}
	return slides
}

func textQASlides(entry *models.RundownEntry, tape *models.Tape) []models.Slide {
	var slides []models.Slide
	guest := tape.Title
	if tape.Subject != nil {
		guest = firstNonEmpty(tape.Subject.Name, tape.Title)
	}
	if tape.Voiceover != nil && tape.Voiceover.Opening != "" {
		slides = append(slides, scriptSlide(models.ScriptContent{
			Title:          guest,
			Script:         tape.Voiceover.Opening,
			PresenterNotes: tape.PresenterNotes,
		}))
	}

	interleave := entry.Config.InterleaveEnabled()
	for _, qa := range tape.QA {
		var notes string
		if qa.PullQuote != "" {
			notes = "Pull quote: \"" + qa.PullQuote + "\""
		}
		slides = append(slides, scriptSlide(models.ScriptContent{
			Title:          qa.Question,
			Subtitle:       guest,
			TalkingPoints:  nonEmpty(qa.Answer),
			PresenterNotes: notes,
		}))
		if !interleave || len(qa.DisplayImages) == 0 {
			continue
		}
		lo, hi := qa.DisplayImages[0], qa.DisplayImages[0]
		for _, idx := range qa.DisplayImages[1:] {
			lo, hi = min(lo, idx), max(hi, idx)
		}
		slide := portfolioSlide(tape, &[2]int{lo, hi})
		if len(slide.Portfolio.Media) > 0 {
			slides = append(slides, slide)
		}
	}
	return slides
}

func snippet(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= snippetLimit {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:snippetLimit])) + "…"
}

// ClipCue renders the operator cue string for a clip
func ClipCue(clip models.Clip) string {
	return fmt.Sprintf("PLAY CLIP: %s %s–%s", clip.Guest, clip.Start, clip.End)
}

func clipsSlides(tape *models.Tape) []models.Slide {
	var slides []models.Slide
	if tape.HostIntro != "" {
		slides = append(slides, scriptSlide(models.ScriptContent{
			Title:  firstNonEmpty(tape.Title, "Host Intro"),
			Script: tape.HostIntro,
		}))
	}
	for _, clip := range tape.Clips {
		slides = append(slides, scriptSlide(models.ScriptContent{
			Title:    clip.Guest,
			Subtitle: clip.Source,
			Script:   snippet(clip.Transcript),
			Cue:      ClipCue(clip),
		}))
		if clip.Bridge != "" {
			slides = append(slides, scriptSlide(models.ScriptContent{
				Title:  "Bridge",
				Script: clip.Bridge,
			}))
		}
	}
	if tape.HostOutro != "" {
		slides = append(slides, scriptSlide(models.ScriptContent{
			Title:  "Host Outro",
			Script: tape.HostOutro,
		}))
	}
	return slides
}

func sponsorSlide(sponsor *models.Sponsor, notes string) models.Slide {
	return scriptSlide(models.ScriptContent{
		Title:          sponsor.Name,
		Subtitle:       "Sponsor",
		Script:         sponsor.AdCopy,
		TalkingPoints:  nonEmpty(sponsor.CTA, sponsor.URL),
		PresenterNotes: notes,
	})
}

func adBreakSlides(entry *models.RundownEntry, tape *models.Tape, tapes map[string]*models.Tape) []models.Slide {
	if len(entry.AdSlots) > 0 {
		var slides []models.Slide
		for _, slot := range entry.AdSlots {
			sponsor := slot.Sponsor
			if sponsor == nil && slot.TapeID != "" {
				if t := tapes[slot.TapeID]; t != nil {
					sponsor = t.Sponsor
				}
			}
			switch {
			case sponsor != nil && sponsor.AdCopy != "":
				slides = append(slides, sponsorSlide(sponsor, ""))
			case slot.CTA != "":
				slides = append(slides, scriptSlide(models.ScriptContent{
					Title:  firstNonEmpty(slot.Label, "Call to Action"),
					Script: slot.CTA,
				}))
			}
		}
		return slides
	}
	if tape != nil && tape.Sponsor != nil {
		return []models.Slide{sponsorSlide(tape.Sponsor, tape.PresenterNotes)}
	}
	return []models.Slide{scriptSlide(models.ScriptContent{
		Title:          firstNonEmpty(entry.Title, entry.Label, "Ad Break"),
		Script:         entry.Script,
		TalkingPoints:  entry.TalkingPoints,
		PresenterNotes: entry.PresenterNotes,
		Cue:            "AD BREAK",
	})}
}
