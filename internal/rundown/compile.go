// Package rundown compiles a show's rundown into the flat, timed slide
// sequence driven by the presentation windows.
package rundown

import (
	"fmt"
	"log"

	"github.com/TattooNOW/tattoonow-show/internal/models"
)

// Span is the half-open range [Start, End) of slides produced by one entry
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of slides in the span
func (s Span) Len() int { return s.End - s.Start }

// Diagnostic describes a rundown entry that was dropped or degraded
type Diagnostic struct {
	EntryIndex int    `json:"entryIndex"`
	Type       string `json:"type"`
	Reason     string `json:"reason"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("entry %d (%s): %s", d.EntryIndex, d.Type, d.Reason)
}

// Compilation is the result of compiling one show against its resolved tapes
type Compilation struct {
	Slides []models.Slide `json:"slides"`
	// SlideEntries maps each slide index to the rundown entry that produced it.
	SlideEntries []int `json:"slideEntries"`
	// EntrySlides maps each rundown entry to the slides it produced.
	EntrySlides []Span       `json:"entrySlides"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Empty reports whether compilation produced no slides
func (c *Compilation) Empty() bool {
	return len(c.Slides) == 0
}

// Compile expands every rundown entry in order and distributes each entry's
// declared duration across the slides it produced. Unrecognized entries and
// unresolved tapes are recorded as diagnostics and never abort compilation.
func Compile(show *models.Show, tapes map[string]*models.Tape) *Compilation {
	c := &Compilation{}
	if show == nil {
		return c
	}
	ep := &show.Episode

	for i := range show.Rundown {
		entry := &show.Rundown[i]
		start := len(c.Slides)

		slides, diag := expandEntry(ep, entry, tapes)
		if diag != "" {
			d := Diagnostic{EntryIndex: i, Type: entry.Type, Reason: diag}
			c.Diagnostics = append(c.Diagnostics, d)
			log.Printf("rundown: %s", d)
		}

		for j := range slides {
			slides[j].EntryIndex = i
			slides[j].RundownLabel = entry.Label
			slides[j].Overlays = entry.Config.Overlays()
			c.SlideEntries = append(c.SlideEntries, i)
		}
		c.Slides = append(c.Slides, slides...)
		c.EntrySlides = append(c.EntrySlides, Span{Start: start, End: len(c.Slides)})
	}

	distributeDurations(show, c)
	return c
}

// distributeDurations stamps each slide with its share of the entry duration.
// Only the first slide of an entry carries the entry's time code.
func distributeDurations(show *models.Show, c *Compilation) {
	for i, span := range c.EntrySlides {
		if span.Len() == 0 {
			continue
		}
		entry := &show.Rundown[i]
		timeCode := entry.TimeCode
		if timeCode == "" {
			timeCode = entry.Duration
		}
		shares := splitEvenly(ParseDuration(entry.Duration), span.Len())
		for k := 0; k < span.Len(); k++ {
			slide := &c.Slides[span.Start+k]
			slide.DurationMs = shares[k]
			if k == 0 {
				slide.TargetTimeCode = timeCode
			} else {
				slide.TargetTimeCode = ""
			}
		}
	}
}
