package models

// SlideType tags the variant carried by a Slide
type SlideType string

const (
	SlideTitle     SlideType = "title"
	SlidePortfolio SlideType = "portfolio"
	SlideEducation SlideType = "education"
	SlideScript    SlideType = "script"
)

// MediaKind distinguishes portfolio images from videos
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
)

// Media is one item shown on a portfolio slide
type Media struct {
	URL      string    `json:"url"`
	Kind     MediaKind `json:"kind"`
	Caption  string    `json:"caption,omitempty"`
	Subtitle string    `json:"subtitle,omitempty"`
}

// TitleContent is the payload of a title slide
type TitleContent struct {
	EpisodeNumber int    `json:"episodeNumber,omitempty"`
	Title         string `json:"title"`
	AirDate       string `json:"airDate,omitempty"`
	Host          string `json:"host,omitempty"`
	Guest         string `json:"guest,omitempty"`
	Caption       string `json:"caption,omitempty"`
}

// PortfolioContent is the payload of a portfolio slide
type PortfolioContent struct {
	Title  string  `json:"title,omitempty"`
	Handle string  `json:"handle,omitempty"`
	Media  []Media `json:"media"`
	// Offset is the index of Media[0] within the tape's full media list.
	Offset int `json:"offset"`
}

// EducationContent is the payload of an education slide
type EducationContent struct {
	Title     string   `json:"title"`
	Visual    string   `json:"visual,omitempty"`
	KeyPoints []string `json:"keyPoints,omitempty"`
	Stats     []Stat   `json:"stats,omitempty"`
}

// ScriptContent is the payload of a script slide
type ScriptContent struct {
	Title          string   `json:"title,omitempty"`
	Subtitle       string   `json:"subtitle,omitempty"`
	Script         string   `json:"script,omitempty"`
	TalkingPoints  []string `json:"talkingPoints,omitempty"`
	PresenterNotes string   `json:"presenterNotes,omitempty"`
	// Cue is a machine readable operator instruction such as "PLAY CLIP: ...".
	Cue string `json:"cue,omitempty"`
}

// Slide is one compiled, renderable unit. Exactly one payload matching Type
// is set.
type Slide struct {
	Type SlideType `json:"type"`

	Title     *TitleContent     `json:"title,omitempty"`
	Portfolio *PortfolioContent `json:"portfolio,omitempty"`
	Education *EducationContent `json:"education,omitempty"`
	Script    *ScriptContent    `json:"script,omitempty"`

	DurationMs     int64  `json:"durationMs"`
	TargetTimeCode string `json:"targetTimeCode"`
	RundownLabel   string `json:"rundownLabel,omitempty"`
	EntryIndex     int    `json:"entryIndex"`

	// Overlays are switched on whenever the slide is entered.
	Overlays *Overlays `json:"overlays,omitempty"`
}

// Overlays lists the overlays a rundown entry asks for
type Overlays struct {
	QR         bool `json:"qr,omitempty"`
	LowerThird bool `json:"lowerThird,omitempty"`
}

// FirstSlideForLabel returns the index of the first slide produced by the
// rundown entry labelled label
func FirstSlideForLabel(slides []Slide, label string) (int, bool) {
	if label == "" {
		return 0, false
	}
	for i := range slides {
		if slides[i].RundownLabel == label {
			return i, true
		}
	}
	return 0, false
}

// Heading returns the slide's display title regardless of variant
func (s *Slide) Heading() string {
	switch s.Type {
	case SlideTitle:
		if s.Title != nil {
			return s.Title.Title
		}
	case SlidePortfolio:
		if s.Portfolio != nil {
			return s.Portfolio.Title
		}
	case SlideEducation:
		if s.Education != nil {
			return s.Education.Title
		}
	case SlideScript:
		if s.Script != nil {
			return s.Script.Title
		}
	}
	return ""
}
