package models

import "fmt"

// TapeType identifies the content shape of a tape
type TapeType string

const (
	TapeInterview TapeType = "interview"
	TapeTextQA    TapeType = "text-qa"
	TapePanel     TapeType = "panel"
	TapeEducation TapeType = "education"
	TapeClips     TapeType = "clips"
	TapeVariety   TapeType = "variety"
	TapePromo     TapeType = "promo"
	TapeSponsor   TapeType = "sponsor"
	TapeAd        TapeType = "ad"
)

// Subject represents the featured guest of a tape
type Subject struct {
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Location string `json:"location,omitempty" yaml:"location,omitempty"`
	Handle   string `json:"handle,omitempty" yaml:"handle,omitempty"`
	Bio      string `json:"bio,omitempty" yaml:"bio,omitempty"`
	Headshot string `json:"headshot,omitempty" yaml:"headshot,omitempty"`
}

// Portfolio represents a guest's image and video media
type Portfolio struct {
	Images []string `json:"images,omitempty" yaml:"images,omitempty"`
	Videos []string `json:"videos,omitempty" yaml:"videos,omitempty"`
}

// QA represents one question/answer pair of a text-qa tape
type QA struct {
	Question  string `json:"question" yaml:"question"`
	Answer    string `json:"answer" yaml:"answer"`
	PullQuote string `json:"pullQuote,omitempty" yaml:"pullQuote,omitempty"`
	// DisplayImages are indices into the tape's portfolio media.
	DisplayImages []int `json:"displayImages,omitempty" yaml:"displayImages,omitempty"`
}

// Voiceover carries the narrated lines of a text-qa tape
type Voiceover struct {
	Opening string `json:"opening,omitempty" yaml:"opening,omitempty"`
	Closing string `json:"closing,omitempty" yaml:"closing,omitempty"`
}

// Panelist represents one member of a panel tape
type Panelist struct {
	Name     string `json:"name" yaml:"name"`
	Title    string `json:"title,omitempty" yaml:"title,omitempty"`
	Headshot string `json:"headshot,omitempty" yaml:"headshot,omitempty"`
}

// Stat is a labelled figure shown on an education slide
type Stat struct {
	Label string `json:"label" yaml:"label"`
	Value string `json:"value" yaml:"value"`
}

// EducationSlide is one slide entry of an education tape
type EducationSlide struct {
	Title     string   `json:"title" yaml:"title"`
	Visual    string   `json:"visual,omitempty" yaml:"visual,omitempty"`
	KeyPoints []string `json:"keyPoints,omitempty" yaml:"keyPoints,omitempty"`
	Stats     []Stat   `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// Clip is one playable excerpt of a clips tape
type Clip struct {
	Guest      string `json:"guest" yaml:"guest"`
	Source     string `json:"source,omitempty" yaml:"source,omitempty"`
	Start      string `json:"start,omitempty" yaml:"start,omitempty"`
	End        string `json:"end,omitempty" yaml:"end,omitempty"`
	Transcript string `json:"transcript,omitempty" yaml:"transcript,omitempty"`
	Bridge     string `json:"bridge,omitempty" yaml:"bridge,omitempty"`
}

// Sponsor carries the ad copy of a promo, sponsor or ad tape
type Sponsor struct {
	Name   string `json:"name" yaml:"name"`
	AdCopy string `json:"adCopy,omitempty" yaml:"adCopy,omitempty"`
	CTA    string `json:"cta,omitempty" yaml:"cta,omitempty"`
	URL    string `json:"url,omitempty" yaml:"url,omitempty"`
	Logo   string `json:"logo,omitempty" yaml:"logo,omitempty"`
}

// Tape represents a reusable content record. Type decides which of the
// content fields may be populated; see Validate.
type Tape struct {
	ID    string   `json:"id" yaml:"id"`
	Type  TapeType `json:"type" yaml:"type"`
	Title string   `json:"title,omitempty" yaml:"title,omitempty"`

	Subject        *Subject         `json:"subject,omitempty" yaml:"subject,omitempty"`
	Portfolio      *Portfolio       `json:"portfolio,omitempty" yaml:"portfolio,omitempty"`
	TalkingPoints  []string         `json:"talkingPoints,omitempty" yaml:"talkingPoints,omitempty"`
	PresenterNotes string           `json:"presenterNotes,omitempty" yaml:"presenterNotes,omitempty"`
	Voiceover      *Voiceover       `json:"voiceover,omitempty" yaml:"voiceover,omitempty"`
	QA             []QA             `json:"qa,omitempty" yaml:"qa,omitempty"`
	Panelists      []Panelist       `json:"panelists,omitempty" yaml:"panelists,omitempty"`
	Slides         []EducationSlide `json:"slides,omitempty" yaml:"slides,omitempty"`
	HostIntro      string           `json:"hostIntro,omitempty" yaml:"hostIntro,omitempty"`
	Clips          []Clip           `json:"clips,omitempty" yaml:"clips,omitempty"`
	HostOutro      string           `json:"hostOutro,omitempty" yaml:"hostOutro,omitempty"`
	Sponsor        *Sponsor         `json:"sponsor,omitempty" yaml:"sponsor,omitempty"`
}

type tapeField int

const (
	fieldSubject tapeField = iota
	fieldPortfolio
	fieldTalkingPoints
	fieldPresenterNotes
	fieldVoiceover
	fieldQA
	fieldPanelists
	fieldSlides
	fieldClipsHost
	fieldClips
	fieldSponsor
)

var tapeFieldNames = map[tapeField]string{
	fieldSubject:        "subject",
	fieldPortfolio:      "portfolio",
	fieldTalkingPoints:  "talkingPoints",
	fieldPresenterNotes: "presenterNotes",
	fieldVoiceover:      "voiceover",
	fieldQA:             "qa",
	fieldPanelists:      "panelists",
	fieldSlides:         "slides",
	fieldClipsHost:      "hostIntro/hostOutro",
	fieldClips:          "clips",
	fieldSponsor:        "sponsor",
}

var allowedTapeFields = map[TapeType][]tapeField{
	TapeInterview: {fieldSubject, fieldPortfolio, fieldTalkingPoints, fieldPresenterNotes},
	TapeTextQA:    {fieldSubject, fieldPortfolio, fieldVoiceover, fieldQA, fieldPresenterNotes},
	TapePanel:     {fieldPanelists, fieldTalkingPoints, fieldPresenterNotes},
	TapeEducation: {fieldSlides, fieldPresenterNotes},
	TapeClips:     {fieldClipsHost, fieldClips, fieldPresenterNotes},
	TapeVariety:   {fieldTalkingPoints, fieldPresenterNotes},
	TapePromo:     {fieldSponsor, fieldPresenterNotes},
	TapeSponsor:   {fieldSponsor, fieldPresenterNotes},
	TapeAd:        {fieldSponsor, fieldPresenterNotes},
}

func (t *Tape) populated() []tapeField {
	var fields []tapeField
	if t.Subject != nil {
		fields = append(fields, fieldSubject)
	}
	if t.Portfolio != nil {
		fields = append(fields, fieldPortfolio)
	}
	if len(t.TalkingPoints) > 0 {
		fields = append(fields, fieldTalkingPoints)
	}
	if t.PresenterNotes != "" {
		fields = append(fields, fieldPresenterNotes)
	}
	if t.Voiceover != nil {
		fields = append(fields, fieldVoiceover)
	}
	if len(t.QA) > 0 {
		fields = append(fields, fieldQA)
	}
	if len(t.Panelists) > 0 {
		fields = append(fields, fieldPanelists)
	}
	if len(t.Slides) > 0 {
		fields = append(fields, fieldSlides)
	}
	if t.HostIntro != "" || t.HostOutro != "" {
		fields = append(fields, fieldClipsHost)
	}
	if len(t.Clips) > 0 {
		fields = append(fields, fieldClips)
	}
	if t.Sponsor != nil {
		fields = append(fields, fieldSponsor)
	}
	return fields
}

// Validate checks that the tape's type is known and that no content field
// belonging to another type is populated.
func (t *Tape) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tape id is required")
	}
	allowed, ok := allowedTapeFields[t.Type]
	if !ok {
		return fmt.Errorf("tape %s: unknown type %q", t.ID, t.Type)
	}
	for _, field := range t.populated() {
		valid := false
		for _, a := range allowed {
			if a == field {
				valid = true
				break
			}
		}
		if !valid {
			return fmt.Errorf("tape %s: field %s is not valid for type %q", t.ID, tapeFieldNames[field], t.Type)
		}
	}
	return nil
}

// Media returns the portfolio images followed by the portfolio videos
func (t *Tape) Media() []Media {
	if t.Portfolio == nil {
		return nil
	}
	media := make([]Media, 0, len(t.Portfolio.Images)+len(t.Portfolio.Videos))
	for _, url := range t.Portfolio.Images {
		media = append(media, Media{URL: url, Kind: MediaImage})
	}
	for _, url := range t.Portfolio.Videos {
		media = append(media, Media{URL: url, Kind: MediaVideo})
	}
	return media
}
