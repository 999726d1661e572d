package models

// Episode represents the metadata of one broadcast episode
type Episode struct {
	Number   int    `json:"number" yaml:"number"`
	Title    string `json:"title" yaml:"title"`
	AirDate  string `json:"airDate,omitempty" yaml:"airDate,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Guest    string `json:"guest,omitempty" yaml:"guest,omitempty"`
}

// Show represents one episode plus its ordered rundown
type Show struct {
	ID      string         `json:"id" yaml:"id"`
	Episode Episode        `json:"episode" yaml:"episode"`
	Rundown []RundownEntry `json:"rundown" yaml:"rundown"`
}

// TapeIDs returns the distinct tape identifiers referenced by the rundown, in
// first-reference order. Ad slots referencing sponsor tapes are included.
func (s *Show) TapeIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, entry := range s.Rundown {
		add(entry.TapeID)
		for _, slot := range entry.AdSlots {
			add(slot.TapeID)
		}
	}
	return ids
}

// EntryConfig carries display directives for a rundown entry
type EntryConfig struct {
	// Range limits portfolio media to the inclusive [start, end] index pair.
	Range *[2]int `json:"range,omitempty" yaml:"range,omitempty"`
	// Interleave set to false disables text-qa image interleaving.
	Interleave     *bool `json:"interleave,omitempty" yaml:"interleave,omitempty"`
	ShowQR         bool  `json:"showQR,omitempty" yaml:"showQR,omitempty"`
	ShowLowerThird bool  `json:"showLowerThird,omitempty" yaml:"showLowerThird,omitempty"`
}

// Overlays returns the overlay directives, or nil when none are set
func (c *EntryConfig) Overlays() *Overlays {
	if c == nil || (!c.ShowQR && !c.ShowLowerThird) {
		return nil
	}
	return &Overlays{QR: c.ShowQR, LowerThird: c.ShowLowerThird}
}

// InterleaveEnabled reports whether text-qa image slides may be interleaved
func (c *EntryConfig) InterleaveEnabled() bool {
	if c == nil || c.Interleave == nil {
		return true
	}
	return *c.Interleave
}

// AdSlot represents one sponsor or call-to-action slot inside an ad break
type AdSlot struct {
	Label   string   `json:"label,omitempty" yaml:"label,omitempty"`
	TapeID  string   `json:"tapeId,omitempty" yaml:"tapeId,omitempty"`
	Sponsor *Sponsor `json:"sponsor,omitempty" yaml:"sponsor,omitempty"`
	CTA     string   `json:"cta,omitempty" yaml:"cta,omitempty"`
}

// RundownEntry represents one ordered unit of the show plan
type RundownEntry struct {
	Type     string `json:"type" yaml:"type"`
	Segment  string `json:"segment,omitempty" yaml:"segment,omitempty"`
	Duration string `json:"duration,omitempty" yaml:"duration,omitempty"`
	TimeCode string `json:"timeCode,omitempty" yaml:"timeCode,omitempty"`
	TapeID   string `json:"tapeId,omitempty" yaml:"tapeId,omitempty"`
	Label    string `json:"label,omitempty" yaml:"label,omitempty"`

	// Inline content used by intro/outro entries and the generic fallback.
	Title          string   `json:"title,omitempty" yaml:"title,omitempty"`
	Script         string   `json:"script,omitempty" yaml:"script,omitempty"`
	TalkingPoints  []string `json:"talkingPoints,omitempty" yaml:"talkingPoints,omitempty"`
	PresenterNotes string   `json:"presenterNotes,omitempty" yaml:"presenterNotes,omitempty"`

	Config  *EntryConfig `json:"config,omitempty" yaml:"config,omitempty"`
	AdSlots []AdSlot     `json:"adSlots,omitempty" yaml:"adSlots,omitempty"`
}

// HasInlineContent reports whether the entry carries its own script material
func (e *RundownEntry) HasInlineContent() bool {
	return e.Script != "" || len(e.TalkingPoints) > 0 || e.PresenterNotes != ""
}
