// Package broadcast carries presentation state and notes context between the
// windows of one show session.
package broadcast

import (
	"encoding/json"
	"fmt"

	"github.com/TattooNOW/tattoonow-show/internal/models"
)

// Topic names one of the independent channels on a bus
type Topic string

const (
	// TopicState carries presentation state mutations.
	TopicState Topic = "state"
	// TopicNotes carries the full notes context for the notes window.
	TopicNotes Topic = "notes"
)

// Message is implemented by every value published on a bus
type Message interface {
	Topic() Topic
	Source() string
}

// StateKind mirrors the presentation operation vocabulary
type StateKind string

const (
	StateSlide          StateKind = "slide"
	StateShowQR         StateKind = "showQR"
	StateShowLowerThird StateKind = "showLowerThird"
	StateLayout         StateKind = "portfolioLayout"
	StateSelectedImage  StateKind = "selectedImage"
	StateAutoMode       StateKind = "autoMode"
)

// StateMessage describes one state mutation. It always carries the full new
// value so receivers never need prior context.
type StateMessage struct {
	Origin string                 `json:"origin"`
	Kind   StateKind              `json:"type"`
	Index  int                    `json:"index,omitempty"`
	Value  bool                   `json:"value,omitempty"`
	Layout models.PortfolioLayout `json:"layout,omitempty"`
	Image  *int                   `json:"image,omitempty"`
}

func (m StateMessage) Topic() Topic   { return TopicState }
func (m StateMessage) Source() string { return m.Origin }

// Validate rejects messages whose kind is outside the vocabulary
func (m StateMessage) Validate() error {
	switch m.Kind {
	case StateSlide, StateShowQR, StateShowLowerThird, StateSelectedImage, StateAutoMode:
		return nil
	case StateLayout:
		if m.Layout != models.LayoutGrid && m.Layout != models.LayoutFullscreen {
			return fmt.Errorf("invalid layout %q", m.Layout)
		}
		return nil
	}
	return fmt.Errorf("unknown state message type %q", m.Kind)
}

// ContextKind distinguishes context pushes from readiness announcements
type ContextKind string

const (
	ContextUpdate ContextKind = "context"
	ContextReady  ContextKind = "ready"
)

// NotesContext is everything the detached notes window shows for the active slide
type NotesContext struct {
	SlideIndex     int            `json:"slideIndex"`
	SlideCount     int            `json:"slideCount"`
	SlideType      string         `json:"slideType,omitempty"`
	Title          string         `json:"title,omitempty"`
	Subtitle       string         `json:"subtitle,omitempty"`
	Script         string         `json:"script,omitempty"`
	TalkingPoints  []string       `json:"talkingPoints,omitempty"`
	PresenterNotes string         `json:"presenterNotes,omitempty"`
	Cue            string         `json:"cue,omitempty"`
	RundownLabel   string         `json:"rundownLabel,omitempty"`
	TargetTimeCode string         `json:"targetTimeCode,omitempty"`
	DurationMs     int64          `json:"durationMs"`
	Duration       string         `json:"duration,omitempty"`
	Next           string         `json:"next,omitempty"`
	Episode        models.Episode `json:"episode"`
}

// ContextMessage travels on the notes topic
type ContextMessage struct {
	Origin  string        `json:"origin"`
	Kind    ContextKind   `json:"type"`
	Context *NotesContext `json:"context,omitempty"`
}

func (m ContextMessage) Topic() Topic   { return TopicNotes }
func (m ContextMessage) Source() string { return m.Origin }

// Envelope is the JSON wire form of a Message
type Envelope struct {
	Channel Topic           `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps a message in an envelope and marshals it
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", msg.Topic(), err)
	}
	return json.Marshal(Envelope{Channel: msg.Topic(), Payload: payload})
}

// Decode parses an envelope back into its typed message
func Decode(data []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	switch env.Channel {
	case TopicState:
		var msg StateMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("invalid state message: %w", err)
		}
		if err := msg.Validate(); err != nil {
			return nil, err
		}
		return msg, nil
	case TopicNotes:
		var msg ContextMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return nil, fmt.Errorf("invalid notes message: %w", err)
		}
		if msg.Kind != ContextUpdate && msg.Kind != ContextReady {
			return nil, fmt.Errorf("unknown notes message type %q", msg.Kind)
		}
		return msg, nil
	}
	return nil, fmt.Errorf("unknown channel %q", env.Channel)
}
