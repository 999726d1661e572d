package control

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// FindInPort returns the first MIDI input port whose name contains substr,
// ignoring case
func FindInPort(substr string) (drivers.In, error) {
	lower := strings.ToLower(substr)
	for _, port := range midi.GetInPorts() {
		if strings.Contains(strings.ToLower(port.String()), lower) {
			return port, nil
		}
	}
	return nil, fmt.Errorf("no MIDI input port matching %q", substr)
}

// X-Touch transport section notes and the sustain-pedal controller
const (
	NoteRewind       = 91
	NoteFastForward  = 92
	NoteStop         = 93
	NotePlay         = 94
	NoteRecord       = 95
	CCFootSwitch     = 64
	CCFootSwitchBack = 67
)

// MIDIMapping translates MIDI control surface input into command requests
type MIDIMapping struct {
	Notes    map[uint8]Request
	Controls map[uint8]Request
}

// DefaultMIDIMapping binds the transport keys and both foot switches
func DefaultMIDIMapping() MIDIMapping {
	return MIDIMapping{
		Notes: map[uint8]Request{
			NoteRewind:      {Command: string(CommandPrevious)},
			NoteFastForward: {Command: string(CommandNext)},
			NoteStop:        {Command: string(CommandToggleQR)},
			NotePlay:        {Command: string(CommandToggleLowerThird)},
			NoteRecord:      {Command: string(CommandTogglePortfolioLayout)},
		},
		Controls: map[uint8]Request{
			CCFootSwitch:     {Command: string(CommandNext)},
			CCFootSwitchBack: {Command: string(CommandPrevious)},
		},
	}
}

// Translate returns the request bound to msg. Only key presses and switch
// closures map; releases are ignored.
func (m MIDIMapping) Translate(msg midi.Message) (Request, bool) {
	var channel, key, velocity uint8
	if msg.GetNoteStart(&channel, &key, &velocity) {
		req, ok := m.Notes[key]
		return req, ok
	}
	var controller, value uint8
	if msg.GetControlChange(&channel, &controller, &value) && value > 0 {
		req, ok := m.Controls[controller]
		return req, ok
	}
	return Request{}, false
}
