// Package control translates commands from external control devices into
// presentation operations. Devices have no privileged path: every command
// maps onto the same operation an on-screen control would call.
package control

import (
	"errors"
	"fmt"
	"strings"

	"github.com/TattooNOW/tattoonow-show/internal/models"
)

// Command is one entry of the fixed device vocabulary
type Command string

const (
	CommandNext                  Command = "next"
	CommandPrevious              Command = "previous"
	CommandToggleQR              Command = "toggleQR"
	CommandToggleLowerThird      Command = "toggleLowerThird"
	CommandTogglePortfolioLayout Command = "togglePortfolioLayout"
	CommandJumpToSegment         Command = "jumpToSegment"
)

// Commands lists the vocabulary in a stable order
var Commands = []Command{
	CommandNext,
	CommandPrevious,
	CommandToggleQR,
	CommandToggleLowerThird,
	CommandTogglePortfolioLayout,
	CommandJumpToSegment,
}

// ErrUnknownCommand is returned for commands outside the vocabulary
var ErrUnknownCommand = errors.New("unknown control command")

// ParseCommand resolves a command name case-insensitively
func ParseCommand(name string) (Command, error) {
	name = strings.TrimSpace(name)
	for _, c := range Commands {
		if strings.EqualFold(string(c), name) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}

// Request is the JSON shape devices send
type Request struct {
	Command string `json:"command"`
	Label   string `json:"label,omitempty"`
}

// Result reports what a dispatched command did
type Result struct {
	Command Command `json:"command"`
	Changed bool    `json:"changed"`
}

// Navigator is the subset of presentation operations devices may drive
type Navigator interface {
	NextSlide() bool
	PreviousSlide() bool
	ToggleQR() bool
	ToggleLowerThird() bool
	TogglePortfolioLayout() models.PortfolioLayout
	JumpToSegment(label string) bool
}

// Dispatch runs req against nav
func Dispatch(nav Navigator, req Request) (Result, error) {
	cmd, err := ParseCommand(req.Command)
	if err != nil {
		return Result{}, err
	}
	res := Result{Command: cmd, Changed: true}
	switch cmd {
	case CommandNext:
		res.Changed = nav.NextSlide()
	case CommandPrevious:
		res.Changed = nav.PreviousSlide()
	case CommandToggleQR:
		nav.ToggleQR()
	case CommandToggleLowerThird:
		nav.ToggleLowerThird()
	case CommandTogglePortfolioLayout:
		nav.TogglePortfolioLayout()
	case CommandJumpToSegment:
		if req.Label == "" {
			return Result{}, fmt.Errorf("jumpToSegment requires a label")
		}
		res.Changed = nav.JumpToSegment(req.Label)
	}
	return res, nil
}
