package models

import "time"

// ControlDevice represents a physical control surface registered with the server
type ControlDevice struct {
	ID         string    `json:"id"`
	MACAddress string    `json:"macAddress"`
	Name       string    `json:"name"`
	ShowID     string    `json:"showId"`
	IsActive   bool      `json:"isActive"`
	PressCount int       `json:"pressCount"`
	LastPress  time.Time `json:"lastPress,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// ButtonBinding maps one device button to a control command
type ButtonBinding struct {
	ButtonID string `json:"buttonId"`
	Command  string `json:"command"`
	Label    string `json:"label,omitempty"`
}
