package datalayer

import "time"

// CommandName mirrors the gtag command vocabulary.
type CommandName string

const (
	CommandJS      CommandName = "js"
	CommandConfig  CommandName = "config"
	CommandConsent CommandName = "consent"
	CommandEvent   CommandName = "event"
)

// Command is one entry in the data layer.
//
// For CommandConfig, Target is the measurement ID.
// For CommandConsent, Target is "default" or "update".
// For CommandEvent, Target is the event name.
type Command struct {
	Name     CommandName
	Target   string
	Params   map[string]any
	PushedAt time.Time
}
