package dispatcher

import "maps"

// maxBatchEvents is the Measurement Protocol limit of events per request.
const maxBatchEvents = 25

// mpRequest is the Measurement Protocol request body.
type mpRequest struct {
	ClientID string            `json:"client_id"`
	Events   []mpEvent         `json:"events"`
	Consent  map[string]string `json:"consent,omitempty"`
}

type mpEvent struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params,omitempty"`
}

// batch is a run of consecutive events that share routing and consent.
type batch struct {
	measurementID string
	clientID      string
	consent       map[string]string
	events        []mpEvent
}

func (b *batch) accepts(measurementID, clientID string, consent map[string]string) bool {
	return b.measurementID == measurementID &&
		b.clientID == clientID &&
		maps.Equal(b.consent, consent) &&
		len(b.events) < maxBatchEvents
}

func (b *batch) eventNames() []string {
	names := make([]string, len(b.events))
	for i, ev := range b.events {
		names[i] = ev.Name
	}
	return names
}
