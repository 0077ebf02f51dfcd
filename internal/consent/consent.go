package consent

import (
	"github.com/chunkytofustudios/analytics-gate/internal/datalayer"
)

// Default pushes the denied-by-default consent state. It must run after the
// data layer exists and before analytics initialization.
func Default(layer *datalayer.Layer) {
	layer.Push(datalayer.Command{
		Name:   datalayer.CommandConsent,
		Target: TargetDefault,
		Params: Choices{}.Params(),
	})
}

// Update pushes a site-wide consent change.
func Update(layer *datalayer.Layer, choices Choices) {
	layer.Push(datalayer.Command{
		Name:   datalayer.CommandConsent,
		Target: TargetUpdate,
		Params: choices.Params(),
	})
}

// UpdateFor pushes a consent change that applies to one client ID only.
func UpdateFor(layer *datalayer.Layer, clientID string, choices Choices) {
	params := choices.Params()
	params[ParamClientID] = clientID
	layer.Push(datalayer.Command{
		Name:   datalayer.CommandConsent,
		Target: TargetUpdate,
		Params: params,
	})
}
