package gate

import (
	"time"

	"github.com/chunkytofustudios/analytics-gate/internal/datalayer"
	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
)

type Option func(*Gate)

// WithDataLayer makes the gate push to an existing layer instead of
// creating its own on first use.
func WithDataLayer(layer *datalayer.Layer) Option {
	return func(g *Gate) {
		g.layer = layer
	}
}

func WithRecorder(sink metadata.MetadataSink) Option {
	return func(g *Gate) {
		if sink != nil {
			g.sink = sink
		}
	}
}

func WithTitleResolver(resolver TitleResolver) Option {
	return func(g *Gate) {
		if resolver != nil {
			g.titles = resolver
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}
