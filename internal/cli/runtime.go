package cmd

import (
	"github.com/chunkytofustudios/analytics-gate/internal/config"
	"github.com/chunkytofustudios/analytics-gate/internal/consent"
	"github.com/chunkytofustudios/analytics-gate/internal/datalayer"
	"github.com/chunkytofustudios/analytics-gate/internal/dispatcher"
	"github.com/chunkytofustudios/analytics-gate/internal/gate"
	"github.com/chunkytofustudios/analytics-gate/internal/loader"
	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/internal/site"
	"github.com/chunkytofustudios/analytics-gate/pkg/limiter"
	"github.com/chunkytofustudios/analytics-gate/pkg/retry"
	"github.com/chunkytofustudios/analytics-gate/pkg/timeutil"
	"go.uber.org/zap"
)

// runtime wires the components shared by serve and track.
type runtime struct {
	logger     *zap.Logger
	recorder   *metadata.Recorder
	layer      *datalayer.Layer
	routes     site.RouteTable
	gate       *gate.Gate
	dispatcher *dispatcher.Dispatcher
}

// newRuntime creates the data layer, seeds the default consent state and
// only then builds the gate, so consent always precedes analytics.
func newRuntime(cfg config.Config) (*runtime, error) {
	logger, err := metadata.NewLogger(cfg.IsDevelopment())
	if err != nil {
		return nil, err
	}
	recorder := metadata.NewRecorder(logger)

	layer := datalayer.New()
	consent.Default(layer)

	scriptLoader := loader.NewHTTPScriptLoader(
		recorder,
		cfg.UserAgent(),
		cfg.Timeout(),
		retry.NewRetryParam(
			cfg.Jitter(),
			cfg.RandomSeed(),
			cfg.LoadAttempts(),
			timeutil.NewBackoffParam(
				cfg.BackoffInitialDuration(),
				cfg.BackoffMultiplier(),
				cfg.BackoffMaxDuration(),
			),
		),
	)

	routes := site.NewRouteTable()
	g := gate.New(
		cfg,
		scriptLoader,
		gate.WithDataLayer(layer),
		gate.WithRecorder(recorder),
		gate.WithTitleResolver(routes),
	)

	d, err := dispatcher.NewDispatcher(cfg, layer, recorder, limiter.NewConcurrentRateLimiter())
	if err != nil {
		g.Close()
		return nil, err
	}

	return &runtime{
		logger:     logger,
		recorder:   recorder,
		layer:      layer,
		routes:     routes,
		gate:       g,
		dispatcher: d,
	}, nil
}

func (r *runtime) close() {
	r.gate.Close()
	_ = r.logger.Sync()
}
