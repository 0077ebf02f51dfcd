package gate

import (
	"context"
	"maps"
	"net/url"
	"sync"
	"time"

	"github.com/chunkytofustudios/analytics-gate/internal/config"
	"github.com/chunkytofustudios/analytics-gate/internal/datalayer"
	"github.com/chunkytofustudios/analytics-gate/internal/loader"
	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
	"github.com/chunkytofustudios/analytics-gate/pkg/urlutil"
)

/*
Gate buffers tracking calls until the analytics transport is ready.

Guarantees:
- No event reaches the data layer before the script load succeeded.
- Buffered events are delivered exactly once, in call order.
- At most one script load is in flight, and none after a success.
- Track never waits for the load.

A failed load leaves the buffered events in place and returns the gate to
NotStarted. The next Track or BeginInitialization starts a fresh load.

All state lives behind mu. Delivery of buffered events happens under mu, so
a Track racing with the Ready transition is either buffered and drained, or
delivered after the drain.
*/
type Gate struct {
	mu       sync.Mutex
	state    State
	queue    []func()
	layer    *datalayer.Layer
	shaken   bool
	done     chan struct{}
	ready    chan struct{}
	attempts int

	loader        loader.ScriptLoader
	measurementID string
	scriptURL     string
	siteOrigin    url.URL
	sink          metadata.MetadataSink
	titles        TitleResolver
	now           func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg config.Config, scriptLoader loader.ScriptLoader, opts ...Option) *Gate {
	ctx, cancel := context.WithCancel(context.Background())
	g := &Gate{
		state:         StateNotStarted,
		ready:         make(chan struct{}),
		loader:        scriptLoader,
		measurementID: cfg.MeasurementID(),
		scriptURL:     cfg.ScriptURL(),
		siteOrigin:    cfg.SiteOrigin(),
		sink:          &metadata.NoopSink{},
		titles:        TitleResolverFunc(func(string) string { return "" }),
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EnsureDataLayerReady returns the data layer, creating it on first call.
func (g *Gate) EnsureDataLayerReady() *datalayer.Layer {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ensureLayerLocked()
}

func (g *Gate) ensureLayerLocked() *datalayer.Layer {
	if g.layer == nil {
		g.layer = datalayer.New()
	}
	return g.layer
}

// BeginInitialization starts the script load unless one is running or
// already succeeded. It returns immediately.
func (g *Gate) BeginInitialization() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.beginLocked()
}

func (g *Gate) beginLocked() {
	if g.state != StateNotStarted {
		return
	}
	if g.ctx.Err() != nil {
		return
	}
	g.state = StateLoading
	g.attempts++

	layer := g.ensureLayerLocked()
	if !g.shaken {
		layer.Push(datalayer.Command{
			Name:     datalayer.CommandJS,
			PushedAt: g.now(),
		})
		layer.Push(datalayer.Command{
			Name:   datalayer.CommandConfig,
			Target: g.measurementID,
		})
		g.shaken = true
	}

	done := make(chan struct{})
	g.done = done

	g.wg.Add(1)
	go g.load(done)
}

func (g *Gate) load(done chan struct{}) {
	defer g.wg.Done()
	defer close(done)

	_, err := g.loader.Load(g.ctx, g.scriptURL)
	g.complete(err)
}

// complete finishes a load. The loader has already recorded the outcome.
func (g *Gate) complete(err failure.ClassifiedError) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err != nil {
		g.state = StateNotStarted
		return
	}

	for _, deliver := range g.queue {
		deliver()
	}
	g.queue = nil
	g.state = StateReady
	close(g.ready)
}

// Track delivers ev when the transport is ready and buffers it otherwise.
// A buffered call starts initialization if none is running.
func (g *Gate) Track(ev Event) {
	ev.Attributes = maps.Clone(ev.Attributes)

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == StateReady {
		g.deliverLocked(ev)
		g.sink.RecordTrack(ev.Kind.String(), ev.Name, false)
		return
	}

	g.queue = append(g.queue, func() {
		g.deliverLocked(ev)
	})
	g.sink.RecordTrack(ev.Kind.String(), ev.Name, true)
	g.beginLocked()
}

func (g *Gate) deliverLocked(ev Event) {
	g.layer.Push(datalayer.Command{
		Name:   datalayer.CommandEvent,
		Target: ev.Name,
		Params: ev.Attributes,
	})
}

// OutboundLinkEvent builds the click event for a link leaving the site.
// An empty label falls back to the URL.
func (g *Gate) OutboundLinkEvent(rawURL string, label string) Event {
	if label == "" {
		label = rawURL
	}
	return Event{
		Kind: KindOutboundClick,
		Name: EventNameClick,
		Attributes: map[string]any{
			ParamEventCategory: categoryOutbound,
			ParamEventLabel:    label,
			ParamLinkURL:       rawURL,
			ParamLinkDomain:    urlutil.Domain(rawURL),
			ParamTransportType: transportBeacon,
			ParamSendTo:        g.measurementID,
		},
	}
}

func (g *Gate) TrackOutboundLink(rawURL string, label string) {
	g.Track(g.OutboundLinkEvent(rawURL, label))
}

// PageViewEvent builds a page view event. An empty title falls back to
// the title resolver.
func (g *Gate) PageViewEvent(path string, title string) Event {
	if title == "" {
		title = g.titles.Title(path)
	}
	return Event{
		Kind: KindPageView,
		Name: EventNamePageView,
		Attributes: map[string]any{
			ParamPagePath:     path,
			ParamPageTitle:    title,
			ParamPageLocation: urlutil.Join(g.siteOrigin, path),
			ParamSendTo:       g.measurementID,
		},
	}
}

func (g *Gate) TrackPageView(path string, title string) {
	g.Track(g.PageViewEvent(path, title))
}

// TrackEvent records a custom event. send_to defaults to the measurement ID.
func (g *Gate) TrackEvent(name string, params map[string]any) {
	attrs := maps.Clone(params)
	if attrs == nil {
		attrs = map[string]any{}
	}
	if _, ok := attrs[ParamSendTo]; !ok {
		attrs[ParamSendTo] = g.measurementID
	}
	g.Track(Event{
		Kind:       KindCustom,
		Name:       name,
		Attributes: attrs,
	})
}

func (g *Gate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Pending returns the number of buffered tracking calls.
func (g *Gate) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.queue)
}

// LoadAttempts returns how many script loads have been started.
func (g *Gate) LoadAttempts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.attempts
}

// Done is closed when the most recent load finishes, whatever the outcome.
// Before the first load it returns a closed channel.
func (g *Gate) Done() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.done == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return g.done
}

// Ready is closed once the gate reaches StateReady.
func (g *Gate) Ready() <-chan struct{} {
	return g.ready
}

// Close cancels an in-flight load and waits for it to finish. Later calls
// to BeginInitialization do nothing; Track keeps buffering.
func (g *Gate) Close() {
	g.mu.Lock()
	g.cancel()
	g.mu.Unlock()
	g.wg.Wait()
}
