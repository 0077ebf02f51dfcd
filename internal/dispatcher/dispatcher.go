package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chunkytofustudios/analytics-gate/internal/config"
	"github.com/chunkytofustudios/analytics-gate/internal/consent"
	"github.com/chunkytofustudios/analytics-gate/internal/datalayer"
	"github.com/chunkytofustudios/analytics-gate/internal/gate"
	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
	"github.com/chunkytofustudios/analytics-gate/pkg/limiter"
	"github.com/chunkytofustudios/analytics-gate/pkg/retry"
	"github.com/chunkytofustudios/analytics-gate/pkg/timeutil"
	"github.com/google/uuid"
)

/*
Responsibilities

- Consume the data layer in push order
- Fold config and consent commands into delivery state
- Send event commands to the Measurement Protocol endpoint
- Pace, retry and record every request

Consent commands without a client ID set the site-wide state. Commands
carrying one override it for that visitor only. Each event is sent with
the consent in effect when it was pushed.
*/
type Dispatcher struct {
	layer        *datalayer.Layer
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	rateLimiter  limiter.RateLimiter
	retryParam   retry.RetryParam
	collectURL   url.URL
	apiSecret    string
	userAgent    string
	dryRun       bool
	flushTimeout time.Duration

	// guarded by flushMu
	flushMu         sync.Mutex
	measurementID   string
	defaultClientID string
	siteConsent     map[string]string
	clientConsent   map[string]map[string]string
}

func NewDispatcher(
	cfg config.Config,
	layer *datalayer.Layer,
	metadataSink metadata.MetadataSink,
	rateLimiter limiter.RateLimiter,
) (*Dispatcher, error) {
	return NewDispatcherWithClient(cfg, layer, metadataSink, rateLimiter, &http.Client{Timeout: cfg.Timeout()})
}

// NewDispatcherWithClient creates a dispatcher with a custom HTTP client.
// This is useful for testing.
func NewDispatcherWithClient(
	cfg config.Config,
	layer *datalayer.Layer,
	metadataSink metadata.MetadataSink,
	rateLimiter limiter.RateLimiter,
	httpClient *http.Client,
) (*Dispatcher, error) {
	collectURL, err := url.Parse(cfg.CollectURL())
	if err != nil {
		return nil, fmt.Errorf("%w: %s", config.ErrInvalidConfig, err.Error())
	}

	backoffParam := timeutil.NewBackoffParam(
		cfg.BackoffInitialDuration(),
		cfg.BackoffMultiplier(),
		cfg.BackoffMaxDuration(),
	)
	rateLimiter.SetBaseDelay(cfg.BaseDelay())
	rateLimiter.SetJitter(cfg.Jitter())
	rateLimiter.SetRandomSeed(cfg.RandomSeed())
	rateLimiter.SetBackoffParam(backoffParam)

	return &Dispatcher{
		layer:        layer,
		metadataSink: metadataSink,
		httpClient:   httpClient,
		rateLimiter:  rateLimiter,
		retryParam: retry.NewRetryParam(
			cfg.Jitter(),
			cfg.RandomSeed(),
			cfg.MaxAttempt(),
			backoffParam,
		),
		collectURL:      *collectURL,
		apiSecret:       cfg.APISecret(),
		userAgent:       cfg.UserAgent(),
		dryRun:          cfg.DryRun() || cfg.APISecret() == "",
		flushTimeout:    cfg.Timeout(),
		measurementID:   cfg.MeasurementID(),
		defaultClientID: uuid.NewString(),
		siteConsent:     mpConsent(consent.Choices{}.Params()),
		clientConsent:   make(map[string]map[string]string),
	}, nil
}

// Run delivers data layer commands as they arrive. Cancelling ctx stops the
// loop without cutting short a delivery in progress; what is left is then
// flushed once, bounded by the request timeout.
func (d *Dispatcher) Run(ctx context.Context) error {
	sendCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(sendCtx, d.flushTimeout)
			d.Flush(flushCtx)
			cancel()
			return nil
		case <-d.layer.Notify():
			d.Flush(sendCtx)
		}
	}
}

// Flush delivers every command pushed since the last flush. Failed batches
// are recorded and dropped; the first failure is returned.
func (d *Dispatcher) Flush(ctx context.Context) failure.ClassifiedError {
	d.flushMu.Lock()
	defer d.flushMu.Unlock()

	batches := d.fold(d.layer.Take())

	var firstErr failure.ClassifiedError
	for i := range batches {
		if err := d.send(ctx, &batches[i]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (d *Dispatcher) fold(cmds []datalayer.Command) []batch {
	var batches []batch
	for _, cmd := range cmds {
		switch cmd.Name {
		case datalayer.CommandConfig:
			if cmd.Target != "" {
				d.measurementID = cmd.Target
			}
		case datalayer.CommandConsent:
			d.foldConsent(cmd)
		case datalayer.CommandEvent:
			batches = d.appendEvent(batches, cmd)
		}
	}
	return batches
}

func (d *Dispatcher) foldConsent(cmd datalayer.Command) {
	state := mpConsent(cmd.Params)
	clientID, _ := cmd.Params[consent.ParamClientID].(string)
	if clientID == "" {
		d.siteConsent = state
		return
	}
	d.clientConsent[clientID] = state
}

func (d *Dispatcher) appendEvent(batches []batch, cmd datalayer.Command) []batch {
	params := maps.Clone(cmd.Params)

	clientID, _ := params[gate.ParamClientID].(string)
	delete(params, gate.ParamClientID)
	if clientID == "" {
		clientID = d.defaultClientID
	}

	measurementID, _ := params[gate.ParamSendTo].(string)
	delete(params, gate.ParamSendTo)
	if measurementID == "" {
		measurementID = d.measurementID
	}

	consentState := d.siteConsent
	if perClient, ok := d.clientConsent[clientID]; ok {
		consentState = perClient
	}

	ev := mpEvent{Name: cmd.Target, Params: params}
	if n := len(batches); n > 0 && batches[n-1].accepts(measurementID, clientID, consentState) {
		batches[n-1].events = append(batches[n-1].events, ev)
		return batches
	}
	return append(batches, batch{
		measurementID: measurementID,
		clientID:      clientID,
		consent:       consentState,
		events:        []mpEvent{ev},
	})
}

// mpConsent keeps the Consent Mode fields the Measurement Protocol accepts.
func mpConsent(params map[string]any) map[string]string {
	out := make(map[string]string, 2)
	for _, key := range []string{consent.StorageAdUserData, consent.StorageAdPersonalization} {
		if value, ok := params[key].(string); ok {
			out[key] = strings.ToUpper(value)
		}
	}
	return out
}

func (d *Dispatcher) send(ctx context.Context, b *batch) failure.ClassifiedError {
	callerMethod := "Dispatcher.send"

	body, err := json.Marshal(mpRequest{
		ClientID: b.clientID,
		Events:   b.events,
		Consent:  b.consent,
	})
	if err != nil {
		dispatchErr := &DispatchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseEncodeFailure,
		}
		d.recordError(callerMethod, b, dispatchErr)
		return dispatchErr
	}

	if d.dryRun {
		d.metadataSink.RecordDelivery(metadata.DeliveryRecord{
			EventNames: b.eventNames(),
			DryRun:     true,
			Payload:    string(body),
		})
		return nil
	}

	host := d.collectURL.Host
	if err := sleep(ctx, d.rateLimiter.ResolveDelay(host)); err != nil {
		dispatchErr := &DispatchError{
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseCancelled,
		}
		d.recordError(callerMethod, b, dispatchErr)
		return dispatchErr
	}

	endpoint := d.endpoint(b.measurementID)
	startTime := time.Now()
	result := retry.Retry(ctx, d.retryParam, func() (int, failure.ClassifiedError) {
		return d.post(ctx, host, endpoint, body)
	})

	if result.IsFailure() {
		d.recordError(callerMethod, b, result.Err())
		return result.Err()
	}

	d.metadataSink.RecordDelivery(metadata.DeliveryRecord{
		EventNames: b.eventNames(),
		HTTPStatus: result.Value(),
		Duration:   time.Since(startTime),
		Attempts:   result.Attempts(),
	})
	return nil
}

func (d *Dispatcher) endpoint(measurementID string) string {
	endpoint := d.collectURL
	query := endpoint.Query()
	query.Set("measurement_id", measurementID)
	query.Set("api_secret", d.apiSecret)
	endpoint.RawQuery = query.Encode()
	return endpoint.String()
}

func (d *Dispatcher) post(ctx context.Context, host string, endpoint string, body []byte) (int, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, &DispatchError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidRequest,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", d.userAgent)

	d.rateLimiter.MarkLastSendAsNow(host)
	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, &DispatchError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: ctx.Err() == nil,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		d.rateLimiter.ResetBackoff(host)
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		d.rateLimiter.Backoff(host)
		if delay, ok := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()); ok {
			d.rateLimiter.SetHostDelay(host, delay)
		}
		return resp.StatusCode, &DispatchError{
			Message:   "rate limited (429)",
			Retryable: true,
			Cause:     ErrCauseRequestTooMany,
		}
	case resp.StatusCode >= 500:
		d.rateLimiter.Backoff(host)
		return resp.StatusCode, &DispatchError{
			Message:   fmt.Sprintf("server error: %d", resp.StatusCode),
			Retryable: true,
			Cause:     ErrCauseRequest5xx,
		}
	default:
		return resp.StatusCode, &DispatchError{
			Message:   fmt.Sprintf("client error: %d", resp.StatusCode),
			Retryable: false,
			Cause:     ErrCauseRequest4xx,
		}
	}
}

func (d *Dispatcher) recordError(callerMethod string, b *batch, err failure.ClassifiedError) {
	cause := metadata.CauseUnknown

	var retryErr *retry.RetryError
	var dispatchErr *DispatchError
	switch {
	case errors.As(err, &retryErr):
		cause = metadata.CauseRetryFailure
	case errors.As(err, &dispatchErr):
		cause = mapDispatchErrorToMetadataCause(dispatchErr)
	}

	d.metadataSink.RecordError(
		time.Now(),
		"dispatcher",
		callerMethod,
		cause,
		err.Error(),
		[]metadata.Attribute{
			metadata.NewAttr(metadata.AttrHost, d.collectURL.Host),
			metadata.NewAttr(metadata.AttrMeasurementID, b.measurementID),
			metadata.NewAttr(metadata.AttrEventName, strings.Join(b.eventNames(), ",")),
		},
	)
}

// parseRetryAfter accepts both delta-seconds and HTTP-date forms.
func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		if delay := at.Sub(now); delay > 0 {
			return delay, true
		}
		return 0, true
	}
	return 0, false
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
