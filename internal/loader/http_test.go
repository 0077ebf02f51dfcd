package loader_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/chunkytofustudios/analytics-gate/internal/loader"
	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
	"github.com/chunkytofustudios/analytics-gate/pkg/retry"
	"github.com/chunkytofustudios/analytics-gate/pkg/timeutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mockMetadataSink is a test double for metadata.MetadataSink
type mockMetadataSink struct {
	mu          sync.Mutex
	loadEvents  []metadata.LoadRecord
	errorEvents []errorEvent
}

type errorEvent struct {
	packageName string
	action      string
	cause       metadata.ErrorCause
	details     string
	attrs       []metadata.Attribute
}

func (m *mockMetadataSink) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause metadata.ErrorCause,
	details string,
	attrs []metadata.Attribute,
) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorEvents = append(m.errorEvents, errorEvent{
		packageName: packageName,
		action:      action,
		cause:       cause,
		details:     details,
		attrs:       attrs,
	})
}

func (m *mockMetadataSink) RecordLoad(record metadata.LoadRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadEvents = append(m.loadEvents, record)
}

func (m *mockMetadataSink) RecordTrack(kind string, name string, queued bool) {}

func (m *mockMetadataSink) RecordDelivery(record metadata.DeliveryRecord) {}

// createTestRetryParam creates retry parameters for testing
func createTestRetryParam(maxAttempts int) retry.RetryParam {
	return retry.NewRetryParam(
		5*time.Millisecond, // jitter
		42,                 // randomSeed
		maxAttempts,        // maxAttempts
		timeutil.NewBackoffParam(
			10*time.Millisecond,
			2.0,
			50*time.Millisecond,
		),
	)
}

func scriptServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestHTTPScriptLoader_Load_Success(t *testing.T) {
	var gotUserAgent string
	server := scriptServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Write([]byte("window.gtagLoaded = true;"))
	})

	sink := &mockMetadataSink{}
	l := loader.NewHTTPScriptLoader(sink, "analytics-gate/test", time.Second, createTestRetryParam(1))

	result, err := l.Load(context.Background(), server.URL+"/gtag/js?id=G-TEST")

	require.Nil(t, err)
	assert.Equal(t, http.StatusOK, result.StatusCode())
	assert.Equal(t, len("window.gtagLoaded = true;"), result.SizeByte())
	assert.Len(t, result.ContentHash(), 64)
	assert.Equal(t, 1, result.Attempts())
	assert.Equal(t, "analytics-gate/test", gotUserAgent)

	require.Len(t, sink.loadEvents, 1)
	assert.NoError(t, sink.loadEvents[0].Err)
	assert.Equal(t, result.ContentHash(), sink.loadEvents[0].ContentHash)
	assert.Empty(t, sink.errorEvents)
}

func TestHTTPScriptLoader_Load_Classification(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		contentType string
		body        string
		wantCause   loader.LoadErrorCause
		wantMeta    metadata.ErrorCause
		retryable   bool
	}{
		{"server error", http.StatusBadGateway, "text/plain", "down", loader.ErrCauseRequest5xx, metadata.CauseRetryFailure, true},
		{"rate limited", http.StatusTooManyRequests, "text/plain", "slow down", loader.ErrCauseRequestTooMany, metadata.CauseRetryFailure, true},
		{"forbidden", http.StatusForbidden, "text/plain", "no", loader.ErrCauseRequestForbidden, metadata.CausePolicyDisallow, false},
		{"not found", http.StatusNotFound, "text/plain", "missing", loader.ErrCauseRequest4xx, metadata.CauseUnknown, false},
		{"html instead of js", http.StatusOK, "text/html", "<html></html>", loader.ErrCauseContentTypeInvalid, metadata.CauseContentInvalid, false},
		{"empty script", http.StatusOK, "text/javascript", "", loader.ErrCauseEmptyScript, metadata.CauseContentInvalid, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := scriptServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tt.contentType)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			sink := &mockMetadataSink{}
			l := loader.NewHTTPScriptLoader(sink, "ua", time.Second, createTestRetryParam(1))

			_, err := l.Load(context.Background(), server.URL)
			require.NotNil(t, err)

			var loadErr *loader.LoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.wantCause, loadErr.Cause)
			assert.Equal(t, tt.retryable, loadErr.IsRetryable())

			require.Len(t, sink.loadEvents, 1)
			assert.Error(t, sink.loadEvents[0].Err)
			assert.Equal(t, tt.wantMeta, sink.loadEvents[0].Cause)
			assert.Empty(t, sink.errorEvents)
		})
	}
}

func TestHTTPScriptLoader_Load_RetriesTransientFailures(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	server := scriptServer(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		current := calls
		mu.Unlock()

		if current < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/javascript")
		w.Write([]byte("ok();"))
	})

	sink := &mockMetadataSink{}
	l := loader.NewHTTPScriptLoader(sink, "ua", time.Second, createTestRetryParam(3))

	result, err := l.Load(context.Background(), server.URL)

	require.Nil(t, err)
	assert.Equal(t, 3, result.Attempts())
	assert.Equal(t, 3, calls)
}

func TestHTTPScriptLoader_Load_ExhaustedRetries(t *testing.T) {
	server := scriptServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	sink := &mockMetadataSink{}
	l := loader.NewHTTPScriptLoader(sink, "ua", time.Second, createTestRetryParam(2))

	_, err := l.Load(context.Background(), server.URL)

	require.NotNil(t, err)
	var retryErr *retry.RetryError
	require.True(t, errors.As(err, &retryErr))
	assert.Equal(t, retry.ErrExhaustedAttempts, retryErr.Cause)
	require.Len(t, sink.loadEvents, 1)
	assert.Equal(t, metadata.CauseRetryFailure, sink.loadEvents[0].Cause)
	assert.Equal(t, 2, sink.loadEvents[0].Attempts)
	assert.Empty(t, sink.errorEvents)
}

func TestHTTPScriptLoader_Load_InvalidURL(t *testing.T) {
	sink := &mockMetadataSink{}
	l := loader.NewHTTPScriptLoader(sink, "ua", time.Second, createTestRetryParam(1))

	_, err := l.Load(context.Background(), "not a url")

	require.NotNil(t, err)
	assert.Equal(t, failure.SeverityFatal, err.Severity())
	var loadErr *loader.LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, loader.ErrCauseInvalidURL, loadErr.Cause)
	require.Len(t, sink.loadEvents, 1)
	assert.Equal(t, metadata.CauseContentInvalid, sink.loadEvents[0].Cause)
	assert.Empty(t, sink.errorEvents)
}

// A failed load must stay out of production logs: only a debug-level
// logger sees it.
func TestHTTPScriptLoader_Load_FailureLoggedOnlyAtDebugLevel(t *testing.T) {
	server := scriptServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	tests := []struct {
		name        string
		level       zapcore.Level
		wantEntries int
	}{
		{"production level", zapcore.InfoLevel, 0},
		{"development level", zapcore.DebugLevel, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(tt.level)
			recorder := metadata.NewRecorder(zap.New(core))
			l := loader.NewHTTPScriptLoader(recorder, "ua", time.Second, createTestRetryParam(2))

			_, err := l.Load(context.Background(), server.URL+"/gtag/js?id=G-TEST")

			require.NotNil(t, err)
			assert.Equal(t, tt.wantEntries, logs.Len())
			for _, entry := range logs.All() {
				assert.Equal(t, zapcore.DebugLevel, entry.Level)
				assert.Equal(t, "analytics script load failed", entry.Message)
				assert.Equal(t, metadata.CauseRetryFailure.String(), entry.ContextMap()["cause"])
			}
		})
	}
}

func TestHTTPScriptLoader_Load_CancelledContext(t *testing.T) {
	server := scriptServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/javascript")
		w.Write([]byte("ok();"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := loader.NewHTTPScriptLoader(&mockMetadataSink{}, "ua", time.Second, createTestRetryParam(3))
	_, err := l.Load(ctx, server.URL)

	require.NotNil(t, err)
	assert.False(t, failure.IsRetryable(err))
}

func TestLoaderFunc_ImplementsScriptLoader(t *testing.T) {
	var gotURL string
	var l loader.ScriptLoader = loader.LoaderFunc(func(ctx context.Context, scriptURL string) (loader.LoadResult, failure.ClassifiedError) {
		gotURL = scriptURL
		return loader.NewLoadResultForTest(scriptURL, http.StatusOK, 10), nil
	})

	result, err := l.Load(context.Background(), "https://example.com/gtag.js")

	require.Nil(t, err)
	assert.Equal(t, "https://example.com/gtag.js", gotURL)
	assert.Equal(t, 10, result.SizeByte())
}
