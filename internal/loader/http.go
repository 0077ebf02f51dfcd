package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chunkytofustudios/analytics-gate/internal/metadata"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
	"github.com/chunkytofustudios/analytics-gate/pkg/hashutil"
	"github.com/chunkytofustudios/analytics-gate/pkg/retry"
)

/*
Responsibilities

- Fetch the remote analytics bundle
- Apply headers and timeouts
- Classify responses

Load Semantics

- Only successful JavaScript responses count as loaded
- The body is hashed and discarded; nothing is executed
- Every load is recorded with metadata
*/

const maxScriptBytes = 4 << 20

type HTTPScriptLoader struct {
	metadataSink metadata.MetadataSink
	httpClient   *http.Client
	userAgent    string
	retryParam   retry.RetryParam
}

func NewHTTPScriptLoader(
	metadataSink metadata.MetadataSink,
	userAgent string,
	timeout time.Duration,
	retryParam retry.RetryParam,
) *HTTPScriptLoader {
	return NewHTTPScriptLoaderWithClient(metadataSink, userAgent, &http.Client{Timeout: timeout}, retryParam)
}

// NewHTTPScriptLoaderWithClient creates a loader with a custom HTTP client.
// This is useful for testing.
func NewHTTPScriptLoaderWithClient(
	metadataSink metadata.MetadataSink,
	userAgent string,
	httpClient *http.Client,
	retryParam retry.RetryParam,
) *HTTPScriptLoader {
	return &HTTPScriptLoader{
		metadataSink: metadataSink,
		httpClient:   httpClient,
		userAgent:    userAgent,
		retryParam:   retryParam,
	}
}

func (l *HTTPScriptLoader) Load(ctx context.Context, scriptURL string) (LoadResult, failure.ClassifiedError) {
	startTime := time.Now()

	parsed, parseErr := url.Parse(scriptURL)
	if parseErr != nil || !parsed.IsAbs() {
		err := &LoadError{
			Message:   fmt.Sprintf("cannot load %q", scriptURL),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
		l.metadataSink.RecordLoad(metadata.LoadRecord{
			ScriptURL: scriptURL,
			Duration:  time.Since(startTime),
			Err:       err,
			Cause:     loadFailureCause(err),
		})
		return LoadResult{}, err
	}

	result := retry.Retry(ctx, l.retryParam, func() (LoadResult, failure.ClassifiedError) {
		return l.performLoad(ctx, *parsed)
	})

	record := metadata.LoadRecord{
		ScriptURL: scriptURL,
		Duration:  time.Since(startTime),
		Attempts:  result.Attempts(),
	}

	if result.IsFailure() {
		record.Err = result.Err()
		record.Cause = loadFailureCause(result.Err())
		l.metadataSink.RecordLoad(record)
		return LoadResult{}, result.Err()
	}

	loaded := result.Value()
	loaded.attempts = result.Attempts()

	record.HTTPStatus = loaded.statusCode
	record.SizeByte = loaded.sizeByte
	record.ContentHash = loaded.contentHash
	l.metadataSink.RecordLoad(record)

	return loaded, nil
}

// loadFailureCause maps a load failure onto the canonical cause table.
// Failures go through RecordLoad only, which logs at debug level.
func loadFailureCause(err failure.ClassifiedError) metadata.ErrorCause {
	var retryErr *retry.RetryError
	var loadErr *LoadError
	switch {
	case errors.As(err, &retryErr):
		return metadata.CauseRetryFailure
	case errors.As(err, &loadErr):
		return mapLoadErrorToMetadataCause(loadErr)
	}
	return metadata.CauseUnknown
}

func (l *HTTPScriptLoader) performLoad(ctx context.Context, scriptURL url.URL) (LoadResult, failure.ClassifiedError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, scriptURL.String(), nil)
	if err != nil {
		return LoadResult{}, &LoadError{
			Message:   fmt.Sprintf("failed to create request: %v", err),
			Retryable: false,
			Cause:     ErrCauseInvalidURL,
		}
	}

	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "application/javascript, text/javascript, */*;q=0.1")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return LoadResult{}, &LoadError{
			Message:   fmt.Sprintf("request failed: %v", err),
			Retryable: ctx.Err() == nil,
			Cause:     ErrCauseNetworkFailure,
		}
	}
	defer resp.Body.Close()

	if loadErr := classifyStatus(resp.StatusCode); loadErr != nil {
		return LoadResult{}, loadErr
	}

	contentType := resp.Header.Get("Content-Type")
	if !isJavaScriptContent(contentType) {
		return LoadResult{}, &LoadError{
			Message:   fmt.Sprintf("content type %q", contentType),
			Retryable: false,
			Cause:     ErrCauseContentTypeInvalid,
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptBytes))
	if err != nil {
		return LoadResult{}, &LoadError{
			Message:   fmt.Sprintf("failed to read response body: %v", err),
			Retryable: true,
			Cause:     ErrCauseReadResponseBodyError,
		}
	}
	if len(body) == 0 {
		return LoadResult{}, &LoadError{
			Message:   "response body is empty",
			Retryable: false,
			Cause:     ErrCauseEmptyScript,
		}
	}

	contentHash, hashErr := hashutil.HashBytes(body, hashutil.HashAlgoBLAKE3)
	if hashErr != nil {
		contentHash = ""
	}

	return LoadResult{
		scriptURL:   scriptURL.String(),
		statusCode:  resp.StatusCode,
		sizeByte:    len(body),
		contentHash: contentHash,
	}, nil
}

func classifyStatus(statusCode int) *LoadError {
	switch {
	case statusCode >= 500:
		return &LoadError{
			Message:   fmt.Sprintf("server error: %d", statusCode),
			Retryable: true,
			Cause:     ErrCauseRequest5xx,
		}
	case statusCode == http.StatusTooManyRequests:
		return &LoadError{
			Message:   "rate limited (429)",
			Retryable: true,
			Cause:     ErrCauseRequestTooMany,
		}
	case statusCode == http.StatusForbidden || statusCode == http.StatusUnauthorized:
		return &LoadError{
			Message:   fmt.Sprintf("access denied (%d)", statusCode),
			Retryable: false,
			Cause:     ErrCauseRequestForbidden,
		}
	case statusCode >= 400:
		return &LoadError{
			Message:   fmt.Sprintf("client error: %d", statusCode),
			Retryable: false,
			Cause:     ErrCauseRequest4xx,
		}
	case statusCode >= 300:
		// http.Client follows redirects; landing here means the limit was hit
		return &LoadError{
			Message:   fmt.Sprintf("redirect error: %d", statusCode),
			Retryable: false,
			Cause:     ErrCauseRedirectLimitExceeded,
		}
	}
	return nil
}

func isJavaScriptContent(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "javascript") ||
		strings.Contains(contentType, "ecmascript")
}
