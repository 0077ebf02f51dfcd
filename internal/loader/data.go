package loader

import (
	"context"

	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
)

// ScriptLoader loads the remote analytics bundle. Implementations must be
// safe to call again after a failure.
type ScriptLoader interface {
	Load(ctx context.Context, scriptURL string) (LoadResult, failure.ClassifiedError)
}

// LoaderFunc adapts a function to the ScriptLoader interface.
type LoaderFunc func(ctx context.Context, scriptURL string) (LoadResult, failure.ClassifiedError)

func (f LoaderFunc) Load(ctx context.Context, scriptURL string) (LoadResult, failure.ClassifiedError) {
	return f(ctx, scriptURL)
}

type LoadResult struct {
	scriptURL   string
	statusCode  int
	sizeByte    int
	contentHash string
	attempts    int
}

func (r LoadResult) ScriptURL() string {
	return r.scriptURL
}

func (r LoadResult) StatusCode() int {
	return r.statusCode
}

func (r LoadResult) SizeByte() int {
	return r.sizeByte
}

// ContentHash is the blake3 hex digest of the script body.
func (r LoadResult) ContentHash() string {
	return r.contentHash
}

func (r LoadResult) Attempts() int {
	return r.attempts
}

// NewLoadResultForTest creates a LoadResult for testing purposes.
func NewLoadResultForTest(scriptURL string, statusCode int, sizeByte int) LoadResult {
	return LoadResult{
		scriptURL:  scriptURL,
		statusCode: statusCode,
		sizeByte:   sizeByte,
		attempts:   1,
	}
}
