package metadata

import (
	"go.uber.org/zap"
)

// NewLogger builds the process logger. Development loggers emit debug
// entries (load failures, queued tracking calls); production loggers start
// at info level.
func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
