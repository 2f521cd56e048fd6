package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// New builds a production logger at the given level. format is "json" or
// "console"; empty means json.
func New(verbosity, format string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	level, err := zap.ParseAtomicLevel(verbosity)
	if err != nil {
		return nil, err
	}
	config.Level = level

	switch format {
	case "", "json":
	case "console":
		config.Encoding = "console"
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
	return config.Build()
}
