package cliconfig

import (
	"io"

	"github.com/bft-labs/svchost/pkg/log"
)

// Logger builds the process logger from the configured level and format.
// Call it after Validate.
func (c *Config) Logger(w io.Writer) (*log.ZerologAdapter, error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := log.ParseFormat(c.LogFormat)
	if err != nil {
		return nil, err
	}
	return log.NewZerologAdapter(w, format, level), nil
}
