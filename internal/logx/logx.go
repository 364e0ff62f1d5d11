// Package logx builds the zerolog loggers used across zynk.
package logx

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/MikhailWahib/zynk/internal/config"
)

// shortCaller trims the caller to file:line and pads it for alignment.
func shortCaller(_ uintptr, file string, line int) string {
	short := file
	if i := strings.LastIndexByte(file, '/'); i >= 0 {
		short = file[i+1:]
	}
	return fmt.Sprintf("%-24s", fmt.Sprintf("%s:%d", short, line))
}

// New returns a logger writing to stdout as configured.
func New(cfg config.LogConfig) (zerolog.Logger, error) {
	return NewWithWriter(os.Stdout, cfg)
}

// NewWithWriter returns a logger writing to w. Format "console" renders
// human-readable lines; "json" writes one object per line.
func NewWithWriter(w io.Writer, cfg config.LogConfig) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		var err error
		level, err = zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("logx: %w", err)
		}
	}

	var out io.Writer
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		zerolog.CallerMarshalFunc = shortCaller
		out = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}
	case "json":
		out = w
	default:
		return zerolog.Nop(), fmt.Errorf("logx: unknown format %q", cfg.Format)
	}

	return zerolog.New(out).Level(level).With().Timestamp().Caller().Logger(), nil
}
