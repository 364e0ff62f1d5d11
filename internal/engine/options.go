package engine

import (
	"github.com/rs/zerolog"

	"github.com/MikhailWahib/zynk/internal/diskmanager"
)

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithDiskManager replaces the file-system access layer.
func WithDiskManager(dm diskmanager.DiskManager) Option {
	return func(e *Engine) {
		e.dm = dm
	}
}
