package scopestack

import (
	"context"

	"github.com/pavanmanishd/scopestack/internal/block"
	"golang.org/x/exp/slog"
)

// Backing selects where the allocator's block is reserved.
type Backing int

const (
	// BackingMmap maps anonymous memory outside the Go heap. This is the
	// default; platforms without mmap fall back to BackingHeap.
	BackingMmap Backing = iota
	// BackingHeap reserves the block as an over-aligned Go byte slice.
	BackingHeap
)

func (b Backing) kind() block.Kind {
	if b == BackingHeap {
		return block.Heap
	}
	return block.Mmap
}

// Option configures a LinearAllocator.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	backing Backing
}

// WithLogger sets the logger used for lifecycle and failure records.
// A nil logger keeps the default, which discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithBacking selects the block reservation strategy.
func WithBacking(b Backing) Option {
	return func(c *config) {
		c.backing = b
	}
}

func newConfig(opts []Option) config {
	c := config{
		logger:  slog.New(discardHandler{}),
		backing: BackingMmap,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
