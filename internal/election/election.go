// Package election decides whether this node may accept writes.
package election

import (
	"context"
	"sync/atomic"
)

// Elector exposes the leadership flag. Run drives the election until ctx is
// cancelled; IsLeader may be called concurrently at any time.
type Elector interface {
	IsLeader() bool
	Run(ctx context.Context) error
}

// Static is an Elector with a fixed flag, used by single-node deployments.
type Static struct {
	leader atomic.Bool
}

// NewStatic returns a Static elector reporting leader.
func NewStatic(leader bool) *Static {
	s := &Static{}
	s.leader.Store(leader)
	return s
}

func (s *Static) IsLeader() bool { return s.leader.Load() }

// Set changes the flag.
func (s *Static) Set(leader bool) { s.leader.Store(leader) }

// Run blocks until ctx is done.
func (s *Static) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}
