package election

import (
	"context"
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/rs/zerolog"

	"github.com/MikhailWahib/zynk/internal/config"
)

const (
	candidatePrefix = "n_"
	connectTimeout  = 10 * time.Second
	retryDelay      = 2 * time.Second
)

// conn is the subset of *zk.Conn the elector uses.
type conn interface {
	State() zk.State
	Exists(path string) (bool, *zk.Stat, error)
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	ChildrenW(path string) ([]string, *zk.Stat, <-chan zk.Event, error)
	Delete(path string, version int32) error
	Close()
}

// ZKElector elects a leader among nodes sharing a ZooKeeper root. Every node
// owns an ephemeral sequential znode under <root>/election and the owner of
// the lowest sequence number leads. Losing the session drops the znode, so
// leadership moves on without coordination.
type ZKElector struct {
	conn   conn
	dir    string
	nodeID string
	log    zerolog.Logger

	self   string // znode name, empty until registered
	leader atomic.Bool
}

// NewZKElector connects to the configured ensemble.
func NewZKElector(cfg config.ElectionConfig, nodeID string, log zerolog.Logger) (*ZKElector, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("election: no zookeeper servers configured")
	}

	zkLog := log.With().Str("component", "zk").Logger()
	c, _, err := zk.Connect(cfg.Servers, cfg.SessionTimeout, zk.WithLogger(&zkLog))
	if err != nil {
		return nil, fmt.Errorf("election: zk connect: %w", err)
	}
	return newZKElector(c, cfg.Root, nodeID, log), nil
}

func newZKElector(c conn, root, nodeID string, log zerolog.Logger) *ZKElector {
	return &ZKElector{
		conn:   c,
		dir:    path.Join(root, "election"),
		nodeID: nodeID,
		log:    log.With().Str("component", "election").Logger(),
	}
}

func (z *ZKElector) IsLeader() bool { return z.leader.Load() }

// Run registers this node and follows the candidate list until ctx is done.
// Errors talking to ZooKeeper clear the flag and are retried.
func (z *ZKElector) Run(ctx context.Context) error {
	defer z.shutdown()

	for {
		err := z.campaign(ctx)
		if ctx.Err() != nil {
			return nil
		}
		z.setLeader(false)
		z.log.Warn().Err(err).Msg("election round failed, retrying")

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(retryDelay):
		}
	}
}

// campaign runs until an error occurs or ctx is cancelled.
func (z *ZKElector) campaign(ctx context.Context) error {
	if err := z.waitConnected(ctx, connectTimeout); err != nil {
		return err
	}
	if err := z.ensurePath(z.dir); err != nil {
		return fmt.Errorf("ensure %s: %w", z.dir, err)
	}

	for {
		children, _, ch, err := z.conn.ChildrenW(z.dir)
		if err != nil {
			return fmt.Errorf("watch %s: %w", z.dir, err)
		}

		// The ephemeral node disappears with an expired session.
		if z.self == "" || !slices.Contains(children, z.self) {
			if err := z.register(); err != nil {
				return err
			}
			continue
		}

		z.setLeader(isLowest(children, z.self))

		select {
		case ev := <-ch:
			z.log.Debug().Str("event", ev.Type.String()).Str("path", ev.Path).Msg("candidates changed")
			if ev.Err != nil {
				return ev.Err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (z *ZKElector) register() error {
	created, err := z.conn.Create(path.Join(z.dir, candidatePrefix), []byte(z.nodeID),
		zk.FlagEphemeral|zk.FlagSequence, zk.WorldACL(zk.PermAll))
	if err != nil {
		return fmt.Errorf("create candidate: %w", err)
	}
	z.self = path.Base(created)
	z.log.Info().Str("znode", created).Msg("registered as candidate")
	return nil
}

func (z *ZKElector) setLeader(v bool) {
	if z.leader.Swap(v) != v {
		z.log.Info().Bool("leader", v).Msg("leadership changed")
	}
}

func (z *ZKElector) shutdown() {
	z.setLeader(false)
	if z.self != "" {
		if err := z.conn.Delete(path.Join(z.dir, z.self), -1); err != nil && !errors.Is(err, zk.ErrNoNode) {
			z.log.Warn().Err(err).Msg("remove candidate")
		}
	}
	z.conn.Close()
}

func (z *ZKElector) ensurePath(p string) error {
	cur := ""
	for _, part := range strings.Split(p, "/") {
		if part == "" {
			continue
		}
		cur = cur + "/" + part
		exists, _, err := z.conn.Exists(cur)
		if err != nil {
			return err
		}
		if !exists {
			_, err = z.conn.Create(cur, nil, 0, zk.WorldACL(zk.PermAll))
			if err != nil && !errors.Is(err, zk.ErrNodeExists) {
				return err
			}
		}
	}
	return nil
}

func (z *ZKElector) waitConnected(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		st := z.conn.State()
		if st == zk.StateConnected || st == zk.StateHasSession {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("zk: not connected after %s, state=%v", timeout, st)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// sequence extracts the counter ZooKeeper appends to sequential nodes.
func sequence(name string) (uint64, bool) {
	i := strings.LastIndex(name, candidatePrefix)
	if i < 0 {
		return 0, false
	}
	n, err := strconv.ParseUint(name[i+len(candidatePrefix):], 10, 64)
	return n, err == nil
}

// isLowest reports whether self holds the smallest sequence among children.
// Names that do not parse are ignored.
func isLowest(children []string, self string) bool {
	mine, ok := sequence(self)
	if !ok {
		return false
	}
	for _, c := range children {
		if n, ok := sequence(c); ok && n < mine {
			return false
		}
	}
	return true
}
