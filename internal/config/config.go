// Package config provides configuration structures and defaults for zynk.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

const (
	defaultMemtableMaxBytes = 64 * 1024
	defaultBlockBytes       = 8 * 1024
	defaultDataDir          = "/data"
	defaultBindIP           = "0.0.0.0"
	defaultPort             = 50051
	defaultReadTimeout      = 5 * time.Second
	defaultWriteTimeout     = 10 * time.Second
	defaultShutdownTimeout  = 10 * time.Second
	defaultLogLevel         = "info"
	defaultLogFormat        = "console"
	defaultElectionRoot     = "/zynk"
	defaultSessionTimeout   = 10 * time.Second
)

// Config holds every tunable of a zynk node. Only Engine matters to the
// embedded store; the remaining sections configure the daemon.
type Config struct {
	DataDir  string         `yaml:"data_dir"`
	NodeID   string         `yaml:"node_id"`
	Engine   EngineConfig   `yaml:"engine"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Election ElectionConfig `yaml:"election"`
}

// EngineConfig holds the storage engine's performance and durability knobs.
type EngineConfig struct {
	// MemtableMaxBytes is the accumulated write size at which the active
	// memtable is frozen and flushed.
	MemtableMaxBytes int `yaml:"memtable_max_bytes"`
	// BlockBytes is the advisory target size of an sstable data block.
	BlockBytes int `yaml:"block_bytes"`
	// WALSync fsyncs the write-ahead log on every write.
	WALSync bool `yaml:"wal_sync"`
	// FlushQueueDepth > 0 moves flushes to a background worker with a queue
	// of that many frozen memtables; writers block only when it is full.
	// Zero flushes synchronously on the write path.
	FlushQueueDepth int `yaml:"flush_queue_depth"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	BindIP          string        `yaml:"bind_ip"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// GateWrites rejects writes while this node is not the elected leader.
	GateWrites bool `yaml:"gate_writes"`
}

// LogConfig selects the log level and output format (console or json).
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ElectionConfig configures leader election. With no servers the node
// considers itself leader.
type ElectionConfig struct {
	Servers        []string      `yaml:"servers"`
	Root           string        `yaml:"root"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindIP, s.Port)
}

// DefaultConfig returns a Config struct populated with default values.
func DefaultConfig() *Config {
	return &Config{
		DataDir: defaultDataDir,
		Engine: EngineConfig{
			MemtableMaxBytes: defaultMemtableMaxBytes,
			BlockBytes:       defaultBlockBytes,
			WALSync:          true,
		},
		Server: ServerConfig{
			BindIP:          defaultBindIP,
			Port:            defaultPort,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
		Election: ElectionConfig{
			Root:           defaultElectionRoot,
			SessionTimeout: defaultSessionTimeout,
		},
	}
}

// FillDefaults sets any zero-value fields in the Config to their default values.
// Booleans are left alone.
func (c *Config) FillDefaults() {
	def := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = def.DataDir
	}
	if c.Engine.MemtableMaxBytes == 0 {
		c.Engine.MemtableMaxBytes = def.Engine.MemtableMaxBytes
	}
	if c.Engine.BlockBytes == 0 {
		c.Engine.BlockBytes = def.Engine.BlockBytes
	}
	if c.Server.BindIP == "" {
		c.Server.BindIP = def.Server.BindIP
	}
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = def.Server.ReadTimeout
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = def.Server.WriteTimeout
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Election.Root == "" {
		c.Election.Root = def.Election.Root
	}
	if c.Election.SessionTimeout == 0 {
		c.Election.SessionTimeout = def.Election.SessionTimeout
	}
}

// Validate reports settings the engine cannot run with.
func (e EngineConfig) Validate() error {
	switch {
	case e.MemtableMaxBytes <= 0:
		return fmt.Errorf("config: memtable_max_bytes must be positive, got %d", e.MemtableMaxBytes)
	case e.BlockBytes <= 0:
		return fmt.Errorf("config: block_bytes must be positive, got %d", e.BlockBytes)
	case e.FlushQueueDepth < 0:
		return fmt.Errorf("config: flush_queue_depth must not be negative, got %d", e.FlushQueueDepth)
	}
	return nil
}

// Validate reports settings a node cannot run with.
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	return nil
}

// Load reads a YAML file over the defaults. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.FillDefaults()

	return cfg, cfg.Validate()
}

// ApplyEnv overrides fields from the environment: PORT, BIND_IP, DATA_DIR,
// NODE_ID and ZK_SERVERS (comma separated). getenv is usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: PORT: %w", err)
		}
		c.Server.Port = port
	}
	if v := getenv("BIND_IP"); v != "" {
		c.Server.BindIP = v
	}
	if v := getenv("DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("NODE_ID"); v != "" {
		c.NodeID = v
	}
	if v := getenv("ZK_SERVERS"); v != "" {
		c.Election.Servers = nil
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				c.Election.Servers = append(c.Election.Servers, s)
			}
		}
	}
	return c.Validate()
}
