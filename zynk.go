// Package zynk is an embedded key-value store based on an LSM-tree design.
//
// Writes land in an in-memory sorted memtable. Once the memtable reaches its
// size threshold it is frozen and published as an immutable, checksummed
// sstable file. Reads consult the memtables first and then the tables from
// newest to oldest; a delete is recorded as a tombstone that hides older
// values.
//
// Example usage:
//
//	db, err := zynk.Open("/path/to/database", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Close()
//
//	err = db.Put([]byte("key"), []byte("value"))
//	if err != nil {
//		log.Printf("Put failed: %v", err)
//	}
//
//	value, exists, err := db.Get([]byte("key"))
//	if err != nil {
//		log.Printf("Get failed: %v", err)
//	} else if exists {
//		fmt.Printf("Value: %s\n", string(value))
//	}
//
//	err = db.Delete([]byte("key"))
//	if err != nil {
//		log.Printf("Delete failed: %v", err)
//	}
package zynk

import (
	"github.com/rs/zerolog"

	"github.com/MikhailWahib/zynk/internal/config"
	"github.com/MikhailWahib/zynk/internal/engine"
	"github.com/MikhailWahib/zynk/internal/sstable"
)

// Config is an alias for config.Config, re-exported for user convenience.
type Config = config.Config

// EngineConfig is an alias for config.EngineConfig.
type EngineConfig = config.EngineConfig

// DefaultConfig returns a Config struct populated with default values. Re-exported for user convenience.
var DefaultConfig = config.DefaultConfig

// Errors callers may test for with errors.Is.
var (
	ErrClosed       = engine.ErrClosed
	ErrInconsistent = engine.ErrInconsistent
	ErrCorruption   = sstable.ErrCorruption
	ErrFormat       = sstable.ErrFormat
)

// Option customizes Open.
type Option func(*options)

type options struct {
	engine []engine.Option
}

// WithLogger makes the store log flushes and recovery to log.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) {
		o.engine = append(o.engine, engine.WithLogger(log))
	}
}

// DB represents a thread-safe zynk instance.
type DB struct {
	engine *engine.Engine
}

// Open opens or creates a database at the specified path.
//
// The directory will be created if it doesn't exist. If the database exists,
// its tables are loaded and unflushed writes are replayed from the log.
// A nil cfg uses DefaultConfig.
func Open(path string, cfg *Config, opts ...Option) (*DB, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := engine.NewEngine(cfg, o.engine...)
	if err := e.OpenDB(path); err != nil {
		return nil, err
	}
	return &DB{engine: e}, nil
}

// Put writes a key-value pair to the database.
// Overwrites the value if the key already exists.
func (db *DB) Put(key, value []byte) error {
	return db.engine.Put(key, value)
}

// Get retrieves the value for a given key.
// A missing or deleted key is reported as (nil, false, nil); errors are
// reserved for I/O failures and corruption.
func (db *DB) Get(key []byte) ([]byte, bool, error) {
	return db.engine.Get(key)
}

// Delete removes the key and its value from the database.
// Deleting a missing key is not an error.
func (db *DB) Delete(key []byte) error {
	return db.engine.Delete(key)
}

// Flush persists everything written so far as sstables.
func (db *DB) Flush() error {
	return db.engine.Flush()
}

// Close gracefully shuts down the database, ensuring all data is persisted.
// This method flushes any remaining memtable data to disk and closes all
// open files. After calling Close, every method returns ErrClosed.
//
// It's recommended to call Close when you're done with the database,
// typically using defer:
//
//	db, err := zynk.Open("/path/to/database", nil)
//	if err != nil {
//		return err
//	}
//	defer db.Close()
func (db *DB) Close() error {
	return db.engine.Close()
}
