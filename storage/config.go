// Package storedb is the storage manager: the public API orchestrating
// heap-file I/O, the access planner, the write path, index maintenance, and
// optimizer statistics over a single base directory.
package storedb

import "go.uber.org/zap"

// Config tunes a Manager. Open fills in the engine defaults for a zero
// BaseDir, HashBuckets or BTreeOrder and uses a no-op logger when Logger is
// nil; DefaultConfig returns the same defaults with a production logger.
type Config struct {
	// BaseDir is the storage directory (schema.dat, <Table>.dat heap files,
	// and indexes/ live here).
	BaseDir string
	// HashBuckets is the default bucket count for newly created hash
	// indexes.
	HashBuckets int
	// BTreeOrder is the default fanout for newly created B+-tree indexes.
	BTreeOrder int
	// Logger receives structured operational log lines. A no-op logger is
	// used if nil.
	Logger *zap.Logger
}

// DefaultConfig returns a Config with the engine defaults: base directory
// "data", 200 hash buckets, B+-tree order 4, and a production zap logger.
func DefaultConfig() Config {
	logger, _ := zap.NewProduction()
	if logger == nil {
		logger = zap.NewNop()
	}
	return Config{
		BaseDir:     "data",
		HashBuckets: 200,
		BTreeOrder:  4,
		Logger:      logger,
	}
}

func (c Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}
