package badger

import (
	"fmt"

	"github.com/dgraph-io/badger/v3"

	"github.com/janelia-flyem/neuprep/neuprep"
)

// Options configures a skeleton store.
type Options struct {
	// Path is the database directory.  It is ignored for in-memory stores.
	Path string

	// InMemory keeps all data in memory, which is useful for testing.
	InMemory bool

	ReadOnly bool

	// SyncWrites syncs every write to disk at cost of speed.
	SyncWrites bool

	// ValueThreshold is the size of values in bytes that if exceeded get
	// stored in the value log instead of the LSM tree.  Zero leaves the
	// badger default.
	ValueThreshold int64

	// LowMemory shrinks tables and caches for small machines.
	LowMemory bool
}

// badgerLogger routes badger's log output through our logger.  Badger info
// messages are chatty so they are logged at debug level.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{})   { neuprep.Errorf(format, args...) }
func (badgerLogger) Warningf(format string, args ...interface{}) { neuprep.Warningf(format, args...) }
func (badgerLogger) Infof(format string, args ...interface{})    { neuprep.Debugf(format, args...) }
func (badgerLogger) Debugf(format string, args ...interface{})   { neuprep.Debugf(format, args...) }

func getOptions(o Options) (badger.Options, error) {
	var opts badger.Options
	if o.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if o.Path == "" {
			return opts, fmt.Errorf("path must be specified for badger skeleton store")
		}
		opts = badger.DefaultOptions(o.Path)
	}
	opts = opts.WithLogger(badgerLogger{}).
		WithNumVersionsToKeep(DefaultVersionsToKeep).
		WithSyncWrites(o.SyncWrites).
		WithReadOnly(o.ReadOnly)
	if o.ValueThreshold > 0 {
		opts = opts.WithValueThreshold(o.ValueThreshold)
	}
	if o.LowMemory {
		neuprep.Infof("Using Badger with low memory options.\n")
		opts = opts.WithMemTableSize(1 << 20).
			WithBlockCacheSize(1 << 20).
			WithIndexCacheSize(1 << 20).
			WithNumMemtables(1).
			WithValueLogFileSize(1<<20 - 1)
	}
	return opts, nil
}
