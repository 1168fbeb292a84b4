/*
Package badger stores the local skeleton collection in a BadgerDB keyed by
neuron identifier.
*/
package badger

import (
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dustin/go-humanize"

	"github.com/janelia-flyem/neuprep/neuprep"
	"github.com/janelia-flyem/neuprep/skeleton"
	"github.com/janelia-flyem/neuprep/storage"
)

const (
	// DefaultVersionsToKeep is the number of versions to keep per key.
	DefaultVersionsToKeep = 1

	syncInterval = 30 * time.Second
)

var skelPrefix = []byte("skel/")

func init() {
	e, err := storage.NewEngine("badger", "BadgerDB skeleton collection", "0.2.0")
	if err != nil {
		neuprep.Errorf("Unable to make badger engine: %v\n", err)
		return
	}
	storage.RegisterEngine(e)
}

func skelKey(id neuprep.Identifier) []byte {
	key := make([]byte, 0, len(skelPrefix)+len(id))
	key = append(key, skelPrefix...)
	return append(key, id...)
}

func keyToID(key []byte) neuprep.Identifier {
	return neuprep.Identifier(key[len(skelPrefix):])
}

// Store is a persistent skeleton collection.
type Store struct {
	// Directory of datastore, empty if in memory.
	directory string

	bdp *badger.DB

	// stopSyncCh is used to signal the sync goroutine to stop.
	stopSyncCh chan struct{}
}

// Open returns a skeleton store, creating the database directory if needed.
func Open(o Options) (*Store, error) {
	opts, err := getOptions(o)
	if err != nil {
		return nil, err
	}
	if !o.InMemory {
		if _, err := os.Stat(o.Path); os.IsNotExist(err) {
			neuprep.Infof("Skeleton store not already at path (%s). Creating directory...\n", o.Path)
			if err := os.MkdirAll(o.Path, 0744); err != nil {
				return nil, fmt.Errorf("can't make directory at %s: %v", o.Path, err)
			}
		}
	}
	timedLog := neuprep.NewTimeLog()
	bdp, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger @ %q: %v", o.Path, err)
	}
	db := &Store{directory: o.Path, bdp: bdp}
	if o.InMemory {
		db.directory = ""
	} else if !o.SyncWrites && !o.ReadOnly {
		db.stopSyncCh = make(chan struct{})
		go db.syncPeriodically()
	}
	timedLog.Infof("Opened %s", db)
	return db, nil
}

// Periodically sync to prevent too many writes from being buffered
// if the process dies.
func (db *Store) syncPeriodically() {
	ticker := time.NewTicker(syncInterval)
	defer ticker.Stop()
	for {
		select {
		case <-db.stopSyncCh:
			return
		case <-ticker.C:
			if err := db.bdp.Sync(); err != nil {
				neuprep.Errorf("Unable to sync %s: %v\n", db, err)
			}
		}
	}
}

func (db *Store) String() string {
	if db.directory == "" {
		return "badger skeleton store in memory"
	}
	return fmt.Sprintf("badger skeleton store @ %s", db.directory)
}

// Close closes the store.
func (db *Store) Close() error {
	if db == nil || db.bdp == nil {
		return nil
	}
	if db.stopSyncCh != nil {
		close(db.stopSyncCh)
	}
	err := db.bdp.Close()
	db.bdp = nil
	neuprep.Infof("Closed skeleton store @ %s\n", db.directory)
	return err
}

// Get returns the skeleton with the given identifier or storage.ErrNotFound.
func (db *Store) Get(id neuprep.Identifier) (*skeleton.Skeleton, error) {
	var s *skeleton.Skeleton
	err := db.bdp.View(func(txn *badger.Txn) error {
		item, err := txn.Get(skelKey(id))
		if err == badger.ErrKeyNotFound {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			s, err = skeleton.Unmarshal(val)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Exists returns true if a skeleton is stored under id.
func (db *Store) Exists(id neuprep.Identifier) (bool, error) {
	_, err := db.Get(id)
	if err == storage.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

// Put stores the skeleton, replacing any skeleton with the same identifier.
func (db *Store) Put(s *skeleton.Skeleton) error {
	if err := s.Validate(); err != nil {
		return err
	}
	return db.bdp.Update(func(txn *badger.Txn) error {
		return txn.Set(skelKey(s.ID), s.Marshal())
	})
}

// PutCollection stores every skeleton of the collection in one batch.
func (db *Store) PutCollection(c skeleton.Collection) error {
	wb := db.bdp.NewWriteBatch()
	defer wb.Cancel()
	var bytes uint64
	for _, s := range c.Sorted() {
		if err := s.Validate(); err != nil {
			return err
		}
		val := s.Marshal()
		bytes += uint64(len(val))
		if err := wb.Set(skelKey(s.ID), val); err != nil {
			return fmt.Errorf("storing skeleton %s: %v", s.ID, err)
		}
	}
	if err := wb.Flush(); err != nil {
		return err
	}
	neuprep.Debugf("Stored %d skeletons (%s) in %s\n", len(c), humanize.Bytes(bytes), db)
	return nil
}

// Delete removes the skeletons with the given identifiers.  Identifiers
// not in the store are ignored.
func (db *Store) Delete(ids ...neuprep.Identifier) error {
	return db.bdp.Update(func(txn *badger.Txn) error {
		for _, id := range ids {
			if err := txn.Delete(skelKey(id)); err != nil {
				return err
			}
		}
		return nil
	})
}

// IDs returns the sorted identifiers of all stored skeletons.
func (db *Store) IDs() (neuprep.Identifiers, error) {
	var ids neuprep.Identifiers
	err := db.bdp.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false // key only
		opts.Prefix = skelPrefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(skelPrefix); it.ValidForPrefix(skelPrefix); it.Next() {
			ids = append(ids, keyToID(it.Item().KeyCopy(nil)))
		}
		return nil
	})
	return ids, err
}

// Load returns the stored skeletons for the given identifiers along with the
// identifiers that were not found.  A nil ids loads the whole collection.
func (db *Store) Load(ids neuprep.Identifiers) (skeleton.Collection, neuprep.Identifiers, error) {
	c := skeleton.NewCollection()
	if ids == nil {
		err := db.bdp.View(func(txn *badger.Txn) error {
			opts := badger.DefaultIteratorOptions
			opts.Prefix = skelPrefix
			it := txn.NewIterator(opts)
			defer it.Close()
			for it.Seek(skelPrefix); it.ValidForPrefix(skelPrefix); it.Next() {
				item := it.Item()
				err := item.Value(func(val []byte) error {
					s, err := skeleton.Unmarshal(val)
					if err != nil {
						return fmt.Errorf("skeleton %s: %v", keyToID(item.Key()), err)
					}
					c[s.ID] = s
					return nil
				})
				if err != nil {
					return err
				}
			}
			return nil
		})
		return c, nil, err
	}
	var missing neuprep.Identifiers
	for _, id := range ids.Unique() {
		s, err := db.Get(id)
		if err == storage.ErrNotFound {
			missing = append(missing, id)
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		c[id] = s
	}
	return c, missing, nil
}
