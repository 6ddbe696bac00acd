package speaker

import (
	"fmt"
	"sync"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"
)

// Store persists speaker profiles across sessions. The registry itself is
// storage-agnostic; a store only loads and saves snapshots at session
// boundaries.
type Store interface {
	Load() ([]Profile, error)
	Save(profiles []Profile) error
	Close() error
}

// MemoryStore is a Store that keeps profiles for the life of the process.
// It is the default when persistence is not configured.
type MemoryStore struct {
	mu       sync.Mutex
	profiles []Profile
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load() ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Profile(nil), s.profiles...), nil
}

func (s *MemoryStore) Save(profiles []Profile) error {
	s.mu.Lock()
	s.profiles = append([]Profile(nil), profiles...)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

const badgerProfilesKey = "speaker/profiles"

// BadgerStore persists profiles in a BadgerDB directory, msgpack-encoded
// under a single key.
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens (or creates) the store at dir.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("speaker: open store %s: %w", dir, err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Load() ([]Profile, error) {
	var profiles []Profile
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerProfilesKey))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &profiles)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("speaker: load profiles: %w", err)
	}
	return profiles, nil
}

func (s *BadgerStore) Save(profiles []Profile) error {
	data, err := msgpack.Marshal(profiles)
	if err != nil {
		return fmt.Errorf("speaker: encode profiles: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerProfilesKey), data)
	})
	if err != nil {
		return fmt.Errorf("speaker: save profiles: %w", err)
	}
	return nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}
