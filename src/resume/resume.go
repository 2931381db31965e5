// Package resume persists playback positions keyed by media URL so that
// partially watched items continue where they left off.
package resume

import (
	"sync"
	"time"

	"vidbox/src/util"
)

// Store is a disk backed map of media URL to last playback position.
type Store struct {
	storage *util.PersistentStorage
	lock    sync.Mutex
}

// NewStore opens or creates the store at the specified file.
func NewStore(filename string) (*Store, error) {
	storage, err := util.NewPersistentStorage(filename, &map[string]time.Duration{})
	if err != nil {
		return nil, err
	}
	return &Store{storage: storage}, nil
}

// Get returns the saved position for the URL.
func (store *Store) Get(url string) (time.Duration, bool) {
	store.lock.Lock()
	defer store.lock.Unlock()
	positions := *store.storage.Value().(*map[string]time.Duration)
	pos, ok := positions[url]
	return pos, ok
}

// Set saves the position for the URL, replacing any previous one.
func (store *Store) Set(url string, pos time.Duration) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	positions := *store.storage.Value().(*map[string]time.Duration)
	positions[url] = pos
	return store.storage.SetValue(&positions)
}

// Forget drops the saved position for the URL, if any.
func (store *Store) Forget(url string) error {
	store.lock.Lock()
	defer store.lock.Unlock()
	positions := *store.storage.Value().(*map[string]time.Duration)
	if _, ok := positions[url]; !ok {
		return nil
	}
	delete(positions, url)
	return store.storage.SetValue(&positions)
}
