package links

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNotLinked = errors.New("no link found for this account")
	ErrStorage   = errors.New("link store I/O failure")
)

// DuplicateLinkError reports the mapping that already occupies one side of a
// requested link.
type DuplicateLinkError struct {
	GameName   string
	IdentityID string
}

func (e *DuplicateLinkError) Error() string {
	return fmt.Sprintf("already linked: %s <-> %s", e.GameName, e.IdentityID)
}

type Link struct {
	GameName   string
	IdentityID string
}

// Store is the name <-> external identity mapping. The on-disk form is a flat
// JSON object (game name -> identity id) rewritten as a whole on every
// mutation; both lookup directions are served from in-memory indexes. All
// mutations serialize on the mutex so two concurrent writes can never clobber
// each other's snapshot.
type Store struct {
	mu         sync.RWMutex
	path       string
	byName     map[string]string
	byIdentity map[string]string
	Logger     *zap.SugaredLogger
}

func NewStore(path string, logger *zap.SugaredLogger) (*Store, error) {
	store := &Store{
		path:       path,
		byName:     make(map[string]string),
		byIdentity: make(map[string]string),
		Logger:     logger,
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (store *Store) load() error {
	data, err := os.ReadFile(store.path)
	if errors.Is(err, os.ErrNotExist) {
		store.Logger.Infof("no link snapshot at %s, starting empty", store.path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := json.Unmarshal(data, &store.byName); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	for name, id := range store.byName {
		store.byIdentity[id] = name
	}
	store.Logger.Infof("loaded %d account links from %s", len(store.byName), store.path)
	return nil
}

// flush rewrites the complete snapshot. Callers must hold the write lock.
func (store *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(store.path), 0755); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	data, err := json.MarshalIndent(store.byName, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := os.WriteFile(store.path, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

// CreateLink records a new name <-> identity pair. Both directions are checked
// first: an identity may hold at most one name and a name at most one
// identity, so either conflict fails with the mapping already in place.
func (store *Store) CreateLink(gameName, identityID string) (*Link, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if existing, ok := store.byIdentity[identityID]; ok {
		return nil, &DuplicateLinkError{GameName: existing, IdentityID: identityID}
	}
	if existing, ok := store.byName[gameName]; ok {
		return nil, &DuplicateLinkError{GameName: gameName, IdentityID: existing}
	}

	store.byName[gameName] = identityID
	store.byIdentity[identityID] = gameName
	if err := store.flush(); err != nil {
		delete(store.byName, gameName)
		delete(store.byIdentity, identityID)
		return nil, err
	}
	store.Logger.Infof("linked %s to identity %s", gameName, identityID)
	return &Link{GameName: gameName, IdentityID: identityID}, nil
}

// RemoveLink drops the link held by an identity and returns the game name it
// was linked to.
func (store *Store) RemoveLink(identityID string) (string, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	gameName, ok := store.byIdentity[identityID]
	if !ok {
		return "", ErrNotLinked
	}
	delete(store.byName, gameName)
	delete(store.byIdentity, identityID)
	if err := store.flush(); err != nil {
		store.byName[gameName] = identityID
		store.byIdentity[identityID] = gameName
		return "", err
	}
	store.Logger.Infof("unlinked %s from identity %s", gameName, identityID)
	return gameName, nil
}

func (store *Store) FindByName(gameName string) (string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	identityID, ok := store.byName[gameName]
	if !ok {
		return "", ErrNotLinked
	}
	return identityID, nil
}

func (store *Store) FindByIdentity(identityID string) (string, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	gameName, ok := store.byIdentity[identityID]
	if !ok {
		return "", ErrNotLinked
	}
	return gameName, nil
}
