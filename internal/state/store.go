package state

import (
	"encoding/binary"
	"fmt"
	"os"

	dbm "github.com/cosmos/cosmos-db"
)

var (
	// stateKey holds the latest committed JSON snapshot.
	stateKey = []byte{0x01}

	// appHashKeyPrefix stores AppHash by height: prefix || u64be(height).
	appHashKeyPrefix = []byte{0x02}
)

func appHashKey(height int64) []byte {
	bz := make([]byte, 1+8)
	bz[0] = appHashKeyPrefix[0]
	binary.BigEndian.PutUint64(bz[1:], uint64(height))
	return bz
}

// Store persists committed state in a cosmos-db key/value database.
type Store struct {
	db dbm.DB
}

func NewStore(db dbm.DB) *Store {
	return &Store{db: db}
}

// OpenStore opens (or creates) the goleveldb database under home.
func OpenStore(home string) (*Store, error) {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir home: %w", err)
	}
	db, err := dbm.NewDB("blackjack", dbm.GoLevelDBBackend, home)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return &Store{db: db}, nil
}

// NewMemStore is an in-memory store for tests and simulations.
func NewMemStore() *Store {
	return &Store{db: dbm.NewMemDB()}
}

// Load returns the last saved state, or a fresh one for an empty database.
func (s *Store) Load() (*State, error) {
	b, err := s.db.Get(stateKey)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if b == nil {
		return NewState(), nil
	}
	return decode(b)
}

// Save writes the snapshot and its app hash in one synced batch.
func (s *Store) Save(st *State) error {
	b, err := marshalState(st)
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(stateKey, b); err != nil {
		return fmt.Errorf("stage state: %w", err)
	}
	if err := batch.Set(appHashKey(st.Height), st.AppHash()); err != nil {
		return fmt.Errorf("stage app hash: %w", err)
	}
	if err := batch.WriteSync(); err != nil {
		return fmt.Errorf("write state: %w", err)
	}
	return nil
}

// AppHashAt returns the hash saved for height, or nil if none was.
func (s *Store) AppHashAt(height int64) ([]byte, error) {
	b, err := s.db.Get(appHashKey(height))
	if err != nil {
		return nil, fmt.Errorf("read app hash: %w", err)
	}
	return b, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
