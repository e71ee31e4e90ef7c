// Package store persists receipts in a cometbft-db key-value database.
//
// Receipts are stored as JSON under "receipt/<id>", where id is
// host.Receipt.ID. Putting the same receipt twice is idempotent.
package store

import (
	"encoding/json"
	"errors"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/reglet-dev/zkguest/config"
	"github.com/reglet-dev/zkguest/host"
)

// ErrNotFound is returned by Get for an unknown receipt id.
var ErrNotFound = errors.New("receipt not found")

var keyPrefix = []byte("receipt/")

func key(id string) []byte {
	return append(append([]byte(nil), keyPrefix...), id...)
}

// ReceiptStore is a receipt database.
type ReceiptStore struct {
	db dbm.DB
}

// Open opens the database described by cfg.
func Open(cfg config.StoreConfig) (*ReceiptStore, error) {
	db, err := dbm.NewDB(cfg.Name, dbm.BackendType(cfg.Backend), cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("open %s store %q: %w", cfg.Backend, cfg.Name, err)
	}
	return New(db), nil
}

// New wraps an open database.
func New(db dbm.DB) *ReceiptStore {
	return &ReceiptStore{db: db}
}

// Put verifies and stores r, returning its id.
func (s *ReceiptStore) Put(r *host.Receipt) (string, error) {
	if err := r.Verify(); err != nil {
		return "", fmt.Errorf("refusing to store receipt: %w", err)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal receipt: %w", err)
	}
	id := r.ID()
	if err := s.db.SetSync(key(id), data); err != nil {
		return "", fmt.Errorf("store receipt %s: %w", id, err)
	}
	return id, nil
}

// Get loads the receipt with id.
func (s *ReceiptStore) Get(id string) (*host.Receipt, error) {
	data, err := s.db.Get(key(id))
	if err != nil {
		return nil, fmt.Errorf("load receipt %s: %w", id, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	var r host.Receipt
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode receipt %s: %w", id, err)
	}
	return &r, nil
}

// Has reports whether a receipt with id is stored.
func (s *ReceiptStore) Has(id string) (bool, error) {
	return s.db.Has(key(id))
}

// IDs returns the stored receipt ids in ascending order.
func (s *ReceiptStore) IDs() ([]string, error) {
	end := append([]byte(nil), keyPrefix...)
	end[len(end)-1]++
	it, err := s.db.Iterator(keyPrefix, end)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var ids []string
	for ; it.Valid(); it.Next() {
		ids = append(ids, string(it.Key()[len(keyPrefix):]))
	}
	return ids, it.Error()
}

// Close closes the database.
func (s *ReceiptStore) Close() error {
	return s.db.Close()
}
