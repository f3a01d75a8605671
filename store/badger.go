package store

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"godct/block"
)

// Badger is a Store backed by a Badger key-value database. It survives
// process restarts, so a later gradient run can pick up tensors written
// by the energy run.
type Badger struct {
	db *badger.DB
}

// NewBadger opens (creating if needed) a Badger-backed store at dir.
func NewBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: open badger at %s: %w", dir, err)
	}
	return &Badger{db: db}, nil
}

// Save encodes b and writes the payload in a single transaction.
func (s *Badger) Save(name string, layout Layout, b *block.Blocked) error {
	payload, err := encode(b, layout)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(name), payload)
	})
	if err != nil {
		return fmt.Errorf("store: save %q: %w", name, err)
	}
	return nil
}

// Load reads and decodes the payload under name.
func (s *Badger) Load(name string, layout Layout, into *block.Blocked) error {
	var payload []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("store: load %q: %w", name, err)
	}
	return decode(payload, layout, into)
}

// Delete drops the payload under name. Missing keys are not an error.
func (s *Badger) Delete(name string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(name))
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("store: delete %q: %w", name, err)
	}
	return nil
}

// Close flushes and closes the database.
func (s *Badger) Close() error { return s.db.Close() }
