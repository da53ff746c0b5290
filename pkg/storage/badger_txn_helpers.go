package storage

import (
	"encoding/binary"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

func (b *BadgerEngine) ensureOpen() error {
	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrStorageClosed
	}
	return nil
}

func (b *BadgerEngine) withView(fn func(txn *badger.Txn) error) error {
	if err := b.ensureOpen(); err != nil {
		return err
	}
	return b.db.View(fn)
}

// withUpdate runs fn in a read-write transaction. Writers are serialized so
// that counters and sentinel slots never produce transaction conflicts.
func (b *BadgerEngine) withUpdate(fn func(txn *badger.Txn) error) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.ensureOpen(); err != nil {
		return err
	}
	return b.db.Update(fn)
}

// keyExists reports whether key is visible in txn.
func keyExists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// getCopy returns a copy of the value at key, or badger.ErrKeyNotFound.
func getCopy(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// nextCounter increments the named counter and returns the new value.
// Counters start at 1.
func nextCounter(txn *badger.Txn, name string) (uint64, error) {
	key := counterKey(name)
	var n uint64
	raw, err := getCopy(txn, key)
	switch {
	case errors.Is(err, badger.ErrKeyNotFound):
	case err != nil:
		return 0, err
	default:
		n = binary.BigEndian.Uint64(raw)
	}
	n++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, n)
	return n, txn.Set(key, buf)
}
