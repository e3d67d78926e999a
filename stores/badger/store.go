package badger

import (
	"context"
	"errors"
	"fmt"

	"calorie-tracker/core"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
)

type badgerStore struct {
	db *badger.DB
}

// NewStore opens a badger database at path.
func NewStore(path string) (*badgerStore, error) {
	return open(badger.DefaultOptions(path))
}

// NewInMemoryStore opens a badger database that never touches disk.
func NewInMemoryStore() (*badgerStore, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*badgerStore, error) {
	opts = opts.WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Get(ctx context.Context, key string) ([]byte, error) {
	log := logrus.WithField("key", key)

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			log.Debug("Key not present in badger store")
			return nil, fmt.Errorf("key %s: %w", key, core.ErrKeyNotFound)
		}
		log.WithError(err).Error("Failed to read value")
		return nil, err
	}

	log.WithField("data_length", len(data)).Debug("Value retrieved successfully")
	return data, nil
}

func (s *badgerStore) Put(ctx context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		logrus.WithField("key", key).WithError(err).Error("Failed to save value")
	}
	return err
}

func (s *badgerStore) Delete(ctx context.Context, key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
