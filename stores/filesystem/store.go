package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"calorie-tracker/core"

	"github.com/sirupsen/logrus"
)

type fsStore struct {
	basePath string
}

// NewStore creates a new filesystem-based store rooted at basePath.
func NewStore(basePath string) (*fsStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &fsStore{basePath: basePath}, nil
}

// keyPath maps a key to a file directly under basePath. Keys that would
// resolve anywhere else are refused.
func (s *fsStore) keyPath(key string) (string, error) {
	if key == "" || key == "." || key == ".." || filepath.Base(key) != key {
		return "", fmt.Errorf("invalid key %q: must be a plain file name", key)
	}
	return filepath.Join(s.basePath, key), nil
}

func (s *fsStore) Get(ctx context.Context, key string) ([]byte, error) {
	filePath, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "file_path": filePath})

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("Value file not found")
			return nil, fmt.Errorf("key %s: %w", key, core.ErrKeyNotFound)
		}
		log.WithError(err).Error("Failed to read value file")
		return nil, err
	}

	log.WithField("data_length", len(data)).Debug("Value retrieved successfully")
	return data, nil
}

func (s *fsStore) Put(ctx context.Context, key string, value []byte) error {
	filePath, err := s.keyPath(key)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "file_path": filePath})

	tmp, err := os.CreateTemp(s.basePath, "."+key+".*")
	if err != nil {
		log.WithError(err).Error("Failed to create temp file")
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		log.WithError(err).Error("Failed to write value file")
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, filePath); err != nil {
		os.Remove(tmpName)
		log.WithError(err).Error("Failed to replace value file")
		return err
	}

	log.WithField("data_length", len(value)).Debug("Value saved successfully")
	return nil
}

func (s *fsStore) Delete(ctx context.Context, key string) error {
	filePath, err := s.keyPath(key)
	if err != nil {
		return err
	}
	log := logrus.WithFields(logrus.Fields{"key": key, "file_path": filePath})

	if err := os.Remove(filePath); err != nil {
		if os.IsNotExist(err) {
			log.Debug("Value file not found for deletion, considered successful.")
			return nil
		}
		log.WithError(err).Error("Failed to delete value file")
		return err
	}

	log.Debug("Value deleted successfully")
	return nil
}
