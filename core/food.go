package core

import (
	"context"
	"errors"
)

type (
	// FoodItem is one named, calorie-valued record. ID is assigned once at insertion.
	FoodItem struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Calories int    `json:"calories"`
	}

	// Seed is an initial entry without identity, used for first-run bootstrap.
	Seed struct {
		Name     string `json:"name"`
		Calories int    `json:"calories"`
	}

	// SeedProvider supplies the initial collection when no durable record exists.
	SeedProvider interface {
		ProvideInitialEntities(ctx context.Context) ([]Seed, error)
	}

	// Medium is the durable key-value byte store the collection is mirrored into.
	// Get returns ErrKeyNotFound when the key holds no value.
	Medium interface {
		Get(ctx context.Context, key string) ([]byte, error)
		Put(ctx context.Context, key string, value []byte) error
		Delete(ctx context.Context, key string) error
	}
)

// Op names the kind of change a repository observer is told about.
type Op string

const (
	OpAdded    Op = "added"
	OpUpdated  Op = "updated"
	OpRemoved  Op = "removed"
	OpReloaded Op = "reloaded"
)

// Change describes a completed repository operation. Previous is only set for updates.
type Change struct {
	Op       Op        `json:"op"`
	Item     FoodItem  `json:"item"`
	Previous *FoodItem `json:"previous,omitempty"`
}

var (
	// ErrKeyNotFound is returned by a Medium when the key holds no value.
	ErrKeyNotFound = errors.New("key not found")
	// ErrQuotaExceeded is returned by a Medium that refuses a write for size reasons.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)
