// Package durable mirrors the food collection into a core.Medium under one
// fixed key. Medium failures are logged and absorbed here so they never
// interrupt the in-memory working set.
package durable

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"calorie-tracker/core"
	"calorie-tracker/metrics"

	"github.com/sirupsen/logrus"
)

// Status is the outcome of a Restore.
type Status string

const (
	StatusFound       Status = "found"
	StatusAbsent      Status = "absent"
	StatusCorrupt     Status = "corrupt"
	StatusUnavailable Status = "unavailable"
)

// Restored is a decoded collection. Items may carry an empty ID when the
// stored record had none or repeated an earlier one; Repaired is set whenever
// the stored bytes were not already in canonical form.
type Restored struct {
	Items    []core.FoodItem
	Repaired bool
}

type Adapter struct {
	medium core.Medium
	key    string

	mu          sync.Mutex
	lastFailure *core.PersistenceFailure
}

func NewAdapter(medium core.Medium, key string) *Adapter {
	return &Adapter{medium: medium, key: key}
}

func (a *Adapter) Key() string { return a.key }

// LastFailure returns the error from the most recent failed Persist or
// Restore, or nil when the last access succeeded.
func (a *Adapter) LastFailure() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.lastFailure == nil {
		return nil
	}
	return a.lastFailure
}

func (a *Adapter) setFailure(f *core.PersistenceFailure) {
	a.mu.Lock()
	a.lastFailure = f
	a.mu.Unlock()
}

// Persist overwrites the stored collection and reports whether the write is
// durable. A failed write is logged, never returned.
func (a *Adapter) Persist(ctx context.Context, items []core.FoodItem) bool {
	log := logrus.WithFields(logrus.Fields{"key": a.key, "items": len(items)})

	data, err := Encode(items)
	if err == nil {
		err = a.medium.Put(ctx, a.key, data)
	}
	if err != nil {
		failure := &core.PersistenceFailure{Op: "persist", Key: a.key, Err: err}
		a.setFailure(failure)
		metrics.RecordPersistFailure()
		log.WithError(err).Warn("Could not save food list")
		return false
	}

	a.setFailure(nil)
	log.WithField("data_length", len(data)).Debug("Food list saved")
	return true
}

// Restore reads the stored collection. It never fails: an absent key, an
// unreadable medium and an unparsable payload are reported through Status
// with an empty result.
func (a *Adapter) Restore(ctx context.Context) (Restored, Status) {
	log := logrus.WithField("key", a.key)

	data, err := a.medium.Get(ctx, a.key)
	if err != nil {
		if errors.Is(err, core.ErrKeyNotFound) {
			log.Debug("No saved food list")
			metrics.RecordRestore(string(StatusAbsent))
			return Restored{}, StatusAbsent
		}
		a.setFailure(&core.PersistenceFailure{Op: "restore", Key: a.key, Err: err})
		metrics.RecordRestore(string(StatusUnavailable))
		log.WithError(err).Warn("Could not read saved food list")
		return Restored{}, StatusUnavailable
	}

	restored, err := Decode(data)
	if err != nil {
		a.setFailure(&core.PersistenceFailure{Op: "restore", Key: a.key, Err: err})
		metrics.RecordRestore(string(StatusCorrupt))
		log.WithError(err).Warn("Invalid saved data")
		return Restored{}, StatusCorrupt
	}

	a.setFailure(nil)
	metrics.RecordRestore(string(StatusFound))
	log.WithFields(logrus.Fields{
		"items":    len(restored.Items),
		"repaired": restored.Repaired,
	}).Debug("Food list restored")
	return restored, StatusFound
}

// Clear removes the stored collection.
func (a *Adapter) Clear(ctx context.Context) error {
	if err := a.medium.Delete(ctx, a.key); err != nil {
		return &core.PersistenceFailure{Op: "clear", Key: a.key, Err: err}
	}
	return nil
}

// Encode serialises items as a JSON array of {id, name, calories}.
func Encode(items []core.FoodItem) ([]byte, error) {
	if items == nil {
		items = []core.FoodItem{}
	}
	return json.Marshal(items)
}

// Decode parses a stored collection leniently. Only a payload that is not a
// JSON array (or null) is an error. Individual records are repaired: ids may
// be strings or numbers, calories follow core.CoerceCalories, records with an
// empty name are dropped and missing or repeated ids are blanked so the
// caller can assign fresh ones.
func Decode(data []byte) (Restored, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Restored{}, fmt.Errorf("empty payload")
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return Restored{Items: []core.FoodItem{}, Repaired: true}, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return Restored{}, fmt.Errorf("decode food list: %w", err)
	}

	out := Restored{Items: make([]core.FoodItem, 0, len(records))}
	seen := make(map[string]bool, len(records))

	for i, rec := range records {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(rec, &fields); err != nil || fields == nil {
			logrus.WithField("index", i).Warn("Dropping saved record that is not an object")
			out.Repaired = true
			continue
		}

		rawName, _ := scalarText(fields["name"])
		name, err := core.NormalizeName(rawName)
		if err != nil {
			logrus.WithField("index", i).Warn("Dropping saved record without a name")
			out.Repaired = true
			continue
		}
		if name != rawName {
			out.Repaired = true
		}

		rawCalories, _ := scalarText(fields["calories"])
		calories := core.CoerceCalories(rawCalories)
		if string(fields["calories"]) != strconv.Itoa(calories) {
			out.Repaired = true
		}

		id, _ := scalarText(fields["id"])
		if !isStringLiteral(fields["id"]) {
			out.Repaired = true
		}
		if id == "" || seen[id] {
			id = ""
			out.Repaired = true
		} else {
			seen[id] = true
		}

		out.Items = append(out.Items, core.FoodItem{ID: id, Name: name, Calories: calories})
	}

	return out, nil
}

// scalarText renders a JSON string or number as text. ok is false for
// missing values and for other JSON types.
func scalarText(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

func isStringLiteral(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '"'
}
