// Package editstate decides which food item, if any, is in edit focus.
//
// Two interchangeable controllers implement the same contract. Inline keeps
// the focused id in memory for a single-page surface. Navigation keeps no
// state at all: the edit intent travels in the query string of the page that
// hosts the form and is decoded again on every load.
package editstate

import (
	"context"

	"calorie-tracker/core"
)

// Repository is what the controllers need from the entity repository.
type Repository interface {
	Add(ctx context.Context, name, calories string) (core.FoodItem, error)
	Update(ctx context.Context, id, name, calories string) (core.Change, error)
	Remove(ctx context.Context, id string) (core.FoodItem, error)
	Get(id string) (core.FoodItem, bool)
	Subscribe(fn func(core.Change)) func()
}

// Controller is the contract shared by Inline and Navigation. Submit updates
// the focused item, or adds a new one when nothing is focused.
type Controller interface {
	Editing() (id string, ok bool)
	Submit(ctx context.Context, name, calories string) (core.Change, error)
	Cancel()
}

var (
	_ Controller = (*Inline)(nil)
	_ Controller = (*Navigation)(nil)
)
