package editstate

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"calorie-tracker/core"
)

// IntentType says whether a form page adds a new item or edits one.
type IntentType string

const (
	IntentAdd  IntentType = "add"
	IntentEdit IntentType = "edit"
)

// Query parameter names. ParamCaloriesLegacy is accepted when decoding links
// produced before calories was spelled out.
const (
	ParamType           = "type"
	ParamID             = "id"
	ParamName           = "name"
	ParamCalories       = "calories"
	ParamCaloriesLegacy = "cal"
)

// Intent is edit state carried in a navigation target instead of memory.
// Name and Calories are the values to pre-populate the form with.
type Intent struct {
	Type     IntentType `json:"type"`
	ID       string     `json:"id,omitempty"`
	Name     string     `json:"name,omitempty"`
	Calories string     `json:"calories,omitempty"`
}

func AddIntent() Intent {
	return Intent{Type: IntentAdd}
}

func EditIntent(item core.FoodItem) Intent {
	return Intent{
		Type:     IntentEdit,
		ID:       item.ID,
		Name:     item.Name,
		Calories: strconv.Itoa(item.Calories),
	}
}

// Values encodes the intent as query parameters. id, name and calories are
// only present for edits.
func (i Intent) Values() url.Values {
	v := url.Values{}
	v.Set(ParamType, string(i.Type))
	if i.Type == IntentEdit {
		v.Set(ParamID, i.ID)
		v.Set(ParamName, i.Name)
		v.Set(ParamCalories, i.Calories)
	}
	return v
}

// Destination is page with the intent appended as its query string.
func (i Intent) Destination(page string) string {
	return page + "?" + i.Values().Encode()
}

// DecodeIntent reads an intent from untrusted query parameters. The name and
// calories are left raw; they are validated when the form is submitted.
func DecodeIntent(v url.Values) (Intent, error) {
	intent := Intent{Type: IntentType(strings.TrimSpace(v.Get(ParamType)))}

	switch intent.Type {
	case IntentAdd:
		return intent, nil
	case IntentEdit:
		intent.ID = strings.TrimSpace(v.Get(ParamID))
		if intent.ID == "" {
			return Intent{}, &core.ValidationError{Field: ParamID, Reason: "is required for edit"}
		}
		intent.Name = v.Get(ParamName)
		intent.Calories = v.Get(ParamCalories)
		if !v.Has(ParamCalories) {
			intent.Calories = v.Get(ParamCaloriesLegacy)
		}
		return intent, nil
	case "":
		return Intent{}, &core.ValidationError{Field: ParamType, Reason: "is required"}
	default:
		return Intent{}, &core.ValidationError{Field: ParamType, Reason: "must be add or edit"}
	}
}

// Query parameters the list page receives after a submit, so it can
// highlight the changed row and show the status line.
const (
	ParamChanged = "changed"
	ParamOp      = "op"
)

// ListDestination is where a form page returns after a submit. A zero change,
// as after a cancel, returns to the bare list page.
func ListDestination(page string, change core.Change) string {
	if change.Op == "" || change.Item.ID == "" {
		return page
	}
	v := url.Values{}
	v.Set(ParamChanged, change.Item.ID)
	v.Set(ParamOp, string(change.Op))
	return page + "?" + v.Encode()
}

// Navigation applies a decoded intent. It is built fresh for every page load
// and holds nothing beyond the intent itself.
type Navigation struct {
	repo   Repository
	intent Intent
}

func NewNavigation(repo Repository, intent Intent) *Navigation {
	return &Navigation{repo: repo, intent: intent}
}

func (n *Navigation) Intent() Intent { return n.intent }

func (n *Navigation) Editing() (string, bool) {
	if n.intent.Type == IntentEdit {
		return n.intent.ID, true
	}
	return "", false
}

// Submit adds or updates according to the intent. An edit whose item was
// deleted in the meantime fails with a NotFoundError for the page to show.
func (n *Navigation) Submit(ctx context.Context, name, calories string) (core.Change, error) {
	if n.intent.Type == IntentEdit {
		return n.repo.Update(ctx, n.intent.ID, name, calories)
	}
	item, err := n.repo.Add(ctx, name, calories)
	if err != nil {
		return core.Change{}, err
	}
	return core.Change{Op: core.OpAdded, Item: item}, nil
}

// Cancel does nothing; leaving the page discards the intent. The caller
// navigates to ListDestination(page, core.Change{}).
func (n *Navigation) Cancel() {}
