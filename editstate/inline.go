package editstate

import (
	"context"
	"sync"

	"calorie-tracker/core"

	"github.com/sirupsen/logrus"
)

// State of an Inline controller.
type State int

const (
	Idle State = iota
	Editing
)

func (s State) String() string {
	if s == Editing {
		return "editing"
	}
	return "idle"
}

// Row is one line of the rendered list.
type Row struct {
	Item    core.FoodItem `json:"item"`
	Editing bool          `json:"editing"`
}

// Inline tracks at most one item in edit focus. Removing the focused item
// through the repository, or losing it on reload, returns it to Idle.
type Inline struct {
	repo Repository

	mu        sync.Mutex
	editingID string

	unsubscribe func()
}

func NewInline(repo Repository) *Inline {
	c := &Inline{repo: repo}
	c.unsubscribe = repo.Subscribe(c.onChange)
	return c
}

// Close detaches the controller from the repository.
func (c *Inline) Close() {
	c.unsubscribe()
}

func (c *Inline) onChange(change core.Change) {
	c.mu.Lock()
	current := c.editingID
	c.mu.Unlock()
	if current == "" {
		return
	}

	drop := false
	switch change.Op {
	case core.OpRemoved:
		drop = change.Item.ID == current
	case core.OpReloaded:
		_, ok := c.repo.Get(current)
		drop = !ok
	}
	if !drop {
		return
	}

	c.mu.Lock()
	if c.editingID == current {
		c.editingID = ""
		logrus.WithField("food_id", current).Debug("Edit focus cleared, item no longer exists")
	}
	c.mu.Unlock()
}

// StartEdit focuses id, replacing any earlier focus without saving it.
func (c *Inline) StartEdit(id string) error {
	if _, ok := c.repo.Get(id); !ok {
		return &core.NotFoundError{ID: id}
	}
	c.mu.Lock()
	c.editingID = id
	c.mu.Unlock()

	// A remove between the lookup above and the write notified while the
	// focus was still elsewhere.
	if _, ok := c.repo.Get(id); !ok {
		c.mu.Lock()
		if c.editingID == id {
			c.editingID = ""
		}
		c.mu.Unlock()
		return &core.NotFoundError{ID: id}
	}
	return nil
}

// CommitEdit saves name and calories for id. On success the focus on id is
// released; on failure the focus stays so the caller can show the error next
// to the values the user typed.
func (c *Inline) CommitEdit(ctx context.Context, id, name, calories string) (core.Change, error) {
	change, err := c.repo.Update(ctx, id, name, calories)
	if err != nil {
		return core.Change{}, err
	}

	c.mu.Lock()
	if c.editingID == id {
		c.editingID = ""
	}
	c.mu.Unlock()
	return change, nil
}

// CancelEdit drops the focus without persisting anything.
func (c *Inline) CancelEdit() {
	c.mu.Lock()
	c.editingID = ""
	c.mu.Unlock()
}

// Remove deletes id through the repository; focus on it is cleared by the
// change notification.
func (c *Inline) Remove(ctx context.Context, id string) (core.FoodItem, error) {
	return c.repo.Remove(ctx, id)
}

func (c *Inline) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editingID == "" {
		return Idle
	}
	return Editing
}

func (c *Inline) Editing() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID, c.editingID != ""
}

func (c *Inline) Submit(ctx context.Context, name, calories string) (core.Change, error) {
	if id, ok := c.Editing(); ok {
		return c.CommitEdit(ctx, id, name, calories)
	}
	item, err := c.repo.Add(ctx, name, calories)
	if err != nil {
		return core.Change{}, err
	}
	return core.Change{Op: core.OpAdded, Item: item}, nil
}

func (c *Inline) Cancel() { c.CancelEdit() }

// Rows marks the focused item among items.
func (c *Inline) Rows(items []core.FoodItem) []Row {
	id, _ := c.Editing()
	rows := make([]Row, len(items))
	for i, item := range items {
		rows[i] = Row{Item: item, Editing: id != "" && item.ID == id}
	}
	return rows
}
