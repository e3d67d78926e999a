// Package inline serves the single-page list where one row at a time can be
// switched into an edit form.
package inline

import (
	"context"
	"errors"
	"net/http"

	"calorie-tracker/core"
	"calorie-tracker/editstate"
	"calorie-tracker/handlers/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type Controller interface {
	StartEdit(id string) error
	CommitEdit(ctx context.Context, id, name, calories string) (core.Change, error)
	CancelEdit()
	Remove(ctx context.Context, id string) (core.FoodItem, error)
	Submit(ctx context.Context, name, calories string) (core.Change, error)
	Editing() (string, bool)
	Rows(items []core.FoodItem) []editstate.Row
}

type Lister interface {
	Snapshot() []core.FoodItem
	Durable() bool
}

type View struct {
	Rows    []editstate.Row `json:"rows"`
	Editing string          `json:"editing,omitempty"`
	Durable bool            `json:"durable"`
}

// Rejected is returned when a commit fails validation. Input echoes what the
// user typed so the form can be shown again without losing it.
type Rejected struct {
	Error string        `json:"error"`
	Input api.FoodInput `json:"input"`
	View  View          `json:"view"`
}

func view(c Controller, list Lister) View {
	id, _ := c.Editing()
	return View{
		Rows:    c.Rows(list.Snapshot()),
		Editing: id,
		Durable: list.Durable(),
	}
}

func HandleView(c Controller, list Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, view(c, list))
	}
}

func HandleStartEdit(c Controller, list Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := c.StartEdit(id); err != nil {
			api.RenderError(w, r, err, logrus.Fields{"food_id": id})
			return
		}
		logrus.WithField("food_id", id).Debug("Edit started")
		render.JSON(w, r, view(c, list))
	}
}

// HandleCommit saves the edit form. A body without id submits against the
// current focus, which adds a new item when nothing is focused.
func HandleCommit(c Controller, list Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := api.DecodeFoodInput(r)
		if err != nil {
			api.RenderBadRequest(w, r, err)
			return
		}

		var change core.Change
		if in.ID != "" {
			change, err = c.CommitEdit(r.Context(), in.ID, in.Name, string(in.Calories))
		} else {
			change, err = c.Submit(r.Context(), in.Name, string(in.Calories))
		}

		if errors.Is(err, core.ErrValidation) {
			logrus.WithError(err).Warn("Edit rejected, keeping form open")
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, Rejected{Error: err.Error(), Input: in, View: view(c, list)})
			return
		}
		if err != nil {
			api.RenderError(w, r, err, logrus.Fields{"food_id": in.ID})
			return
		}

		logrus.WithFields(logrus.Fields{
			"food_id": change.Item.ID,
			"op":      change.Op,
		}).Debug("Edit committed")
		render.JSON(w, r, view(c, list))
	}
}

func HandleCancel(c Controller, list Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.CancelEdit()
		render.JSON(w, r, view(c, list))
	}
}

func HandleRemove(c Controller, list Lister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := c.Remove(r.Context(), id); err != nil {
			api.RenderError(w, r, err, logrus.Fields{"food_id": id})
			return
		}
		render.JSON(w, r, view(c, list))
	}
}

// Routes mounts the inline surface on r.
func Routes(r chi.Router, c Controller, list Lister) {
	r.Get("/", HandleView(c, list))
	r.Post("/commit", HandleCommit(c, list))
	r.Post("/cancel", HandleCancel(c, list))
	r.Post("/{id}/edit", HandleStartEdit(c, list))
	r.Delete("/{id}", HandleRemove(c, list))
}
