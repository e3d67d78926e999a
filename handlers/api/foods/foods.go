// Package foods exposes the food item collection over HTTP.
package foods

import (
	"context"
	"net/http"

	"calorie-tracker/core"
	"calorie-tracker/handlers/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type Store interface {
	Snapshot() []core.FoodItem
	Add(ctx context.Context, name, calories string) (core.FoodItem, error)
	Update(ctx context.Context, id, name, calories string) (core.Change, error)
	Remove(ctx context.Context, id string) (core.FoodItem, error)
	Durable() bool
}

type Status interface {
	Current() string
}

type ListResponse struct {
	Items   []core.FoodItem `json:"items"`
	Durable bool            `json:"durable"`
}

type ChangeResponse struct {
	Change  core.Change `json:"change"`
	Durable bool        `json:"durable"`
}

func HandleList(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := store.Snapshot()
		if items == nil {
			items = []core.FoodItem{}
		}
		render.JSON(w, r, ListResponse{Items: items, Durable: store.Durable()})
	}
}

func HandleAdd(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := api.DecodeFoodInput(r)
		if err != nil {
			api.RenderBadRequest(w, r, err)
			return
		}

		item, err := store.Add(r.Context(), in.Name, string(in.Calories))
		if err != nil {
			api.RenderError(w, r, err, logrus.Fields{"name": in.Name})
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, ChangeResponse{
			Change:  core.Change{Op: core.OpAdded, Item: item},
			Durable: store.Durable(),
		})
	}
}

func HandleUpdate(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Food item id is required"})
			return
		}

		in, err := api.DecodeFoodInput(r)
		if err != nil {
			api.RenderBadRequest(w, r, err)
			return
		}

		change, err := store.Update(r.Context(), id, in.Name, string(in.Calories))
		if err != nil {
			api.RenderError(w, r, err, logrus.Fields{"food_id": id})
			return
		}

		render.JSON(w, r, ChangeResponse{Change: change, Durable: store.Durable()})
	}
}

func HandleRemove(store Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Food item id is required"})
			return
		}

		item, err := store.Remove(r.Context(), id)
		if err != nil {
			api.RenderError(w, r, err, logrus.Fields{"food_id": id})
			return
		}

		render.JSON(w, r, ChangeResponse{
			Change:  core.Change{Op: core.OpRemoved, Item: item},
			Durable: store.Durable(),
		})
	}
}

// HandleStatus returns the status line currently on display.
func HandleStatus(status Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"message": status.Current()})
	}
}
