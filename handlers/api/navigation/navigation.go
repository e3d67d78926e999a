// Package navigation serves the two-page variant: a list page that links to
// a separate form page, with the edit intent carried in the link itself.
package navigation

import (
	"net/http"

	"calorie-tracker/core"
	"calorie-tracker/editstate"
	"calorie-tracker/handlers/api"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

type Pages struct {
	Form string
	List string
}

type DestinationResponse struct {
	Destination string `json:"destination"`
}

type FormResponse struct {
	Intent editstate.Intent `json:"intent"`
}

type SubmitResponse struct {
	Redirect string      `json:"redirect"`
	Change   core.Change `json:"change"`
}

// HandleDestination builds the link to the form page. Without an id the link
// opens an empty add form.
func HandleDestination(repo editstate.Repository, pages Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		if id == "" {
			render.JSON(w, r, DestinationResponse{Destination: editstate.AddIntent().Destination(pages.Form)})
			return
		}

		item, ok := repo.Get(id)
		if !ok {
			api.RenderError(w, r, &core.NotFoundError{ID: id}, nil)
			return
		}
		render.JSON(w, r, DestinationResponse{Destination: editstate.EditIntent(item).Destination(pages.Form)})
	}
}

// HandleForm decodes the intent a form page was opened with.
func HandleForm() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intent, err := editstate.DecodeIntent(r.URL.Query())
		if err != nil {
			api.RenderError(w, r, err, logrus.Fields{"query": r.URL.RawQuery})
			return
		}
		render.JSON(w, r, FormResponse{Intent: intent})
	}
}

// HandleSubmit applies the form under the intent in the query string. The
// client follows Redirect only on success; a failed edit stays on the form.
func HandleSubmit(repo editstate.Repository, pages Pages) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		intent, err := editstate.DecodeIntent(r.URL.Query())
		if err != nil {
			api.RenderError(w, r, err, logrus.Fields{"query": r.URL.RawQuery})
			return
		}

		in, err := api.DecodeFoodInput(r)
		if err != nil {
			api.RenderBadRequest(w, r, err)
			return
		}

		change, err := editstate.NewNavigation(repo, intent).Submit(r.Context(), in.Name, string(in.Calories))
		if err != nil {
			api.RenderError(w, r, err, logrus.Fields{"intent": intent.Type, "food_id": intent.ID})
			return
		}

		logrus.WithFields(logrus.Fields{
			"food_id": change.Item.ID,
			"op":      change.Op,
		}).Debug("Form submitted")
		render.JSON(w, r, SubmitResponse{
			Redirect: editstate.ListDestination(pages.List, change),
			Change:   change,
		})
	}
}

func Routes(r chi.Router, repo editstate.Repository, pages Pages) {
	r.Get("/destination", HandleDestination(repo, pages))
	r.Get("/form", HandleForm())
	r.Post("/submit", HandleSubmit(repo, pages))
}
