// Package api holds request decoding and error rendering shared by the
// handler packages below it.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"calorie-tracker/core"

	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// Calories is a calorie value as sent by a client. It accepts a JSON number,
// a JSON string or null and keeps the raw text for core.CoerceCalories.
type Calories string

func (c *Calories) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null":
		*c = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Calories(s)
	case strings.HasPrefix(raw, "{"), strings.HasPrefix(raw, "["), raw == "true", raw == "false":
		// Objects, arrays and booleans coerce to 0 like any malformed entry.
		*c = ""
	default:
		*c = Calories(raw)
	}
	return nil
}

// FoodInput is the body of add and edit requests.
type FoodInput struct {
	ID       string   `json:"id,omitempty"`
	Name     string   `json:"name"`
	Calories Calories `json:"calories"`
}

// DecodeFoodInput reads a FoodInput from a JSON body, or from form values
// when the request was posted as a form.
func DecodeFoodInput(r *http.Request) (FoodInput, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return FoodInput{}, fmt.Errorf("parse form: %w", err)
		}
		return FoodInput{
			ID:       r.PostForm.Get("id"),
			Name:     r.PostForm.Get("name"),
			Calories: Calories(r.PostForm.Get("calories")),
		}, nil
	}

	var in FoodInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return FoodInput{}, fmt.Errorf("decode body: %w", err)
	}
	return in, nil
}

// RenderBadRequest answers 400 for a body that could not be decoded.
func RenderBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	logrus.WithError(err).Warn("Malformed request")
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, map[string]string{"error": "Malformed request body"})
}

// RenderError maps repository errors onto HTTP statuses. Validation and
// not-found errors carry their message to the client; anything else is
// logged and reported as a generic failure.
func RenderError(w http.ResponseWriter, r *http.Request, err error, fields logrus.Fields) {
	var notFound *core.NotFoundError
	switch {
	case errors.Is(err, core.ErrValidation):
		logrus.WithFields(fields).WithError(err).Warn("Rejected food item")
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": err.Error()})
	case errors.As(err, &notFound):
		logrus.WithFields(fields).WithField("food_id", notFound.ID).Warn("Food item not found")
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": err.Error()})
	default:
		logrus.WithFields(fields).WithError(err).Error("Food item request failed")
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "Internal server error"})
	}
}
