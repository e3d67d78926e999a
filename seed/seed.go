// Package seed provides the initial entries used when no durable record
// exists yet.
package seed

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"calorie-tracker/core"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// EmptyListPlaceholder is the text a rendered list shows when it has no entries.
const EmptyListPlaceholder = "No foods added yet."

// Static seeds a fixed list.
type Static []core.Seed

func (s Static) ProvideInitialEntities(ctx context.Context) ([]core.Seed, error) {
	out := make([]core.Seed, len(s))
	copy(out, s)
	return out, nil
}

// Markup scrapes <li> entries of the form "Name - 150 calories" from
// pre-rendered HTML. When ListID is set only list items under the element
// with that id are read.
type Markup struct {
	HTML   []byte
	ListID string
}

// FromFile reads markup from path.
func FromFile(path, listID string) (*Markup, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed markup: %w", err)
	}
	return &Markup{HTML: data, ListID: listID}, nil
}

func (m *Markup) ProvideInitialEntities(ctx context.Context) ([]core.Seed, error) {
	doc, err := html.Parse(bytes.NewReader(m.HTML))
	if err != nil {
		return nil, fmt.Errorf("parse seed markup: %w", err)
	}

	root := doc
	if m.ListID != "" {
		root = findByID(doc, m.ListID)
		if root == nil {
			logrus.WithField("list_id", m.ListID).Warn("Seed markup has no list element")
			return nil, nil
		}
	}

	var seeds []core.Seed
	walk(root, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "li" {
			return true
		}
		if s, ok := ParseLine(textContent(n)); ok {
			seeds = append(seeds, s)
		}
		return false
	})

	logrus.WithField("entries", len(seeds)).Debug("Scraped seed markup")
	return seeds, nil
}

// ParseLine reads "Name - 150 calories". The calorie part keeps only its
// digits, so "1,200 kcal" is 1200; a missing or digit-free part is 0.
func ParseLine(text string) (core.Seed, bool) {
	parts := strings.SplitN(text, " - ", 2)
	name := strings.TrimSpace(parts[0])
	if name == "" || name == EmptyListPlaceholder {
		return core.Seed{}, false
	}

	calories := 0
	if len(parts) == 2 {
		digits := strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, parts[1])
		if n, err := strconv.Atoi(digits); err == nil {
			calories = core.ClampCalories(float64(n))
		} else if digits != "" {
			calories = core.MaxCalories
		}
	}
	return core.Seed{Name: name, Calories: calories}, true
}

func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func findByID(n *html.Node, id string) *html.Node {
	var found *html.Node
	walk(n, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" && a.Val == id {
					found = n
					return false
				}
			}
		}
		return true
	})
	return found
}

func textContent(n *html.Node) string {
	var b strings.Builder
	walk(n, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}
