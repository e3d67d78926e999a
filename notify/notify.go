// Package notify holds the transient status line shown after a change.
package notify

import (
	"fmt"
	"sync"
	"time"

	"calorie-tracker/core"

	"github.com/sirupsen/logrus"
)

const DefaultTimeout = 2500 * time.Millisecond

type timer interface {
	Stop() bool
}

type scheduleFunc func(d time.Duration, f func()) timer

func afterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Notifier keeps one message at a time. Posting a message cancels the expiry
// of the previous one, so only the latest expiry ever clears the line.
type Notifier struct {
	timeout  time.Duration
	schedule scheduleFunc

	mu         sync.Mutex
	text       string
	pending    timer
	generation uint64
}

func New(timeout time.Duration) *Notifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Notifier{timeout: timeout, schedule: afterFunc}
}

// Post replaces the current message and schedules its expiry.
func (n *Notifier) Post(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.pending != nil {
		n.pending.Stop()
	}
	n.generation++
	gen := n.generation
	n.text = text
	n.pending = n.schedule(n.timeout, func() { n.expire(gen) })

	logrus.WithField("message", text).Debug("Status posted")
}

func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	// A timer that already fired may still run after a newer Post.
	if gen != n.generation {
		return
	}
	n.text = ""
	n.pending = nil
}

// Current returns the message on display, or "" once it expired.
func (n *Notifier) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.text
}

// Stop cancels the pending expiry and clears the message.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.pending != nil {
		n.pending.Stop()
		n.pending = nil
	}
	n.generation++
	n.text = ""
}

// Describe renders the status line for a repository change. Reloads have no
// message.
func Describe(c core.Change) string {
	switch c.Op {
	case core.OpAdded:
		return fmt.Sprintf("Added \"%s\" (%d cal)", c.Item.Name, c.Item.Calories)
	case core.OpUpdated:
		name := c.Item.Name
		if c.Previous != nil {
			name = c.Previous.Name
		}
		return fmt.Sprintf("Edited \"%s\"", name)
	case core.OpRemoved:
		return fmt.Sprintf("Removed \"%s\"", c.Item.Name)
	default:
		return ""
	}
}
