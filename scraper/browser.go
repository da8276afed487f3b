// Package scraper defines the browser capability the harvest loop drives.
// Drivers live in the chrome, rodbrowser and static sub-packages.
package scraper

import (
	"context"
	"errors"
	"time"
)

// ErrAbsent means the awaited element or condition is not there: a lookup
// matched nothing or a wait timed out. Callers treat it as a state, not a
// fault. Every other driver error is a fault.
var ErrAbsent = errors.New("scraper: element absent")

// Browser is one open page. Calls block until done or timed out; drivers
// bound every page call with an operation timeout of their own.
type Browser interface {
	// Navigate loads url and fails once timeout passes without the page
	// finishing its load.
	Navigate(url string, timeout time.Duration) error
	// WaitReady blocks until selector matches or timeout passes.
	WaitReady(selector string, timeout time.Duration) error
	ScrollHeight() (int64, error)
	ScrollToBottom() error
	// FindAll returns the current matches in DOM order without waiting.
	FindAll(selector string) ([]Node, error)
	// WaitClickable returns the first visible, enabled match.
	WaitClickable(selector string, timeout time.Duration) (Node, error)
	// RemoveLeading detaches the first n matches of selector from the
	// document and reports how many were removed.
	RemoveLeading(selector string, n int) (int, error)
	Close() error
}

// Node is a handle to one element of the page.
type Node interface {
	// Attribute returns the value and whether the attribute exists.
	Attribute(name string) (string, bool, error)
	Text() (string, error)
	OuterHTML() (string, error)
	// Find returns the first descendant matching selector, or ErrAbsent.
	Find(selector string) (Node, error)
	Click() error
	ScrollIntoView() error
}

// IsAbsent reports whether err means "not there" rather than a fault.
// Expired deadlines count as absence.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrAbsent) || errors.Is(err, context.DeadlineExceeded)
}
