package types

import (
	"errors"
	"fmt"
)

// ErrBlocked marks a fetch failure whose page showed anti-bot markers.
var ErrBlocked = errors.New("blocked by anti-bot protection")

// FetchError is returned once every navigation attempt for a URL has failed
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ExtractionItemError reports a single element that could not be turned into a candidate
type ExtractionItemError struct {
	Strategy string
	Index    int
	Err      error
}

func (e *ExtractionItemError) Error() string {
	return fmt.Sprintf("%s item %d: %v", e.Strategy, e.Index, e.Err)
}

func (e *ExtractionItemError) Unwrap() error { return e.Err }

// PersistenceError wraps a failed insert or update of one record
type PersistenceError struct {
	Op   string
	Name string
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Name, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// InitializationError aborts a run before any page is crawled
type InitializationError struct {
	Component string
	Err       error
}

func (e *InitializationError) Error() string {
	return fmt.Sprintf("initialize %s: %v", e.Component, e.Err)
}

func (e *InitializationError) Unwrap() error { return e.Err }
