package domain

import (
	"errors"
	"fmt"
)

// ErrAllQueriesFailed is the only run-fatal condition: no zip query succeeded.
var ErrAllQueriesFailed = errors.New("every zip code query failed")

// TransportError wraps network, HTTP status, or auth failures of an external call.
type TransportError struct {
	Op        string
	Status    int
	Transient bool
	Err       error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports a response that could not be decoded.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string { return fmt.Sprintf("%s: parse: %v", e.Op, e.Err) }

func (e *ParseError) Unwrap() error { return e.Err }

// InvariantViolation reports a ranked pick referencing an unknown listing.
type InvariantViolation struct {
	ListingID string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("ranked pick %q is not in the candidate set", e.ListingID)
}

// ExhaustionError reports that the page ceiling was reached before the source finished.
// It is a warning: listings fetched so far are kept.
type ExhaustionError struct {
	Zip   string
	Pages int
}

func (e *ExhaustionError) Error() string {
	return fmt.Sprintf("zip %s: stopped after %d pages with more results pending", e.Zip, e.Pages)
}

// IsTransient reports whether err is a TransportError worth retrying.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Transient
}
