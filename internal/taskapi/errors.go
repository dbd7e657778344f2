package taskapi

import (
	"errors"
	"fmt"
	"net/http"
)

// TransportError means the service could not be reached or its response could
// not be read.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectedError is a non-success response. Detail is the service-provided
// reason, verbatim.
type RejectedError struct {
	Op     string
	Status int
	Detail string
}

func (e *RejectedError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("%s: %s", e.Op, http.StatusText(e.Status))
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsRejected(err error) bool {
	var re *RejectedError
	return errors.As(err, &re)
}

// Message returns the text to show a user for err: the service detail for
// rejections, the underlying cause for transport failures.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Error()
	}
	var te *TransportError
	if errors.As(err, &te) {
		return te.Err.Error()
	}
	return err.Error()
}
