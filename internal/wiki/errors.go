package wiki

import (
	"errors"
	"fmt"
)

// ErrNoData means a response decoded fine but lacked the expected
// query/pages shape, or the requested page does not exist.
var ErrNoData = errors.New("wiki: response carries no page data")

// ErrCorrelation means the echoed request id did not match the call that
// issued the request.
var ErrCorrelation = errors.New("wiki: response correlation token mismatch")

// TransportError is the failure of a single API call: network, HTTP status,
// body decode or correlation.
type TransportError struct {
	Action string
	Token  string
	Status int // HTTP status when one was received
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("wiki %s request %s: HTTP %d: %v", e.Action, e.Token, e.Status, e.Err)
	}
	return fmt.Sprintf("wiki %s request %s: %v", e.Action, e.Token, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is the error object the API returns instead of a result.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wiki api error %s: %s", e.Code, e.Info)
}
