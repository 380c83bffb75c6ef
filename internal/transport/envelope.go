package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Messages returned in failure envelopes produced by the client itself.
const (
	MsgTimeout         = "Request timeout. Please check your connection."
	MsgNetwork         = "Network error. Please check your internet connection."
	MsgCancelled       = "Request cancelled."
	MsgInvalidResponse = "Invalid response from server."
	MsgRequestFailed   = "Request failed."
)

// ErrNoData is returned by Decode when the envelope carries no payload.
var ErrNoData = errors.New("response has no data")

// Envelope is the uniform response shape of every API call, whatever
// happened on the wire.
type Envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  json.RawMessage `json:"errors,omitempty"`

	// HTTPStatus is the response code, 0 when no response was received.
	HTTPStatus int `json:"-"`
}

// Unauthorized reports whether the server rejected the bearer token.
func (e Envelope) Unauthorized() bool {
	return e.HTTPStatus == http.StatusUnauthorized
}

func failure(message string) Envelope {
	return Envelope{Status: false, Message: message}
}

// Decode unmarshals the envelope data into a T.
func Decode[T any](env Envelope) (T, error) {
	var out T
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return out, ErrNoData
	}
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return out, fmt.Errorf("decoding response data: %w", err)
	}
	return out, nil
}
