// Package rpc holds what JSON-RPC method handlers share: parameter
// decoding, the acting account and typed errors.
package rpc

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
)

// AccountHeader carries the signed-in account id, set by the gateway in
// front of this service.
const AccountHeader = "X-Account-ID"

// actorKey is the gin context key holding the acting account id.
const actorKey = "jalanews.actor"

// ErrInvalidParams is returned when params cannot be decoded or miss a
// required field.
var ErrInvalidParams = errors.New("invalid params")

// ErrUnauthenticated is returned when a method needs an account and the
// request carries none.
var ErrUnauthenticated = errors.New("no account on request")

// Decode unmarshals params into v. Empty params leave v untouched.
func Decode(params json.RawMessage, v interface{}) error {
	if len(params) == 0 || string(params) == "null" {
		return nil
	}
	if err := json.Unmarshal(params, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	return nil
}

// Require returns ErrInvalidParams naming the first empty field.
func Require(fields ...string) error {
	for i := 0; i+1 < len(fields); i += 2 {
		if fields[i+1] == "" {
			return fmt.Errorf("%w: missing required parameter: %s", ErrInvalidParams, fields[i])
		}
	}
	return nil
}

// SetActor stores the acting account id on the request.
func SetActor(c *gin.Context, accountID string) {
	c.Set(actorKey, accountID)
}

// Actor returns the acting account id, or "" when there is none.
func Actor(c *gin.Context) string {
	return c.GetString(actorKey)
}

// RequireActor returns the acting account id or ErrUnauthenticated.
func RequireActor(c *gin.Context) (string, error) {
	id := Actor(c)
	if id == "" {
		return "", ErrUnauthenticated
	}
	return id, nil
}
