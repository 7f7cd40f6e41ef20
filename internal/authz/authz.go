// Package authz is the gate in front of every mutating forum operation.
package authz

import (
	"github.com/pkg/errors"

	"github.com/emilythestrangee/qna-forum/backend/internal/apperr"
)

// Caller is the request-scoped identity, passed explicitly down the call
// chain. The zero value is an anonymous caller.
type Caller struct {
	UserID string
}

// Anonymous is the caller used when no session resolved.
var Anonymous = Caller{}

func User(id string) Caller { return Caller{UserID: id} }

func (c Caller) Authenticated() bool { return c.UserID != "" }

// RequireUser returns the caller's id or ErrUnauthenticated.
func RequireUser(c Caller) (string, error) {
	if !c.Authenticated() {
		return "", errors.WithStack(apperr.ErrUnauthenticated)
	}
	return c.UserID, nil
}

// RequireOwner allows the call only when the caller authored the resource.
func RequireOwner(c Caller, ownerID string) error {
	id, err := RequireUser(c)
	if err != nil {
		return err
	}
	if id != ownerID {
		return errors.WithStack(apperr.ErrForbidden)
	}
	return nil
}
