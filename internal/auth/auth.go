// Package auth resolves who is calling and whether they may reconcile. Identity itself
// is established upstream; this package only reads the result.
package auth

import (
	"errors"
	"net/http"
	"strconv"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleFinance Role = "finance"
	RoleViewer  Role = "viewer"
)

// Actor is the caller of a core operation, resolved once at the boundary.
type Actor struct {
	ID             int64
	OrganizationID int64
	Role           Role
}

// CanReconcile reports whether the actor's role may run reconciliation operations.
func (a Actor) CanReconcile() bool {
	return a.Role == RoleAdmin || a.Role == RoleFinance
}

var ErrUnauthenticated = errors.New("missing or invalid caller identity")

// Authorizer resolves the Actor for an incoming request.
type Authorizer interface {
	Resolve(r *http.Request) (Actor, error)
}

// HeaderAuthorizer trusts identity headers set by the authenticating gateway.
type HeaderAuthorizer struct{}

const (
	HeaderActorID        = "X-Actor-ID"
	HeaderOrganizationID = "X-Organization-ID"
	HeaderRole           = "X-Actor-Role"
)

func (HeaderAuthorizer) Resolve(r *http.Request) (Actor, error) {
	actorID, err := strconv.ParseInt(r.Header.Get(HeaderActorID), 10, 64)
	if err != nil || actorID <= 0 {
		return Actor{}, ErrUnauthenticated
	}
	orgID, err := strconv.ParseInt(r.Header.Get(HeaderOrganizationID), 10, 64)
	if err != nil || orgID <= 0 {
		return Actor{}, ErrUnauthenticated
	}
	role := Role(r.Header.Get(HeaderRole))
	if role == "" {
		return Actor{}, ErrUnauthenticated
	}
	return Actor{ID: actorID, OrganizationID: orgID, Role: role}, nil
}
