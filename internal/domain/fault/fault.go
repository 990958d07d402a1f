// Package fault defines the shared error taxonomy returned by application
// services. The HTTP layer maps these to status codes with errors.Is.
package fault

import "errors"

var (
	// ErrNotFound indicates the addressed entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden indicates the actor lacks authorization for this action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidState indicates the action is not valid in the entity's
	// current lifecycle state.
	ErrInvalidState = errors.New("invalid state")
	// ErrItemUnavailable indicates the item is not available for new
	// requests, claims or acceptances.
	ErrItemUnavailable = errors.New("item unavailable")
	// ErrSelfRequest indicates an owner acting on their own item where a
	// counterparty is required.
	ErrSelfRequest = errors.New("cannot request own item")
	// ErrDuplicatePending indicates a pending request already exists for
	// the same item and requester.
	ErrDuplicatePending = errors.New("pending request already exists")
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")
)
