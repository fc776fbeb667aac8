// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrNoDeliverers signals that a claim found nothing to claim,
// which handlers report as 404 rather than a server error.
package repository

import "errors"

// ErrNoDeliverers is returned by Claim when no active availability row
// exists for the requested hall. Handlers should translate this into an
// HTTP 404 response.
var ErrNoDeliverers = errors.New("no active deliverers")

// ErrMatchNotFound is returned when a verification targets a match id
// that does not exist.
var ErrMatchNotFound = errors.New("match not found")

// ErrEmailExists is returned by UserRepo.Create when the email is
// already registered. Handlers should translate this into HTTP 409.
var ErrEmailExists = errors.New("email already exists")
