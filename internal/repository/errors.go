// Package repository defines error types that are reused across the
// persistence layer. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios without
// inspecting driver-specific errors.
package repository

import "errors"

// ErrPendingExists is returned when a conditional insert finds that the
// submitter (by token subject or by IP) already has a comment awaiting
// moderation. The check runs inside the insert transaction so two
// near-simultaneous submissions cannot both slip through. Handlers
// should translate this into the rate-limit error surface.
var ErrPendingExists = errors.New("pending comment exists")

// ErrInvalidFilter is returned when a history lookup is requested for a
// column outside the allowed correlation keys (token subject or IP).
var ErrInvalidFilter = errors.New("invalid history filter")
