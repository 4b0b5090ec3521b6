package store

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrSeatTaken           = errors.New("seat is already taken in this session")
	ErrActiveSessionExists = errors.New("owner already has an active session")
)

// Constraint and index names shared by the postgres schema and mongo indexes.
const (
	activeSessionConstraint = "one_active_session_per_owner"
	sessionSeatConstraint   = "unique_session_seat"
)
