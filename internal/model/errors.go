package model

import "errors"

var (
	// ErrNotFound is returned by stores when no row matches.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique constraint rejects a write.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNoRowsAffected is returned when an insert reports no row and the transaction is rolled back.
	ErrNoRowsAffected = errors.New("no rows affected")
)
