package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when creating a record whose key is taken.
var ErrAlreadyExists = errors.New("already exists")
