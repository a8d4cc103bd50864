package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicate     = errors.New("record already exists")
	ErrInvalidRecord = errors.New("invalid record")
	ErrInvalidLimit  = errors.New("invalid list limit")
)
