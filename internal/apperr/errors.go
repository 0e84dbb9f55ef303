// Package apperr holds the sentinel errors shared by the note core and its surfaces.
package apperr

import "errors"

var (
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	ErrMetadataUnavailable  = errors.New("metadata unavailable")
	ErrNotFound             = errors.New("not found")
	ErrTitleCollision       = errors.New("title collision")
	ErrWriteFailure         = errors.New("write failure")
	ErrDeleteFailure        = errors.New("delete failure")
)
