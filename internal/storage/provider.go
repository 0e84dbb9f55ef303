// Package storage defines the notes directory abstraction.
package storage

import (
	"io"

	"github.com/starford/plainnote/internal/models"
)

// Provider is the interface for note file operations. Notes are addressed by
// title; the file on disk is "<title><ext>" directly under Root.
type Provider interface {
	// Root returns the absolute path of the notes directory.
	Root() string
	// Ext returns the note file extension, including the leading dot.
	Ext() string
	// Snapshot lists the directory and returns its notes, newest first.
	Snapshot() (models.Snapshot, error)
	// Read returns the raw bytes of the note with the given title.
	Read(title string) ([]byte, error)
	// Create writes a new note, failing if the file already exists.
	Create(title string, content []byte) error
	// Write replaces the content of an existing note in place.
	Write(title string, content []byte) error
	// Rename moves a note to a new title without touching its content.
	Rename(oldTitle, newTitle string) error
	// Delete removes the note with the given title.
	Delete(title string) error
	// CopyIn stores a non-note file (attachment) under Root and returns its path.
	CopyIn(name string, r io.Reader) (string, int64, error)
}
