// Package models defines the domain types for plainnote.
package models

import "time"

// NoteIdentity is an opaque, rename-stable key for a note file.
// It is derived from OS file metadata and never from the filename.
type NoteIdentity string

// NoteRecord is one entry of a directory snapshot.
type NoteRecord struct {
	Identity NoteIdentity `json:"identity"`
	Title    string       `json:"title"`
	ModTime  time.Time    `json:"mtime"`
}

// Snapshot is a point-in-time listing of the notes directory, most recently
// modified first.
type Snapshot []NoteRecord

// ByIdentity returns the record with the given identity.
func (s Snapshot) ByIdentity(id NoteIdentity) (NoteRecord, bool) {
	for _, r := range s {
		if r.Identity == id {
			return r, true
		}
	}
	return NoteRecord{}, false
}

// ByTitle returns the record with the given title.
func (s Snapshot) ByTitle(title string) (NoteRecord, bool) {
	for _, r := range s {
		if r.Title == title {
			return r, true
		}
	}
	return NoteRecord{}, false
}

// Titles returns the set of titles in the snapshot.
func (s Snapshot) Titles() map[string]struct{} {
	out := make(map[string]struct{}, len(s))
	for _, r := range s {
		out[r.Title] = struct{}{}
	}
	return out
}

// EventKind identifies an external change notification.
type EventKind string

const (
	EventAdded   EventKind = "added"
	EventChanged EventKind = "changed"
)

// Event is raised by the change watcher for filesystem changes that were not
// caused by this process.
type Event struct {
	Kind        EventKind    `json:"kind"`
	Title       string       `json:"title"`
	OldIdentity NoteIdentity `json:"old_identity,omitempty"`
	NewIdentity NoteIdentity `json:"new_identity"`
}
