package api

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/plainnote/internal/index"
	"github.com/starford/plainnote/internal/models"
)

var errTitleSeparator = errors.New("must not contain path separators")

func plainTitle(value any) error {
	s, _ := value.(string)
	if strings.ContainsAny(s, `/\`) || strings.HasPrefix(s, ".") {
		return errTitleSeparator
	}
	return nil
}

// CreateNoteRequest is the request body for creating a note. An empty title
// picks the next free Untitled name.
type CreateNoteRequest struct {
	Title string `json:"title" example:"Groceries"`
	Body  string `json:"body" example:"milk\neggs"`
}

// Validate validates the request.
func (r *CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Length(0, 255), validation.By(plainTitle)),
	)
}

// WriteNoteRequest is the request body for saving a note. A title different
// from the current one renames the note.
type WriteNoteRequest struct {
	Title string `json:"title" example:"Groceries" validate:"required"`
	Body  string `json:"body" example:"milk\neggs"`
}

// Validate validates the request.
func (r *WriteNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255), validation.By(plainTitle)),
	)
}

// LinkAutoUpdateRequest toggles edit.linkAutoUpdate.
type LinkAutoUpdateRequest struct {
	Enabled *bool `json:"enabled" example:"true" validate:"required"`
}

// Validate validates the request.
func (r *LinkAutoUpdateRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Enabled, validation.NotNil),
	)
}

// OpenDirectoryRequest selects the notes directory.
type OpenDirectoryRequest struct {
	Path string `json:"path" example:"/home/me/notes" validate:"required"`
}

// Validate validates the request.
func (r *OpenDirectoryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Path, validation.Required),
	)
}

// NoteListResponse wraps a directory snapshot.
type NoteListResponse struct {
	Notes models.Snapshot `json:"notes" validate:"required"`
}

// NoteBodyResponse carries a note body and its checksum.
type NoteBodyResponse struct {
	Identity models.NoteIdentity `json:"identity" example:"2049-131077" validate:"required"`
	Body     string              `json:"body" validate:"required"`
	Checksum string              `json:"checksum" validate:"required"`
}

// WriteNoteResponse reports whether the write happened.
type WriteNoteResponse struct {
	OK bool `json:"ok" validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}

// BacklinksResponse lists the notes linking to a title.
type BacklinksResponse struct {
	Title     string   `json:"title" example:"Groceries" validate:"required"`
	Backlinks []string `json:"backlinks" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"image.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/api/attachments/image.png" validate:"required"`
}
