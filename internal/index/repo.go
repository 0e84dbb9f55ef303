package index

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/starford/plainnote/internal/models"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	Identity  models.NoteIdentity
	Title     string
	Checksum  string
	Tags      []string
	UpdatedAt time.Time
}

// Line is one matching line of a search hit, numbered from 1.
type Line struct {
	Num  int    `json:"num"`
	Text string `json:"text"`
}

// SearchResult groups the matching lines of one note.
type SearchResult struct {
	Identity models.NoteIdentity `json:"identity"`
	Title    string              `json:"title"`
	Lines    []Line              `json:"lines"`
}

// UpsertNote inserts or replaces a note, its FTS entry, and links within a transaction.
func (db *DB) UpsertNote(n NoteRow, body string, links []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(n.Tags)

	_, err = tx.Exec(`
		INSERT INTO notes (identity, title, checksum, tags, body, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(identity) DO UPDATE SET
			title      = excluded.title,
			checksum   = excluded.checksum,
			tags       = excluded.tags,
			body       = excluded.body,
			updated_at = excluded.updated_at
	`, string(n.Identity), n.Title, n.Checksum, string(tagsJSON), body, n.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	if err := ftsUpsert(tx, string(n.Identity), n.Title, body, n.Tags); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM links WHERE source = ?`, string(n.Identity)); err != nil {
		return fmt.Errorf("index: clear links: %w", err)
	}
	if len(links) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO links (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare link insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range links {
			if _, err := stmt.Exec(string(n.Identity), target); err != nil {
				return fmt.Errorf("index: insert link: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry, and outgoing links.
func (db *DB) DeleteNote(id models.NoteIdentity) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, string(id))
	_, _ = tx.Exec(`DELETE FROM links WHERE source = ?`, string(id))
	_, _ = tx.Exec(`DELETE FROM notes WHERE identity = ?`, string(id))

	return tx.Commit()
}

// Stamp is what Sync compares to decide whether a note must be re-indexed.
type Stamp struct {
	Title    string
	Checksum string
}

// AllStamps returns the title and checksum of every indexed note.
func (db *DB) AllStamps() (map[models.NoteIdentity]Stamp, error) {
	rows, err := db.conn.Query(`SELECT identity, title, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all stamps: %w", err)
	}
	defer rows.Close()
	out := make(map[models.NoteIdentity]Stamp)
	for rows.Next() {
		var id string
		var s Stamp
		if err := rows.Scan(&id, &s.Title, &s.Checksum); err != nil {
			return nil, err
		}
		out[models.NoteIdentity(id)] = s
	}
	return out, rows.Err()
}

// Backlinks returns the titles of notes linking to target, sorted.
func (db *DB) Backlinks(target string) ([]string, error) {
	rows, err := db.conn.Query(`
		SELECT n.title
		FROM links l JOIN notes n ON n.identity = l.source
		WHERE l.target = ?
		ORDER BY n.title
	`, target)
	if err != nil {
		return nil, fmt.Errorf("index: backlinks: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
