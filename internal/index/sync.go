package index

import (
	"log/slog"

	"github.com/starford/plainnote/internal/checksum"
	"github.com/starford/plainnote/internal/parser"
	"github.com/starford/plainnote/internal/storage"
)

// Sync brings the index up to date with a fresh snapshot of store:
//   - new, changed or renamed notes are parsed and upserted
//   - notes no longer on disk are deleted from the index
func Sync(db NoteIndex, store storage.Provider, logger *slog.Logger) error {
	snap, err := store.Snapshot()
	if err != nil {
		return err
	}

	stamps, err := db.AllStamps()
	if err != nil {
		return err
	}

	for _, rec := range snap {
		data, err := store.Read(rec.Title)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("title", rec.Title), slog.String("error", err.Error()))
			continue
		}
		cs := checksum.Sum(data)
		if st, ok := stamps[rec.Identity]; ok && st.Checksum == cs && st.Title == rec.Title {
			delete(stamps, rec.Identity)
			continue
		}
		delete(stamps, rec.Identity)

		res := parser.Parse(data)
		row := NoteRow{
			Identity:  rec.Identity,
			Title:     rec.Title,
			Checksum:  cs,
			Tags:      nonNil(res.Tags),
			UpdatedAt: rec.ModTime,
		}
		if err := db.UpsertNote(row, string(data), res.Links); err != nil {
			logger.Warn("sync: index failed", slog.String("title", rec.Title), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("title", rec.Title))
		}
	}

	// Whatever is left was not seen on disk.
	for id := range stamps {
		if err := db.DeleteNote(id); err != nil {
			logger.Warn("sync: delete failed", slog.String("identity", string(id)), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: removed stale", slog.String("identity", string(id)))
		}
	}

	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
