// Package links keeps [[Title]] references consistent when a note is renamed.
package links

import (
	"log/slog"
	"strings"

	"github.com/starford/plainnote/internal/storage"
)

// Token returns the bracketed link form of a title.
func Token(title string) string {
	return "[[" + title + "]]"
}

// Replace substitutes every [[oldTitle]] in body with [[newTitle]] and reports
// how many links changed. The match is anchored on the brackets, so a link to a
// longer title that merely starts with oldTitle is left alone.
func Replace(body, oldTitle, newTitle string) (string, int) {
	from := Token(oldTitle)
	n := strings.Count(body, from)
	if n == 0 || oldTitle == newTitle {
		return body, 0
	}
	return strings.ReplaceAll(body, from, Token(newTitle)), n
}

// Result summarises a rewrite pass.
type Result struct {
	// Rewritten holds the titles of notes whose content changed.
	Rewritten []string
	// Links is the total number of replaced links.
	Links int
	// Failed maps note titles to the error that prevented their rewrite.
	Failed map[string]error
}

// Rewrite retargets links from oldTitle to newTitle across every note in the
// store. It is best-effort: a failing note is recorded and logged, and notes
// already rewritten are kept.
func Rewrite(store storage.Provider, oldTitle, newTitle string, logger *slog.Logger) Result {
	if logger == nil {
		logger = slog.Default()
	}
	res := Result{Failed: map[string]error{}}
	if oldTitle == newTitle {
		return res
	}

	snap, err := store.Snapshot()
	if err != nil {
		logger.Warn("links: list failed", slog.String("error", err.Error()))
		res.Failed[""] = err
		return res
	}

	for _, rec := range snap {
		data, err := store.Read(rec.Title)
		if err != nil {
			logger.Warn("links: read failed", slog.String("title", rec.Title), slog.String("error", err.Error()))
			res.Failed[rec.Title] = err
			continue
		}
		body, n := Replace(string(data), oldTitle, newTitle)
		if n == 0 {
			continue
		}
		if err := store.Write(rec.Title, []byte(body)); err != nil {
			logger.Warn("links: write failed", slog.String("title", rec.Title), slog.String("error", err.Error()))
			res.Failed[rec.Title] = err
			continue
		}
		res.Rewritten = append(res.Rewritten, rec.Title)
		res.Links += n
	}

	logger.Debug("links: rewritten",
		slog.String("from", oldTitle),
		slog.String("to", newTitle),
		slog.Int("notes", len(res.Rewritten)),
		slog.Int("links", res.Links),
		slog.Int("failed", len(res.Failed)))
	return res
}
