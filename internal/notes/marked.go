package notes

import (
	"io"

	"github.com/starford/plainnote/internal/storage"
	"github.com/starford/plainnote/internal/watch"
)

// markedStore stamps the self-write clock before and after every mutating
// call, so each file touched by a long operation (a link rewrite over many
// notes) is covered by its own mark.
type markedStore struct {
	storage.Provider
	clock *watch.Clock
}

func (m markedStore) mark(fn func() error) error {
	m.clock.Mark()
	defer m.clock.Mark()
	return fn()
}

func (m markedStore) Create(title string, content []byte) error {
	return m.mark(func() error { return m.Provider.Create(title, content) })
}

func (m markedStore) Write(title string, content []byte) error {
	return m.mark(func() error { return m.Provider.Write(title, content) })
}

func (m markedStore) Rename(oldTitle, newTitle string) error {
	return m.mark(func() error { return m.Provider.Rename(oldTitle, newTitle) })
}

func (m markedStore) Delete(title string) error {
	return m.mark(func() error { return m.Provider.Delete(title) })
}

func (m markedStore) CopyIn(name string, r io.Reader) (string, int64, error) {
	var (
		path string
		n    int64
	)
	err := m.mark(func() error {
		var err error
		path, n, err = m.Provider.CopyIn(name, r)
		return err
	})
	return path, n, err
}
