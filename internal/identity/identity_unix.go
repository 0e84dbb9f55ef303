//go:build unix

package identity

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/starford/plainnote/internal/models"
)

// Resolve returns the identity of the file at path from its device and inode
// numbers. It fails with apperr.ErrMetadataUnavailable if the file cannot be
// stat'ed, e.g. because it was removed after being listed.
func Resolve(path string) (models.NoteIdentity, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return "", unavailable(path, err)
	}
	return compose(uint64(st.Dev), uint64(st.Ino)), nil //nolint:unconvert // Dev width differs per OS
}

// ResolveInfo is like Resolve but reuses metadata already obtained by the
// caller when the platform exposes it.
func ResolveInfo(path string, info os.FileInfo) (models.NoteIdentity, error) {
	if info != nil {
		if st, ok := info.Sys().(*syscall.Stat_t); ok {
			return compose(uint64(st.Dev), uint64(st.Ino)), nil //nolint:unconvert
		}
	}
	return Resolve(path)
}
