//go:build windows

package identity

import (
	"os"

	"golang.org/x/sys/windows"

	"github.com/starford/plainnote/internal/models"
)

// Resolve returns the identity of the file at path from its volume serial
// number and file index, the NTFS counterpart of device and inode.
func Resolve(path string) (models.NoteIdentity, error) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return "", unavailable(path, err)
	}
	h, err := windows.CreateFile(p, 0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		nil, windows.OPEN_EXISTING, windows.FILE_FLAG_BACKUP_SEMANTICS, 0)
	if err != nil {
		return "", unavailable(path, err)
	}
	defer windows.CloseHandle(h) //nolint:errcheck

	var fi windows.ByHandleFileInformation
	if err := windows.GetFileInformationByHandle(h, &fi); err != nil {
		return "", unavailable(path, err)
	}
	index := uint64(fi.FileIndexHigh)<<32 | uint64(fi.FileIndexLow)
	return compose(uint64(fi.VolumeSerialNumber), index), nil
}

// ResolveInfo falls back to Resolve; os.FileInfo carries no file index on Windows.
func ResolveInfo(path string, _ os.FileInfo) (models.NoteIdentity, error) {
	return Resolve(path)
}
