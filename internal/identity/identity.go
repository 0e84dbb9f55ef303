// Package identity derives rename-stable note identities from OS file metadata.
package identity

import (
	"fmt"

	"github.com/starford/plainnote/internal/apperr"
	"github.com/starford/plainnote/internal/models"
)

// compose builds the "<device>-<inode>" key shared by all platforms.
func compose(device, inode uint64) models.NoteIdentity {
	return models.NoteIdentity(fmt.Sprintf("%d-%d", device, inode))
}

func unavailable(path string, err error) error {
	return fmt.Errorf("identity: stat %s: %w: %w", path, apperr.ErrMetadataUnavailable, err)
}
