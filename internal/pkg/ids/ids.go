// Package ids generates prefixed identifiers for LUMA records.
package ids

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a prefixed identifier, e.g. "vid_6f1c...".
func New(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
