package xid

import (
	"strings"

	"github.com/google/uuid"
)

// New returns a random identifier of the form "<prefix>-<uuid v7>". v7
// identifiers sort by creation time.
func New(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	if prefix == "" {
		return id.String()
	}
	return prefix + "-" + id.String()
}

// Valid reports whether id carries the given prefix followed by a UUID.
func Valid(prefix string, id string) bool {
	if prefix != "" {
		rest, ok := strings.CutPrefix(id, prefix+"-")
		if !ok {
			return false
		}
		id = rest
	}
	_, err := uuid.Parse(id)
	return err == nil
}
