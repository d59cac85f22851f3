// Package objectid parses the identifiers of remote pages, databases and
// blocks.
//
// The API accepts ids in canonical UUID form ("5c6a2821-6bb1-4a7e-b6e1-c50111515c3d")
// but users usually copy them from a page link, where the id is the dashless
// hex suffix of the last path segment and a linked block sits in the
// fragment:
//
//	https://www.notion.so/acme/Release-notes-5c6a28216bb14a7eb6e1c50111515c3d
//	https://www.notion.so/acme/Release-notes-5c6a28216bb14a7eb6e1c50111515c3d#0b1d4f5e9a3c4e2f8d7c6b5a49382716
//
// Parse accepts all of these forms.
package objectid

import (
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// hexLen is the length of a dashless UUID.
const hexLen = 32

// ID is the identifier of a remote object.
type ID struct {
	value uuid.UUID
}

// New generates a random (v4) ID.
func New() ID {
	return ID{value: uuid.New()}
}

// MustParse parses s, panicking on error. Use it for fixtures.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("invalid object id: %s: %v", s, err))
	}
	return id
}

// Parse parses an id in canonical or dashless form, or extracts it from a
// page link. A link with a fragment yields the linked block's id.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}, fmt.Errorf("object id cannot be empty")
	}

	if strings.Contains(s, "://") {
		return parseURL(s)
	}

	u, err := uuid.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return ID{value: u}, nil
}

func parseURL(s string) (ID, error) {
	link, err := url.Parse(s)
	if err != nil {
		return ID{}, fmt.Errorf("invalid object link: %w", err)
	}

	candidate := link.Fragment
	if candidate == "" {
		candidate = path.Base(link.Path)
	}
	if len(candidate) < hexLen {
		return ID{}, fmt.Errorf("object link %q does not end in an id", s)
	}

	u, err := uuid.Parse(candidate[len(candidate)-hexLen:])
	if err != nil {
		return ID{}, fmt.Errorf("object link %q does not end in an id: %w", s, err)
	}
	return ID{value: u}, nil
}

// String returns the canonical lowercase form with hyphens.
func (id ID) String() string {
	return id.value.String()
}

// Compact returns the dashless form used in page links.
func (id ID) Compact() string {
	return strings.ReplaceAll(id.value.String(), "-", "")
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool {
	return id.value == uuid.Nil
}

// MarshalJSON encodes the canonical form, or null for the zero ID.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(id.String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ID{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("object id must be a string: %w", err)
	}
	if s == "" {
		*id = ID{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
