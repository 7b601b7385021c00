// Package tablet models a single tablet's identity and the lightweight
// resource handle it holds for its lifetime.
package tablet

import "fmt"

// Kind classifies a tablet for routing purposes.
type Kind int

const (
	// User is an ordinary user-table tablet.
	User Kind = iota
	// Metadata is a tablet of the system catalog table.
	Metadata
	// Root is the unique, unpartitionable metadata-of-metadata tablet.
	Root
)

func (k Kind) String() string {
	switch k {
	case Root:
		return "root"
	case Metadata:
		return "metadata"
	default:
		return "user"
	}
}

// Reserved table identifiers for the root and metadata catalog tables.
const (
	RootTableID     = "+r"
	MetadataTableID = "!0"
)

// ID is the extent that names a tablet: a table plus the row range it owns.
// It is a plain comparable value so it can key a map directly.
type ID struct {
	Table    string
	StartRow string // exclusive; empty means -inf
	EndRow   string // inclusive; empty means +inf
}

// Kind classifies the tablet by its table id.
func (id ID) Kind() Kind {
	switch id.Table {
	case RootTableID:
		return Root
	case MetadataTableID:
		return Metadata
	default:
		return User
	}
}

// IsRoot reports whether id names the root tablet.
func (id ID) IsRoot() bool { return id.Kind() == Root }

// IsMeta reports whether id names a metadata-table tablet (root included:
// the root tablet is itself part of the metadata hierarchy).
func (id ID) IsMeta() bool {
	k := id.Kind()
	return k == Root || k == Metadata
}

func (id ID) String() string {
	return fmt.Sprintf("%s;%s;%s", id.Table, id.EndRow, id.StartRow)
}
