package efi

import "github.com/google/uuid"

// GUID identifies a protocol in the directory.
type GUID = uuid.UUID

// MustParseGUID parses the canonical textual form and panics on malformed
// input. It is meant for package-level protocol identifiers.
func MustParseGUID(s string) GUID {
	return uuid.MustParse(s)
}
