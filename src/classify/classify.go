// Package classify inspects raw query strings and decides how they can be
// resolved: as a record id, as an email address, or not at all. It is purely
// local and never touches the remote service.
package classify

import (
	"strings"

	"github.com/apimgr/sfind/src/model"
)

// Match tells how an input string was classified.
type Match int

const (
	// Unrecognized means the input is neither a record id nor an email.
	Unrecognized Match = iota
	// ByID means the input is a well-formed record id with a known prefix.
	ByID
	// ByEmail means the input looks like an email address.
	ByEmail
)

// String returns the name of the match type.
func (m Match) String() string {
	switch m {
	case ByID:
		return "id"
	case ByEmail:
		return "email"
	}
	return "unrecognized"
}

// Classification is the outcome of classifying one input string.
type Classification struct {
	Match Match
	Kind  model.EntityKind // set when Match is ByID
	ID    string           // set when Match is ByID
	Email string           // set when Match is ByEmail
}

// Record ids are 15 or 18 characters of base62, with the leading three
// characters encoding the entity kind.
const (
	shortIDLen = 15
	longIDLen  = 18
)

// Classify determines whether input is a record id, an email address, or
// neither. Empty and whitespace-only input is unrecognized, as is an id
// whose prefix does not map to a supported kind.
func Classify(input string) Classification {
	s := strings.TrimSpace(input)
	if s == "" {
		return Classification{Match: Unrecognized}
	}

	if kind, ok := classifyID(s); ok {
		return Classification{Match: ByID, Kind: kind, ID: s}
	}

	if isEmail(s) {
		return Classification{Match: ByEmail, Email: s}
	}

	return Classification{Match: Unrecognized}
}

func classifyID(s string) (model.EntityKind, bool) {
	if len(s) != shortIDLen && len(s) != longIDLen {
		return "", false
	}
	for _, c := range s {
		if !isAlphanumeric(c) {
			return "", false
		}
	}
	return model.KindForPrefix(s[:model.PrefixLen])
}

// isEmail applies the minimal syntax accepted for resolution: a single "@"
// with non-empty local and domain parts and no embedded whitespace.
func isEmail(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	at := strings.Index(s, "@")
	if at <= 0 || at != strings.LastIndex(s, "@") {
		return false
	}
	return at < len(s)-1
}

func isAlphanumeric(c rune) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	}
	return false
}
