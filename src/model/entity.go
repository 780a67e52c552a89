// Package model defines the entity kinds, field configuration, report
// structures, and errors shared by the resolution engine and its callers.
package model

import "fmt"

// EntityKind identifies one of the supported record categories.
type EntityKind string

const (
	KindAccount     EntityKind = "Account"
	KindAsset       EntityKind = "Asset"
	KindContact     EntityKind = "Contact"
	KindOpportunity EntityKind = "Opportunity"
)

// AllKinds returns every supported entity kind.
func AllKinds() []EntityKind {
	return []EntityKind{
		KindAccount,
		KindAsset,
		KindContact,
		KindOpportunity,
	}
}

// String returns the remote object name of the kind.
func (k EntityKind) String() string {
	return string(k)
}

// IsValid checks if the kind is one of the supported categories.
func (k EntityKind) IsValid() bool {
	for _, kind := range AllKinds() {
		if kind == k {
			return true
		}
	}
	return false
}

// ParseKind maps an entity name, as written in configuration, to its kind.
// Names are case sensitive and match the remote object names.
func ParseKind(name string) (EntityKind, error) {
	k := EntityKind(name)
	if !k.IsValid() {
		return "", fmt.Errorf("%w: unknown entity %q", ErrInvalidConfig, name)
	}
	return k, nil
}

// Record id prefixes assigned by the remote service. The prefix of a
// well-formed id deterministically encodes its entity kind.
var kindByPrefix = map[string]EntityKind{
	"001": KindAccount,
	"02i": KindAsset,
	"003": KindContact,
	"006": KindOpportunity,
}

// PrefixLen is the length of the kind-encoding id prefix.
const PrefixLen = 3

// KindForPrefix returns the kind encoded by a record id prefix.
func KindForPrefix(prefix string) (EntityKind, bool) {
	k, ok := kindByPrefix[prefix]
	return k, ok
}

// AccountForeignKey returns the field on this kind's records that links them
// to their account. Account records link to themselves through Id.
func (k EntityKind) AccountForeignKey() string {
	if k == KindAccount {
		return "Id"
	}
	return "AccountId"
}

// RelationshipLabel returns the label under which records of this kind
// appear in a report's related list.
func (k EntityKind) RelationshipLabel() string {
	switch k {
	case KindAccount:
		return "account"
	case KindAsset:
		return "assets"
	case KindContact:
		return "contacts"
	case KindOpportunity:
		return "opportunities"
	}
	return ""
}

// RootLabel marks the entity directly resolved from the user's input.
const RootLabel = "root"

// AccountChildren returns the kinds fanned out to from the account hub, in
// report order.
func AccountChildren() []EntityKind {
	return []EntityKind{
		KindOpportunity,
		KindAsset,
		KindContact,
	}
}
