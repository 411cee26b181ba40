package models

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

const (
	PrefixExpense    Prefix = "exp"
	PrefixObligation Prefix = "obl"
	PrefixSettlement Prefix = "stl"
	PrefixActivity   Prefix = "act"
	PrefixGroup      Prefix = "grp"
)

// NewID generates a K-sortable (UUIDv7-based) identifier such as
// "exp_01h2xcejqtf2nbrexx3vqjhp41".
// It panics if prefix is not a valid TypeID prefix (programming error).
func NewID(prefix Prefix) string {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("models: invalid id prefix %q: %v", prefix, err))
	}
	return tid.String()
}

// ValidateID checks that s is a TypeID carrying the expected prefix.
func ValidateID(s string, expected Prefix) error {
	tid, err := typeid.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", s, err)
	}
	if Prefix(tid.Prefix()) != expected {
		return fmt.Errorf("invalid id %q: expected prefix %q", s, expected)
	}
	return nil
}
