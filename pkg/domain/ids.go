// Package domain holds identifier primitives shared across bounded contexts.
//
// Identifiers are parsed once at trust boundaries (HTTP handlers, JWT claims,
// configuration) and travel as typed values afterwards, so an account id can
// never be confused with a request id or a raw string.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "kitties/pkg/domain-errors"
)

// AccountID identifies an account known to the authentication layer. The
// registry treats it as opaque; it has no lifecycle of its own here.
type AccountID uuid.UUID

// ParseAccountID parses a canonical UUID string into an AccountID.
// Empty, malformed, and nil UUIDs are rejected with CodeInvalidInput.
func ParseAccountID(s string) (AccountID, error) {
	u, err := parseUUID(s, "account ID")
	if err != nil {
		return AccountID(uuid.Nil), err
	}
	return AccountID(u), nil
}

// NewAccountID returns a random account id.
func NewAccountID() AccountID {
	return AccountID(uuid.New())
}

func (id AccountID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero account.
func (id AccountID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// Bytes returns the 16-byte binary form, used when hashing account ids.
func (id AccountID) Bytes() []byte {
	b := uuid.UUID(id)
	return b[:]
}

// MarshalText implements encoding.TextMarshaler so AccountID renders as a
// UUID string in JSON bodies and map keys.
func (id AccountID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler with the same rules as
// ParseAccountID.
func (id *AccountID) UnmarshalText(text []byte) error {
	parsed, err := ParseAccountID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

func parseUUID(s, label string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" must not be nil")
	}
	return u, nil
}
