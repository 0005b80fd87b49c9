package domain

import (
	"strings"

	dErrors "askdata/pkg/domain-errors"
)

// IdentityKind separates authenticated accounts from anonymous sessions.
// The two kinds live in separate quota namespaces.
type IdentityKind string

const (
	IdentityAccount   IdentityKind = "account"
	IdentityAnonymous IdentityKind = "anonymous"
)

// maxIdentityKeyLen bounds keys taken from tokens and cookies.
const maxIdentityKeyLen = 128

// Identity is the caller a query is accounted against.
type Identity struct {
	Kind IdentityKind
	Key  string
}

// NewAccountIdentity builds the identity of an authenticated subject.
func NewAccountIdentity(subject string) (Identity, error) {
	return newIdentity(IdentityAccount, subject)
}

// NewAnonymousIdentity builds the identity of an anonymous session.
func NewAnonymousIdentity(sessionKey string) (Identity, error) {
	return newIdentity(IdentityAnonymous, sessionKey)
}

func newIdentity(kind IdentityKind, key string) (Identity, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity key is required")
	}
	if len(key) > maxIdentityKeyLen {
		return Identity{}, dErrors.New(dErrors.CodeInvalidInput, "identity key is too long")
	}
	return Identity{Kind: kind, Key: key}, nil
}

// IsAnonymous reports whether the identity is an anonymous session.
func (i Identity) IsAnonymous() bool {
	return i.Kind == IdentityAnonymous
}

// IsZero reports whether no identity was resolved.
func (i Identity) IsZero() bool {
	return i.Key == ""
}

// String returns the namespaced storage key, e.g. "account:42".
func (i Identity) String() string {
	if i.IsZero() {
		return ""
	}
	return string(i.Kind) + ":" + i.Key
}
