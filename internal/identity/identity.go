// Package identity resolves an inbound request into a stable participant key.
//
// A request may carry a verified identity (extracted from a JWT by the auth
// middleware), a guest device id header, both, or neither. A verified identity
// always wins: once a caller is authenticated their guest id is ignored for
// identity purposes.
package identity

import (
	"errors"
	"regexp"
	"strings"
)

var ErrAuthenticationRequired = errors.New("authentication required")

// Guest device ids are 36-character UUID-shaped strings. Anything else is
// treated as absent rather than rejected with an error.
var guestIDPattern = regexp.MustCompile(`^[0-9a-f-]{36}$`)

// Participant key namespaces.
const (
	AuthKeyPrefix  = "auth:"
	GuestKeyPrefix = "guest:"
)

// Default display names.
const (
	SelfName   = "You"
	GuestName  = "Guest"
	FriendName = "Friend"
)

// AuthIdentity is the verified-identity triple handed over by the auth
// boundary, plus optional profile hints from the token claims.
type AuthIdentity struct {
	TokenIdentifier string
	Subject         string
	Issuer          string
	Name            string
	Email           string
}

// Identity is the resolved caller: an authenticated identity, a validated
// guest device id, or neither (anonymous with no usable guest id).
type Identity struct {
	Auth          *AuthIdentity
	GuestDeviceID string
}

// Resolve builds an Identity from the optional verified identity and the raw
// guest device id. An invalid guest id is normalized to absent.
func Resolve(auth *AuthIdentity, rawGuestID string) Identity {
	id := Identity{Auth: auth}
	if auth == nil {
		id.GuestDeviceID = NormalizeGuestID(rawGuestID)
	}
	return id
}

// NormalizeGuestID lower-cases and validates a raw guest device id, returning
// "" when it does not look like a UUID.
func NormalizeGuestID(raw string) string {
	g := strings.ToLower(strings.TrimSpace(raw))
	if !guestIDPattern.MatchString(g) {
		return ""
	}
	return g
}

// IsAuthenticated reports whether the caller carries a verified identity.
func (id Identity) IsAuthenticated() bool {
	return id.Auth != nil && id.Auth.TokenIdentifier != ""
}

// ParticipantKey returns the namespaced stable key for this caller, or
// ErrAuthenticationRequired when the caller has no usable identity.
func (id Identity) ParticipantKey() (string, error) {
	if id.IsAuthenticated() {
		return AuthKeyPrefix + id.Auth.TokenIdentifier, nil
	}
	if id.GuestDeviceID != "" {
		return GuestKeyPrefix + id.GuestDeviceID, nil
	}
	return "", ErrAuthenticationRequired
}

// DisplayName returns the default roster name for this caller: the profile
// name when the token carries one, "Friend" for a nameless authenticated
// caller, "Guest" for anonymous. The caller's own view renders "You" instead;
// that substitution happens at projection time, not here.
func (id Identity) DisplayName() string {
	if id.IsAuthenticated() {
		if name := strings.TrimSpace(id.Auth.Name); name != "" {
			return name
		}
		return FriendName
	}
	return GuestName
}
