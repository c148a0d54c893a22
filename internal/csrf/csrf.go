// Package csrf issues and checks form tokens bound to an intention such as
// "delete7".  Tokens are an HMAC of the intention and the actor id, so a
// token minted for one program or one user is useless for another.
package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
)

// Manager signs tokens with a server secret.  It is safe for concurrent use.
type Manager struct {
	secret []byte
}

func New(secret string) *Manager {
	return &Manager{secret: []byte(secret)}
}

// Token returns the token for an intention and actor.
func (m *Manager) Token(actorID uint64, intention string) string {
	return base64.RawURLEncoding.EncodeToString(m.sum(actorID, intention))
}

// Valid reports whether token was produced by Token for the same intention
// and actor.  Empty or malformed tokens are invalid.
func (m *Manager) Valid(actorID uint64, intention, token string) bool {
	if token == "" {
		return false
	}
	got, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return hmac.Equal(got, m.sum(actorID, intention))
}

func (m *Manager) sum(actorID uint64, intention string) []byte {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(strconv.FormatUint(actorID, 10)))
	mac.Write([]byte{0})
	mac.Write([]byte(intention))
	return mac.Sum(nil)
}
