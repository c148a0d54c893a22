// Package flash carries one-time notifications from a POST handler to the
// page it redirects to.  Messages travel in a cookie which the next read
// clears.
package flash

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
)

const (
	cookieName = "flash"
	pendingKey = "flash.pending"
)

// Message is one notification; Kind follows the usual alert levels
// (success, danger, ...).
type Message struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Add queues a message for the next request.  Several calls during the
// same request accumulate.
func Add(c echo.Context, kind, text string) {
	pending, _ := c.Get(pendingKey).([]Message)
	pending = append(pending, Message{Kind: kind, Text: text})
	c.Set(pendingKey, pending)

	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    Encode(pending),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Pop returns the messages sent by the previous request and clears them.
// A missing or tampered cookie yields no messages.
func Pop(c echo.Context) []Message {
	ck, err := c.Cookie(cookieName)
	if err != nil || ck.Value == "" {
		return []Message{}
	}
	c.SetCookie(&http.Cookie{
		Name:     cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	msgs, err := Decode(ck.Value)
	if err != nil {
		return []Message{}
	}
	return msgs
}

// Encode serializes messages into a cookie-safe value.
func Encode(msgs []Message) string {
	raw, _ := json.Marshal(msgs)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// Decode is the inverse of Encode.
func Decode(v string) ([]Message, error) {
	raw, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil, err
	}
	var msgs []Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
