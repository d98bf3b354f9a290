package envelope

import (
	"errors"
	"strings"
)

// ContentType classifies an inbound message. Only text is actionable.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentOther ContentType = "other"
)

// InboundMessage is a message extracted from a verified webhook body.
type InboundMessage struct {
	SenderID    string
	ContentType ContentType
	Text        string
	MessageID   string
	RawType     string // provider's own type literal, kept for logging
	Source      string // name of the strategy that recognised the body
}

// IsText reports whether the message should be answered by the generator.
func (m InboundMessage) IsText() bool {
	return m.ContentType == ContentText
}

var (
	// ErrMalformed is matched by every *ParseError.
	ErrMalformed = errors.New("malformed envelope")

	// ErrNoMessage means the body was valid JSON but carried nothing to act on
	// (a status callback, an outgoing echo, or an unknown schema).
	ErrNoMessage = errors.New("no actionable message")
)

// ParseError is returned when the webhook body is not valid JSON.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return ErrMalformed.Error()
	}
	return ErrMalformed.Error() + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrMalformed }

// classify maps a provider type literal to a ContentType. A "text" message
// with no text to answer is treated as other.
func classify(rawType, text string) ContentType {
	if rawType == "text" && strings.TrimSpace(text) != "" {
		return ContentText
	}
	return ContentOther
}
