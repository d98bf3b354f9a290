// Package envelope extracts the sender and message text from a provider
// webhook body. Providers have shipped several incompatible schemas, so the
// parser tries an ordered list of strategies and uses the first that
// recognises the body.
package envelope

import (
	"encoding/json"
	"strings"
)

// Strategy recognises one webhook schema.
type Strategy interface {
	Name() string
	// Extract returns ok=false when body is not in this strategy's shape or
	// carries no inbound message.
	Extract(body []byte) (msg InboundMessage, ok bool)
}

// DefaultStrategies is the order used by Extract.
var DefaultStrategies = []Strategy{
	InteraktStrategy{},
	DataStrategy{},
	CloudAPIStrategy{},
}

// Parser runs strategies in order.
type Parser struct {
	strategies []Strategy
}

// NewParser creates a parser. With no strategies, DefaultStrategies is used.
func NewParser(strategies ...Strategy) *Parser {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	return &Parser{strategies: strategies}
}

// Extract parses a verified body. It returns a *ParseError for invalid JSON
// and ErrNoMessage when no strategy recognises the body.
func (p *Parser) Extract(body []byte) (InboundMessage, error) {
	var probe json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		return InboundMessage{}, &ParseError{Err: err}
	}

	for _, s := range p.strategies {
		msg, ok := s.Extract(body)
		if !ok {
			continue
		}
		msg.Source = s.Name()
		msg.SenderID = strings.TrimSpace(msg.SenderID)
		msg.ContentType = classify(msg.RawType, msg.Text)
		return msg, nil
	}
	return InboundMessage{}, ErrNoMessage
}

var defaultParser = NewParser()

// Extract parses body with DefaultStrategies.
func Extract(body []byte) (InboundMessage, error) {
	return defaultParser.Extract(body)
}

// textValue decodes a text field that providers send either as a plain
// string or as an object with a "body" or "text" member.
func textValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Body string `json:"body"`
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Body != "" {
			return obj.Body
		}
		return obj.Text
	}
	return ""
}
