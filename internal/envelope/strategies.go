package envelope

import (
	"encoding/json"
	"strings"
)

// InteraktStrategy handles the flat Interakt payload:
//
//	{"message_type":"incoming","message_content_type":"text",
//	 "customer":{"phone_number":"..."},"message":"{\"text\":\"hi\"}"}
//
// The message field is usually a JSON document encoded as a string.
type InteraktStrategy struct{}

type interaktPayload struct {
	ID                 string          `json:"id"`
	MessageType        string          `json:"message_type"`
	MessageContentType string          `json:"message_content_type"`
	Customer           *struct {
		PhoneNumber string `json:"phone_number"`
	} `json:"customer"`
	Message json.RawMessage `json:"message"`
}

func (InteraktStrategy) Name() string { return "interakt" }

func (InteraktStrategy) Extract(body []byte) (InboundMessage, bool) {
	var p interaktPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return InboundMessage{}, false
	}
	if p.Customer == nil || p.Customer.PhoneNumber == "" {
		return InboundMessage{}, false
	}
	// Delivery receipts and agent echoes share the shape; only customer
	// messages get a reply.
	if p.MessageType != "incoming" {
		return InboundMessage{}, false
	}

	return InboundMessage{
		SenderID:  p.Customer.PhoneNumber,
		MessageID: p.ID,
		RawType:   strings.ToLower(p.MessageContentType),
		Text:      interaktText(p.Message),
	}, true
}

// interaktText unwraps the message field, which may be a string holding JSON,
// a string holding plain text, or an object.
func interaktText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		var inner struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			return inner.Text
		}
		return s
	}
	return textValue(raw)
}

// DataStrategy handles payloads nested under a "data" key:
//
//	{"data":{"from":"9198xxxx","message":{"type":"text","text":"hi"}}}
type DataStrategy struct{}

type dataPayload struct {
	Data *struct {
		ID      string `json:"id"`
		From    string `json:"from"`
		Sender  string `json:"sender"`
		Message *struct {
			ID   string          `json:"id"`
			Type string          `json:"type"`
			Text json.RawMessage `json:"text"`
		} `json:"message"`
	} `json:"data"`
}

func (DataStrategy) Name() string { return "data" }

func (DataStrategy) Extract(body []byte) (InboundMessage, bool) {
	var p dataPayload
	if err := json.Unmarshal(body, &p); err != nil || p.Data == nil || p.Data.Message == nil {
		return InboundMessage{}, false
	}
	sender := p.Data.From
	if sender == "" {
		sender = p.Data.Sender
	}
	if sender == "" {
		return InboundMessage{}, false
	}

	id := p.Data.Message.ID
	if id == "" {
		id = p.Data.ID
	}
	return InboundMessage{
		SenderID:  sender,
		MessageID: id,
		RawType:   p.Data.Message.Type,
		Text:      textValue(p.Data.Message.Text),
	}, true
}

// CloudAPIStrategy handles the WhatsApp Cloud API change notification used by
// Meta and the BSPs that proxy it. The first inbound message is taken.
type CloudAPIStrategy struct{}

type cloudPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []struct {
					From string          `json:"from"`
					ID   string          `json:"id"`
					Type string          `json:"type"`
					Text json.RawMessage `json:"text,omitempty"`
				} `json:"messages,omitempty"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

func (CloudAPIStrategy) Name() string { return "cloudapi" }

func (CloudAPIStrategy) Extract(body []byte) (InboundMessage, bool) {
	var p cloudPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return InboundMessage{}, false
	}
	for _, entry := range p.Entry {
		for _, change := range entry.Changes {
			if change.Field != "" && change.Field != "messages" {
				continue
			}
			for _, m := range change.Value.Messages {
				if m.From == "" {
					continue
				}
				return InboundMessage{
					SenderID:  m.From,
					MessageID: m.ID,
					RawType:   m.Type,
					Text:      textValue(m.Text),
				}, true
			}
		}
	}
	return InboundMessage{}, false
}
