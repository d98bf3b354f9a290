package envelope

import (
	"errors"
	"testing"
)

func TestExtractDataShape(t *testing.T) {
	body := []byte(`{"data":{"from":"9198xxxx","message":{"type":"text","text":"hi"}}}`)

	msg, err := Extract(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.SenderID != "9198xxxx" {
		t.Errorf("expected sender 9198xxxx, got %q", msg.SenderID)
	}
	if msg.Text != "hi" {
		t.Errorf("expected text hi, got %q", msg.Text)
	}
	if !msg.IsText() {
		t.Errorf("expected text content, got %s", msg.ContentType)
	}
	if msg.Source != "data" {
		t.Errorf("expected source data, got %q", msg.Source)
	}
}

func TestExtractInteraktShape(t *testing.T) {
	body := []byte(`{
		"id": "msg-1",
		"message_type": "incoming",
		"message_content_type": "text",
		"customer": {"phone_number": "919876543210"},
		"message": "{\"text\":\"vanakkam\"}"
	}`)

	msg, err := Extract(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.SenderID != "919876543210" || msg.Text != "vanakkam" || msg.MessageID != "msg-1" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.Source != "interakt" {
		t.Errorf("expected source interakt, got %q", msg.Source)
	}
}

func TestExtractInteraktMessageVariants(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
	}{
		{"json string", `"{\"text\":\"one\"}"`, "one"},
		{"plain string", `"two"`, "two"},
		{"object", `{"text":"three"}`, "three"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := []byte(`{"message_type":"incoming","message_content_type":"text",` +
				`"customer":{"phone_number":"1"},"message":` + tt.message + `}`)
			msg, err := Extract(body)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Text != tt.want {
				t.Errorf("expected %q, got %q", tt.want, msg.Text)
			}
		})
	}
}

func TestExtractInteraktOutgoingIgnored(t *testing.T) {
	body := []byte(`{"message_type":"outgoing","message_content_type":"text",` +
		`"customer":{"phone_number":"1"},"message":"{\"text\":\"echo\"}"}`)

	_, err := Extract(body)
	if !errors.Is(err, ErrNoMessage) {
		t.Errorf("expected ErrNoMessage, got %v", err)
	}
}

func TestExtractCloudAPIShape(t *testing.T) {
	body := []byte(`{
		"object": "whatsapp_business_account",
		"entry": [{
			"id": "123",
			"changes": [
				{"field": "statuses", "value": {}},
				{"field": "messages", "value": {"messages": [
					{"from": "447700900000", "id": "wamid.1", "type": "text", "text": {"body": "hello"}}
				]}}
			]
		}]
	}`)

	msg, err := Extract(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.SenderID != "447700900000" || msg.Text != "hello" || msg.MessageID != "wamid.1" {
		t.Errorf("unexpected message: %+v", msg)
	}
	if msg.Source != "cloudapi" {
		t.Errorf("expected source cloudapi, got %q", msg.Source)
	}
}

func TestExtractNonText(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"image", `{"data":{"from":"1","message":{"type":"image"}}}`},
		{"missing type", `{"data":{"from":"1","message":{"text":"hi"}}}`},
		{"empty text", `{"data":{"from":"1","message":{"type":"text","text":"  "}}}`},
		{"interakt document", `{"message_type":"incoming","message_content_type":"Document","customer":{"phone_number":"1"},"message":"{}"}`},
		{"cloud audio", `{"entry":[{"changes":[{"value":{"messages":[{"from":"1","type":"audio"}]}}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := Extract([]byte(tt.body))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.IsText() {
				t.Errorf("expected other, got text")
			}
			if msg.SenderID != "1" {
				t.Errorf("expected sender 1, got %q", msg.SenderID)
			}
		})
	}
}

func TestExtractMalformed(t *testing.T) {
	for _, body := range []string{"", "not json", `{"data":`} {
		_, err := Extract([]byte(body))
		if !errors.Is(err, ErrMalformed) {
			t.Errorf("Extract(%q): expected ErrMalformed, got %v", body, err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("Extract(%q): expected *ParseError, got %T", body, err)
		}
	}
}

func TestExtractNoActionableMessage(t *testing.T) {
	tests := []string{
		`{}`,
		`[]`,
		`"text"`,
		`{"data":{"message":{"type":"text","text":"hi"}}}`,
		`{"data":{"from":"1"}}`,
		`{"entry":[{"changes":[{"field":"messages","value":{"statuses":[{"id":"x"}]}}]}]}`,
		`{"customer":{"phone_number":"1"}}`,
	}
	for _, body := range tests {
		_, err := Extract([]byte(body))
		if !errors.Is(err, ErrNoMessage) {
			t.Errorf("Extract(%s): expected ErrNoMessage, got %v", body, err)
		}
	}
}

type stubStrategy struct {
	name string
	msg  InboundMessage
	ok   bool
}

func (s stubStrategy) Name() string { return s.name }
func (s stubStrategy) Extract([]byte) (InboundMessage, bool) { return s.msg, s.ok }

func TestParserFirstMatchWins(t *testing.T) {
	p := NewParser(
		stubStrategy{name: "skip"},
		stubStrategy{name: "first", ok: true, msg: InboundMessage{SenderID: " a ", RawType: "text", Text: "x"}},
		stubStrategy{name: "second", ok: true, msg: InboundMessage{SenderID: "b"}},
	)

	msg, err := p.Extract([]byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Source != "first" {
		t.Errorf("expected source first, got %q", msg.Source)
	}
	if msg.SenderID != "a" {
		t.Errorf("expected trimmed sender, got %q", msg.SenderID)
	}
	if !msg.IsText() {
		t.Error("expected text classification")
	}
}
