package pipeline

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// SenderPolicy filters senders with glob patterns such as "91*" or
// "4477009000??". Deny patterns win over allow patterns; an empty allow list
// admits everyone not denied.
type SenderPolicy struct {
	allow []string
	deny  []string
}

// NewSenderPolicy validates the patterns and builds a policy.
func NewSenderPolicy(allow, deny []string) (*SenderPolicy, error) {
	p := &SenderPolicy{}
	var err error
	if p.allow, err = normalizePatterns(allow); err != nil {
		return nil, fmt.Errorf("allow_senders: %w", err)
	}
	if p.deny, err = normalizePatterns(deny); err != nil {
		return nil, fmt.Errorf("deny_senders: %w", err)
	}
	return p, nil
}

// ValidatePattern reports whether pattern is a usable sender glob.
func ValidatePattern(pattern string) error {
	_, err := normalizePatterns([]string{pattern})
	return err
}

func normalizePatterns(patterns []string) ([]string, error) {
	out := make([]string, 0, len(patterns))
	for _, raw := range patterns {
		p := normalizeSender(raw)
		if p == "" {
			continue
		}
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid sender pattern %q", raw)
		}
		out = append(out, p)
	}
	return out, nil
}

// normalizeSender drops the formatting people add to phone numbers.
func normalizeSender(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

// Allowed reports whether replies may be sent to sender. A nil policy allows
// everyone.
func (p *SenderPolicy) Allowed(sender string) bool {
	if p == nil {
		return true
	}
	s := normalizeSender(sender)
	if matchAny(p.deny, s) {
		return false
	}
	return len(p.allow) == 0 || matchAny(p.allow, s)
}

func matchAny(patterns []string, s string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, s); err == nil && ok {
			return true
		}
	}
	return false
}
