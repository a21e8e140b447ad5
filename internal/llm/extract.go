package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var fencedBlock = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// ParseResponse decodes a generateContent response envelope.
func ParseResponse(raw []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, NewDecodingError("response envelope is not valid JSON", err)
	}
	return &resp, nil
}

// Text returns the first candidate's parts joined with newlines, or "" when
// the model returned no candidate.
func (r *Response) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	parts := r.Candidates[0].Content.Parts
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n")
}

// Usage returns the reported token counters, zero when absent.
func (r *Response) Usage() Usage {
	if r == nil || r.UsageMetadata == nil {
		return Usage{}
	}
	return *r.UsageMetadata
}

// Text decodes raw and returns its text and usage counters.
func Text(raw []byte) (string, Usage, error) {
	resp, err := ParseResponse(raw)
	if err != nil {
		return "", Usage{}, err
	}
	return resp.Text(), resp.Usage(), nil
}

// ExtractJSON locates a JSON payload inside free-form model text. A fenced code
// block wins; otherwise the span from the first '{' to the last '}' is used.
func ExtractJSON(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", NewDecodingError("empty response text", nil)
	}

	if m := fencedBlock.FindStringSubmatch(trimmed); m != nil {
		if inner := strings.TrimSpace(m[1]); inner != "" {
			return inner, nil
		}
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1], nil
	}

	return "", NewDecodingError("no JSON object found in response text", nil)
}

// DecodeJSON extracts the JSON payload from text and decodes it into T.
func DecodeJSON[T any](text string) (T, error) {
	var out T
	payload, err := ExtractJSON(text)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, NewDecodingError(fmt.Sprintf("payload does not match %T", out), err)
	}
	return out, nil
}

// FlexibleTime accepts RFC 3339 timestamps with or without fractional seconds
// and bare YYYY-MM-DD dates, interpreted in local time.
type FlexibleTime struct {
	time.Time
}

var flexibleLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	time.RFC3339,
}

// ParseFlexibleTime parses s using the FlexibleTime layouts.
func ParseFlexibleTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range flexibleLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

// UnmarshalJSON implements json.Unmarshaler. An empty string leaves the zero time.
func (t *FlexibleTime) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseFlexibleTime(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON implements json.Marshaler.
func (t FlexibleTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(time.RFC3339))
}

// ExtractedFields is the wire shape of an extraction reply. Every field may be
// missing or null; callers apply defaults.
type ExtractedFields struct {
	Type             *string             `json:"type"`
	Category         *string             `json:"category"`
	Account          *string             `json:"account"`
	PaymentMethod    *string             `json:"payment_method"`
	PaymentMethodAlt *string             `json:"paymentMethod"`
	Note             *string             `json:"note"`
	Confidence       *float64            `json:"confidence"`
	Date             *FlexibleTime       `json:"date"`
	Amount           decimal.NullDecimal `json:"amount"`
}

// Payment returns payment_method, falling back to the camelCase spelling.
func (f ExtractedFields) Payment() *string {
	if f.PaymentMethod != nil {
		return f.PaymentMethod
	}
	return f.PaymentMethodAlt
}

// InsightFields is the wire shape of an insight reply.
type InsightFields struct {
	Summary  string   `json:"summary"`
	Insights []string `json:"insights"`
}
