package llm

import "strings"

// Format is the response-format hint sent with a request.
type Format string

// Response formats.
const (
	FormatJSON Format = "application/json"
	FormatText Format = "text/plain"
)

// Request is a generateContent request body.
type Request struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

// Content is an ordered list of parts.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a single text fragment.
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig carries the response MIME type hint.
type GenerationConfig struct {
	ResponseMimeType Format `json:"responseMimeType,omitempty"`
}

// NewRequest builds a single-content request from the given text parts.
func NewRequest(format Format, parts ...string) Request {
	content := Content{Parts: make([]Part, 0, len(parts))}
	for _, p := range parts {
		content.Parts = append(content.Parts, Part{Text: p})
	}
	return Request{
		Contents:         []Content{content},
		GenerationConfig: GenerationConfig{ResponseMimeType: format},
	}
}

// Format returns the response-format hint of the request.
func (r Request) Format() Format {
	return r.GenerationConfig.ResponseMimeType
}

// Prompt returns all text parts of the request joined with newlines.
func (r Request) Prompt() string {
	var texts []string
	for _, c := range r.Contents {
		for _, p := range c.Parts {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Response is a generateContent response body.
type Response struct {
	UsageMetadata *Usage      `json:"usageMetadata,omitempty"`
	Candidates    []Candidate `json:"candidates"`
}

// Candidate is one generated alternative.
type Candidate struct {
	Content Content `json:"content"`
}

// Usage holds token counters reported by the model.
type Usage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
		Code    int    `json:"code"`
	} `json:"error"`
}
