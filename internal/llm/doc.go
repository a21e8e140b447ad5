// Package llm is the transport and parsing layer for the hosted generative model.
// It sends generateContent requests with a fixed retry policy, classifies every
// failure into a small error taxonomy, builds prompts from embedded templates and
// recovers structured JSON from free-form model output.
package llm
