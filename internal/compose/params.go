// Package compose assembles drafting requests from photo metadata and style
// parameters, and turns model output back into a structured article.
package compose

import "github.com/snapdraft/photoblog-backend/internal/models"

// Placeholder values for metadata the pipeline could not derive. Prompts
// instruct the model to use these rather than invent specifics.
const (
	Unknown     = "unknown"
	Unspecified = "unspecified"
)

// Parameter defaults applied before a message is enqueued.
const (
	DefaultTone         = "polite"
	DefaultLength       = "medium"
	DefaultLanguage     = "ja"
	DefaultPrivacyLevel = "area"
)

// ApplyDefaults fills empty style parameters in place.
func ApplyDefaults(p *models.Parameters) {
	if p.Tone == "" {
		p.Tone = DefaultTone
	}
	if p.Length == "" {
		p.Length = DefaultLength
	}
	if p.Language == "" {
		p.Language = DefaultLanguage
	}
	if p.PrivacyLevel == "" {
		p.PrivacyLevel = DefaultPrivacyLevel
	}
}

// LengthConfig maps the length enum to a token budget and a wording hint
// for the prompt.
func LengthConfig(length string) (maxTokens int, hint string) {
	switch length {
	case "short":
		return 1024 * 8, "short (200-300 words, or 400-700 Japanese characters)"
	case "long":
		return 1024 * 32, "long (900-1200 words, or 1500-2200 Japanese characters)"
	default:
		return 1024 * 16, "medium (500-800 words, or 900-1400 Japanese characters)"
	}
}

// MinChars is the minimum body_markdown length enforced for each length
// setting.
func MinChars(length string) int {
	switch length {
	case "short":
		return 300
	case "long":
		return 1200
	default:
		return 600
	}
}

// toneLabel normalizes the tone enum, defaulting to polite.
func toneLabel(tone string) string {
	switch tone {
	case "casual", "formal":
		return tone
	default:
		return "polite"
	}
}

// languageHint is the prompt sentence selecting the output language.
func languageHint(language string) string {
	if language == "ja" {
		return "Write in Japanese."
	}
	return "Write in English."
}

// privacyGuideline is the prompt sentence for a privacy level.
func privacyGuideline(level string) string {
	switch level {
	case "exact":
		return "Exact location is allowed."
	case "city":
		return "Limit location to city-level detail."
	default:
		return "Limit location to broad area or prefecture-level detail."
	}
}
