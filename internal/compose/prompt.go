package compose

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/snapdraft/photoblog-backend/internal/models"
)

// schemaBlock is the JSON shape the model must return, repeated verbatim in
// every prompt alongside the structured-output schema.
const schemaBlock = "{\n" +
	"  \"title\": \"string\",\n" +
	"  \"date\": \"string\",\n" +
	"  \"location\": \"string\",\n" +
	"  \"tags\": [\"string\"],\n" +
	"  \"body_markdown\": \"string (no front matter, no top-level title)\",\n" +
	"  \"capture_info\": {\"captured_at\": \"string\", \"location\": \"string\"}\n" +
	"}\n"

// BuildPrompt assembles the drafting prompt and returns it with the token
// budget for the requested length. retry adds the too-short admonition for
// a second pass.
func BuildPrompt(p models.Parameters, photoCount int, photoContext string, minChars int, retry bool) (string, int) {
	maxTokens, lengthHint := LengthConfig(p.Length)

	var b strings.Builder
	b.WriteString("You are drafting a blog post based on photo uploads.\n")
	fmt.Fprintf(&b, "Photo count: %d.\n", photoCount)
	b.WriteString("Photos are provided as image inputs.\n")
	b.WriteString(languageHint(p.Language) + "\n")
	fmt.Fprintf(&b, "Tone: %s.\n", toneLabel(p.Tone))
	fmt.Fprintf(&b, "Length: %s.\n", lengthHint)
	fmt.Fprintf(&b, "Privacy: %s\n", privacyGuideline(p.PrivacyLevel))
	b.WriteString("Do not invent specific camera, time, or location details. If unknown, use 'unknown' or 'unspecified'.\n")
	b.WriteString("Return JSON only, without code fences.\n")
	fmt.Fprintf(&b, "body_markdown must be at least %d characters.\n", minChars)
	b.WriteString("JSON schema:\n")
	b.WriteString(schemaBlock)
	fmt.Fprintf(&b, "User instruction: %s\n", orNone(p.Instruction))
	if retry {
		fmt.Fprintf(&b, "\nThe previous output was too short or incomplete. Return JSON with body_markdown at least %d characters.\n", minChars)
	}
	if photoContext != "" {
		fmt.Fprintf(&b, "\nPhoto details:\n%s\n", photoContext)
	}
	return b.String(), maxTokens
}

// BuildExpandPrompt assembles the prompt for growing an existing draft that
// came back under the minimum length.
func BuildExpandPrompt(p models.Parameters, draft *models.ArticleBody, minChars int) (string, int) {
	maxTokens, _ := LengthConfig(p.Length)
	current, _ := json.Marshal(draft)

	var b strings.Builder
	b.WriteString("You are improving an existing blog draft.\n")
	b.WriteString("Photos are provided as image inputs.\n")
	b.WriteString(languageHint(p.Language) + "\n")
	fmt.Fprintf(&b, "Tone: %s.\n", toneLabel(p.Tone))
	fmt.Fprintf(&b, "Privacy: %s\n", privacyGuideline(p.PrivacyLevel))
	fmt.Fprintf(&b, "Expand body_markdown to at least %d characters.\n", minChars)
	b.WriteString("Keep title/date/location/tags and capture_info consistent unless you need to add detail.\n")
	b.WriteString("Return JSON only, without code fences, using the same schema:\n")
	b.WriteString(schemaBlock)
	fmt.Fprintf(&b, "User instruction: %s\n", orNone(p.Instruction))
	fmt.Fprintf(&b, "Current draft JSON:\n%s\n", current)
	return b.String(), maxTokens
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none"
	}
	return s
}
