package compose

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/snapdraft/photoblog-backend/internal/models"
)

// ErrUnusable is returned when no article body can be recovered from the
// model output. The caller treats it as retryable: redelivery gets another
// drafting attempt.
var ErrUnusable = errors.New("no usable article in model output")

// Fallback supplies the values substituted for fields the model output is
// missing.
type Fallback struct {
	Title    string
	Date     string
	Location string
}

// ParseArticle turns raw model output into a normalized article body. It
// prefers strict JSON (with or without code fences), falls back to parsing
// a front-matter markdown document, and fails with ErrUnusable when neither
// yields a non-empty body. The returned warning is non-empty when the
// fallback path was taken.
func ParseArticle(text string, fb Fallback) (*models.ArticleBody, string, error) {
	if data := extractJSON(text); data != nil {
		body := normalize(data, fb)
		if body.BodyMarkdown != "" {
			return body, "", nil
		}
	}
	if body := parseMarkdownArticle(text, fb); body != nil {
		return body, "model output was not valid JSON; parsed as markdown", nil
	}
	return nil, "", ErrUnusable
}

// extractJSON pulls a JSON object out of model text, tolerating code fences
// and surrounding prose.
func extractJSON(text string) map[string]any {
	candidate := strings.TrimSpace(text)
	if candidate == "" {
		return nil
	}
	if strings.HasPrefix(candidate, "```") {
		candidate = strings.Trim(candidate, "`")
		candidate = strings.TrimSpace(strings.Replace(candidate, "json", "", 1))
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(candidate), &data); err == nil {
		return data
	}
	start := strings.Index(candidate, "{")
	end := strings.LastIndex(candidate, "}")
	if start == -1 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(candidate[start:end+1]), &data); err != nil {
		return nil
	}
	return data
}

// normalize maps loose JSON onto an ArticleBody, substituting fallbacks and
// the unknown/unspecified placeholders.
func normalize(data map[string]any, fb Fallback) *models.ArticleBody {
	body := &models.ArticleBody{
		Title:        textOr(data["title"], fb.Title),
		Date:         textOr(data["date"], fb.Date),
		Location:     textOr(data["location"], fb.Location),
		Tags:         normalizeTags(data["tags"]),
		BodyMarkdown: textOr(data["body_markdown"], ""),
	}
	capture, _ := data["capture_info"].(map[string]any)
	body.CaptureInfo = models.CaptureInfo{
		CapturedAt: textOr(capture["captured_at"], Unknown),
		Location:   textOr(capture["location"], Unspecified),
	}
	return body
}

// asText returns the trimmed string value of v, or "".
func asText(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func textOr(v any, def string) string {
	if s := asText(v); s != "" {
		return s
	}
	return def
}

func normalizeTags(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return []string{}
	}
	tags := make([]string, 0, len(list))
	for _, item := range list {
		if s := asText(item); s != "" {
			tags = append(tags, s)
		}
	}
	return tags
}
