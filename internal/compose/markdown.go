package compose

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/snapdraft/photoblog-backend/internal/models"
)

// parseMarkdownArticle recovers an article from a front-matter markdown
// document, the shape models tend to produce when they ignore the JSON
// instruction. Returns nil when no body text survives.
func parseMarkdownArticle(text string, fb Fallback) *models.ArticleBody {
	candidate := strings.TrimSpace(text)
	if candidate == "" {
		return nil
	}

	lines := strings.Split(candidate, "\n")
	front := map[string]string{}
	bodyLines := lines

	if strings.TrimSpace(lines[0]) == "---" {
		for i := 1; i < len(lines); i++ {
			if strings.TrimSpace(lines[i]) == "---" {
				for _, line := range lines[1:i] {
					key, value, ok := strings.Cut(line, ":")
					if !ok {
						continue
					}
					front[strings.ToLower(strings.TrimSpace(key))] = strings.Trim(strings.TrimSpace(value), `"`)
				}
				bodyLines = lines[i+1:]
				break
			}
		}
	}

	body := strings.TrimSpace(strings.Join(bodyLines, "\n"))
	if body == "" {
		return nil
	}

	title := front["title"]
	if title == "" {
		for _, line := range bodyLines {
			if strings.HasPrefix(line, "# ") {
				title = strings.TrimSpace(line[2:])
				break
			}
		}
	}
	if title == "" {
		title = fb.Title
	}

	body = stripTopHeading(body)
	body, capture := splitCaptureInfo(body)
	if body == "" {
		return nil
	}

	return &models.ArticleBody{
		Title:        title,
		Date:         valueOr(front["date"], fb.Date),
		Location:     valueOr(front["location"], fb.Location),
		Tags:         parseTagsValue(front["tags"]),
		BodyMarkdown: body,
		CaptureInfo:  capture,
	}
}

// stripTopHeading drops a leading "# Title" line so the stored body never
// duplicates the rendered title.
func stripTopHeading(body string) string {
	lines := strings.Split(strings.TrimLeft(body, " \t\n"), "\n")
	if len(lines) == 0 {
		return strings.TrimSpace(body)
	}
	if strings.HasPrefix(lines[0], "# ") {
		lines = lines[1:]
		if len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
			lines = lines[1:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// splitCaptureInfo separates a trailing "## Capture info" section from the
// body and parses its captured_at/location bullets.
func splitCaptureInfo(body string) (string, models.CaptureInfo) {
	info := models.CaptureInfo{CapturedAt: Unknown, Location: Unspecified}
	lines := strings.Split(body, "\n")
	captureIdx := -1
	for i, line := range lines {
		if strings.EqualFold(strings.TrimSpace(line), "## capture info") {
			captureIdx = i
			break
		}
	}
	if captureIdx == -1 {
		return strings.TrimSpace(body), info
	}

	for _, line := range lines[captureIdx+1:] {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "## ") || strings.HasPrefix(stripped, "# ") {
			break
		}
		stripped = strings.TrimSpace(strings.TrimPrefix(stripped, "-"))
		key, value, ok := strings.Cut(stripped, ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "captured_at":
			info.CapturedAt = valueOr(value, Unknown)
		case "location":
			info.Location = valueOr(value, Unspecified)
		}
	}
	return strings.TrimSpace(strings.Join(lines[:captureIdx], "\n")), info
}

// parseTagsValue parses a front-matter tags value, accepting JSON arrays
// and comma-separated lists.
func parseTagsValue(value string) []string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return []string{}
	}
	if strings.HasPrefix(raw, "[") && strings.HasSuffix(raw, "]") {
		var parsed []any
		if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
			return normalizeTags(parsed)
		}
		raw = strings.TrimSpace(raw[1 : len(raw)-1])
		if raw == "" {
			return []string{}
		}
	}
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			tags = append(tags, part)
		}
	}
	if tags == nil {
		tags = []string{}
	}
	return tags
}

// RenderMarkdown rebuilds the stored front-matter document from a
// structured article body.
func RenderMarkdown(body *models.ArticleBody) string {
	tags := "[]"
	if len(body.Tags) > 0 {
		if b, err := json.Marshal(body.Tags); err == nil {
			tags = string(b)
		}
	}
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", body.Title)
	fmt.Fprintf(&b, "date: %s\n", body.Date)
	fmt.Fprintf(&b, "location: %s\n", body.Location)
	fmt.Fprintf(&b, "tags: %s\n", tags)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", body.Title)
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(body.BodyMarkdown))
	b.WriteString("## Capture info\n")
	fmt.Fprintf(&b, "- captured_at: %s\n", valueOr(body.CaptureInfo.CapturedAt, Unknown))
	fmt.Fprintf(&b, "- location: %s\n", valueOr(body.CaptureInfo.Location, Unspecified))
	return b.String()
}

func valueOr(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
