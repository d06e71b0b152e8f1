package compose_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/snapdraft/photoblog-backend/internal/compose"
	"github.com/snapdraft/photoblog-backend/internal/models"
)

func TestApplyDefaults(t *testing.T) {
	p := models.Parameters{}
	compose.ApplyDefaults(&p)

	assert.Equal(t, "polite", p.Tone)
	assert.Equal(t, "medium", p.Length)
	assert.Equal(t, "ja", p.Language)
	assert.Equal(t, "area", p.PrivacyLevel)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	p := models.Parameters{Tone: "casual", Length: "long", Language: "en", PrivacyLevel: "exact"}
	compose.ApplyDefaults(&p)

	assert.Equal(t, "casual", p.Tone)
	assert.Equal(t, "long", p.Length)
	assert.Equal(t, "en", p.Language)
	assert.Equal(t, "exact", p.PrivacyLevel)
}

func TestLengthConfig(t *testing.T) {
	short, _ := compose.LengthConfig("short")
	medium, _ := compose.LengthConfig("medium")
	long, _ := compose.LengthConfig("long")

	assert.Equal(t, 8192, short)
	assert.Equal(t, 16384, medium)
	assert.Equal(t, 32768, long)

	unknown, _ := compose.LengthConfig("whatever")
	assert.Equal(t, medium, unknown)
}

func TestMinChars(t *testing.T) {
	assert.Equal(t, 300, compose.MinChars("short"))
	assert.Equal(t, 600, compose.MinChars("medium"))
	assert.Equal(t, 1200, compose.MinChars("long"))
	assert.Equal(t, 600, compose.MinChars(""))
}

func TestBuildPrompt(t *testing.T) {
	p := models.Parameters{Tone: "casual", Length: "short", Language: "en", PrivacyLevel: "city", Instruction: "mention the weather"}

	prompt, maxTokens := compose.BuildPrompt(p, 2, "1. id=u1; camera=Canon", 300, false)

	assert.Equal(t, 8192, maxTokens)
	assert.Contains(t, prompt, "Photo count: 2.")
	assert.Contains(t, prompt, "Write in English.")
	assert.Contains(t, prompt, "Tone: casual.")
	assert.Contains(t, prompt, "Limit location to city-level detail.")
	assert.Contains(t, prompt, "at least 300 characters")
	assert.Contains(t, prompt, "User instruction: mention the weather")
	assert.Contains(t, prompt, "1. id=u1; camera=Canon")
	assert.NotContains(t, prompt, "too short")
}

func TestBuildPrompt_Retry(t *testing.T) {
	p := models.Parameters{Length: "medium", Language: "ja"}

	prompt, _ := compose.BuildPrompt(p, 1, "", 600, true)

	assert.Contains(t, prompt, "Write in Japanese.")
	assert.Contains(t, prompt, "too short or incomplete")
	assert.Contains(t, prompt, "User instruction: none")
}

func TestBuildExpandPrompt(t *testing.T) {
	p := models.Parameters{Length: "long", Language: "en"}
	draft := &models.ArticleBody{Title: "T", BodyMarkdown: "Short body."}

	prompt, maxTokens := compose.BuildExpandPrompt(p, draft, 1200)

	assert.Equal(t, 32768, maxTokens)
	assert.Contains(t, prompt, "Expand body_markdown to at least 1200 characters.")
	assert.Contains(t, prompt, "Short body.")
}

func TestContextLines(t *testing.T) {
	lat, lng := 35.0, 139.0
	md := &models.PhotoMetadata{
		UploadID:    "u1",
		ObjectKey:   "uploads/u1/photo.jpg",
		CameraMake:  "Canon",
		CameraModel: "unknown",
		GPSLat:      &lat,
		GPSLng:      &lng,
		Geocode:     &models.Place{Region: "Kanagawa", Country: "Japan"},
		ContentType: "image/jpeg",
		SizeKB:      2048,
	}
	upload := &models.Upload{UploadID: "u1", CreatedAt: "2026-08-01T00:00:00Z"}

	facts := compose.FactsFor(upload, md, "area")
	line := compose.ContextLines([]compose.PhotoFacts{facts})

	assert.True(t, strings.HasPrefix(line, "1. id=u1"))
	assert.Contains(t, line, "file=uploads/u1/photo.jpg")
	assert.Contains(t, line, "camera=Canon")
	assert.NotContains(t, line, "unknown")
	assert.Contains(t, line, "location=Kanagawa, Japan")
	assert.Contains(t, line, "size_kb=2048")
}
