package compose

import (
	"fmt"
	"strings"

	"github.com/snapdraft/photoblog-backend/internal/models"
)

// PhotoFacts is the prompt-visible view of one upload. Only fields the
// pipeline actually derived are set; absent facts are omitted from the
// context rather than filled with guesses.
type PhotoFacts struct {
	UploadID   string
	FileRef    string
	CapturedAt string
	UploadedAt string
	Camera     string
	Location   string // already privacy-redacted
	Type       string
	SizeKB     int64
}

// FactsFor builds the prompt facts for one upload, applying the privacy
// level to the resolved place.
func FactsFor(u *models.Upload, md *models.PhotoMetadata, privacyLevel string) PhotoFacts {
	f := PhotoFacts{UploadID: md.UploadID}
	if md.ObjectKey != "" {
		f.FileRef = md.ObjectKey
	} else if u != nil {
		f.FileRef = u.ImageURI
	}
	f.CapturedAt = md.CapturedAt
	if u != nil {
		f.UploadedAt = u.CreatedAt
	}
	f.Camera = strings.Join(nonDefault(md.CameraMake, md.CameraModel), " ")
	f.Location = RedactPlace(md.Geocode, privacyLevel)
	f.Type = md.ContentType
	f.SizeKB = md.SizeKB
	return f
}

// ContextLines renders numbered per-photo fact lines for the prompt.
func ContextLines(facts []PhotoFacts) string {
	var lines []string
	for i, f := range facts {
		parts := []string{fmt.Sprintf("id=%s", f.UploadID)}
		add := func(name, v string) {
			if strings.TrimSpace(v) != "" {
				parts = append(parts, fmt.Sprintf("%s=%s", name, v))
			}
		}
		add("file", f.FileRef)
		add("captured_at", f.CapturedAt)
		add("uploaded_at", f.UploadedAt)
		add("camera", f.Camera)
		add("location", f.Location)
		add("type", f.Type)
		if f.SizeKB > 0 {
			parts = append(parts, fmt.Sprintf("size_kb=%d", f.SizeKB))
		}
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, strings.Join(parts, "; ")))
	}
	return strings.Join(lines, "\n")
}

// nonDefault drops empty and placeholder components so the prompt never
// carries a literal "unknown" camera.
func nonDefault(values ...string) []string {
	var kept []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" && v != Unknown {
			kept = append(kept, v)
		}
	}
	return kept
}
