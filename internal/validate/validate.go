// Package validate provides functions to validate uploads and style parameters.
package validate

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var imageExts = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true, ".heic": true,
}

// FilenameImage checks that the filename has a supported image extension
// (case insensitive). An empty filename is allowed; the handler substitutes
// a default.
func FilenameImage(fn string) error {
	if strings.TrimSpace(fn) == "" {
		return nil
	}
	if !imageExts[strings.ToLower(filepath.Ext(fn))] {
		return errors.New("only jpg, jpeg, png, webp or heic files allowed")
	}
	return nil
}

// ContentTypeImage checks that the Content-Type is an image type.
func ContentTypeImage(ct string) error {
	if !strings.HasPrefix(strings.TrimSpace(strings.ToLower(ct)), "image/") {
		return errors.New("Content-Type must be image/*")
	}
	return nil
}

// UploadIDsOK checks that there are 1 to 10 non-blank upload ids.
func UploadIDsOK(ids []string) error {
	if len(ids) == 0 || len(ids) > 10 {
		return errors.New("provide 1..10 upload_ids")
	}
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return errors.New("blank upload_id")
		}
	}
	return nil
}

// enum checks a value against the allowed set, tolerating empty (the
// handler applies the default before enqueueing).
func enum(name, v string, allowed ...string) error {
	if v == "" {
		return nil
	}
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("invalid %s: %s", name, v)
}

// ToneOK checks the tone parameter.
func ToneOK(v string) error { return enum("tone", v, "polite", "casual", "formal") }

// LengthOK checks the length parameter.
func LengthOK(v string) error { return enum("length", v, "short", "medium", "long") }

// LanguageOK checks the language parameter.
func LanguageOK(v string) error { return enum("language", v, "ja", "en") }

// PrivacyLevelOK checks the privacy level parameter.
func PrivacyLevelOK(v string) error { return enum("privacy_level", v, "exact", "city", "area") }

// InstructionOK bounds the free-form instruction so it cannot dominate the prompt.
func InstructionOK(v string) error {
	if len(v) > 2000 {
		return errors.New("instruction too long (max 2000)")
	}
	return nil
}
