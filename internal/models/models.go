// Package models defines the data models used in the application.
package models

// UploadStatus represents the lifecycle state of an uploaded photo.
type UploadStatus string

// Possible values for UploadStatus
const (
	UploadCreated        UploadStatus = "CREATED"
	UploadComplete       UploadStatus = "UPLOAD_COMPLETE"
	UploadMetadataReady  UploadStatus = "METADATA_READY"
	UploadMetadataFailed UploadStatus = "METADATA_FAILED"
)

// RunStatus represents the state of one article generation attempt.
type RunStatus string

// Possible values for RunStatus
const (
	RunQueued    RunStatus = "QUEUED"
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
)

// Terminal reports whether the run has reached a final state.
func (s RunStatus) Terminal() bool {
	return s == RunSucceeded || s == RunFailed
}

// ArticleStatus represents the publication state of an article record.
type ArticleStatus string

// Possible values for ArticleStatus
const (
	ArticleDraftPending ArticleStatus = "draft_pending"
	ArticleDraft        ArticleStatus = "draft"
)

// Upload tracks a single user-submitted photo through the pipeline.
type Upload struct {
	UploadID    string       `dynamodbav:"upload_id" json:"upload_id"`
	OwnerID     string       `dynamodbav:"owner_id" json:"owner_id"`
	ObjectKey   string       `dynamodbav:"object_key" json:"object_key"`
	ImageURI    string       `dynamodbav:"original_image_uri" json:"original_image_uri"`
	ContentType string       `dynamodbav:"content_type" json:"content_type"`
	Status      UploadStatus `dynamodbav:"status" json:"status"`
	CreatedAt   string       `dynamodbav:"created_at" json:"created_at"` // ISO8601
	UpdatedAt   string       `dynamodbav:"updated_at" json:"updated_at"`
	// Set only when Status is METADATA_FAILED.
	FailureReason string `dynamodbav:"failure_reason,omitempty" json:"failure_reason,omitempty"`
}

// Place is a resolved reverse-geocode result. All fields are optional.
type Place struct {
	Country string `dynamodbav:"country,omitempty" json:"country,omitempty"`
	Region  string `dynamodbav:"region,omitempty" json:"region,omitempty"`
	City    string `dynamodbav:"city,omitempty" json:"city,omitempty"`
	Label   string `dynamodbav:"label,omitempty" json:"label,omitempty"`
}

// Empty reports whether no component of the place is set.
func (p Place) Empty() bool {
	return p.Country == "" && p.Region == "" && p.City == "" && p.Label == ""
}

// PhotoMetadata holds derived attributes for one upload, keyed 1:1 by
// upload_id. The extractor overwrites the whole record on every delivery,
// so re-processing a message yields an identical item.
type PhotoMetadata struct {
	UploadID     string   `dynamodbav:"upload_id" json:"upload_id"`
	ObjectBucket string   `dynamodbav:"object_bucket,omitempty" json:"object_bucket,omitempty"`
	ObjectKey    string   `dynamodbav:"object_key,omitempty" json:"object_key,omitempty"`
	ObjectURI    string   `dynamodbav:"s3_uri,omitempty" json:"s3_uri,omitempty"`
	CapturedAt   string   `dynamodbav:"datetime_original,omitempty" json:"datetime_original,omitempty"`
	UploadedAt   string   `dynamodbav:"uploaded_at,omitempty" json:"uploaded_at,omitempty"`
	CameraMake   string   `dynamodbav:"camera_make" json:"camera_make"`
	CameraModel  string   `dynamodbav:"camera_model" json:"camera_model"`
	GPSLat       *float64 `dynamodbav:"gps_lat,omitempty" json:"gps_lat,omitempty"`
	GPSLng       *float64 `dynamodbav:"gps_lng,omitempty" json:"gps_lng,omitempty"`
	Geocode      *Place   `dynamodbav:"reverse_geocode,omitempty" json:"reverse_geocode,omitempty"`
	ContentType  string   `dynamodbav:"content_type,omitempty" json:"content_type,omitempty"`
	SizeKB       int64    `dynamodbav:"size_kb" json:"size_kb"`
	UpdatedAt    string   `dynamodbav:"updated_at" json:"updated_at"`
}

// CaptureInfo is the capture summary attached to a generated article.
type CaptureInfo struct {
	CapturedAt string `dynamodbav:"captured_at" json:"captured_at"`
	Location   string `dynamodbav:"location" json:"location"`
}

// ArticleBody is the structured draft produced by the drafting collaborator.
type ArticleBody struct {
	Title        string      `dynamodbav:"title" json:"title"`
	Date         string      `dynamodbav:"date" json:"date"`
	Location     string      `dynamodbav:"location" json:"location"`
	Tags         []string    `dynamodbav:"tags" json:"tags"`
	BodyMarkdown string      `dynamodbav:"body_markdown" json:"body_markdown"`
	CaptureInfo  CaptureInfo `dynamodbav:"capture_info" json:"capture_info"`
}

// Article is a blog draft derived from one or more uploads. Every
// regeneration overwrites the body fields in place; history lives in the
// generation-run records.
type Article struct {
	ArticleID    string        `dynamodbav:"article_id" json:"article_id"`
	OwnerID      string        `dynamodbav:"owner_id" json:"owner_id"`
	Title        string        `dynamodbav:"title,omitempty" json:"title,omitempty"`
	Status       ArticleStatus `dynamodbav:"status" json:"status"`
	CreatedAt    string        `dynamodbav:"created_at" json:"created_at"`
	UpdatedAt    string        `dynamodbav:"updated_at" json:"updated_at"`
	LatestRunID  string        `dynamodbav:"latest_run_id,omitempty" json:"latest_run_id,omitempty"`
	BodyMarkdown string        `dynamodbav:"body_markdown,omitempty" json:"body_markdown,omitempty"`
	BodyJSON     *ArticleBody  `dynamodbav:"body_json,omitempty" json:"body_json,omitempty"`
	UploadIDs    []string      `dynamodbav:"derived_from_upload_ids" json:"derived_from_upload_ids"`
	PrivacyLevel string        `dynamodbav:"location_display_level" json:"location_display_level"`
}

// Parameters are the caller-supplied style parameters for a generation run.
type Parameters struct {
	Tone         string `dynamodbav:"tone" json:"tone"`
	Length       string `dynamodbav:"length" json:"length"`
	Language     string `dynamodbav:"language" json:"language"`
	PrivacyLevel string `dynamodbav:"privacy_level" json:"privacy_level"`
	Instruction  string `dynamodbav:"instruction" json:"instruction"`
}

// GenerationRun records one generate/regenerate attempt. Never mutated
// after reaching a terminal status except to record that status itself.
type GenerationRun struct {
	RunID        string     `dynamodbav:"run_id" json:"run_id"`
	ArticleID    string     `dynamodbav:"article_id" json:"article_id"`
	UploadIDs    []string   `dynamodbav:"upload_ids" json:"upload_ids"`
	Params       Parameters `dynamodbav:"parameters" json:"parameters"`
	Status       RunStatus  `dynamodbav:"status" json:"status"`
	CreatedAt    string     `dynamodbav:"created_at" json:"created_at"`
	CompletedAt  string     `dynamodbav:"completed_at,omitempty" json:"completed_at,omitempty"`
	Model        string     `dynamodbav:"model,omitempty" json:"model,omitempty"`
	ErrorMessage string     `dynamodbav:"error_message,omitempty" json:"error_message,omitempty"`
}

// GPSPoint is an optional location hint riding in an extraction message.
type GPSPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ExtractionMessage is the payload of the metadata-extraction queue.
// Camera and capture-time hints are optional and come from the upload
// client; nothing is parsed out of the image bytes themselves.
type ExtractionMessage struct {
	UploadID    string    `json:"upload_id"`
	Bucket      string    `json:"bucket"`
	Key         string    `json:"key"`
	GPS         *GPSPoint `json:"gps,omitempty"`
	CapturedAt  string    `json:"datetime_original,omitempty"`
	CameraMake  string    `json:"camera_make,omitempty"`
	CameraModel string    `json:"camera_model,omitempty"`
}

// GenerationMessage is the payload of the generation queue.
type GenerationMessage struct {
	RunID     string   `json:"run_id"`
	ArticleID string   `json:"article_id"`
	UploadIDs []string `json:"upload_ids,omitempty"`
	Parameters
}
