package domain

import "time"

// SourceType identifies the kind of content a document carries.
// It selects which extractor processes the document during ingestion.
type SourceType string

const (
	// SourceTypeAudio is a recorded audio file requiring transcription.
	SourceTypeAudio SourceType = "audio"
	// SourceTypePDF is a PDF file with page-oriented text.
	SourceTypePDF SourceType = "pdf"
	// SourceTypeMarkdown is markdown text with structural headings.
	SourceTypeMarkdown SourceType = "markdown"
	// SourceTypeText is plain text.
	SourceTypeText SourceType = "text"
	// SourceTypeWeb is a web page; extraction degrades to metadata only.
	SourceTypeWeb SourceType = "web"
	// SourceTypeImage is an image; extraction degrades to metadata only.
	SourceTypeImage SourceType = "image"
)

// Valid reports whether the source type is one of the known values.
func (t SourceType) Valid() bool {
	switch t {
	case SourceTypeAudio, SourceTypePDF, SourceTypeMarkdown,
		SourceTypeText, SourceTypeWeb, SourceTypeImage:
		return true
	}
	return false
}

// Status tracks ingestion progress for jobs and, by projection, documents.
type Status string

const (
	// StatusPending means the work has been registered but not started.
	StatusPending Status = "pending"
	// StatusProcessing means a worker has claimed the work.
	StatusProcessing Status = "processing"
	// StatusCompleted means all chunks are durably persisted. Terminal.
	StatusCompleted Status = "completed"
	// StatusFailed means processing stopped with an unrecoverable error.
	StatusFailed Status = "failed"
)

// User is the tenant boundary. Every document, job and chunk belongs to
// exactly one user, and every query and index is scoped by the user ID.
type User struct {
	// ID is the unique identifier for the user.
	ID string

	// CreatedAt is when the user was created.
	CreatedAt time.Time
}

// Document represents a registered source of knowledge.
// Its Status is a projection of the most recent Job and is written in the
// same store operation that transitions the job, never computed elsewhere.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// UserID is the owning tenant.
	UserID string

	// SourceType selects the extractor used during ingestion.
	SourceType SourceType

	// Title is the human-readable title (usually the filename).
	Title string

	// SourceURI is where the raw bytes live (file path, URL, object URI).
	SourceURI string

	// IngestedAt is when the document was registered.
	IngestedAt time.Time

	// ContentCreatedAt is when the underlying content was created, if known.
	ContentCreatedAt *time.Time

	// Status mirrors the latest job's status.
	Status Status
}
