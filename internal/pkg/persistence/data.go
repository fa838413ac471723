package persistence

import (
	"database/sql"
	"time"
)

type (

	// JobRecord - durable record of a completed transcription,
	// decoupled from the transient batch item
	JobRecord struct {
		ID           string
		JobNumber    string
		OwnerID      string
		OwnerName    string
		FileName     string
		Uploaded     time.Time
		DurationSecs int
		CharCount    int
		WordCount    int
		Status       string
		AssignedTo   sql.NullString
		OriginalText string
		FinalText    string
	}

	// LearningEntry - a correction made at finalize time,
	// read in aggregate to bias future transcription prompts
	LearningEntry struct {
		ID        int64
		JobID     string
		Original  string
		Corrected string
		Created   time.Time
	}

	// InvoiceExtract - OCR extracted invoice fields waiting for export
	InvoiceExtract struct {
		ID      string
		OwnerID string
		Fields  map[string]string
		Status  string
		Created time.Time
	}
)
