package api

import "context"

// TranscribeData keeps structure for transcribe method
type TranscribeData struct {
	Audio []byte
	Mime  string
	// StyleContext is an optional free text hint derived from recent corrections
	StyleContext string
}

// Transcriber provides transcription of one audio payload
type Transcriber interface {
	Transcribe(ctx context.Context, data *TranscribeData) (string, error)
}
