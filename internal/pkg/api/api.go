package api

// form/query parameter names of the upload service
const (
	// PrmFile is audio file form param
	PrmFile = "file"
	// PrmOwnerID is optional explicit owner - admin may upload on behalf of a doctor
	PrmOwnerID = "ownerId"
	// PrmOwnerName is owner display name
	PrmOwnerName = "ownerName"
	// PrmDuration is optional audio duration in seconds
	PrmDuration = "duration"
)

// ItemView is queue item representation returned to clients
type ItemView struct {
	ID         string `json:"id"`
	FileName   string `json:"fileName"`
	Size       int64  `json:"size"`
	Duration   int    `json:"duration,omitempty"`
	OwnerID    string `json:"ownerId,omitempty"`
	Status     string `json:"status"`
	Progress   int    `json:"progress"`
	Transcript string `json:"transcript,omitempty"`
	Error      string `json:"error,omitempty"`
}

// JobView is job record representation returned to clients
type JobView struct {
	ID         string `json:"id"`
	JobNumber  string `json:"jobNumber"`
	OwnerID    string `json:"ownerId"`
	OwnerName  string `json:"ownerName,omitempty"`
	FileName   string `json:"fileName"`
	Uploaded   string `json:"uploaded"`
	Duration   int    `json:"duration"`
	CharCount  int    `json:"charCount"`
	WordCount  int    `json:"wordCount"`
	Status     string `json:"status"`
	AssignedTo string `json:"assignedTo,omitempty"`
	FinalText  string `json:"finalText,omitempty"`
}
