package utils

import (
	"errors"
	"fmt"
)

// ErrUnauthenticated indicates the transcription service rejected our credentials.
// The orchestrator maps it to a specific user facing message
var ErrUnauthenticated = errors.New("transcription service authentication failed")

// ErrSizeLimit indicates a too large payload
// detected locally before any remote call is made
type ErrSizeLimit struct {
	Size  int64
	Limit int64
}

// NewErrSizeLimit creates new error
func NewErrSizeLimit(size, limit int64) error {
	return &ErrSizeLimit{Size: size, Limit: limit}
}

func (e *ErrSizeLimit) Error() string {
	return fmt.Sprintf("audio size %d exceeds limit %d", e.Size, e.Limit)
}

// IsSizeLimit tests if err is size limit failure
func IsSizeLimit(err error) bool {
	var e *ErrSizeLimit
	return errors.As(err, &e)
}

// IsUnauthenticated tests if err is authentication failure
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}
