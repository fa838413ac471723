package transcriber

import (
	tapi "github.com/dictamed/scriba/internal/pkg/transcriber/api"
)

// StaticProvider always returns the same configured backend.
// Used when no service discovery is available
type StaticProvider struct {
	tr tapi.Transcriber
}

// NewStaticProvider wraps one transcriber
func NewStaticProvider(tr tapi.Transcriber) *StaticProvider {
	return &StaticProvider{tr: tr}
}

// Get returns the configured transcriber
func (p *StaticProvider) Get(srv string, allowNew bool) (tapi.Transcriber, string, error) {
	return p.tr, "default", nil
}
