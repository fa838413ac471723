package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// proprietary dictation device containers requiring conversion before transcription
var convertExt = map[string]bool{".dss": true, ".ds2": true, ".dvf": true, ".msv": true, ".svd": true}

// NeedsConversion checks if the file requires the conversion stage
func NeedsConversion(fileName string) bool {
	return convertExt[strings.ToLower(filepath.Ext(fileName))]
}

// Converter prepares proprietary audio containers for transcription.
// The current implementation simulates the codec stage, progress reporting
// and completion are driven by an injectable wait func so the real backend
// can slot in without changing callers
type Converter struct {
	stepDelay time.Duration
	steps     int
	wait      func(ctx context.Context, d time.Duration) error
}

// NewConverter creates a converter
func NewConverter() *Converter {
	return &Converter{stepDelay: 150 * time.Millisecond, steps: 10, wait: sleepCtx}
}

// Convert drives the conversion of one file, reporting monotonic progress
// from 0 to 100 via onProgress. Fails only on unrecoverable format errors
func (c *Converter) Convert(ctx context.Context, fileName string, onProgress func(int)) error {
	if fileName == "" {
		return fmt.Errorf("no file name")
	}
	if !NeedsConversion(fileName) {
		return fmt.Errorf("no conversion for '%s'", filepath.Ext(fileName))
	}
	if onProgress != nil {
		onProgress(0)
	}
	for i := 1; i <= c.steps; i++ {
		if err := c.wait(ctx, c.stepDelay); err != nil {
			return err
		}
		if onProgress != nil {
			onProgress(i * 100 / c.steps)
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
