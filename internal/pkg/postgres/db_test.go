package postgres

import (
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestDecideFinalize(t *testing.T) {
	tests := []struct {
		name      string
		jobStatus string
		original  string
		final     string
		want      finalizeAction
	}{
		{name: "changed text learns", jobStatus: "PENDING", original: "dosage", final: "dose",
			want: finalizeUpdateAndLearn},
		{name: "assigned changed text learns", jobStatus: "ASSIGNED", original: "dosage", final: "dose",
			want: finalizeUpdateAndLearn},
		{name: "unchanged text no entry", jobStatus: "ASSIGNED", original: "dose", final: "dose",
			want: finalizeUpdate},
		{name: "repeat finalize is no-op", jobStatus: "FINALIZED", original: "dosage", final: "dose",
			want: finalizeSkip},
		{name: "repeat finalize same text is no-op", jobStatus: "FINALIZED", original: "dose", final: "dose",
			want: finalizeSkip},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := decideFinalize(tt.jobStatus, tt.original, tt.final); got != tt.want {
				t.Errorf("decideFinalize() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMakeJobNumber(t *testing.T) {
	assert.Equal(t, "20260831-001", makeJobNumber("20260831", 1))
	assert.Equal(t, "20260831-042", makeJobNumber("20260831", 42))
	assert.Equal(t, "20260831-1000", makeJobNumber("20260831", 1000))
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: "23505"}))
	assert.True(t, isUniqueViolation(fmt.Errorf("tx: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: "23503"}))
	assert.False(t, isUniqueViolation(fmt.Errorf("olia")))
	assert.False(t, isUniqueViolation(nil))
}
