package mocks

import (
	"context"
	"io"
	"time"

	"github.com/airenas/async-api/pkg/messages"
	"github.com/dictamed/scriba/internal/pkg/persistence"
	tapi "github.com/dictamed/scriba/internal/pkg/transcriber/api"
	"github.com/stretchr/testify/mock"
)

// Filer is minio mock
type Filer struct{ mock.Mock }

func (m *Filer) SaveFile(ctx context.Context, name string, r io.Reader, size int64) error {
	args := m.Called(ctx, name, r, size)
	return args.Error(0)
}

func (m *Filer) LoadFile(ctx context.Context, fileName string) (io.ReadSeekCloser, error) {
	args := m.Called(ctx, fileName)
	return to[io.ReadSeekCloser](args.Get(0)), args.Error(1)
}

// DB is postgres DB mock
type DB struct{ mock.Mock }

func (m *DB) SaveJob(ctx context.Context, job *persistence.JobRecord) (*persistence.JobRecord, error) {
	args := m.Called(ctx, job)
	return to[*persistence.JobRecord](args.Get(0)), args.Error(1)
}

func (m *DB) LoadJob(ctx context.Context, id string) (*persistence.JobRecord, error) {
	args := m.Called(ctx, id)
	return to[*persistence.JobRecord](args.Get(0)), args.Error(1)
}

func (m *DB) LoadJobs(ctx context.Context, ownerID string) ([]*persistence.JobRecord, error) {
	args := m.Called(ctx, ownerID)
	return to[[]*persistence.JobRecord](args.Get(0)), args.Error(1)
}

func (m *DB) AssignJob(ctx context.Context, id, assignee string) error {
	args := m.Called(ctx, id, assignee)
	return args.Error(0)
}

func (m *DB) FinalizeJob(ctx context.Context, id, finalText string) error {
	args := m.Called(ctx, id, finalText)
	return args.Error(0)
}

func (m *DB) LearningContext(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}

func (m *DB) LoadPendingInvoiceExtracts(ctx context.Context, ownerID string) ([]*persistence.InvoiceExtract, error) {
	args := m.Called(ctx, ownerID)
	return to[[]*persistence.InvoiceExtract](args.Get(0)), args.Error(1)
}

func (m *DB) MarkInvoiceExported(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *DB) DeleteOldJobs(ctx context.Context, olderThan time.Time) (int, error) {
	args := m.Called(ctx, olderThan)
	return args.Int(0), args.Error(1)
}

func (m *DB) LoadOwnerEmail(ctx context.Context, ownerID string) (string, error) {
	args := m.Called(ctx, ownerID)
	return args.String(0), args.Error(1)
}

// Sender is postgres queue mock
type Sender struct{ mock.Mock }

func (m *Sender) SendMessage(ctx context.Context, msg messages.Message, queue string) error {
	args := m.Called(ctx, msg, queue)
	return args.Error(0)
}

// Transcriber is transcription client mock
type Transcriber struct{ mock.Mock }

func (m *Transcriber) Transcribe(ctx context.Context, data *tapi.TranscribeData) (string, error) {
	args := m.Called(ctx, data)
	return args.String(0), args.Error(1)
}

// TranscriberPr is transcriber provider mock
type TranscriberPr struct{ mock.Mock }

func (m *TranscriberPr) Get(srv string, allowNew bool) (tapi.Transcriber, string, error) {
	args := m.Called(srv, allowNew)
	return to[tapi.Transcriber](args.Get(0)), args.String(1), args.Error(2)
}

// Converter is audio format converter mock
type Converter struct{ mock.Mock }

func (m *Converter) Convert(ctx context.Context, fileName string, onProgress func(int)) error {
	args := m.Called(ctx, fileName, onProgress)
	return args.Error(0)
}

// Merger is document merge service mock
type Merger struct{ mock.Mock }

func (m *Merger) MergeTemplate(ctx context.Context, template string, transcript string, fields map[string]string) (string, error) {
	args := m.Called(ctx, template, transcript, fields)
	return args.String(0), args.Error(1)
}

func to[T interface{}](val interface{}) T {
	if val == nil {
		var res T
		return res
	}
	return val.(T)
}
