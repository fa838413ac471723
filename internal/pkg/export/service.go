package export

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/dictamed/scriba/internal/pkg/messages"
	"github.com/dictamed/scriba/internal/pkg/persistence"
	"github.com/dictamed/scriba/internal/pkg/utils"
	"github.com/vgarvardt/gue/v5"
)

// DB provides job and invoice extract persistence
type DB interface {
	LoadJob(ctx context.Context, id string) (*persistence.JobRecord, error)
	LoadPendingInvoiceExtracts(ctx context.Context, ownerID string) ([]*persistence.InvoiceExtract, error)
	MarkInvoiceExported(ctx context.Context, id string) error
}

// Merger merges a transcript and invoice fields into a document
type Merger interface {
	MergeTemplate(ctx context.Context, template string, transcript string, fields map[string]string) (string, error)
}

// Filer saves files
type Filer interface {
	SaveFile(ctx context.Context, name string, r io.Reader, size int64) error
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	DB          DB
	Merger      Merger
	Filer       Filer
	Template    string
}

// StartWorkerService starts the event queue listener for export events.
// Returns channel for tracking when all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Msg("Starting listen for export messages")

	wm := gue.WorkMap{
		messages.Export: utils.CreateHandler(data, handleExport),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Export),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("scriba-export"),
	)
	if err != nil {
		return nil, fmt.Errorf("could not build gue workers pool: %w", err)
	}
	res := make(chan struct{}, 1)
	go func() {
		goapp.Log.Info().Msg("Starting workers")
		if err := pool.Run(ctx); err != nil {
			goapp.Log.Error().Err(err).Msg("pool error")
		}
		goapp.Log.Info().Msg("Pool workers finished")
		res <- struct{}{}
	}()
	return res, nil
}

// handleExport merges the transcript into the owner's pending invoice document.
// Export is best-effort, a failure never surfaces to the completed job
func handleExport(ctx context.Context, m *messages.JobMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Str("job", m.JobID).Msg("handling export")
	job, err := data.DB.LoadJob(ctx, m.JobID)
	if err != nil {
		goapp.Log.Warn().Err(err).Str("job", m.JobID).Msg("skip export, can't load job")
		return nil
	}
	if job == nil {
		goapp.Log.Warn().Str("job", m.JobID).Msg("skip export, no job")
		return nil
	}
	extracts, err := data.DB.LoadPendingInvoiceExtracts(ctx, job.OwnerID)
	if err != nil {
		goapp.Log.Warn().Err(err).Str("job", m.JobID).Msg("skip export, can't load extracts")
		return nil
	}
	// only export when the target is unambiguous
	if len(extracts) != 1 {
		goapp.Log.Info().Str("job", m.JobID).Int("extracts", len(extracts)).Msg("skip export, need exactly one pending extract")
		return nil
	}
	extract := extracts[0]
	doc, err := data.Merger.MergeTemplate(ctx, data.Template, job.FinalText, extract.Fields)
	if err != nil {
		goapp.Log.Warn().Err(err).Str("job", m.JobID).Msg("skip export, can't merge")
		return nil
	}
	name := fmt.Sprintf("export/%s/%s.rtf", job.OwnerID, job.JobNumber)
	if err := data.Filer.SaveFile(ctx, name, strings.NewReader(doc), int64(len(doc))); err != nil {
		goapp.Log.Warn().Err(err).Str("job", m.JobID).Msg("skip export, can't save document")
		return nil
	}
	if err := data.DB.MarkInvoiceExported(ctx, extract.ID); err != nil {
		goapp.Log.Warn().Err(err).Str("job", m.JobID).Msg("can't mark extract exported")
		return nil
	}
	goapp.Log.Info().Str("job", m.JobID).Str("file", name).Msg("exported")
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	if data.Merger == nil {
		return fmt.Errorf("no merger")
	}
	if data.Filer == nil {
		return fmt.Errorf("no filer")
	}
	return nil
}
