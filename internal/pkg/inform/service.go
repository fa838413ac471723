package inform

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/dictamed/scriba/internal/pkg/messages"
	"github.com/dictamed/scriba/internal/pkg/persistence"
	"github.com/dictamed/scriba/internal/pkg/utils"
	"github.com/jordan-wright/email"
	"github.com/vgarvardt/gue/v5"
)

// Sender sends emails
type Sender interface {
	Send(email *email.Email) error
}

// Data keeps values for one notification email
type Data struct {
	Email     string
	JobNumber string
	FileName  string
	MsgTime   time.Time
}

// EmailMaker prepares the email
type EmailMaker interface {
	Make(data *Data) (*email.Email, error)
}

// DB loads jobs and owner contacts
type DB interface {
	LoadJob(ctx context.Context, id string) (*persistence.JobRecord, error)
	LoadOwnerEmail(ctx context.Context, ownerID string) (string, error)
}

// ServiceData keeps data required for service work
type ServiceData struct {
	GueClient   *gue.Client
	WorkerCount int
	EmailSender Sender
	EmailMaker  EmailMaker
	DB          DB
	Location    *time.Location
}

// StartWorkerService starts the event queue listener service to listen for inform events
// returns channel for tracking when all jobs are finished
func StartWorkerService(ctx context.Context, data *ServiceData) (chan struct{}, error) {
	if err := validate(data); err != nil {
		return nil, err
	}
	goapp.Log.Info().Msg("Starting listen for messages")

	wm := gue.WorkMap{
		messages.Inform: utils.CreateHandler(data, handleInform),
	}

	pool, err := gue.NewWorkerPool(
		data.GueClient, wm, data.WorkerCount,
		gue.WithPoolQueue(messages.Inform),
		gue.WithPoolLogger(utils.NewGueLoggerAdapter()),
		gue.WithPoolPollInterval(500*time.Millisecond),
		gue.WithPoolPollStrategy(gue.RunAtPollStrategy),
		gue.WithPoolID("scriba-inform"),
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

func handleInform(ctx context.Context, m *messages.JobMessage, data *ServiceData) error {
	goapp.Log.Info().Str("ID", m.ID).Str("job", m.JobID).Msg("handling")

	job, err := data.DB.LoadJob(ctx, m.JobID)
	if err != nil {
		return fmt.Errorf("can't load job: %w", err)
	}
	if job == nil {
		goapp.Log.Info().Str("job", m.JobID).Msg("no job, skip")
		return nil
	}
	addr, err := data.DB.LoadOwnerEmail(ctx, job.OwnerID)
	if err != nil {
		return fmt.Errorf("can't retrieve email: %w", err)
	}
	if addr == "" {
		goapp.Log.Info().Msg("No email, skip")
		return nil
	}

	mailData := Data{Email: addr, JobNumber: job.JobNumber, FileName: job.FileName,
		MsgTime: toLocalTime(data, job.Uploaded)}
	email, err := data.EmailMaker.Make(&mailData)
	if err != nil {
		return fmt.Errorf("can't prepare email: %w", err)
	}
	if err := data.EmailSender.Send(email); err != nil {
		return fmt.Errorf("can't send email: %w", err)
	}
	return nil
}

func validate(data *ServiceData) error {
	if data.GueClient == nil {
		return fmt.Errorf("no gue client")
	}
	if data.WorkerCount < 1 {
		return fmt.Errorf("no worker count provided")
	}
	if data.EmailMaker == nil {
		return fmt.Errorf("no EmailMaker")
	}
	if data.EmailSender == nil {
		return fmt.Errorf("no EmailSender")
	}
	if data.DB == nil {
		return fmt.Errorf("no DB")
	}
	return nil
}

func toLocalTime(data *ServiceData, t time.Time) time.Time {
	if data.Location != nil {
		return t.In(data.Location)
	}
	return t
}
