package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/dictamed/scriba/internal/pkg/batch"
	"github.com/dictamed/scriba/internal/pkg/consul"
	"github.com/dictamed/scriba/internal/pkg/convert"
	"github.com/dictamed/scriba/internal/pkg/export"
	"github.com/dictamed/scriba/internal/pkg/filestore"
	"github.com/dictamed/scriba/internal/pkg/inform"
	"github.com/dictamed/scriba/internal/pkg/postgres"
	"github.com/dictamed/scriba/internal/pkg/transcriber"
	"github.com/dictamed/scriba/internal/pkg/upload"
	"github.com/dictamed/scriba/internal/pkg/utils"
	"github.com/dictamed/scriba/internal/pkg/watch"
	"github.com/hashicorp/consul/api"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/gommon/color"
	"github.com/spf13/viper"
	"github.com/vgarvardt/gue/v5"
	"github.com/vgarvardt/gue/v5/adapter/pgxv5"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()

	dbConfig, err := pgxpool.ParseConfig(cfg.GetString("db.url"))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	addDBLog(dbConfig)

	goapp.Log.Info().Int32("max_conn", dbConfig.MaxConns).Int32("min_conn", dbConfig.MinConns).Msg("db info")

	dbPool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db pool")
	}
	defer dbPool.Close()

	db, err := postgres.NewDB(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init db")
	}
	msgSender, err := postgres.NewSender(dbPool)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue sender")
	}
	gueClient, err := gue.NewClient(pgxv5.NewConnPool(dbPool))
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init gue")
	}

	saver, err := filestore.NewStore(ctx, filestore.Options{Bucket: cfg.GetString("filer.bucket"),
		URL: cfg.GetString("filer.url"), User: cfg.GetString("filer.user"),
		Key: cfg.GetString("filer.key"), Secure: cfg.GetBool("filer.secure")})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init filer")
	}

	trPr, err := initTranscriberProvider(ctx, cfg)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init transcriber provider")
	}

	queue, queueDoneCh, err := batch.StartQueue(ctx, &batch.ServiceData{
		MaxConcurrent: cfg.GetInt("batch.maxConcurrent"),
		Converter:     convert.NewConverter(),
		TranscriberPr: trPr,
		DB:            db,
		MsgSender:     msgSender,
	})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start batch queue")
	}

	keeper := watch.NewKeeper()
	queue.Subscribe(watch.NewEventHandler(keeper, queue).Handle)

	exportDoneCh, err := startExport(ctx, cfg, gueClient, db, saver)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start export service")
	}
	informDoneCh, err := startInform(ctx, cfg, gueClient, db)
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't start inform service")
	}

	printBanner()

	go utils.RunPerfEndpoint()

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- upload.StartWebServer(&upload.Data{
			Port:      cfg.GetInt("port"),
			Saver:     saver,
			Queue:     queue,
			DB:        db,
			WSHandler: keeper,
		})
	}()

	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-waitCh:
		goapp.Log.Info().Msg("Got exit signal")
	case err := <-srvErrCh:
		goapp.Log.Error().Err(err).Msg("Web server exit")
	}
	cancelFunc()
	for _, ch := range []<-chan struct{}{queueDoneCh, exportDoneCh, informDoneCh} {
		select {
		case <-ch:
		case <-time.After(time.Second * 15):
			goapp.Log.Warn().Msg("Timeout gracefull shutdown")
		}
	}
	goapp.Log.Info().Msg("All code returned. Now exit. Bye")
}

func initTranscriberProvider(ctx context.Context, cfg *viper.Viper) (batch.TranscriberProvider, error) {
	if url := cfg.GetString("consul.url"); url != "" {
		cCfg := api.DefaultConfig()
		cCfg.Address = url
		pr, err := consul.NewProvider(cCfg, cfg.GetString("consul.service"))
		if err != nil {
			return nil, err
		}
		if _, err := pr.StartRegistryLoop(ctx, cfg.GetDuration("consul.checkInterval")); err != nil {
			return nil, err
		}
		return pr, nil
	}
	tr, err := transcriber.NewClient(cfg.GetString("transcriber.url"), cfg.GetString("transcriber.key"))
	if err != nil {
		return nil, err
	}
	return transcriber.NewStaticProvider(tr), nil
}

func startExport(ctx context.Context, cfg *viper.Viper, gueClient *gue.Client, db *postgres.DB, saver *filestore.Store) (chan struct{}, error) {
	merger, err := export.NewHTTPMerger(cfg.GetString("export.mergeUrl"))
	if err != nil {
		return nil, err
	}
	return export.StartWorkerService(ctx, &export.ServiceData{
		GueClient:   gueClient,
		WorkerCount: cfg.GetInt("export.workers"),
		DB:          db,
		Merger:      merger,
		Filer:       saver,
		Template:    cfg.GetString("export.template"),
	})
}

func startInform(ctx context.Context, cfg *viper.Viper, gueClient *gue.Client, db *postgres.DB) (chan struct{}, error) {
	maker, err := inform.NewEmailMaker(cfg)
	if err != nil {
		return nil, err
	}
	var sender inform.Sender
	if cfg.GetString("smtp.fakeUrl") != "" {
		sender, err = inform.NewFakeEmailSender(cfg)
	} else {
		sender, err = inform.NewSimpleEmailSender(cfg)
	}
	if err != nil {
		return nil, err
	}
	location, err := time.LoadLocation(cfg.GetString("inform.location"))
	if err != nil {
		return nil, err
	}
	return inform.StartWorkerService(ctx, &inform.ServiceData{
		GueClient:   gueClient,
		WorkerCount: cfg.GetInt("inform.workers"),
		EmailSender: sender,
		EmailMaker:  maker,
		DB:          db,
		Location:    location,
	})
}

func addDBLog(dbConfig *pgxpool.Config) {
	logFunc := goapp.Log.Debug().Msg
	dbConfig.BeforeConnect = func(ctx context.Context, cc *pgx.ConnConfig) error {
		logFunc("before connect")
		return nil
	}
	dbConfig.AfterConnect = func(ctx context.Context, c *pgx.Conn) error {
		logFunc("after connect")
		return nil
	}
	dbConfig.BeforeAcquire = func(ctx context.Context, c *pgx.Conn) bool {
		logFunc("before acquire")
		return true
	}
	dbConfig.AfterRelease = func(c *pgx.Conn) bool {
		logFunc("after release")
		return true
	}
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
   _____ __________  ________  ___
  / ___// ____/ __ \/  _/ __ )/   |
  \__ \/ /   / /_/ // // __  / /| |
 ___/ / /___/ _, _// // /_/ / ___ |
/____/\____/_/ |_/___/_____/_/  |_|  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/dictamed/scriba"))
}
