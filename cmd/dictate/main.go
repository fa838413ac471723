package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/dictamed/scriba/internal/pkg/live"
	"github.com/labstack/gommon/color"
)

func main() {
	goapp.StartWithDefault()
	cfg := goapp.Config

	printBanner()

	mic, err := live.NewMicSource()
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't open microphone")
	}
	defer mic.Close()

	cl := color.New()
	session, err := live.NewSession(&live.ServiceData{
		URL:    cfg.GetString("live.url"),
		Key:    cfg.GetString("live.key"),
		Source: mic,
		OnFragment: func(f live.Fragment) {
			if f.Final {
				fmt.Printf("\r%s\n", cl.Green(f.Text))
			} else {
				fmt.Printf("\r%s", f.Text)
			}
		},
		OnState: func(st live.State) {
			goapp.Log.Info().Str("state", st.String()).Msg("session")
		},
	})
	if err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't init session")
	}

	ctx, cancelFunc := context.WithCancel(context.Background())
	defer cancelFunc()
	if err := session.Connect(ctx); err != nil {
		goapp.Log.Fatal().Err(err).Msg("can't connect")
	}
	goapp.Log.Info().Msg("Dictating. Press Ctrl+C to stop")

	/////////////////////// Waiting for terminate
	waitCh := make(chan os.Signal, 2)
	signal.Notify(waitCh, os.Interrupt, syscall.SIGTERM)
	<-waitCh
	goapp.Log.Info().Msg("Got exit signal")

	session.Disconnect()
	if res := session.Transcript(); res != "" {
		fmt.Printf("\n%s\n%s\n", cl.Yellow("Transcript:"), res)
	}
	goapp.Log.Info().Msg("Bye")
}

var (
	version = "DEV"
)

func printBanner() {
	banner := `
       ___      __        __
  ____/ (_)____/ /_____ _/ /____
 / __  / / ___/ __/ __ ` + "`" + `/ __/ _ \
/ /_/ / / /__/ /_/ /_/ / /_/  __/
\__,_/_/\___/\__/\__,_/\__/\___/  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/dictamed/scriba"))
}
