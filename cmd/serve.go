package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pkpd-sim/pkpd-sim/internal/server"
	"github.com/pkpd-sim/pkpd-sim/sim/report"
)

var (
	serveAddr   string        // Listen address
	servePeriod time.Duration // Tracker period
	serveLang   string        // Default label language
)

// serveCmd runs the HTTP API with one live scenario
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation API for a chart front end",
	Run: func(cmd *cobra.Command, args []string) {
		s, err := scenarioFromFlags(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		startNow(&s, time.Now())
		res, err := s.Resolve()
		if err != nil {
			logrus.Fatalf("Invalid scenario: %v", err)
		}

		cfg := server.DefaultConfig()
		cfg.Addr = envOr(envAddr, cfg.Addr)
		if cmd.Flags().Changed("addr") {
			cfg.Addr = serveAddr
		}
		cfg.Lang = report.ParseLang(envOr(envLang, serveLang))
		if cmd.Flags().Changed("lang") {
			cfg.Lang = report.ParseLang(serveLang)
		}
		cfg.TickPeriod = servePeriod

		srv := server.New(cfg, res)
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start() }()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		select {
		case err := <-errCh:
			if err != nil {
				logrus.Fatalf("%v", err)
			}
			return
		case <-quit:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logrus.Errorf("Shutdown: %v", err)
		}
	},
}

func init() {
	addScenarioFlags(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address (or PKSIM_ADDR)")
	serveCmd.Flags().DurationVar(&servePeriod, "period", time.Minute, "Tracker sampling period")
	serveCmd.Flags().StringVar(&serveLang, "lang", "en", "Default label language (en, ja)")
}
