package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hostfleet/gangway/pkg/advisor"
	"github.com/hostfleet/gangway/pkg/api"
	"github.com/hostfleet/gangway/pkg/config"
	"github.com/hostfleet/gangway/pkg/conftools"
	"github.com/hostfleet/gangway/pkg/detect"
	"github.com/hostfleet/gangway/pkg/dispatch"
	"github.com/hostfleet/gangway/pkg/gate"
	"github.com/hostfleet/gangway/pkg/health"
	"github.com/hostfleet/gangway/pkg/logging"
	"github.com/hostfleet/gangway/pkg/pipeline"
	"github.com/hostfleet/gangway/pkg/remote"
	"github.com/hostfleet/gangway/pkg/transfer"
	"github.com/hostfleet/gangway/pkg/version"
)

const shutdownGracePeriod = time.Second * 10

func main() {
	err := run()
	if err != nil {
		log.Errorf("fatal: %s", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Initialize()
	if err := conftools.Load(cfg); err != nil {
		return err
	}

	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return err
	}

	// Welcome
	log.Infof("gangway %s", version.Version())
	ts, err := version.BuildTime()
	if err == nil {
		log.Infof("This version was built %s", ts.Local())
	}

	for _, line := range conftools.Format(nil) {
		log.Info(line)
	}

	if cfg.Remote.Host == "" {
		return fmt.Errorf("remote host required; try --remote.host")
	}

	if cfg.ScopedTenant != "" {
		log.Infof("Tenant-scoped mode: every operation is bound to %q", cfg.ScopedTenant)
	} else {
		log.Warn("Operator mode: operations may target any tenant")
	}

	session := remote.NewSSHSession(cfg.Remote.Host, cfg.Remote.User, cfg.Remote.CallTimeout)
	dispatcher := dispatch.New(session)
	if cfg.Remote.Tool != "" {
		dispatcher.Tool = cfg.Remote.Tool
	}

	target := cfg.Remote.Host
	if cfg.Remote.User != "" {
		target = cfg.Remote.User + "@" + cfg.Remote.Host
	}

	poller := &health.Poller{Executor: dispatcher}
	augmenter := &advisor.Augmenter{Executor: dispatcher}

	pipe := &pipeline.Pipeline{
		Executor:       dispatcher,
		Transfer:       transfer.New(target, cfg.Deploy.StagingRoot),
		Health:         poller,
		Augmenter:      augmenter,
		DefaultRuntime: detect.Runtime(cfg.Deploy.DefaultRuntime),
	}

	router := api.New(api.Config{
		Gate:        &gate.Gate{ScopedTenant: cfg.ScopedTenant},
		Executor:    dispatcher,
		Deployer:    pipe,
		Waiter:      poller,
		Augmenter:   augmenter,
		MetricsPath: cfg.MetricsPath,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddress,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Infof("Tool API ready on %s", cfg.ListenAddress)
		serverErr <- server.ListenAndServe()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-signals:
		log.Infof("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
