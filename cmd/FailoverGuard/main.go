// Package main is the entry point of the FailoverGuard service.
// It runs the status HTTP server and the failover ticker under one kratos application.
package main

import (
	"context"
	"flag"
	"os"

	"FailoverGuard/internal/biz"
	"FailoverGuard/internal/conf"
	"FailoverGuard/internal/server"
	zapLogger "FailoverGuard/pkg/log"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name = zapLogger.ServiceName
	// Version is the version of the compiled software.
	Version string
	// flagconf is the config flag.
	flagconf string

	id, _ = os.Hostname()
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func newApp(logger log.Logger, hs *http.Server, fs *server.FailoverServer, uc *biz.FailoverUsecase, ac *conf.Alert) *kratos.App {
	summary := NewSummaryCron(ac, uc, logger)

	return kratos.New(
		kratos.ID(id),
		kratos.Name(Name),
		kratos.Version(Version),
		kratos.Metadata(map[string]string{}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
			fs,
		),
		kratos.AfterStart(func(context.Context) error {
			return summary.Start()
		}),
		kratos.BeforeStop(func(ctx context.Context) error {
			summary.Stop(ctx)
			return nil
		}),
	)
}

func main() {
	flag.Parse()

	bc, err := conf.NewBootstrap(flagconf)
	if err != nil {
		// Zap is not initialized yet
		log.Fatalf("failed to load configuration: %v", err)
	}

	zapLog, err := zapLogger.NewZapLogger(bc.Log)
	if err != nil {
		log.Fatalf("failed to initialize zap logger: %v", err)
	}
	defer zapLog.Sync()

	logger := log.With(zapLogger.NewKratosAdapter(zapLog),
		"service.id", id,
		"service.name", Name,
		"service.version", Version,
	)

	log.NewHelper(logger).Infow(
		"msg", "FailoverGuard service starting",
		"log.level", bc.Log.Level,
		"log.format", bc.Log.Format,
		"log.env", bc.Log.Env,
		"primary", bc.Data.Primary.ID,
		"secondary", bc.Data.Secondary.ID,
		"state.driver", bc.Data.State.Driver,
	)

	app, cleanup, err := wireApp(bc.Server, bc.Data, bc.Failover, bc.Alert, bc.Auth, logger)
	if err != nil {
		log.NewHelper(logger).Errorw("msg", "failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	// start and wait for stop signal
	if err := app.Run(); err != nil {
		log.NewHelper(logger).Errorw("msg", "application stopped with error", "error", err)
		cleanup()
		os.Exit(1)
	}
}
