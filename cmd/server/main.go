// Command server runs the CodeTube HTTP API and the queued-run worker.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/codetube/codetube/internal/api"
	"github.com/codetube/codetube/internal/code"
	"github.com/codetube/codetube/internal/config"
	"github.com/codetube/codetube/internal/metrics"
	"github.com/codetube/codetube/internal/store"
	"github.com/codetube/codetube/internal/worker"
)

var logger *zap.Logger

type (
	stopFunc func(ctx context.Context) error
	initFunc func() (start func(), cleanUp stopFunc)
)

func main() {
	conf := loadConf()
	initLogger(conf)
	defer logger.Sync()
	if ce := logger.Check(zap.InfoLevel, "Config loaded"); ce != nil {
		ce.Write(zap.String("mode", conf.Mode), zap.String("judge", conf.JudgeURL), zap.Bool("judgeKeySet", conf.JudgeAPIKey != ""))
	}
	if conf.JudgeAPIKey == "" {
		logger.Warn("Judge0 API key is not set, code runs will fail until it is configured")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, conf.DatabaseURL)
	if err != nil {
		logger.Fatal("Connect database failed", zap.Error(err))
	}
	if conf.Migrate {
		if err := store.Migrate(ctx, pool); err != nil {
			logger.Fatal("Migrate database failed", zap.Error(err))
		}
	}
	queries := store.New(pool)

	if conf.EnableMetrics {
		metrics.Register(prometheus.DefaultRegisterer)
	}

	judge := code.NewJudge0Client(conf.Judge0(), code.WithLogger(logger.Named("judge0")))
	h := api.NewHandler(queries, judge, logger.Named("api"), conf.JobMaxAttempts)

	servers := []initFunc{
		closePool(pool),
		initWorker(conf, queries, h),
		initHTTPServer(conf, h),
		initMonitorHTTPServer(conf),
	}

	// Gracefully shutdown, with signal / HTTP server / Monitor HTTP server
	sig := make(chan os.Signal, 1+len(servers))

	stops := []stopFunc{}
	for _, s := range servers {
		start, stop := s()
		if start != nil {
			go func() {
				start()
				sig <- os.Interrupt
			}()
		}
		if stop != nil {
			stops = append(stops, stop)
		}
	}

	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	signal.Reset(syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Shutting Down...")

	ctx, cancel := context.WithTimeout(context.TODO(), time.Second*10)
	defer cancel()

	// The pool is closed last, after the servers and the worker have drained.
	// Worker.Start returns only once in-flight jobs have written their status.
	var eg errgroup.Group
	for _, s := range stops[1:] {
		eg.Go(func() error {
			return s(ctx)
		})
	}
	err = eg.Wait()
	if cerr := stops[0](ctx); cerr != nil {
		err = errors.Join(err, cerr)
	}
	logger.Info("Shutdown Finished", zap.Error(err))
}

func loadConf() *config.Config {
	var conf config.Config
	if err := conf.Load(); err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		log.Fatalln("load config failed ", err)
	}
	return &conf
}

func initLogger(conf *config.Config) {
	if conf.Silent {
		logger = zap.NewNop()
		return
	}

	var err error
	if conf.Release {
		logger, err = zap.NewProduction()
	} else {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		if !conf.EnableDebug {
			config.Level.SetLevel(zap.InfoLevel)
		}
		logger, err = config.Build()
	}
	if err != nil {
		log.Fatalln("init logger failed ", err)
	}
}

func closePool(pool *pgxpool.Pool) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		return nil, func(ctx context.Context) error {
			pool.Close()
			logger.Info("Database pool closed")
			return nil
		}
	}
}

func initWorker(conf *config.Config, q store.Querier, exec worker.JobExecutor) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		if conf.Mode == config.ModeAPI {
			return nil, nil
		}
		w := worker.New(q, exec, conf.Workers,
			worker.WithInterval(conf.WorkerInterval),
			worker.WithStaleAfter(conf.JobStaleAfter),
			worker.WithLogger(logger.Named("worker")))
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			logger.Info("Worker started", zap.Int("concurrency", conf.Workers), zap.Duration("interval", conf.WorkerInterval))
			w.Start(ctx)
		}()
		return nil, func(sctx context.Context) error {
			cancel()
			select {
			case <-done:
				logger.Info("Worker shutdown")
				return nil
			case <-sctx.Done():
				return fmt.Errorf("worker shutdown: %w", sctx.Err())
			}
		}
	}
}

func initHTTPServer(conf *config.Config, h *api.Handler) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		if conf.Mode == config.ModeWorker {
			return nil, nil
		}
		r := api.NewRouter(h, logger.Named("http"), api.RouterConfig{
			Release:       conf.Release,
			EnableMetrics: conf.EnableMetrics,
			AuthToken:     conf.AuthToken,
		})
		srv := http.Server{
			Addr:    conf.HTTPAddr,
			Handler: r,
		}

		return func() {
				logger.Info("Starting http server", zap.String("addr", conf.HTTPAddr))
				if err := srv.ListenAndServe(); errors.Is(err, http.ErrServerClosed) {
					logger.Info("Http server stopped", zap.Error(err))
				} else {
					logger.Error("Http server stopped", zap.Error(err))
				}
			}, func(ctx context.Context) error {
				logger.Info("Http server shutting down")
				return srv.Shutdown(ctx)
			}
	}
}

func initMonitorHTTPServer(conf *config.Config) initFunc {
	return func() (start func(), cleanUp stopFunc) {
		if !conf.EnableMetrics {
			return nil, nil
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		msrv := http.Server{
			Addr:    conf.MonitorAddr,
			Handler: mux,
		}
		return func() {
				logger.Info("Starting monitoring http server", zap.String("addr", conf.MonitorAddr))
				logger.Info("Monitoring http server stopped", zap.Error(msrv.ListenAndServe()))
			}, func(ctx context.Context) error {
				logger.Info("Monitoring http server shutdown")
				return msrv.Shutdown(ctx)
			}
	}
}
