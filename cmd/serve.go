package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"jobscout/internal/config"
	"jobscout/internal/core/job"
	"jobscout/internal/core/notify"
	"jobscout/internal/core/run"
	"jobscout/internal/core/submission"
	"jobscout/internal/core/template"
	"jobscout/internal/health"
	"jobscout/internal/logger"
	rds "jobscout/internal/platform/redis"
	tasks "jobscout/internal/platform/tasks"
	"jobscout/internal/server"
	"jobscout/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and the background worker",
	RunE:  runServe,
}

var serveNoWorker bool

func init() {
	serveCmd.Flags().BoolVar(&serveNoWorker, "no-worker", false, "Serve the API without processing queued runs")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := config.Load()
	logr := logger.New("main")
	logr.LogInfof("starting at %s (env=%s)", cfg.HTTPAddr, cfg.AppEnv)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis client
	redisSvc, err := rds.New(rds.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisSvc.Close()

	store, err := submission.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	orchestrator, err := newOrchestrator(ctx, cfg, redisSvc)
	if err != nil {
		return err
	}

	taskClient := tasks.New(redisSvc)
	defer taskClient.Close()

	runSvc := run.NewService(run.Deps{
		Jobs:        job.NewJobService(redisSvc),
		Submissions: store,
		Templates:   template.NewLoader(cfg),
		Pipeline:    orchestrator,
		Notifier:    notify.NewDispatcher(cfg),
		Queue:       taskClient,
		MaxRetries:  cfg.TaskMaxRetries,
		RunTimeout:  cfg.RunTimeout,
	})

	// Worker
	asynqServer := asynq.NewServer(redisSvc.AsynqRedisOpt(), asynq.Config{
		Concurrency: max(cfg.WorkerConcurrency, 1),
		Queues:      map[string]int{tasks.QueueDefault: 1},
	})
	if !serveNoWorker {
		mux := worker.NewMux()
		mux.HandleFunc(tasks.TaskTypePipelineRun, runSvc.HandleRunTask)
		if err := asynqServer.Start(mux.Mux()); err != nil {
			return fmt.Errorf("start worker: %w", err)
		}
	}

	// HTTP server
	app := fiber.New(fiber.Config{
		AppName: "jobscout",
		JSONEncoder: func(v interface{}) ([]byte, error) {
			var buf bytes.Buffer
			encoder := json.NewEncoder(&buf)
			encoder.SetEscapeHTML(false)
			if err := encoder.Encode(v); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		},
	})

	healthHandler := server.RegisterRoutes(app, server.Dependencies{
		Runs:        runSvc,
		Submissions: store,
		DataDir:     cfg.DataDir,
		Health: map[string]health.CheckFunc{
			"redis":    redisSvc.HealthCheck,
			"postgres": store.Ping,
		},
	})
	healthHandler.SetReady()

	go func() {
		<-ctx.Done()
		logr.LogInfo("Shutting down...")
		if !serveNoWorker {
			asynqServer.Shutdown()
		}
		_ = app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := app.Listen(cfg.HTTPAddr); err != nil {
		return fmt.Errorf("server listen: %w", err)
	}
	return nil
}
