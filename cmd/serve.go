package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"muxlti/internal/auth"
	"muxlti/internal/handler"
	"muxlti/internal/mux"
	"muxlti/internal/service"
	"muxlti/internal/tasks"
)

const (
	shutdownTimeout = 30 * time.Second
	queueBuffer     = 100
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, task workers and hourly synchronization",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

// queueDispatcher выбирает очередь задач по Queue.Driver
func queueDispatcher(ctx context.Context, runners *[]func(context.Context) error) func(a *app) (service.Dispatcher, error) {
	return func(a *app) (service.Dispatcher, error) {
		switch a.cfg.Queue.Driver {
		case "sqs":
			awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to load AWS config: %w", err)
			}
			queue := tasks.NewSQSQueue(sqs.NewFromConfig(awsCfg), a.cfg.Queue.SQSQueueURL, a.registry, a.log)
			for i := 0; i < a.cfg.Queue.Workers; i++ {
				*runners = append(*runners, queue.Run)
			}
			return queue, nil
		default:
			queue := tasks.NewLocalQueue(a.registry, a.cfg.Queue.Workers, queueBuffer, a.log)
			*runners = append(*runners, func(ctx context.Context) error {
				// задачи из буфера дорабатываются после сигнала остановки
				queue.Start(context.WithoutCancel(ctx))
				<-ctx.Done()
				queue.Close()
				return nil
			})
			return queue, nil
		}
	}
}

func serve(ctx context.Context) error {
	var runners []func(context.Context) error
	a, err := newApp(ctx, queueDispatcher(ctx, &runners))
	if err != nil {
		return err
	}
	defer a.Close()
	log := a.log

	authConfig, err := auth.NewConfig(optionalFile(authConfigPath))
	if err != nil {
		return fmt.Errorf("failed to load auth config: %w", err)
	}
	authConn, err := grpc.NewClient(authConfig.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("failed to connect to session service: %w", err)
	}
	defer authConn.Close()
	guard := auth.NewGuard(auth.NewSessionClient(authConn, authConfig.Token, authConfig.Timeout), log)

	verifier := mux.NewWebhookVerifier(a.cfg.Mux.WebhookSigningSecret, a.cfg.Mux.WebhookTolerance())
	if a.cfg.Mux.WebhookSigningSecret == "" {
		log.Warn("Webhook signing secret is empty, all callbacks will be rejected")
	}

	router := handler.NewRouter(handler.Handlers{
		Videos:   handler.NewVideoHandler(a.assets, a.videos, log),
		Uploads:  handler.NewUploadHandler(a.uploads, log),
		Callback: handler.NewCallbackHandler(verifier, a.dispatcher, log),
		Guard:    guard,
	}, handler.RouterConfig{
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	}, log)

	httpServer := &http.Server{
		Addr:         ":" + a.cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	g, gctx := errgroup.WithContext(ctx)

	if err := a.sync.Start(gctx); err != nil {
		return err
	}

	g.Go(func() error {
		lis, err := net.Listen("tcp", ":"+a.cfg.Server.GRPCPort)
		if err != nil {
			return fmt.Errorf("failed to listen grpc: %w", err)
		}
		log.Info("Starting gRPC server", "port", a.cfg.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		log.Info("Starting HTTP server", "port", a.cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	for _, run := range runners {
		run := run
		g.Go(func() error { return run(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")

		a.sync.Stop()
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Server forced to shutdown", "error", err)
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Server exited properly")
	return nil
}
