package cmd

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/dmaher/pcaptcha/api"
	"github.com/dmaher/pcaptcha/internal/util"
	"github.com/dmaher/pcaptcha/render"
	"github.com/dmaher/pcaptcha/storage"
	bboltstorage "github.com/dmaher/pcaptcha/storage/bbolt"
	pgstorage "github.com/dmaher/pcaptcha/storage/postgres"
	"github.com/dmaher/pcaptcha/web"
)

var (
	port          int
	dataDir       string
	postgresDSN   string
	secretHex     string
	backgroundURL string
)

const secretEnvVar = "PCAPTCHA_SECRET"

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the CAPTCHA service server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		secret, err := resolveSecret()
		if err != nil {
			return err
		}

		var repo storage.Repository
		if postgresDSN != "" {
			pg, err := pgstorage.NewRepositoryFromDSN(cmd.Context(), postgresDSN)
			if err != nil {
				return fmt.Errorf("failed to connect to postgres: %w", err)
			}
			defer pg.Close()
			repo = pg
		} else {
			if err := os.MkdirAll(dataDir, 0o700); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			bb, err := bboltstorage.NewRepositoryFromFile(dataDir+"/pcaptcha.db", nil)
			if err != nil {
				return fmt.Errorf("failed to open challenge storage: %w", err)
			}
			defer bb.Close()
			repo = bb
		}

		var background render.BackgroundProvider
		if backgroundURL != "" {
			background = render.NewHTTPBackground(backgroundURL)
		} else {
			background = render.NewGradientBackground(nil)
		}
		renderer := render.NewPieceRenderer(background)

		a, err := api.New(repo, renderer, secret,
			api.WithLogger(logger),
			api.WithAlertFunc(func(e api.AlertEvent) {
				logger.Warn("anomaly alert",
					"type", string(e.Type),
					"message", e.Message,
					"count", e.Count,
					"threshold", e.Threshold,
				)
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to initialize api: %w", err)
		}

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Mount("/api/v1", a.Router())

		webHandler, err := web.Handler()
		if err != nil {
			return err
		}
		r.Handle("/*", webHandler)

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		fmt.Printf("Starting server on port %d...\n", port)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			fmt.Printf("\nReceived %s, shutting down...\n", sig)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// resolveSecret loads the token signing secret from the --secret flag or
// the PCAPTCHA_SECRET environment variable, both hex-encoded. Without
// either, a random secret is generated; tokens then stop verifying
// across restarts, so this is only suitable for development.
func resolveSecret() ([]byte, error) {
	encoded := secretHex
	if encoded == "" {
		encoded = os.Getenv(secretEnvVar)
	}
	if encoded != "" {
		secret, err := hex.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode signing secret: %w", err)
		}
		if len(secret) < 16 {
			return nil, fmt.Errorf("signing secret must be at least 16 bytes, got %d", len(secret))
		}
		return secret, nil
	}

	secret, err := util.RandomBytes(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate signing secret: %w", err)
	}
	fmt.Println("WARNING: no signing secret configured, using a random one; proof tokens will not survive a restart")
	return secret, nil
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&postgresDSN, "postgres-dsn", "", "PostgreSQL DSN; uses embedded bbolt storage when empty")
	serverCmd.Flags().StringVar(&secretHex, "secret", "", "Hex-encoded token signing secret (or set "+secretEnvVar+")")
	serverCmd.Flags().StringVar(&backgroundURL, "background-url", "", "URL returning background images; procedural gradients when empty")
}
