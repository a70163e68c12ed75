package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nikogura/resume-intake/pkg/api"
	"github.com/nikogura/resume-intake/pkg/extraction"
	"github.com/nikogura/resume-intake/pkg/mockapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var mockAddr string

//nolint:gochecknoglobals // Cobra boilerplate
var mockExtraction string

//nolint:gochecknoglobals // Cobra boilerplate
var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run an in-memory resume service for local development",
	Long: `Run an in-memory implementation of the resume service API under /api.
State is lost on exit.

Uploads return the extraction loaded with --extraction, or a small
built-in sample when none is given.

Example:
  resume-intake mock-server
  resume-intake mock-server --addr :5001 --extraction cv-extraction.json
  RESUME_INTAKE_API_URL=http://localhost:5001/api resume-intake profile show`,
	Args: cobra.NoArgs,
	RunE: runMockServer,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(mockServerCmd)
	mockServerCmd.Flags().StringVar(&mockAddr, "addr", ":5001", "Listen address")
	mockServerCmd.Flags().StringVar(&mockExtraction, "extraction", "", "Extraction JSON returned for every upload")
}

func runMockServer(cmd *cobra.Command, args []string) (err error) {
	logger := newLogger(zerolog.InfoLevel)

	backend := mockapi.NewServer(logger)
	if mockExtraction != "" {
		var result api.ExtractionResult
		result, err = extraction.Load(mockExtraction)
		if err != nil {
			return err
		}
		backend.SetExtraction(result)
	}

	if !getVerbose() {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &http.Server{
		Addr:              mockAddr,
		Handler:           backend.Router(mockapi.DefaultPrefix),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	logger.Info().Str("addr", mockAddr).Str("prefix", mockapi.DefaultPrefix).Msg("mock resume service started")

	select {
	case err = <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			err = errors.Wrap(err, "mock server failed")
			return err
		}
		err = nil
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down mock resume service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err = srv.Shutdown(shutdownCtx)
	if err != nil {
		err = errors.Wrap(err, "mock server forced to shut down")
		return err
	}

	return err
}
