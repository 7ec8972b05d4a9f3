package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rmoura/notara-go/internal/api"
	"github.com/rmoura/notara-go/internal/conf"
	"github.com/rmoura/notara-go/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Serve runs the HTTP API until the process receives SIGINT or SIGTERM.
func Serve(settings *conf.Settings, version string) error {
	if err := telemetry.Init(settings, version); err != nil {
		log.Printf("Warning: telemetry initialization failed: %v", err)
	}
	defer telemetry.Flush()

	rt, err := NewRuntime(settings)
	if err != nil {
		return err
	}
	defer rt.Close()

	e := echo.New()
	e.HideBanner = true

	opts := []api.Option{api.WithMetrics(rt.Metrics)}
	if rt.ChatGPT != nil {
		opts = append(opts, api.WithAnalysisProvider(rt.ChatGPT))
	}
	if rt.Perplexity != nil {
		opts = append(opts, api.WithSearchProvider(rt.Perplexity))
	}
	if rt.WhatsApp != nil {
		opts = append(opts, api.WithWhatsApp(rt.WhatsApp))
	}

	controller, err := api.New(e, rt.Store, settings, rt.Processor, log.Default(), opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize API: %w", err)
	}
	defer controller.Shutdown()

	address := net.JoinHostPort(settings.Server.Host, settings.Server.Port)
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.Printf("%s listening on %s", settings.Main.Name, address)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Printf("Received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
