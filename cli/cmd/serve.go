package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/BDNK1/durable/runtime"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func newServeCmd(e *env) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the decision endpoint over HTTP",
		Long: `Serve loads every orchestration from the configured directory and
answers POST /orchestrations/:name/decide until interrupted.

Example:
  durable serve --config durable.yaml
  durable serve --addr :9090
`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				e.config.Server.Addr = addr
			}
			return e.serve(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func (e *env) serve(ctx context.Context) error {
	app, err := e.newApp()
	if err != nil {
		return err
	}

	if err := app.Container.Initialize(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Container.Shutdown(shutdownCtx); err != nil {
			e.logger.Error("Component shutdown failed", "error", err.Error())
		}
	}()

	if e.config.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	g.Use(gin.Recovery())
	runtime.NewHttpHandler(e.logger, runtime.NewRunner(e.logger, app), app, g)

	srv := &http.Server{
		Addr:              e.config.Server.Addr,
		Handler:           g,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	e.logger.Info("Server listening", "addr", srv.Addr, "orchestrations", len(app.Names()))
	go func() {
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		err := srv.Shutdown(shutdownCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		e.logger.Info("Server stopped")
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
