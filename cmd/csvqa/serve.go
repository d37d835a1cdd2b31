package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"csvqa/internal/httpapi"
	"csvqa/internal/logger"
	"csvqa/internal/watch"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr    string
		file    string
		watchOn bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the question API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if !cmd.Flags().Changed("watch") {
				watchOn = cfg.Watch.Enabled
			}
			log := logger.Component(a.log, "serve")

			if file != "" {
				res, err := a.svc.LoadFile(file)
				if err != nil {
					return err
				}
				log.WithField("rows", res.Rows).Info(res.Status())
			}

			api := httpapi.NewServer(a.svc, a.metrics, logger.Component(a.log, "http"), httpapi.Options{
				RateLimit:      cfg.Server.RateLimitRPS,
				Burst:          cfg.Server.RateLimitBurst,
				MaxUploadBytes: int64(cfg.Ingest.MaxUploadMB) << 20,
			})
			srv := &http.Server{
				Addr:         addr,
				Handler:      api.Handler(),
				ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
				WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			g, gctx := errgroup.WithContext(ctx)

			g.Go(func() error {
				log.Infof("Starting API server on %s", addr)
				if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				log.Info("shutting down")
				return srv.Shutdown(sctx)
			})
			if watchOn && file != "" {
				w := watch.New(file, time.Duration(cfg.Watch.DebounceMS)*time.Millisecond, func(path string) error {
					_, err := a.svc.LoadFile(path)
					return err
				}, logger.Component(a.log, "watch"))
				g.Go(func() error { return w.Run(gctx) })
			}
			return g.Wait()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default server.addr)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "table to load at startup")
	cmd.Flags().BoolVar(&watchOn, "watch", false, "reload --file when it changes")
	return cmd
}
