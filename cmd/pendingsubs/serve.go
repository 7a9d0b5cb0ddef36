package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httppkg "github.com/APerson241/pending-subs/internal/http"
	"github.com/APerson241/pending-subs/internal/repository"
	"github.com/APerson241/pending-subs/internal/service"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard",
		Long: `Serve the dashboard over HTTP. A pipeline run starts immediately and then
every refresh_interval; POST /refresh starts one on demand.

Examples:
  pendingsubs serve
  pendingsubs serve --listen :9000 -c pendingsubs.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			defer a.close()
			if listen != "" {
				a.cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var snapshots service.RunRepository
			if a.cfg.DatabasePath != "" {
				repo, err := repository.New(ctx, a.cfg.DatabasePath)
				if err != nil {
					return err
				}
				defer repo.Close()
				snapshots = repo
			}

			svc, err := a.pipeline(snapshots)
			if err != nil {
				return err
			}
			if err := svc.Restore(ctx); err != nil {
				a.logger.Warn("could not restore last snapshot", zap.Error(err))
			}

			interval, err := a.cfg.GetRefreshInterval()
			if err != nil {
				return err
			}
			svc.Submit(ctx)
			go svc.Schedule(ctx, interval)

			server := httppkg.NewServer(svc, "", a.logger.Named("http"))
			a.logger.Info("starting dashboard",
				zap.String("listen", a.cfg.Listen),
				zap.Duration("refresh_interval", interval))
			err = server.Start(ctx, a.cfg.Listen)
			svc.Wait()
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}
