package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/memoirhq/memoir/internal/config"
	"github.com/memoirhq/memoir/internal/server"
	"github.com/memoirhq/memoir/internal/svc"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the companion server",
		RunE: func(_ *cobra.Command, _ []string) error {
			c, err := config.Load(configPath)
			if err != nil {
				return err
			}

			svcCtx, err := svc.NewServiceContext(c)
			if err != nil {
				return err
			}

			srv := server.New(svcCtx)

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case sig := <-sigCh:
				fmt.Printf("received %v, shutting down\n", sig)
				return srv.Shutdown(context.Background())
			case err := <-errCh:
				svcCtx.Close()
				return err
			}
		},
	}
}
