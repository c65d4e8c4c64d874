package main

import (
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/Astemirdum/library-management/library/app"
	"github.com/Astemirdum/library-management/library/config"
)

func newServeCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run migrations and start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ops := []config.Option{config.WithWriteTimeout(time.Minute)}
			if debug {
				ops = append(ops, config.WithLogLevel(zapcore.DebugLevel))
			}
			cfg, err := config.NewConfig(ops...)
			if err != nil {
				return err
			}
			return app.Run(cfg)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "log at debug level")
	return cmd
}
