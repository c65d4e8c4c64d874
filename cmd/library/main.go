package main

import (
	"errors"
	"io/fs"
	stdLog "log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// @title Library API
// @version 1.0
// @description Users, books and loans of a lending library.
// @BasePath /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization

//go:generate go run github.com/swaggo/swag/cmd/swag init -g main.go -d ./,../../library/internal/handler,../../library/internal/model,../../pkg/auth -o ../../swagger --outputTypes go

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		stdLog.Fatal("load envs from .env ", err)
	}
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Library management service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd())
	return root
}
