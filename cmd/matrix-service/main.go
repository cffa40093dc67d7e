package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}

	root := &cobra.Command{
		Use:           "matrix-service",
		Short:         "Commission and matrix distribution engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("MATRIX_CONFIG_PATH"), "path to the service config file")

	root.AddCommand(
		newServeCmd(),
		newWorkerCmd(),
		newMigrateCmd(),
		newRequeueCmd(),
	)

	if err := root.Execute(); err != nil {
		log.Fatalf("matrix-service: %v", err)
	}
}
