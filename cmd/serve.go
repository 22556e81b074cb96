package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-search/internal/config"
	"github.com/kozaktomas/face-search/internal/face"
	"github.com/kozaktomas/face-search/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the face search HTTP API",
	Long: `Start the face search server.
The server exposes collection management and face search over HTTP:
upload a photo and get back the most similar faces from a collection.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	port := cfg.Web.Port
	if cmd.Flags().Changed("port") {
		port = mustGetInt(cmd, "port")
	}
	host := cfg.Web.Host
	if cmd.Flags().Changed("host") {
		host = mustGetString(cmd, "host")
	}

	embedder, err := face.NewEmbedder(cfg.Face.ModelsDir, face.PolicyLargest)
	if err != nil {
		return fmt.Errorf("loading face models: %w", err)
	}
	defer embedder.Close()

	ctx := context.Background()
	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	server := web.NewServer(st, embedder, host, port, cfg.Search.TopK)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting face search API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
