package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "face-search",
	Short: "A CLI tool for indexing and searching faces in photo collections",
	Long: `Face Search extracts face embeddings from photos using pre-trained
dlib models and stores them in a vector database. Once a collection is
ingested, you can search it with a query photo to find the most similar
faces.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
