package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-search/internal/config"
	"github.com/kozaktomas/face-search/internal/face"
	"github.com/kozaktomas/face-search/internal/pipeline"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [directory]",
	Short: "Extract face embeddings from a photo directory and store them",
	Long: `Walk a directory of photos, extract a face embedding from each image
and upsert the embeddings into the configured vector store.

Unsupported files are skipped and counted. Images where no face is
detected are reported as failures but do not abort the run. Re-running
ingestion on the same directory replaces existing records instead of
duplicating them.

Examples:
  # Ingest a folder into the default collection
  face-search ingest ./photos

  # Ingest recursively with 8 parallel workers
  face-search ingest ./photos --recursive --concurrency 8

  # Store every face found in group photos
  face-search ingest ./photos --all-faces

  # Fail images containing more than one face
  face-search ingest ./photos --strict-single-face`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().String("collection", "", "Target collection (defaults to the directory mapping, then FACE_COLLECTION)")
	ingestCmd.Flags().String("collections-file", "collections.yaml", "Directory to collection mapping file")
	ingestCmd.Flags().Bool("remember", false, "Save the directory to collection mapping for future runs")
	ingestCmd.Flags().Int("concurrency", 1, "Number of parallel embedding workers")
	ingestCmd.Flags().Bool("recursive", false, "Descend into subdirectories")
	ingestCmd.Flags().Bool("all-faces", false, "Store one record per detected face instead of one per image")
	ingestCmd.Flags().Bool("strict-single-face", false, "Fail images that contain more than one face")
}

func runIngest(cmd *cobra.Command, args []string) error {
	dir := args[0]
	cfg := config.Load()

	mapping, err := config.LoadCollections(mustGetString(cmd, "collections-file"))
	if err != nil {
		return err
	}

	collection := mustGetString(cmd, "collection")
	if collection == "" {
		collection = mapping.CollectionFor(dir)
	}
	if collection == "" {
		collection = cfg.Search.Collection
	}

	if mustGetBool(cmd, "remember") {
		mapping.Set(dir, collection)
		if err := mapping.Save(); err != nil {
			return err
		}
	}

	policy := face.PolicyLargest
	if mustGetBool(cmd, "strict-single-face") {
		policy = face.PolicyStrict
	}

	embedder, err := face.NewEmbedder(cfg.Face.ModelsDir, policy)
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

	ing := &pipeline.Ingestor{Embedder: embedder, Store: st}
	summary, err := ing.Run(ctx, dir, pipeline.IngestOptions{
		Collection:  collection,
		Recursive:   mustGetBool(cmd, "recursive"),
		AllFaces:    mustGetBool(cmd, "all-faces"),
		Concurrency: mustGetInt(cmd, "concurrency"),
		Progress:    true,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Succeeded: %d\n", summary.Succeeded)
	fmt.Printf("  Failed:    %d\n", summary.Failed)
	fmt.Printf("  Skipped:   %d\n", summary.Skipped)

	if len(summary.Failures) > 0 {
		fmt.Printf("\nFailed files:\n")
		for _, f := range summary.Failures {
			fmt.Printf("  %s: %v\n", f.File, f.Err)
		}
		cleanup()
		os.Exit(2)
	}
	return nil
}
