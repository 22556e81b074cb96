package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-search/internal/config"
	"github.com/kozaktomas/face-search/internal/face"
	"github.com/kozaktomas/face-search/internal/store"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage vector store collections",
}

var collectionCreateCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a collection for face embeddings",
	Long: `Create a collection in the configured vector store.

The collection is created with a fixed vector dimensionality and distance
metric. Creating a collection that already exists with the same parameters
is a no-op.

Examples:
  # Create a collection with the defaults (128 dimensions, dot product)
  face-search collection create family

  # Create a collection using cosine similarity
  face-search collection create family --metric cosine`,
	Args: cobra.ExactArgs(1),
	RunE: runCollectionCreate,
}

var collectionInfoCmd = &cobra.Command{
	Use:   "info [name]",
	Short: "Show a collection's schema and record count",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionInfo,
}

var collectionDeleteCmd = &cobra.Command{
	Use:   "delete [name]",
	Short: "Delete a collection and all its records",
	Args:  cobra.ExactArgs(1),
	RunE:  runCollectionDelete,
}

func init() {
	rootCmd.AddCommand(collectionCmd)
	collectionCmd.AddCommand(collectionCreateCmd)
	collectionCmd.AddCommand(collectionInfoCmd)
	collectionCmd.AddCommand(collectionDeleteCmd)

	collectionCreateCmd.Flags().Int("dim", face.EmbeddingDim, "Vector dimensionality")
	collectionCreateCmd.Flags().String("metric", "dot", "Distance metric (cosine, euclid, dot)")
}

func runCollectionCreate(cmd *cobra.Command, args []string) error {
	name := args[0]
	dim := mustGetInt(cmd, "dim")

	metric, err := store.ParseMetric(mustGetString(cmd, "metric"))
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, cleanup, err := openStore(ctx, config.Load())
	if err != nil {
		return err
	}
	defer cleanup()

	if err := st.CreateCollection(ctx, name, dim, metric); err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	fmt.Printf("Collection %s ready (%d dimensions, %s)\n", name, dim, metric)
	return nil
}

func runCollectionInfo(cmd *cobra.Command, args []string) error {
	name := args[0]

	ctx := context.Background()
	st, cleanup, err := openStore(ctx, config.Load())
	if err != nil {
		return err
	}
	defer cleanup()

	info, err := st.CollectionInfo(ctx, name)
	if err != nil {
		return err
	}

	fmt.Printf("Collection: %s\n", info.Name)
	fmt.Printf("  Dimensions: %d\n", info.Dim)
	fmt.Printf("  Metric:     %s\n", info.Metric)
	fmt.Printf("  Records:    %d\n", info.Count)
	return nil
}

func runCollectionDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	ctx := context.Background()
	st, cleanup, err := openStore(ctx, config.Load())
	if err != nil {
		return err
	}
	defer cleanup()

	if err := st.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("deleting collection %s: %w", name, err)
	}

	fmt.Printf("Collection %s deleted\n", name)
	return nil
}
