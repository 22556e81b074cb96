package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-search/internal/config"
	"github.com/kozaktomas/face-search/internal/face"
	"github.com/kozaktomas/face-search/internal/pipeline"
	"github.com/kozaktomas/face-search/internal/store"
)

var searchCmd = &cobra.Command{
	Use:   "search [image]",
	Short: "Find the most similar faces to a query photo",
	Long: `Embed the face in the query photo and return the nearest records
from the collection, ranked by similarity.

Examples:
  # Search the default collection
  face-search search query.jpg

  # Search a specific collection and return 10 matches
  face-search search query.jpg --collection family --top-k 10

  # Output as JSON
  face-search search query.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("collection", "", "Collection to search (defaults to FACE_COLLECTION)")
	searchCmd.Flags().Int("top-k", 0, "Number of matches to return (defaults to FACE_TOP_K)")
	searchCmd.Flags().Bool("json", false, "Output as JSON")
	searchCmd.Flags().Bool("strict-single-face", false, "Fail query photos that contain more than one face")
}

// SearchMatch is one result row in the JSON output.
type SearchMatch struct {
	ID      string         `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload,omitempty"`
}

// SearchOutput is the JSON output structure.
type SearchOutput struct {
	Query      string        `json:"query"`
	Collection string        `json:"collection"`
	Results    []SearchMatch `json:"results"`
	Count      int           `json:"count"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg := config.Load()

	collection := mustGetString(cmd, "collection")
	if collection == "" {
		collection = cfg.Search.Collection
	}
	topK := mustGetInt(cmd, "top-k")
	if topK <= 0 {
		topK = cfg.Search.TopK
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

	q := &pipeline.Query{Embedder: embedder, Store: st}
	matches, err := q.Run(ctx, path, collection, topK)
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return printSearchJSON(path, collection, matches)
	}
	printSearchTable(collection, matches)
	return nil
}

func printSearchJSON(path, collection string, matches []store.Match) error {
	out := SearchOutput{
		Query:      path,
		Collection: collection,
		Results:    make([]SearchMatch, 0, len(matches)),
		Count:      len(matches),
	}
	for _, m := range matches {
		out.Results = append(out.Results, SearchMatch{ID: m.ID, Score: m.Score, Payload: m.Payload})
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSearchTable(collection string, matches []store.Match) {
	if len(matches) == 0 {
		fmt.Printf("No matches found in collection %s\n", collection)
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tIMAGE\tPERSON\tID")
	for _, m := range matches {
		image, _ := m.Payload["image"].(string)
		person, _ := m.Payload["person"].(string)
		fmt.Fprintf(w, "%.4f\t%s\t%s\t%s\n", m.Score, image, person, m.ID)
	}
	w.Flush()
}
