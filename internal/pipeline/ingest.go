// Package pipeline wires the image loader, face embedder and vector
// store into the two flows this tool exists for: directory ingestion
// and single-image queries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/face-search/internal/face"
	"github.com/kozaktomas/face-search/internal/imaging"
	"github.com/kozaktomas/face-search/internal/store"
)

// maxImageSize bounds the longest image side before inference; dlib
// gains nothing from larger inputs and detection cost grows with area.
const maxImageSize = 1920

// Embedder is the face-embedding dependency, satisfied by
// face.Embedder and by fakes in tests.
type Embedder interface {
	Embed(jpegData []byte) (*face.Face, error)
	EmbedAll(jpegData []byte) ([]face.Face, error)
}

// IngestOptions control one ingestion run.
type IngestOptions struct {
	Collection  string
	Recursive   bool // descend into subdirectories
	AllFaces    bool // store one record per detected face instead of one per image
	Concurrency int  // parallel embedding workers; <=1 means sequential
	Progress    bool // render a progress bar on stderr
}

// FileError records one failed image.
type FileError struct {
	File string
	Err  error
}

// Summary is the end state of an ingestion run. Every skipped or failed
// file is accounted for; nothing fails silently.
type Summary struct {
	Succeeded int
	Failed    int
	Skipped   int
	Failures  []FileError
}

// Ingestor runs the directory ingestion flow.
type Ingestor struct {
	Embedder Embedder
	Store    store.VectorStore
}

// Run embeds every supported image under dir and upserts the results
// into the collection. Per-image failures (unreadable file, no face)
// are recorded in the summary and the walk continues; only store-level
// and setup errors abort the run.
func (ing *Ingestor) Run(ctx context.Context, dir string, opts IngestOptions) (*Summary, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	if _, err := ing.Store.CollectionInfo(ctx, opts.Collection); err != nil {
		return nil, fmt.Errorf("collection %s: %w", opts.Collection, err)
	}

	files, skipped, err := listImages(dir, opts.Recursive)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Skipped: skipped}
	if len(files) == 0 {
		return summary, nil
	}

	var bar *progressbar.ProgressBar
	if opts.Progress {
		bar = progressbar.NewOptions(len(files),
			progressbar.OptionSetDescription("Embedding faces"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionFullWidth(),
		)
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var mu sync.Mutex
	var wg sync.WaitGroup
	var fatalErr error
	sem := make(chan struct{}, concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(relPath string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if ctx.Err() != nil {
				return
			}

			err := ing.processImage(ctx, dir, relPath, opts)

			mu.Lock()
			switch {
			case err == nil:
				summary.Succeeded++
			case fatalIngestError(err):
				if fatalErr == nil {
					fatalErr = err
				}
				cancel()
			default:
				summary.Failed++
				summary.Failures = append(summary.Failures, FileError{File: relPath, Err: err})
			}
			mu.Unlock()
			if bar != nil {
				bar.Add(1)
			}
		}(file)
	}
	wg.Wait()

	if fatalErr != nil {
		return nil, fatalErr
	}
	return summary, nil
}

// fatalIngestError reports store-level failures that abort the whole
// run. Per-image errors (unreadable file, no face) only mark the file
// and the walk continues.
func fatalIngestError(err error) bool {
	return errors.Is(err, store.ErrStoreUnavailable) ||
		errors.Is(err, store.ErrDimensionMismatch) ||
		errors.Is(err, store.ErrSchemaConflict) ||
		errors.Is(err, store.ErrCollectionNotFound)
}

// processImage runs load -> embed -> upsert for one file.
func (ing *Ingestor) processImage(ctx context.Context, dir, relPath string, opts IngestOptions) error {
	data, err := imaging.Load(filepath.Join(dir, relPath))
	if err != nil {
		return err
	}
	data, err = imaging.Resize(data, maxImageSize)
	if err != nil {
		return err
	}

	var faces []face.Face
	if opts.AllFaces {
		faces, err = ing.Embedder.EmbedAll(data)
	} else {
		var f *face.Face
		f, err = ing.Embedder.Embed(data)
		if f != nil {
			faces = []face.Face{*f}
		}
	}
	if err != nil {
		return err
	}

	for i, f := range faces {
		rec := store.Record{
			ID:     RecordID(opts.Collection, relPath, i),
			Vector: f.Embedding,
			Payload: map[string]any{
				"image":      filepath.Base(relPath),
				"path":       relPath,
				"person":     PersonName(relPath),
				"face_index": i,
				"box":        fmt.Sprintf("%d,%d,%d,%d", f.Rect.Min.X, f.Rect.Min.Y, f.Rect.Max.X, f.Rect.Max.Y),
			},
		}
		if err := ing.Store.Upsert(ctx, opts.Collection, rec); err != nil {
			return fmt.Errorf("upserting %s: %w", rec.ID, err)
		}
	}
	return nil
}

// listImages returns relative paths of supported image files under dir
// and the number of regular files skipped for unsupported extensions.
func listImages(dir string, recursive bool) ([]string, int, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot read directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, 0, fmt.Errorf("%s is not a directory", dir)
	}

	var files []string
	skipped := 0

	if recursive {
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, relErr := filepath.Rel(dir, path)
			if relErr != nil {
				return relErr
			}
			if imaging.IsSupportedFile(rel) {
				files = append(files, rel)
			} else {
				skipped++
			}
			return nil
		})
		if err != nil {
			return nil, 0, fmt.Errorf("walking %s: %w", dir, err)
		}
		return files, skipped, nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("cannot read directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imaging.IsSupportedFile(entry.Name()) {
			files = append(files, entry.Name())
		} else {
			skipped++
		}
	}
	return files, skipped, nil
}
