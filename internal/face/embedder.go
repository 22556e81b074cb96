// Package face produces 128-dimensional face embeddings using dlib via
// github.com/Kagami/go-face. Detection, landmark alignment and the
// recognition network are all delegated to the pre-trained dlib models;
// this package only selects which detected face to embed.
package face

import (
	"errors"
	"fmt"
	"image"
	"os"

	goface "github.com/Kagami/go-face"
)

// EmbeddingDim is the output dimensionality of the dlib recognition
// network. Collections must be created with this dimensionality.
const EmbeddingDim = 128

// Sentinel errors.
var (
	// ErrModelLoad means the dlib model files are missing or corrupt.
	// Fatal for the whole run.
	ErrModelLoad = errors.New("cannot load face models")

	// ErrNoFace means no face was detected in the image.
	ErrNoFace = errors.New("no face detected")

	// ErrAmbiguousFaces means more than one face was detected while the
	// strict single-face policy is active.
	ErrAmbiguousFaces = errors.New("multiple faces detected")
)

// Policy decides what to do when an image contains more than one face.
type Policy int

const (
	// PolicyLargest embeds the face with the largest bounding box,
	// breaking ties deterministically by the top-left corner. This is
	// the default: detector ordering is not stable across versions, so
	// "first face" is not an option.
	PolicyLargest Policy = iota

	// PolicyStrict fails with ErrAmbiguousFaces when an image contains
	// more than one face.
	PolicyStrict
)

// Face is one embedded face: its location in the image and the
// 128-float descriptor.
type Face struct {
	Rect      image.Rectangle
	Embedding []float32
}

// Embedder wraps a dlib face recognizer. It is safe for concurrent use;
// go-face serializes inference internally.
type Embedder struct {
	rec    *goface.Recognizer
	policy Policy
}

// NewEmbedder loads the dlib models (shape predictor, detector and
// recognition network) from modelsDir. Missing or unreadable model
// files return ErrModelLoad.
func NewEmbedder(modelsDir string, policy Policy) (*Embedder, error) {
	if info, err := os.Stat(modelsDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: models directory %s does not exist", ErrModelLoad, modelsDir)
	}

	rec, err := goface.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelLoad, err)
	}
	return &Embedder{rec: rec, policy: policy}, nil
}

// Close releases the dlib recognizer.
func (e *Embedder) Close() {
	e.rec.Close()
}

// Embed detects faces in JPEG image data and returns the embedding of
// the face chosen by the configured policy. Inference is deterministic:
// the same bytes and model files always produce the same vector.
func (e *Embedder) Embed(jpegData []byte) (*Face, error) {
	faces, err := e.EmbedAll(jpegData)
	if err != nil {
		return nil, err
	}
	if len(faces) > 1 && e.policy == PolicyStrict {
		return nil, fmt.Errorf("%w: found %d", ErrAmbiguousFaces, len(faces))
	}
	chosen := faces[selectLargest(rectsOf(faces))]
	return &chosen, nil
}

// EmbedFile is Embed for an on-disk JPEG file.
func (e *Embedder) EmbedFile(path string) (*Face, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return e.Embed(data)
}

// EmbedAll returns one embedding per detected face, in detector order.
// Returns ErrNoFace when the image contains no detectable face.
func (e *Embedder) EmbedAll(jpegData []byte) ([]Face, error) {
	detected, err := e.rec.Recognize(jpegData)
	if err != nil {
		return nil, fmt.Errorf("face recognition failed: %w", err)
	}
	if len(detected) == 0 {
		return nil, ErrNoFace
	}

	faces := make([]Face, len(detected))
	for i, d := range detected {
		emb := make([]float32, EmbeddingDim)
		copy(emb, d.Descriptor[:])
		faces[i] = Face{Rect: d.Rectangle, Embedding: emb}
	}
	return faces, nil
}

func rectsOf(faces []Face) []image.Rectangle {
	rects := make([]image.Rectangle, len(faces))
	for i, f := range faces {
		rects[i] = f.Rect
	}
	return rects
}

// selectLargest returns the index of the largest rectangle by area.
// Ties go to the rectangle whose top-left corner sorts first (smaller
// Y, then smaller X) so the choice never depends on detector ordering.
func selectLargest(rects []image.Rectangle) int {
	best := 0
	for i := 1; i < len(rects); i++ {
		if largerRect(rects[i], rects[best]) {
			best = i
		}
	}
	return best
}

func largerRect(a, b image.Rectangle) bool {
	areaA := a.Dx() * a.Dy()
	areaB := b.Dx() * b.Dy()
	if areaA != areaB {
		return areaA > areaB
	}
	if a.Min.Y != b.Min.Y {
		return a.Min.Y < b.Min.Y
	}
	return a.Min.X < b.Min.X
}
