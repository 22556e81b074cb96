package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// recordNamespace is the fixed UUIDv5 namespace for record IDs.
var recordNamespace = uuid.MustParse("5f9c7c2e-4b1a-4f7e-9d3a-8c2e1b6f4a10")

// RecordID derives a deterministic UUID for one face of one file, so
// re-ingesting the same directory replaces records instead of
// duplicating them. Qdrant only accepts UUIDs or unsigned integers as
// point IDs, which rules out plain filename-derived strings.
func RecordID(collection, relPath string, faceIndex int) string {
	name := fmt.Sprintf("%s/%s#%d", collection, filepath.ToSlash(relPath), faceIndex)
	return uuid.NewSHA1(recordNamespace, []byte(name)).String()
}

// RemoveDiacritics removes diacritical marks from a string
// (e.g. "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// PersonName guesses a normalized person name from an image file name:
// extension stripped, diacritics removed, separators collapsed to
// spaces, trailing counters dropped ("Jiří_Novák-02.jpg" -> "jiri novak").
// Returns "" when nothing name-like remains.
func PersonName(filename string) string {
	name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)

	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-' || r == '.' || r == ' '
	})

	var parts []string
	for _, f := range fields {
		if isDigits(f) {
			continue
		}
		parts = append(parts, f)
	}
	return strings.Join(parts, " ")
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(s) > 0
}
