package persist_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/podliner/podliner/internal/persist"
)

type doc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestWriteJSONRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")

	want := doc{Name: "alpha", Count: 3}
	if err := persist.WriteJSON(path, want); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got doc
	existed, err := persist.LoadJSON(path, &got)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if !existed {
		t.Fatal("expected existed = true")
	}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	// no leftover temp files
	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".tmp" {
			t.Fatalf("leftover temp file: %s", e.Name())
		}
	}
}

func TestLoadJSONMissingFile(t *testing.T) {
	dir := t.TempDir()
	var got doc
	existed, err := persist.LoadJSON(filepath.Join(dir, "missing.json"), &got)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if existed {
		t.Fatal("expected existed = false for missing file")
	}
}

func TestLoadJSONCorrupt(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	var got doc
	existed, err := persist.LoadJSON(path, &got)
	if !existed {
		t.Fatal("expected existed = true for a present-but-corrupt file")
	}
	if err == nil {
		t.Fatal("expected an error for corrupt JSON")
	}
}

func TestLoadJSONToleratesCommentsAndTrailingCommas(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	content := `{
		// a comment
		"name": "beta", /* inline */
		"count": 7,
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	var got doc
	existed, err := persist.LoadJSON(path, &got)
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if !existed {
		t.Fatal("expected existed = true")
	}
	if got.Name != "beta" || got.Count != 7 {
		t.Fatalf("got %+v", got)
	}
}

func TestCleanupOrphanTmp(t *testing.T) {
	dir := t.TempDir()
	orphan := filepath.Join(dir, "library.json.tmp")
	if err := os.WriteFile(orphan, []byte("partial"), 0o600); err != nil {
		t.Fatal(err)
	}
	keep := filepath.Join(dir, "library.json")
	if err := os.WriteFile(keep, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}

	if err := persist.CleanupOrphanTmp(dir); err != nil {
		t.Fatalf("CleanupOrphanTmp: %v", err)
	}
	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatal("expected orphan .tmp file to be removed")
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("expected kept file to survive: %v", err)
	}
}
