package persistence

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/rowfilter/engine/pkg/filtering"
)

func sampleSet(name string) *filtering.ConditionSet {
	return &filtering.ConditionSet{
		Version: "1.0.0",
		Name:    name,
		Columns: []filtering.ColumnConditions{
			{
				Column:    "status",
				Operation: "conjunction",
				Conditions: []filtering.ConditionSpec{
					{Name: "isEqualTo", Args: []any{"active"}},
				},
			},
		},
	}
}

func TestSaveAndLoad(t *testing.T) {
	store := NewSetStore(t.TempDir())
	set := sampleSet("active-users")

	if err := store.Save("active-users", set); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load("active-users")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded == nil {
		t.Fatal("Load() = nil for saved set")
	}
	if !reflect.DeepEqual(loaded, set) {
		t.Errorf("loaded set = %+v, want %+v", loaded, set)
	}
}

func TestLoadMissing(t *testing.T) {
	store := NewSetStore(t.TempDir())

	loaded, err := store.Load("never-saved")
	if err != nil {
		t.Fatalf("Load(missing) error = %v", err)
	}
	if loaded != nil {
		t.Errorf("Load(missing) = %+v, want nil", loaded)
	}
}

func TestSaveValidation(t *testing.T) {
	store := NewSetStore(t.TempDir())

	if err := store.Save("", sampleSet("x")); err != ErrInvalidSetID {
		t.Errorf("Save(empty id) error = %v, want ErrInvalidSetID", err)
	}
	if err := store.Save("x", nil); err != ErrNilSet {
		t.Errorf("Save(nil set) error = %v, want ErrNilSet", err)
	}
}

func TestSaveRejectsUnsafeIDs(t *testing.T) {
	store := NewSetStore(t.TempDir())

	for _, id := range []string{".hidden", "..", "."} {
		if err := store.Save(id, sampleSet("x")); err == nil {
			t.Errorf("Save(%q) expected error, got nil", id)
		}
	}
}

func TestSaveStripsPathComponents(t *testing.T) {
	dir := t.TempDir()
	store := NewSetStore(dir)

	// Separators are stripped down to the base name
	if err := store.Save("nested/dir/myset", sampleSet("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "myset.json")); err != nil {
		t.Errorf("expected file at base name: %v", err)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store := NewSetStore(t.TempDir())

	if err := store.Save("s", sampleSet("first")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Save("s", sampleSet("second")); err != nil {
		t.Fatalf("Save() overwrite error = %v", err)
	}

	loaded, err := store.Load("s")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Name != "second" {
		t.Errorf("loaded name = %q, want second", loaded.Name)
	}
}

func TestSaveLeavesNoTempFile(t *testing.T) {
	dir := t.TempDir()
	store := NewSetStore(dir)

	if err := store.Save("s", sampleSet("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".tmp" {
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
}

func TestDelete(t *testing.T) {
	store := NewSetStore(t.TempDir())

	if err := store.Save("s", sampleSet("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Delete("s"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	loaded, err := store.Load("s")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded != nil {
		t.Error("Load() != nil after delete")
	}

	// Deleting a missing set is not an error
	if err := store.Delete("s"); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}
}

func TestExists(t *testing.T) {
	store := NewSetStore(t.TempDir())

	exists, err := store.Exists("s")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("Exists() = true before save")
	}

	if err := store.Save("s", sampleSet("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	exists, err = store.Exists("s")
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("Exists() = false after save")
	}
}

func TestList(t *testing.T) {
	store := NewSetStore(t.TempDir())

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("List() = %v before saves, want empty", ids)
	}

	for _, id := range []string{"zulu", "alpha", "mike"} {
		if err := store.Save(id, sampleSet(id)); err != nil {
			t.Fatalf("Save(%q) error = %v", id, err)
		}
	}

	ids, err = store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	want := []string{"alpha", "mike", "zulu"}
	if !reflect.DeepEqual(ids, want) {
		t.Errorf("List() = %v, want %v", ids, want)
	}
}

func TestListMissingDirectory(t *testing.T) {
	store := NewSetStore(filepath.Join(t.TempDir(), "not-created-yet"))

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("List() = %v for missing directory, want empty", ids)
	}
}

func TestListIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewSetStore(dir)

	if err := store.Save("real", sampleSet("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0700); err != nil {
		t.Fatalf("Mkdir() error = %v", err)
	}

	ids, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"real"}) {
		t.Errorf("List() = %v, want [real]", ids)
	}
}

func TestDefaultStorePath(t *testing.T) {
	store := NewSetStore("")
	if store.basePath != DefaultStorePath {
		t.Errorf("basePath = %q, want %q", store.basePath, DefaultStorePath)
	}
}
