package build

import (
	"os"
	"testing"
)

// TestTempDir checks that TempDir produces a fresh, namespaced directory.
func TestTempDir(t *testing.T) {
	dir := TempDir("build", "TestTempDir")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	f := dir + "/marker"
	if err := os.WriteFile(f, []byte("x"), 0600); err != nil {
		t.Fatal(err)
	}

	// Calling TempDir again for the same path should wipe prior contents.
	dir2 := TempDir("build", "TestTempDir")
	if dir != dir2 {
		t.Fatalf("expected stable path, got %q then %q", dir, dir2)
	}
	if _, err := os.Stat(f); !os.IsNotExist(err) {
		t.Fatal("expected TempDir to remove stale contents")
	}
}
