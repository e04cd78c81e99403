package archivewatch

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatchReportsNewArchive(t *testing.T) {
	dir := t.TempDir()
	w, err := Watch(dir)
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	target := filepath.Join(dir, "firmware.tar.md5")
	if err := os.WriteFile(target, []byte("data"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	select {
	case got := <-w.Found:
		if got != target {
			t.Errorf("want %s, got %s", target, got)
		}
	case err := <-w.Errors:
		t.Fatalf("unexpected watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for archive notification")
	}
}

func TestIsArchiveFiltersNonTarMd5(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"firmware.tar.md5", true},
		{"FIRMWARE.TAR.MD5", true},
		{"firmware.tar", false},
		{"readme.txt", false},
	}
	for _, c := range cases {
		if got := isArchive(c.name); got != c.want {
			t.Errorf("isArchive(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}
