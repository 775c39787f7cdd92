package chrome

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEmptyCapabilities(t *testing.T) {
	data, err := json.Marshal(Capabilities{})
	if err != nil {
		t.Fatalf("json.Marshal(Capabilities{}) return error: %v", err)
	}
	got, want := string(data), `{"w3c":false}`
	if got != want {
		t.Fatalf("json.Marshal(Capabilities{}) = %q, want %q", got, want)
	}
}

func TestHeadless(t *testing.T) {
	var c Capabilities
	c.Headless(1280, 800)
	want := []string{"--headless=new", "--disable-gpu", "--window-size=1280,800"}
	if diff := cmp.Diff(want, c.Args); diff != "" {
		t.Fatalf("Headless() args diff (-want/+got):\n%s", diff)
	}
}

func TestAddExtension(t *testing.T) {
	var c Capabilities
	if err := c.addExtension(strings.NewReader("crx")); err != nil {
		t.Fatalf("addExtension() returned error: %v", err)
	}
	if diff := cmp.Diff([]string{"Y3J4"}, c.Extensions); diff != "" {
		t.Fatalf("Extensions diff (-want/+got):\n%s", diff)
	}
}

func TestAddUnpackedExtension(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	for _, dir := range []string{first, second} {
		if err := os.WriteFile(filepath.Join(dir, "manifest.json"), []byte(`{"manifest_version":3}`), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var c Capabilities
	if err := c.AddUnpackedExtension(first); err != nil {
		t.Fatalf("AddUnpackedExtension(%q) returned error: %v", first, err)
	}
	if err := c.AddUnpackedExtension(second); err != nil {
		t.Fatalf("AddUnpackedExtension(%q) returned error: %v", second, err)
	}
	want := []string{"--load-extension=" + first + "," + second}
	if diff := cmp.Diff(want, c.Args); diff != "" {
		t.Fatalf("Args diff (-want/+got):\n%s", diff)
	}

	if err := c.AddUnpackedExtension(t.TempDir()); err == nil {
		t.Fatal("AddUnpackedExtension() on a directory without a manifest returned nil error")
	}
}
