package nmr_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"nmrupload/internal/nmr"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestExtractTitleFoldsLineBreaks(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "10")
	writeFile(t, nmr.TitlePath(dir), []byte("Glucose\r\nSample A\n"))

	got, err := nmr.ExtractTitle(dir)
	if err != nil {
		t.Fatalf("ExtractTitle: %v", err)
	}
	if want := "Glucose Sample A - 10"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExtractTitleMissingFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exp_7")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := nmr.ExtractTitle(dir)
	if err != nil {
		t.Fatalf("ExtractTitle: %v", err)
	}
	if want := "Untitled - exp_7"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExtractTitleBlankFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "3")
	writeFile(t, nmr.TitlePath(dir), []byte("\r\n \n"))

	got, err := nmr.ExtractTitle(dir)
	if err != nil {
		t.Fatalf("ExtractTitle: %v", err)
	}
	if want := "Untitled - 3"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExtractTitleDecodesLatin1(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "11")
	writeFile(t, nmr.TitlePath(dir), []byte{'2', '5', 0xB0, 'C', ' ', 'r', 'u', 'n'})

	got, err := nmr.ExtractTitle(dir)
	if err != nil {
		t.Fatalf("ExtractTitle: %v", err)
	}
	if want := "25°C run - 11"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExtractTitleReadErrorPropagates(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "12")
	// A directory where the title file should be cannot be read.
	if err := os.MkdirAll(nmr.TitlePath(dir), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := nmr.ExtractTitle(dir); err == nil {
		t.Fatal("expected read error")
	}
}

func TestSegment(t *testing.T) {
	cases := map[string]string{
		"/data/nmr/10":      "10",
		"/data/nmr/10/":     "10",
		"/data/nmr/run-2":   "2",
		"/data/nmr/exp_a1b": "exp_a1b",
	}
	for in, want := range cases {
		if got := nmr.Segment(in); got != want {
			t.Errorf("Segment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCompanionFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "10")
	writeFile(t, filepath.Join(dir, "pdata", "1", "spectrum.dx"), []byte("##TITLE"))
	writeFile(t, filepath.Join(dir, "pdata", "1", "export", "b.dx"), []byte("##TITLE"))
	writeFile(t, filepath.Join(dir, "pdata", "1", "1r"), []byte{0, 1})
	writeFile(t, filepath.Join(dir, "pdata", "2", "other.dx"), []byte("##TITLE"))

	got, err := nmr.CompanionFiles(dir)
	if err != nil {
		t.Fatalf("CompanionFiles: %v", err)
	}
	want := []string{
		filepath.Join(dir, "pdata", "1", "export", "b.dx"),
		filepath.Join(dir, "pdata", "1", "spectrum.dx"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func TestCompanionFilesWithoutProcessedData(t *testing.T) {
	dir := t.TempDir()
	got, err := nmr.CompanionFiles(dir)
	if err != nil {
		t.Fatalf("CompanionFiles: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no companions, got %v", got)
	}
}

func TestDiscover(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"2", "10", "1", ".trash"} {
		if err := os.MkdirAll(filepath.Join(base, name, "pdata"), 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(base, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(base, "readme.txt"), []byte("hi"))

	got, err := nmr.Discover(base)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one sample directory, got %d", len(got))
	}
	if got[0].Path != base || got[0].Name() != filepath.Base(base) {
		t.Fatalf("unexpected sample directory %+v", got[0])
	}
	want := []string{
		filepath.Join(base, "1"),
		filepath.Join(base, "10"),
		filepath.Join(base, "2"),
	}
	if !reflect.DeepEqual(got[0].Datasets, want) {
		t.Fatalf("datasets = %v want %v", got[0].Datasets, want)
	}
}

func TestDiscoverNothingFound(t *testing.T) {
	base := t.TempDir()
	if err := os.MkdirAll(filepath.Join(base, "notes"), 0o755); err != nil {
		t.Fatal(err)
	}
	got, err := nmr.Discover(base)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty result, got %+v", got)
	}
}

func TestDiscoverMissingDirectory(t *testing.T) {
	if _, err := nmr.Discover(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
