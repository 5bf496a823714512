package imagefile

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/postmaker/pkg/types"
)

func writeImage(t *testing.T, path string, kind types.ImageKind) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	var err error
	switch kind {
	case types.KindJPEG:
		err = jpeg.Encode(&buf, img, nil)
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectUsesContent(t *testing.T) {
	dir := t.TempDir()

	// A PNG named .jpg is still a PNG.
	path := filepath.Join(dir, "mislabeled.jpg")
	writeImage(t, path, types.KindPNG)

	info, err := Detect(path)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if info.Kind != types.KindPNG {
		t.Errorf("Expected png, got %q", info.Kind)
	}
	if info.Path != path {
		t.Errorf("Expected path %s, got %s", path, info.Path)
	}
}

func TestDetectUnsupported(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.png")
	if err := os.WriteFile(path, []byte("plain text, not pixels"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := Detect(path); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Expected ErrUnsupported, got %v", err)
	}
	if _, err := Detect(filepath.Join(dir, "missing.png")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "b.jpg"), types.KindJPEG)
	writeImage(t, filepath.Join(dir, "a.png"), types.KindPNG)
	if err := os.WriteFile(filepath.Join(dir, "a-png.prop"), []byte("{}"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "export"), 0755); err != nil {
		t.Fatal(err)
	}
	writeImage(t, filepath.Join(dir, "export", "c.png"), types.KindPNG)

	images, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("ScanDir failed: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("Expected 2 images, got %d: %v", len(images), images)
	}
	if filepath.Base(images[0].Path) != "a.png" || images[0].Kind != types.KindPNG {
		t.Errorf("unexpected first image %+v", images[0])
	}
	if filepath.Base(images[1].Path) != "b.jpg" || images[1].Kind != types.KindJPEG {
		t.Errorf("unexpected second image %+v", images[1])
	}

	if _, err := ScanDir(filepath.Join(dir, "nope")); err == nil {
		t.Error("Expected error for missing directory")
	}
}
