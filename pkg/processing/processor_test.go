package processing

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"

	"github.com/menta2k/postmaker/pkg/types"
)

// createTestImage creates a simple gradient test image
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := uint8((x * 255) / width)
			g := uint8((y * 255) / height)
			img.SetNRGBA(x, y, color.NRGBA{r, g, 128, 255})
		}
	}
	return img
}

func writeFile(t *testing.T, path string, encode func(*bytes.Buffer) error) {
	t.Helper()
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	src := createTestImage(40, 30)

	pngPath := filepath.Join(dir, "a.png")
	writeFile(t, pngPath, func(b *bytes.Buffer) error { return png.Encode(b, src) })
	jpgPath := filepath.Join(dir, "b.jpg")
	writeFile(t, jpgPath, func(b *bytes.Buffer) error { return jpeg.Encode(b, src, nil) })
	webpPath := filepath.Join(dir, "c.webp")
	writeFile(t, webpPath, func(b *bytes.Buffer) error { return webp.Encode(b, src, &webp.Options{Lossless: true}) })

	for _, info := range []types.ImageInfo{
		{Path: pngPath, Kind: types.KindPNG},
		{Path: jpgPath, Kind: types.KindJPEG},
		{Path: webpPath, Kind: types.KindWebP},
	} {
		img, err := p.LoadImage(info)
		if err != nil {
			t.Errorf("LoadImage(%s) failed: %v", info.Kind, err)
			continue
		}
		if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 30 {
			t.Errorf("LoadImage(%s) size %v, want 40x30", info.Kind, img.Bounds().Size())
		}
	}
}

func TestLoadImageErrors(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := p.LoadImage(types.ImageInfo{Path: bad, Kind: types.KindPNG}); !errors.Is(err, ErrDecode) {
		t.Errorf("Expected ErrDecode, got %v", err)
	}

	if _, err := p.LoadImage(types.ImageInfo{Path: bad}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestEncode(t *testing.T) {
	p := NewProcessor()
	img := createTestImage(20, 10)

	tests := []struct {
		kind   types.ImageKind
		format string
	}{
		{types.KindPNG, "png"},
		{types.KindJPEG, "jpeg"},
		{types.KindWebP, "webp"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := p.Encode(&buf, img, tt.kind); err != nil {
			t.Errorf("Encode(%s) failed: %v", tt.kind, err)
			continue
		}
		cfg, format, err := image.DecodeConfig(&buf)
		if err != nil {
			t.Errorf("Encode(%s) produced undecodable data: %v", tt.kind, err)
			continue
		}
		if format != tt.format {
			t.Errorf("Expected format %s, got %s", tt.format, format)
		}
		if cfg.Width != 20 || cfg.Height != 10 {
			t.Errorf("Expected 20x10, got %dx%d", cfg.Width, cfg.Height)
		}
	}

	if err := p.Encode(&bytes.Buffer{}, img, "gif"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestSaveImage(t *testing.T) {
	p := NewProcessor()
	dir := t.TempDir()
	path := filepath.Join(dir, "export", "out.png")

	if err := p.SaveImage(createTestImage(10, 10), path, types.KindPNG); err != nil {
		t.Fatalf("SaveImage failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("export missing: %v", err)
	}

	// A failed encode keeps the previous file and leaves no temp files.
	if err := p.SaveImage(createTestImage(10, 10), path, "bmp"); err == nil {
		t.Fatal("Expected error for unsupported kind")
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "out.png" {
		t.Errorf("unexpected export dir contents: %v", entries)
	}
}

func TestExportPath(t *testing.T) {
	info := types.ImageInfo{Path: filepath.Join("photos", "sunset.final.jpg"), Kind: types.KindJPEG}

	got := ExportPath(info, "ig_", types.KindPNG)
	want := filepath.Join("photos", "export", "ig_sunset.final-jpg.png")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}

	got = ExportPath(info, "a/b", types.KindJPEG)
	want = filepath.Join("photos", "export", "a_bsunset.final-jpg.jpg")
	if got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestEncodeForModel(t *testing.T) {
	p := NewProcessor()
	data, err := p.EncodeForModel(createTestImage(600, 1200), 512, 85)
	if err != nil {
		t.Fatalf("EncodeForModel failed: %v", err)
	}

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("invalid jpeg: %v", err)
	}
	if cfg.Width != 256 || cfg.Height != 512 {
		t.Errorf("Expected 256x512, got %dx%d", cfg.Width, cfg.Height)
	}

	small, err := p.EncodeForModel(createTestImage(100, 50), 512, 85)
	if err != nil {
		t.Fatal(err)
	}
	if cfg, _ := jpeg.DecodeConfig(bytes.NewReader(small)); cfg.Width != 100 {
		t.Errorf("small images should not be resized, got width %d", cfg.Width)
	}
}

func TestDrawHollowRect(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	red := color.NRGBA{255, 0, 0, 255}

	DrawHollowRect(img, image.Rect(2, 2, 8, 8), red)

	if img.NRGBAAt(2, 2) != red || img.NRGBAAt(7, 7) != red || img.NRGBAAt(7, 2) != red {
		t.Error("corners should be drawn")
	}
	if img.NRGBAAt(4, 4) == red {
		t.Error("interior should be untouched")
	}

	// Rectangles reaching past the image are clipped, not a panic.
	DrawHollowRect(img, image.Rect(-5, -5, 20, 20), red)
	DrawHollowRect(img, image.Rect(30, 30, 40, 40), red)
}

func TestBlendOver(t *testing.T) {
	white := color.NRGBA{255, 255, 255, 255}

	got := BlendOver(white, color.NRGBA{0, 0, 0, 16})
	if got.A != 255 || got.R != 239 {
		t.Errorf("Expected slightly darkened white, got %v", got)
	}

	if got := BlendOver(white, color.NRGBA{0, 0, 0, 0}); got != white {
		t.Errorf("transparent source should not change dst, got %v", got)
	}
	if got := BlendOver(color.NRGBA{}, color.NRGBA{}); got != (color.NRGBA{}) {
		t.Errorf("Expected transparent result, got %v", got)
	}
}

func TestCornerColor(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	img.SetNRGBA(0, 0, color.NRGBA{100, 0, 0, 255})
	img.SetNRGBA(3, 0, color.NRGBA{100, 0, 0, 255})
	img.SetNRGBA(0, 3, color.NRGBA{0, 200, 0, 255})
	img.SetNRGBA(3, 3, color.NRGBA{0, 200, 0, 255})

	got := CornerColor(img)
	want := color.NRGBA{50, 100, 0, 255}
	if got != want {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestLayer(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 255
	}

	out := Layer(img, [4]uint8{0, 0, 0, 128})
	c := out.NRGBAAt(1, 1)
	if c.R < 120 || c.R > 135 || c.A != 255 {
		t.Errorf("Expected half-darkened opaque pixel, got %v", c)
	}
}
