package layout

import (
	"image"
	"image/color"
	"math"
	"reflect"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

func newFace(t testing.TB, size float64) font.Face {
	t.Helper()
	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		t.Fatal(err)
	}
	face, err := opentype.NewFace(parsed, &opentype.FaceOptions{Size: size, DPI: 72})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { face.Close() })
	return face
}

func blank(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

// inkBounds returns the bounding box of non-black pixels.
func inkBounds(img *image.NRGBA) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if c.R > 0 || c.G > 0 || c.B > 0 {
				r = r.Union(image.Rect(x, y, x+1, y+1))
			}
		}
	}
	return r
}

func TestLines(t *testing.T) {
	cases := map[string][]string{
		"":           nil,
		"one":        {"one"},
		"a\nb":       {"a", "b"},
		"a\r\nb\r\n": {"a", "b"},
		"a\n\nb":     {"a", "", "b"},
	}
	for in, want := range cases {
		if got := Lines(in); !reflect.DeepEqual(got, want) {
			t.Errorf("Lines(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMeasureLine(t *testing.T) {
	face := newFace(t, 40)

	w1, h1 := MeasureLine(face, "short")
	w2, h2 := MeasureLine(face, "a considerably longer line")
	if w1 <= 0 || w2 <= w1 {
		t.Errorf("widths should grow with text: %f, %f", w1, w2)
	}
	if h1 != h2 || h1 <= 0 {
		t.Errorf("line height should be constant for a face: %f, %f", h1, h2)
	}

	_, hBig := MeasureLine(newFace(t, 80), "short")
	if hBig <= h1 {
		t.Errorf("line height should grow with size: %f vs %f", hBig, h1)
	}
}

func TestMeasureBox(t *testing.T) {
	face := newFace(t, 30)
	_, lineH := MeasureLine(face, "x")
	wLong, _ := MeasureLine(face, "the longest line")

	w, h := Measure(face, "a\nthe longest line\nb", QuoteSpacing)
	if w != wLong {
		t.Errorf("Expected box width %f, got %f", wLong, w)
	}
	want := lineH + 2*lineH*QuoteSpacing
	if math.Abs(h-want) > 1e-9 {
		t.Errorf("Expected box height %f, got %f", want, h)
	}

	_, hPlain := Measure(face, "a\nb", 0)
	if math.Abs(hPlain-2*lineH) > 1e-9 {
		t.Errorf("Expected plain spacing height %f, got %f", 2*lineH, hPlain)
	}

	if w, h := Measure(face, "", QuoteSpacing); w != 0 || h != 0 {
		t.Errorf("empty text should measure 0x0, got %fx%f", w, h)
	}
}

func TestOriginScalesFromOriginalSpace(t *testing.T) {
	p := Placement{Position: 3500, OriginalHeight: 5000, Anchor: Center, LineSpacing: QuoteSpacing}

	x, y := p.Origin(0, 400, 500, 100, 20)
	if x != 150 || y != 350 {
		t.Errorf("Expected (150, 350), got (%f, %f)", x, y)
	}

	_, y = p.Origin(2, 400, 500, 100, 20)
	if math.Abs(y-(350+2*20*QuoteSpacing)) > 1e-9 {
		t.Errorf("unexpected third line y %f", y)
	}

	p.Anchor = Right
	p.RightMargin = 0.95
	x, _ = p.Origin(0, 400, 500, 100, 20)
	if x != 280 {
		t.Errorf("Expected right anchored x 280, got %f", x)
	}
}

func TestDrawMultilineCentered(t *testing.T) {
	face := newFace(t, 24)
	img := blank(400, 500)

	DrawMultiline(img, face, "Hello", Placement{Position: 3500, OriginalHeight: 5000, Color: color.White})

	ink := inkBounds(img)
	if ink.Empty() {
		t.Fatal("nothing was drawn")
	}
	if ink.Min.Y < 350 || ink.Min.Y > 350+24 {
		t.Errorf("Expected text just below y=350, ink starts at %d", ink.Min.Y)
	}
	center := float64(ink.Min.X+ink.Max.X) / 2
	if math.Abs(center-200) > 6 {
		t.Errorf("Expected text centered near x=200, got %f", center)
	}
}

func TestDrawMultilineRightAnchored(t *testing.T) {
	face := newFace(t, 24)
	img := blank(400, 500)

	DrawMultiline(img, face, "#tag", Placement{
		Position:       100,
		OriginalHeight: 500,
		Anchor:         Right,
		RightMargin:    0.9,
	})

	ink := inkBounds(img)
	if ink.Empty() {
		t.Fatal("nothing was drawn")
	}
	if ink.Max.X > 361 || ink.Max.X < 340 {
		t.Errorf("Expected text to end near x=360, ends at %d", ink.Max.X)
	}
}

func TestDrawMultilineEmpty(t *testing.T) {
	face := newFace(t, 24)
	img := blank(100, 100)
	DrawMultiline(img, face, "", Placement{Position: 10, OriginalHeight: 100})
	if !inkBounds(img).Empty() {
		t.Error("empty text should draw nothing")
	}
}

func BenchmarkDrawMultiline(b *testing.B) {
	face := newFace(b, 25)
	img := blank(400, 500)
	p := Placement{Position: 3500, OriginalHeight: 5000, LineSpacing: QuoteSpacing}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		DrawMultiline(img, face, "first line\nsecond line", p)
	}
}
