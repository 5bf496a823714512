package properties

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/menta2k/postmaker/pkg/types"
)

var layerDefault = [4]uint8{20, 22, 25, 197}

// freshlyOpened mimics the state right after a container decoded a
// 4000x5000 source with the default position ratios.
func freshlyOpened() ImageProperties {
	p := New()
	p.OriginalDimension = [2]float64{4000, 5000}
	p.Dimension = p.OriginalDimension
	p.QuotePosition = 3500
	p.SubquotePosition = 4000
	p.Subquote2Position = 4500
	p.TagPosition = 2500
	p.Tag2Position = 4750
	return p
}

func sampleState() ImageProperties {
	p := freshlyOpened()
	p.SetCropPosition(12.5, 40)
	p.NamePrefix = "ig-"
	p.Quote = "first line\nsecond line"
	p.Subquote = "sub"
	p.Subquote2 = "sub two"
	p.Tag = "#tag"
	p.Tag2 = "@handle"
	p.QuotePosition = 1234.5
	p.SubquotePosition = 2000
	p.Subquote2Position = 2100
	p.TagPosition = 10
	p.Tag2Position = 4999
	p.TranslucentLayerColor = [4]uint8{1, 2, 3, 4}
	return p
}

func persisted(p ImageProperties) ImageProperties {
	return ImageProperties{
		CropPosition:          p.CropPosition,
		NamePrefix:            p.NamePrefix,
		Quote:                 p.Quote,
		Subquote:              p.Subquote,
		Subquote2:             p.Subquote2,
		Tag:                   p.Tag,
		Tag2:                  p.Tag2,
		QuotePosition:         p.QuotePosition,
		SubquotePosition:      p.SubquotePosition,
		Subquote2Position:     p.Subquote2Position,
		TagPosition:           p.TagPosition,
		Tag2Position:          p.Tag2Position,
		TranslucentLayerColor: p.TranslucentLayerColor,
	}
}

func TestFileFromPopulatesEveryField(t *testing.T) {
	p := sampleState()
	f := FileFrom(&p)

	v := reflect.ValueOf(f)
	for i := 0; i < v.NumField(); i++ {
		if v.Field(i).IsNil() {
			t.Errorf("field %s is nil", v.Type().Field(i).Name)
		}
	}
}

func TestMergeRoundTrip(t *testing.T) {
	p := sampleState()
	f := FileFrom(&p)

	// through JSON, as it happens on disk
	data, err := json.Marshal(f)
	if err != nil {
		t.Fatal(err)
	}
	var decoded File
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}

	fresh := New()
	fresh.Merge(decoded, "ignored", "ignored", layerDefault)

	if !reflect.DeepEqual(persisted(fresh), persisted(p)) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", persisted(fresh), persisted(p))
	}
}

func TestMergeIdempotent(t *testing.T) {
	files := []File{
		{},
		{Quote: ptr("only quote")},
		{TagPosition: ptr(42.0), Tag2: ptr("t2")},
		FileFrom(ptr(sampleState())),
	}

	for i, f := range files {
		once := freshlyOpened()
		once.Merge(f, "#d1", "#d2", layerDefault)

		twice := once.Clone()
		twice.Merge(f, "#d1", "#d2", layerDefault)

		if !reflect.DeepEqual(once, twice) {
			t.Errorf("file %d: merge is not idempotent:\n once %+v\ntwice %+v", i, once, twice)
		}
	}
}

func TestMergeEmptyFileUsesDefaults(t *testing.T) {
	p := freshlyOpened()
	p.Merge(File{}, "#brand", "", layerDefault)

	if p.Tag != "#brand" {
		t.Errorf("Expected tag #brand, got %q", p.Tag)
	}
	if p.Tag2 != "" {
		t.Errorf("Expected empty tag2, got %q", p.Tag2)
	}
	if p.QuotePosition != 3500 || p.Tag2Position != 4750 {
		t.Errorf("positions should keep ratio defaults, got %f / %f", p.QuotePosition, p.Tag2Position)
	}
	if p.TranslucentLayerColor != layerDefault {
		t.Errorf("Expected config layer color, got %v", p.TranslucentLayerColor)
	}
	if p.CropPosition != nil {
		t.Errorf("Expected no crop position, got %v", *p.CropPosition)
	}
}

func TestMergeExplicitValuesWin(t *testing.T) {
	p := freshlyOpened()
	p.Merge(File{Tag: ptr(""), QuotePosition: ptr(1.0)}, "#brand", "#b2", layerDefault)

	if p.Tag != "" {
		t.Errorf("explicit empty tag must win over the default, got %q", p.Tag)
	}
	if p.Tag2 != "#b2" {
		t.Errorf("Expected tag2 default, got %q", p.Tag2)
	}
	if p.QuotePosition != 1 {
		t.Errorf("Expected quote position 1, got %f", p.QuotePosition)
	}
}

func TestTextAndPositionAccessors(t *testing.T) {
	p := New()
	for i, f := range types.Fields {
		p.SetText(f, f.String())
		p.SetPosition(f, float64(i))
	}
	if p.IsSaved {
		t.Error("edits should mark the state dirty")
	}
	for i, f := range types.Fields {
		if p.Text(f) != f.String() {
			t.Errorf("Text(%s) = %q", f, p.Text(f))
		}
		if p.Position(f) != float64(i) {
			t.Errorf("Position(%s) = %f", f, p.Position(f))
		}
	}
}

func TestCloneIsDeep(t *testing.T) {
	p := sampleState()
	p.Info = &types.ImageInfo{Path: "a.jpg", Kind: types.KindJPEG}
	c := p.Clone()
	c.CropPosition[0] = 999
	c.Info.Path = "b.jpg"

	if p.CropPosition[0] == 999 || p.Info.Path != "a.jpg" {
		t.Error("Clone shares pointer fields with the original")
	}
}

func TestSharedConcurrentAccess(t *testing.T) {
	s := NewShared(freshlyOpened())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Update(func(p *ImageProperties) { p.SetPosition(types.Quote, float64(i)) })
		}(i)
		go func() {
			defer wg.Done()
			_ = s.Snapshot()
			_ = s.Dimension()
		}()
	}
	wg.Wait()

	if s.Dimension() != [2]float64{4000, 5000} {
		t.Errorf("unexpected dimension %v", s.Dimension())
	}
}

func TestSidecarLoadSave(t *testing.T) {
	dir := t.TempDir()
	info := types.ImageInfo{Path: filepath.Join(dir, "photo.jpg"), Kind: types.KindJPEG}

	path := SidecarPath(info)
	if filepath.Base(path) != "photo-jpg.prop" {
		t.Fatalf("unexpected sidecar name %s", filepath.Base(path))
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("missing sidecar should not be an error: %v", err)
	}
	if !reflect.DeepEqual(f, File{}) {
		t.Errorf("Expected empty file, got %+v", f)
	}

	p := sampleState()
	if err := SaveFile(path, FileFrom(&p)); err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if *loaded.Quote != p.Quote {
		t.Errorf("Expected quote %q, got %q", p.Quote, *loaded.Quote)
	}

	if err := os.WriteFile(path, []byte("{broken"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); !errors.Is(err, ErrCorrupt) {
		t.Errorf("Expected ErrCorrupt, got %v", err)
	}
}

func TestSidecarLegacyMigration(t *testing.T) {
	dir := t.TempDir()
	info := types.ImageInfo{Path: filepath.Join(dir, "photo.png"), Kind: types.KindPNG}
	legacy := filepath.Join(dir, "photo.prop")
	if err := os.WriteFile(legacy, []byte(`{"quote":"old"}`), 0644); err != nil {
		t.Fatal(err)
	}

	path := SidecarPath(info)
	if _, err := os.Stat(legacy); !errors.Is(err, os.ErrNotExist) {
		t.Error("legacy sidecar should be removed after migration")
	}
	f, err := LoadFile(path)
	if err != nil || f.Quote == nil || *f.Quote != "old" {
		t.Errorf("migrated sidecar not readable: %+v, %v", f, err)
	}
}
