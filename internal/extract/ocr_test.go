package extract

import (
	"reflect"
	"testing"

	"github.com/ppiankov/lineage/internal/model"
)

func TestFreeTextNames(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "all caps with initial",
			text: "MARY A HARRISON",
			want: []string{"Mary A Harrison"},
		},
		{
			name: "title case triple",
			text: "Funeral services for John Henry Smith were held Tuesday.",
			want: []string{"John Henry Smith"},
		},
		{
			name: "noise words rejected",
			text: "Richland County. William Lack and Mary Lack",
			want: []string{"William Lack", "Mary Lack"},
		},
		{
			name: "caps run after title case line",
			text: "Obituary\nMARY A HARRISON died at her home",
			want: []string{"Mary A Harrison"},
		},
		{
			name: "duplicates collapsed",
			text: "Ann Lack wrote to Ann Lack.",
			want: []string{"Ann Lack"},
		},
		{
			name: "nothing name shaped",
			text: "the quick brown fox",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FreeTextNames(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestExtractor_ShortTextYieldsNothing(t *testing.T) {
	e := NewExtractor(10)

	for _, source := range []model.Source{model.SourceOCR, model.SourceVision} {
		ext := e.Extract(source, "Ann Lack")
		if len(ext.Names) != 0 || len(ext.Years) != 0 {
			t.Errorf("%s: expected no candidates for short text, got %+v", source, ext)
		}
	}
}

func TestExtractor_OCR(t *testing.T) {
	e := NewExtractor(10)
	ext := e.Extract(model.SourceOCR, "MARY A HARRISON born 1850 died 1923")

	if !reflect.DeepEqual(ext.Names, []string{"Mary A Harrison"}) {
		t.Errorf("unexpected names: %v", ext.Names)
	}
	if !ext.HasYear(1850) || !ext.HasYear(1923) {
		t.Errorf("expected years 1850 and 1923, got %v", ext.Years)
	}
	if ext.Source != model.SourceOCR {
		t.Errorf("expected ocr source, got %s", ext.Source)
	}
}

func TestExtractor_Filename(t *testing.T) {
	e := NewExtractor(10)
	ext := e.Extract(model.SourceFilename, "0001_Obituary for Thomas J. Lack_a1b2c3d4.jpg")

	if !reflect.DeepEqual(ext.Names, []string{"Thomas J. Lack"}) {
		t.Errorf("unexpected names: %v", ext.Names)
	}
}
