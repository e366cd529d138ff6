package extract

import (
	"reflect"
	"testing"
)

func TestParseFilename(t *testing.T) {
	tests := []struct {
		name      string
		filename  string
		wantNames []string
		wantYears []int
		wantDesc  string
		wantSeq   int
	}{
		{
			name:      "obituary template without newspaper prefix",
			filename:  "0001_Obituary for Thomas J. Lack_a1b2c3d4.jpg",
			wantNames: []string{"Thomas J. Lack"},
			wantDesc:  "Obituary for Thomas J. Lack",
			wantSeq:   1,
		},
		{
			name:      "newspaper obituary with age",
			filename:  "0042_Newspapers.com - The Columbia Record - 14 May 1923 - 5 Obituary for MARY A. HARRISON (Aged 85)_0a1b2c3d.jpg",
			wantNames: []string{"Mary A. Harrison"},
			wantYears: []int{1923},
			wantDesc:  "Newspapers.com - The Columbia Record - 14 May 1923 - 5 Obituary for MARY A. HARRISON (Aged 85)",
			wantSeq:   42,
		},
		{
			name:      "marriage of two surnames",
			filename:  "0007_Marriage of Caudle _ Lack_DEADBEEF.jpg",
			wantNames: []string{"Caudle", "Lack"},
			wantDesc:  "Marriage of Caudle _ Lack",
			wantSeq:   7,
		},
		{
			name:      "newspaper birth announcement",
			filename:  "Newspapers.com - The State - 2 Jan 1950 - 12 Birth announcement Peter Michael Lack.png",
			wantNames: []string{"Peter Michael Lack"},
			wantYears: []int{1950},
			wantDesc:  "Newspapers.com - The State - 2 Jan 1950 - 12 Birth announcement Peter Michael Lack",
		},
		{
			name:      "newspaper content without template",
			filename:  "Newspapers.com - The State - 2 Jan 1950 - 3 George Caudle.png",
			wantNames: []string{"George Caudle"},
			wantYears: []int{1950},
			wantDesc:  "Newspapers.com - The State - 2 Jan 1950 - 3 George Caudle",
		},
		{
			name:      "possessive portrait",
			filename:  "0003_John Smith's Portrait_12345678.jpg",
			wantNames: []string{"John Smith"},
			wantDesc:  "John Smith's Portrait",
			wantSeq:   3,
		},
		{
			name:      "birth year removed from name",
			filename:  "0010_Mary Jones Birth 1850_abcdef12.jpg",
			wantNames: []string{"Mary Jones"},
			wantYears: []int{1850},
			wantDesc:  "Mary Jones Birth 1850",
			wantSeq:   10,
		},
		{
			name:      "positional suffix",
			filename:  "0011_Lack Family back row_abcdef12.jpg",
			wantNames: []string{"Lack Family"},
			wantDesc:  "Lack Family back row",
			wantSeq:   11,
		},
		{
			name:      "title case positional suffix",
			filename:  "0001_John Smith Front_a1b2c3d4.jpg",
			wantNames: []string{"John Smith"},
			wantDesc:  "John Smith Front",
			wantSeq:   1,
		},
		{
			name:      "title case two word positional suffix",
			filename:  "0002_Mary Lack Top Row_a1b2c3d4.jpg",
			wantNames: []string{"Mary Lack"},
			wantDesc:  "Mary Lack Top Row",
			wantSeq:   2,
		},
		{
			name:     "camera default",
			filename: "IMG_1234.jpg",
			wantDesc: "IMG_1234",
		},
		{
			name:     "too short",
			filename: "0005_Al_abcdef12.jpg",
			wantDesc: "Al",
			wantSeq:  5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := ParseFilename(tt.filename)
			if !reflect.DeepEqual(info.Names, tt.wantNames) {
				t.Errorf("names: expected %v, got %v", tt.wantNames, info.Names)
			}
			if !reflect.DeepEqual(info.Years, tt.wantYears) {
				t.Errorf("years: expected %v, got %v", tt.wantYears, info.Years)
			}
			if info.Description != tt.wantDesc {
				t.Errorf("description: expected %q, got %q", tt.wantDesc, info.Description)
			}
			if info.SeqNum != tt.wantSeq {
				t.Errorf("seq: expected %d, got %d", tt.wantSeq, info.SeqNum)
			}
		})
	}
}

func TestParseFilename_NewspaperMetadata(t *testing.T) {
	info := ParseFilename("Newspapers.com - The Columbia Record - 14 May 1923 - 5 Obituary for Ann Lack.jpg")
	if info.Newspaper != "The Columbia Record" {
		t.Errorf("expected newspaper name, got %q", info.Newspaper)
	}
	if info.PubDate != "14 May 1923" {
		t.Errorf("expected publication date, got %q", info.PubDate)
	}
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  MARY A. HARRISON ", "Mary A. Harrison"},
		{"John Smith (father)", "John Smith"},
		{"Ann   Lack 2", "Ann Lack"},
		{"_George Caudle-", "George Caudle"},
		{"McDonald", "McDonald"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := CleanName(tt.in); got != tt.want {
			t.Errorf("CleanName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestYears(t *testing.T) {
	got := Years("Born 1850, died 1923. Buried 1923 in plot 1234; census 1699 and 2045 ignored")
	want := []int{1850, 1923}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGuessDocType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"0001_Obituary for Thomas Lack_a1b2c3d4.jpg", "obituary"},
		{"Death Certificate John Lack.pdf", "certificate"},
		{"Marriage of Caudle _ Lack.jpg", "certificate"},
		{"1850 Census page 4.jpg", "census"},
		{"Military service record.jpg", "military"},
		{"Newspapers.com - The State - 2 Jan 1950 - 3 George Caudle.png", "newspaper"},
		{"Letter from Ann.jpg", "letter"},
		{"John Lack Enhanced.jpg", "photo"},
		{"Land record.tif", "certificate"},
		{"scan.pdf", "document"},
		{"scan.jpg", "photo"},
		{"notes.txt", "other"},
	}
	for _, tt := range tests {
		if got := GuessDocType(tt.filename); got != tt.want {
			t.Errorf("GuessDocType(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
