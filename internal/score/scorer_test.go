package score

import (
	"math"
	"testing"

	"github.com/ppiankov/lineage/internal/extract"
	"github.com/ppiankov/lineage/internal/model"
)

func testPeople() []model.Person {
	return []model.Person{
		{ID: 1, GivenName: "Mary", Surname: "Harrison", BirthDate: "12 MAR 1838", DeathDate: "14 May 1923"},
		{ID: 2, GivenName: "Thomas", Surname: "Lack", BirthDate: "1861"},
		{ID: 3, GivenName: "John", Surname: "Harrison", BirthDate: "ABT 1835"},
		{ID: 4, GivenName: "Ann", Surname: "Lack"},
		{ID: 5, GivenName: "", Surname: "X"},
	}
}

func TestSimilarity_SymmetryAndIdentity(t *testing.T) {
	pairs := [][2]string{
		{"Mary Harrison", "mary a harrison"},
		{"Lack", "Lach"},
		{"", "Ann"},
		{"Zoë Müller", "Zoe Muller"},
	}
	for _, p := range pairs {
		ab := Similarity(p[0], p[1])
		ba := Similarity(p[1], p[0])
		if ab != ba {
			t.Errorf("Similarity(%q, %q) = %f but reversed = %f", p[0], p[1], ab, ba)
		}
		if ab < 0 || ab > 1 {
			t.Errorf("Similarity(%q, %q) = %f out of range", p[0], p[1], ab)
		}
		if Similarity(p[0], p[0]) != 1.0 {
			t.Errorf("Similarity(%q, itself) should be 1.0", p[0])
		}
	}

	if Similarity(" MARY HARRISON ", "mary harrison") != 1.0 {
		t.Error("expected case and surrounding space to be ignored")
	}
}

func TestSimilarity_Ratio(t *testing.T) {
	// one insertion ("a ") over the longer string of 15 runes
	got := Similarity("mary a harrison", "mary harrison")
	want := 1.0 - 2.0/15.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestScorer_ExactFullName(t *testing.T) {
	s := NewScorer(model.DefaultMatchConfig())
	ext := model.Extraction{Source: model.SourceOCR, Names: []string{"Thomas Lack"}}

	b := s.Score(testPeople()[1], ext)
	if b.FullName != 1.0 {
		t.Errorf("expected full-name term 1.0, got %f", b.FullName)
	}
	if b.Total != 1.0 {
		t.Errorf("expected total 1.0, got %f", b.Total)
	}
}

func TestScorer_ComponentScore(t *testing.T) {
	s := NewScorer(model.DefaultMatchConfig())
	ext := model.Extraction{Names: []string{"Thomas J. Lack"}}

	b := s.Score(testPeople()[1], ext)
	if b.Component != 1.0 {
		t.Errorf("expected component score 1.0, got %f", b.Component)
	}
	if b.FullName >= 0.82 {
		t.Errorf("expected full-name ratio below filename threshold, got %f", b.FullName)
	}
	if b.Name != "Thomas J. Lack" {
		t.Errorf("expected snippet name, got %q", b.Name)
	}
}

func TestScorer_SurnameOnly(t *testing.T) {
	s := NewScorer(model.DefaultMatchConfig())
	ext := model.Extraction{Names: []string{"Marriage Lack"}}

	b := s.Score(model.Person{ID: 9, GivenName: "Zebulon", Surname: "Lack"}, ext)
	if math.Abs(b.SurnameOnly-0.45) > 1e-9 {
		t.Errorf("expected surname-only score 0.45, got %f", b.SurnameOnly)
	}
	if math.Abs(b.Total-0.45) > 1e-9 {
		t.Errorf("expected total 0.45, got %f", b.Total)
	}
}

func TestScorer_YearBoostNeverLowers(t *testing.T) {
	s := NewScorer(model.DefaultMatchConfig())
	mary := testPeople()[0]

	without := s.Score(mary, model.Extraction{Names: []string{"Mary Harris"}})
	with := s.Score(mary, model.Extraction{Names: []string{"Mary Harris"}, Years: []int{1838, 1923}})

	if with.Total < without.Total {
		t.Errorf("adding matching years lowered score: %f -> %f", without.Total, with.Total)
	}
	if math.Abs(with.YearBoost-0.20) > 1e-9 {
		t.Errorf("expected year boost 0.20, got %f", with.YearBoost)
	}
	if with.Total > 1.0 {
		t.Errorf("total exceeds 1.0: %f", with.Total)
	}
}

func TestScorer_MatchBounds(t *testing.T) {
	s := NewScorer(model.DefaultMatchConfig())
	ext := model.Extraction{
		Source: model.SourceOCR,
		Names:  []string{"Mary Harrison", "John Harrison", "Ann Lack", "Thomas Lack"},
		Years:  []int{1838},
	}

	matches := s.MatchSource(ext, testPeople())
	if len(matches) != 4 {
		t.Fatalf("expected 4 matches, got %d", len(matches))
	}
	for i, m := range matches {
		if m.Confidence < 0.78 || m.Confidence > 1.0 {
			t.Errorf("confidence %f outside [threshold, 1]", m.Confidence)
		}
		if i > 0 && matches[i-1].Confidence < m.Confidence {
			t.Errorf("matches not sorted by confidence")
		}
	}
}

func TestScorer_MatchCap(t *testing.T) {
	cfg := model.DefaultMatchConfig()
	cfg.MaxMatchesPerDocument = 2
	s := NewScorer(cfg)

	ext := model.Extraction{Names: []string{"Mary Harrison", "John Harrison", "Ann Lack"}}
	matches := s.Match(ext, testPeople(), 0.78)
	if len(matches) != 2 {
		t.Errorf("expected cap of 2 matches, got %d", len(matches))
	}
}

func TestScorer_NoNames(t *testing.T) {
	s := NewScorer(model.DefaultMatchConfig())
	if got := s.Match(model.Extraction{Years: []int{1838}}, testPeople(), 0.1); got != nil {
		t.Errorf("expected no matches without names, got %v", got)
	}
}

func TestScorer_OCRScenario(t *testing.T) {
	s := NewScorer(model.DefaultMatchConfig())
	e := extract.NewExtractor(10)

	ext := e.Extract(model.SourceOCR, "Obituary\nMARY A HARRISON died at her home")
	matches := s.MatchSource(ext, testPeople())

	if len(matches) == 0 || matches[0].PersonID != 1 {
		t.Fatalf("expected Mary Harrison as top match, got %+v", matches)
	}
	if matches[0].Confidence < 0.82 {
		t.Errorf("expected confidence >= 0.82, got %f", matches[0].Confidence)
	}
}

func TestScorer_FilenameScenario(t *testing.T) {
	s := NewScorer(model.DefaultMatchConfig())
	e := extract.NewExtractor(10)

	ext := e.Extract(model.SourceFilename, "0001_Obituary for Thomas J. Lack_a1b2c3d4.jpg")
	matches := s.MatchSource(ext, testPeople())

	found := false
	for _, m := range matches {
		if m.PersonID == 2 {
			found = true
			if m.Confidence < 0.82 {
				t.Errorf("expected confidence >= 0.82, got %f", m.Confidence)
			}
		}
	}
	if !found {
		t.Errorf("expected Thomas Lack to match, got %+v", matches)
	}
}
