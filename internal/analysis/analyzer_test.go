package analysis

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/kbsearch/internal/domain"
)

func newAnalyzer(t *testing.T, name string) *Analyzer {
	t.Helper()
	a, err := New(name)
	if err != nil {
		t.Fatalf("New(%q): %v", name, err)
	}
	return a
}

func TestNew_DefaultsToStandard(t *testing.T) {
	a := newAnalyzer(t, "")
	if a.Name() != Standard {
		t.Errorf("Name() = %q, want %q", a.Name(), Standard)
	}
}

func TestNew_UnknownAnalyzer(t *testing.T) {
	if _, err := New("klingon"); err == nil {
		t.Fatal("expected error for unknown analyzer")
	}
}

func TestAnalyze_TermFrequencies(t *testing.T) {
	a := newAnalyzer(t, Standard)
	v, err := a.Analyze("Alpha beta ALPHA")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if v["alpha"] != 2 {
		t.Errorf("alpha = %v, want 2", v["alpha"])
	}
	if v["beta"] != 1 {
		t.Errorf("beta = %v, want 1", v["beta"])
	}
}

func TestAnalyze_StopWordsRemoved(t *testing.T) {
	a := newAnalyzer(t, Standard)
	v, err := a.Analyze("the and of")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !v.IsEmpty() {
		t.Errorf("expected empty vector for stop words, got %v", v)
	}
}

func TestAnalyze_EnglishStems(t *testing.T) {
	a := newAnalyzer(t, English)
	doc, _ := a.Analyze("running runners")
	query, _ := a.Analyze("run")
	found := false
	for tok := range query {
		if _, ok := doc[tok]; ok {
			found = true
		}
	}
	if !found {
		t.Errorf("expected stemmed overlap between %v and %v", query, doc)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	a := newAnalyzer(t, Standard)
	first, _ := a.Analyze("Distributed search ranking pipeline")
	for i := 0; i < 10; i++ {
		again, _ := a.Analyze("Distributed search ranking pipeline")
		if len(again) != len(first) {
			t.Fatalf("iteration %d: %v != %v", i, again, first)
		}
		for k, w := range first {
			if again[k] != w {
				t.Fatalf("iteration %d: token %q weight %v != %v", i, k, again[k], w)
			}
		}
	}
}

func TestAnalyze_Empty(t *testing.T) {
	a := newAnalyzer(t, Standard)
	v, err := a.Analyze("")
	if err != nil || !v.IsEmpty() {
		t.Errorf("Analyze(\"\") = %v, %v", v, err)
	}
}

func TestAnalyze_InvalidUTF8(t *testing.T) {
	a := newAnalyzer(t, Standard)
	_, err := a.Analyze(string([]byte{0xff, 0xfe}))
	if !errors.Is(err, domain.ErrAnalysisFailure) {
		t.Fatalf("expected ErrAnalysisFailure, got %v", err)
	}
}
