package services

import (
	"math/rand"
	"testing"

	"github.com/mindloom/support-backend/internal/domain"
)

func TestMeditationVideos_CatalogIsStableAndCopied(t *testing.T) {
	videos := MeditationVideos()
	if len(videos) != 5 {
		t.Fatalf("catalog size = %d, want 5", len(videos))
	}
	for _, v := range videos {
		if v.Title == "" || v.URL == "" || v.Duration == "" || v.Description == "" {
			t.Fatalf("incomplete catalog entry: %+v", v)
		}
	}

	// mutating the returned slice must not leak into the catalog
	videos[0].Title = "tampered"
	if MeditationVideos()[0].Title == "tampered" {
		t.Fatal("catalog mutated through returned slice")
	}
}

func TestSuggest_ZeroProbabilityNeverSuggests(t *testing.T) {
	m := NewMeditationSuggester(rand.New(rand.NewSource(1)), 0, 0)
	for i := 0; i < 100; i++ {
		if v := m.Suggest(domain.EmotionSadness); v != nil {
			t.Fatalf("iteration %d: got suggestion %+v with p=0", i, v)
		}
	}
}

func TestSuggest_CertainProbabilityAlwaysSuggests(t *testing.T) {
	m := NewMeditationSuggester(rand.New(rand.NewSource(1)), 1, 1)
	for i := 0; i < 100; i++ {
		v := m.Suggest(domain.EmotionJoy)
		if v == nil {
			t.Fatalf("iteration %d: got nil with p=1", i)
		}
		if v.URL == "" {
			t.Fatalf("iteration %d: suggestion has no URL", i)
		}
	}
}

func TestSuggest_BoostedEmotionsSuggestMoreOften(t *testing.T) {
	const trials = 5000
	m := NewMeditationSuggester(rand.New(rand.NewSource(42)), 0.2, 0.4)

	count := func(emotion string) int {
		n := 0
		for i := 0; i < trials; i++ {
			if m.Suggest(emotion) != nil {
				n++
			}
		}
		return n
	}

	base := count(domain.EmotionJoy)
	fear := count(domain.EmotionFear)
	sad := count(domain.EmotionSadness)

	// ~1000 vs ~2000 expected; generous bands keep this stable across seeds
	if base < trials/10 || base > trials*3/10 {
		t.Fatalf("baseline rate out of band: %d/%d", base, trials)
	}
	if fear < trials*3/10 || fear > trials/2 {
		t.Fatalf("boosted fear rate out of band: %d/%d", fear, trials)
	}
	if sad < trials*3/10 || sad > trials/2 {
		t.Fatalf("boosted sadness rate out of band: %d/%d", sad, trials)
	}
	if fear <= base || sad <= base {
		t.Fatalf("boosted rates (%d, %d) not above baseline (%d)", fear, sad, base)
	}
}
