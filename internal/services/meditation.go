// Package services – meditation catalog and suggestion sampling
//
// The catalog is a fixed in-memory list. Suggestion sampling is random by
// design: a configured baseline probability, raised for fear and sadness.
// The random source is injected so tests can drive sampling
// deterministically.
package services

import (
	"math/rand"
	"sync"

	"github.com/mindloom/support-backend/internal/domain"
)

// meditationCatalog is the curated list of guided meditation videos.
var meditationCatalog = []domain.MeditationVideo{
	{
		Title:       "10-Minute Guided Meditation for Anxiety",
		URL:         "https://www.youtube.com/watch?v=4pLUleLdwY4",
		Duration:    "10 min",
		Description: "A calming meditation to help reduce anxiety and stress",
	},
	{
		Title:       "Sleep Meditation: Guided Sleep Story",
		URL:         "https://www.youtube.com/watch?v=8fxC2qPjHkU",
		Duration:    "30 min",
		Description: "Relaxing guided meditation to help you fall asleep peacefully",
	},
	{
		Title:       "Morning Meditation for Positive Energy",
		URL:         "https://www.youtube.com/watch?v=2OGYf8H6M6g",
		Duration:    "15 min",
		Description: "Start your day with positive energy and mindfulness",
	},
	{
		Title:       "Breathing Exercises for Stress Relief",
		URL:         "https://www.youtube.com/watch?v=4Lb5L-VEm34",
		Duration:    "5 min",
		Description: "Simple breathing techniques to calm your mind",
	},
	{
		Title:       "Body Scan Meditation for Relaxation",
		URL:         "https://www.youtube.com/watch?v=Hz_KNs0q3wE",
		Duration:    "20 min",
		Description: "Progressive relaxation through body awareness",
	},
}

// MeditationVideos returns the full static catalog.
func MeditationVideos() []domain.MeditationVideo {
	out := make([]domain.MeditationVideo, len(meditationCatalog))
	copy(out, meditationCatalog)
	return out
}

// MeditationSuggester decides whether to attach a meditation video to a
// reply and picks one uniformly from the catalog. Safe for concurrent use;
// *rand.Rand itself is not, so draws are serialized.
type MeditationSuggester struct {
	mu      sync.Mutex
	rng     *rand.Rand
	base    float64
	boosted float64
}

// NewMeditationSuggester builds a suggester around the given random
// source. base is the default attach probability; boosted applies when
// the detected emotion is fear or sadness.
func NewMeditationSuggester(rng *rand.Rand, base, boosted float64) *MeditationSuggester {
	return &MeditationSuggester{rng: rng, base: base, boosted: boosted}
}

// Suggest returns a catalog entry with the emotion-dependent probability,
// or nil when no suggestion should be attached.
func (m *MeditationSuggester) Suggest(emotion string) *domain.MeditationVideo {
	p := m.base
	if emotion == domain.EmotionFear || emotion == domain.EmotionSadness {
		p = m.boosted
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rng.Float64() >= p {
		return nil
	}
	v := meditationCatalog[m.rng.Intn(len(meditationCatalog))]
	return &v
}
