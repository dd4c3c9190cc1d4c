// Package services – EmotionService
//
// This file implements emotion classification as a layered strategy with a
// declared priority order:
//
//  1. Blank text       → neutral at 0.5, no external call.
//  2. Crisis keywords  → crisis at 1.0, short-circuiting everything else.
//     This check is purely local and always runs before any network call:
//     displaying crisis resources must never depend on an external
//     service being reachable.
//  3. Remote model     → highest-scoring label from the configured
//     transformer endpoint, when one is injected.
//  4. Keyword fallback → normalized keyword counts per emotion category.
//
// The layer that produced the answer is tagged in EmotionResult.Method so
// callers and tests can assert which path fired. Remote failures are
// absorbed into the fallback, never propagated.
package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mindloom/support-backend/internal/domain"
)

// Classification method tags.
const (
	MethodTransformer          = "transformer"
	MethodKeywordFallback      = "keyword_fallback"
	MethodKeywordFallbackError = "keyword_fallback_error"
)

// LabelScore is one ranked candidate from a remote classifier.
type LabelScore struct {
	Label string
	Score float64
}

// RemoteClassifier is the optional remote emotion-classification
// capability. Implementations return a ranked list of (label, score)
// pairs; any failure makes the service fall back to keyword scoring.
type RemoteClassifier interface {
	Classify(ctx context.Context, text string) ([]LabelScore, error)
}

// crisisKeywords is the fixed crisis-phrase list, matched as substrings
// against the lowercased message.
var crisisKeywords = []string{
	"suicide", "kill myself", "end my life", "want to die", "better off dead",
	"self harm", "hurt myself", "cut myself", "end it all", "no point living",
}

// emotionOrder fixes the iteration order of the fallback scorer so ties
// resolve deterministically to the first-encountered category.
var emotionOrder = []string{
	domain.EmotionJoy,
	domain.EmotionSadness,
	domain.EmotionAnger,
	domain.EmotionFear,
	domain.EmotionSurprise,
	domain.EmotionDisgust,
}

// emotionKeywords backs the local fallback scorer.
var emotionKeywords = map[string][]string{
	domain.EmotionJoy:      {"happy", "excited", "joy", "wonderful", "amazing", "great", "love", "adore", "cherish"},
	domain.EmotionSadness:  {"sad", "depressed", "upset", "hurt", "crying", "unhappy", "miserable"},
	domain.EmotionAnger:    {"angry", "mad", "furious", "frustrated", "hate", "rage"},
	domain.EmotionFear:     {"scared", "afraid", "worried", "anxious", "nervous", "terrified", "panic"},
	domain.EmotionSurprise: {"surprised", "shocked", "amazed", "wow", "unexpected"},
	domain.EmotionDisgust:  {"disgusted", "gross", "repulsive", "sick", "nauseous"},
}

// contextTemplates map each emotion label to the natural-language
// instruction injected verbatim into the upstream system prompt. The %d
// placeholder carries the confidence as a percentage.
var contextTemplates = map[string]string{
	domain.EmotionJoy:      "The user is experiencing joy (confidence: %d%%). Match their energy with enthusiasm and positivity.",
	domain.EmotionSadness:  "The user is feeling sad (confidence: %d%%). Respond with deep empathy and compassion.",
	domain.EmotionAnger:    "The user is angry (confidence: %d%%). Stay calm and acknowledge their frustration.",
	domain.EmotionFear:     "The user is experiencing fear/anxiety (confidence: %d%%). Provide reassurance and support.",
	"love":                 "The user is expressing love (confidence: %d%%). Respond warmly and celebrate their feelings.",
	domain.EmotionSurprise: "The user is surprised (confidence: %d%%). Show genuine curiosity and interest.",
	domain.EmotionDisgust:  "The user is feeling disgusted (confidence: %d%%). Acknowledge their strong reaction.",
	domain.EmotionNeutral:  "The user's emotional state is unclear (confidence: %d%%). Be warm and supportive.",
}

const crisisContextHint = "CRISIS DETECTED: The user is expressing suicidal thoughts or self-harm intentions. " +
	"Provide immediate crisis resources and professional help information."

// EmotionService classifies message text. The zero value (no remote
// classifier) runs entirely on the local layers and is safe to call
// concurrently.
type EmotionService struct {
	// Remote is the optional transformer-backed classifier. Nil means
	// keyword fallback only.
	Remote RemoteClassifier
}

// Classify runs the layered detection strategy over text. It never
// returns an error: every failure has a well-defined local fallback.
func (s *EmotionService) Classify(ctx context.Context, text string) domain.EmotionResult {
	tr := otel.Tracer("services/EmotionService")
	ctx, span := tr.Start(ctx, "Classify")
	defer span.End()

	if strings.TrimSpace(text) == "" {
		return domain.EmotionResult{
			Emotion:     domain.EmotionNeutral,
			Confidence:  0.5,
			AllEmotions: map[string]float64{domain.EmotionNeutral: 0.5},
		}
	}

	if DetectCrisis(text) {
		span.SetAttributes(attribute.Bool("emotion.crisis", true))
		return domain.EmotionResult{
			Emotion:     domain.EmotionCrisis,
			Confidence:  1.0,
			AllEmotions: map[string]float64{domain.EmotionCrisis: 1.0},
		}
	}

	if s.Remote != nil {
		if res, ok := s.classifyRemote(ctx, text, span); ok {
			return res
		}
	}

	res := fallbackClassify(text)
	if res.Method == "" {
		res.Method = MethodKeywordFallback
	}
	span.SetAttributes(attribute.String("emotion.method", res.Method))
	return res
}

// classifyRemote submits text to the remote model and picks the
// highest-scoring label. The bool result reports whether the remote layer
// produced a usable answer; on any failure the caller falls through to
// the keyword layer.
func (s *EmotionService) classifyRemote(ctx context.Context, text string, span trace.Span) (domain.EmotionResult, bool) {
	ranked, err := s.Remote.Classify(ctx, text)
	if err != nil {
		res := fallbackClassify(text)
		res.Method = MethodKeywordFallbackError
		span.SetAttributes(attribute.String("emotion.method", res.Method))
		return res, true
	}
	if len(ranked) == 0 {
		return domain.EmotionResult{}, false
	}

	all := make(map[string]float64, len(ranked))
	top := LabelScore{Score: -1}
	for _, ls := range ranked {
		label := strings.ToLower(ls.Label)
		all[label] = ls.Score
		if ls.Score > top.Score {
			top = LabelScore{Label: label, Score: ls.Score}
		}
	}
	span.SetAttributes(
		attribute.String("emotion.method", MethodTransformer),
		attribute.String("emotion.label", top.Label),
	)
	return domain.EmotionResult{
		Emotion:     top.Label,
		Confidence:  top.Score,
		AllEmotions: all,
		Method:      MethodTransformer,
	}, true
}

// DetectCrisis reports whether text contains any configured crisis phrase
// (case-insensitive substring match).
func DetectCrisis(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range crisisKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// fallbackClassify scores each emotion category by keyword hits,
// normalized by the category's keyword-list length. All-zero scores yield
// neutral at 0.5.
func fallbackClassify(text string) domain.EmotionResult {
	lower := strings.ToLower(text)

	scores := make(map[string]float64)
	for _, emotion := range emotionOrder {
		words := emotionKeywords[emotion]
		hits := 0
		for _, w := range words {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		if hits > 0 {
			scores[emotion] = float64(hits) / float64(len(words))
		}
	}

	if len(scores) == 0 {
		return domain.EmotionResult{
			Emotion:     domain.EmotionNeutral,
			Confidence:  0.5,
			AllEmotions: map[string]float64{domain.EmotionNeutral: 0.5},
		}
	}

	best := ""
	bestScore := 0.0
	for _, emotion := range emotionOrder {
		if sc, ok := scores[emotion]; ok && sc > bestScore {
			best, bestScore = emotion, sc
		}
	}
	return domain.EmotionResult{
		Emotion:     best,
		Confidence:  bestScore,
		AllEmotions: scores,
	}
}

// ContextHint renders the natural-language instruction describing how a
// response generator should adapt tone for the given emotion. Unknown
// labels fall back to the neutral template.
func ContextHint(emotion string, confidence float64) string {
	if emotion == domain.EmotionCrisis {
		return crisisContextHint
	}
	tpl, ok := contextTemplates[emotion]
	if !ok {
		tpl = contextTemplates[domain.EmotionNeutral]
	}
	return fmt.Sprintf(tpl, int(confidence*100+0.5))
}
