// Package services – SupportService
//
// This file implements the response orchestrator: the linear pipeline that
// takes raw user text, reserves a quota slot, classifies emotional state,
// picks a language-appropriate persona prompt, calls the completion
// capability, and post-processes the result. Once input validation and
// quota gating have passed, the pipeline never errors out to the caller:
// upstream failures degrade to a fixed apology so the user always receives
// some reply.
//
// Observability: Respond is OpenTelemetry-instrumented; spans carry the
// user id, detected emotion, and whether the crisis short-circuit fired.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mindloom/support-backend/internal/domain"
	"github.com/mindloom/support-backend/internal/history"
)

// Completer is the completion capability: an abstraction over any
// LLM text-generation backend. Implementations must honor ctx for
// cancellation and apply their own request timeout.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, turns []domain.Turn, userMessage string) (string, error)
}

// apologyText is the degraded reply substituted for any upstream failure.
const apologyText = "I'm sorry, I'm having trouble responding right now. Please try again later."

// crisisReplyText is the fixed multi-region crisis-resources message.
// This path bypasses the upstream model entirely and must never depend on
// an external call succeeding.
const crisisReplyText = `I'm deeply concerned about what you're sharing with me. Your life has value, and you matter.

**Immediate Help Available:**
• **Call 9152987821** - Suicide & Crisis Lifeline (India)
• **Text "HELLO" to 741741** - Crisis Text Line
• **Call 112** - Emergency services

**International:**
• **UK**: 116 123 (Samaritans)
• **Canada**: 1-833-456-4566
• **Australia**: 13 11 14 (Lifeline)

Please reach out - professional counselors are available 24/7.`

// personaPrompts hold the language-specific system personas. The %s
// placeholder receives the emotion context hint.
var personaPrompts = map[string]string{
	"en": `You are a compassionate AI emotional support companion with advanced emotion detection capabilities. Provide empathetic, supportive responses to help users with their emotional well-being.

%s

Guidelines:
- Listen actively and validate their feelings
- Offer gentle guidance and practical coping strategies
- Keep responses warm, non-judgmental, and encouraging
- If appropriate, suggest meditation or mindfulness practices
- Always respond in English
- Include one relevant emoji in your response`,
	"es": `Eres un compañero de apoyo emocional AI compasivo con capacidades avanzadas de detección de emociones. Proporciona respuestas empáticas y de apoyo para ayudar a los usuarios con su bienestar emocional.

%s

Directrices:
- Escucha activamente y valida sus sentimientos
- Ofrece orientación suave y estrategias prácticas de afrontamiento
- Mantén las respuestas cálidas, sin juicios y alentadoras`,
	"fr": `Vous êtes un compagnon d'accompagnement émotionnel IA compatissant avec des capacités avancées de détection d'émotions. Fournissez des réponses empathiques et de soutien pour aider les utilisateurs avec leur bien-être émotionnel.

%s`,
	"de": `Sie sind ein mitfühlender KI-Emotional-Support-Begleiter mit fortschrittlichen Emotionserkennungsfunktionen. Bieten Sie einfühlsame, unterstützende Antworten, um Benutzern bei ihrem emotionalen Wohlbefinden zu helfen.

%s`,
}

// voicePauseRE inserts a soft pause after sentence punctuation so
// text-to-speech output breathes naturally.
var voicePauseRE = regexp.MustCompile(`([.!?])\s+`)

// SupportService composes quota gating, emotion classification, language
// resolution, the completion call, and post-processing into one pipeline.
type SupportService struct {
	Quota     *QuotaService
	Emotion   *EmotionService
	History   history.Store
	Completer Completer
	Suggester *MeditationSuggester

	// HistoryWindow is the number of prior turns forwarded to the model.
	HistoryWindow int

	// Now is the clock used for turn timestamps; overridable in tests.
	Now func() time.Time
}

// Respond runs the full pipeline for one inbound chat message and appends
// the resulting turn pair to the user's history.
func (s *SupportService) Respond(ctx context.Context, userID, message, languageHint string) (*domain.ChatReply, error) {
	return s.respond(ctx, userID, message, languageHint, "")
}

// VoiceRespond is Respond for transcribed speech: the reply text is
// reformatted with pause commas for text-to-speech, and both stored turns
// are tagged with source "voice".
func (s *SupportService) VoiceRespond(ctx context.Context, userID, transcription, languageHint string) (*domain.ChatReply, error) {
	return s.respond(ctx, userID, transcription, languageHint, "voice")
}

func (s *SupportService) respond(ctx context.Context, userID, message, languageHint, source string) (*domain.ChatReply, error) {
	tr := otel.Tracer("services/SupportService")
	ctx, span := tr.Start(ctx, "Respond",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	// Validate input before any side effect.
	if strings.TrimSpace(userID) == "" {
		return nil, ErrMissingUser
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	// Check-and-reserve the daily budget before incurring model cost.
	if err := s.Quota.Reserve(ctx, userID); err != nil {
		return nil, err
	}

	lang := ResolveLanguage(languageHint, message)
	emo := s.Emotion.Classify(ctx, message)
	span.SetAttributes(
		attribute.String("chat.language", lang),
		attribute.String("chat.emotion", emo.Emotion),
	)

	if emo.IsCrisis() {
		span.SetAttributes(attribute.Bool("chat.crisis", true))
		crisisShortCircuits.Inc()
		reply := &domain.ChatReply{
			Text:        crisisReplyText,
			Language:    lang,
			EmotionData: &emo,
			IsCrisis:    true,
		}
		s.record(userID, message, reply, source)
		return reply, nil
	}

	text, err := s.Completer.Complete(ctx, s.systemPrompt(lang, emo), s.window(userID), message)
	if err != nil {
		completionFailures.Inc()
		text = apologyText
	}
	if source == "voice" {
		text = voicePauseRE.ReplaceAllString(text, "$1, ")
	}

	reply := &domain.ChatReply{
		Text:                 text,
		Language:             lang,
		EmotionData:          &emo,
		MeditationSuggestion: s.Suggester.Suggest(emo.Emotion),
		IsCrisis:             false,
	}
	s.record(userID, message, reply, source)
	return reply, nil
}

// systemPrompt assembles the language persona with the emotion context
// hint. Unknown languages fall back to the English persona.
func (s *SupportService) systemPrompt(lang string, emo domain.EmotionResult) string {
	tpl, ok := personaPrompts[lang]
	if !ok {
		tpl = personaPrompts["en"]
	}
	return fmt.Sprintf(tpl, ContextHint(emo.Emotion, emo.Confidence))
}

// window returns the last HistoryWindow turns for the user.
func (s *SupportService) window(userID string) []domain.Turn {
	turns := s.History.List(userID)
	if n := s.HistoryWindow; n > 0 && len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	return turns
}

// record appends the user/assistant turn pair to the history store.
func (s *SupportService) record(userID, message string, reply *domain.ChatReply, source string) {
	now := s.now()
	s.History.Append(userID,
		domain.Turn{
			Role:      domain.RoleUser,
			Content:   message,
			Timestamp: now,
			Language:  reply.Language,
			Source:    source,
		},
		domain.Turn{
			Role:                 domain.RoleAssistant,
			Content:              reply.Text,
			Timestamp:            now,
			Language:             reply.Language,
			MeditationSuggestion: reply.MeditationSuggestion,
			EmotionData:          reply.EmotionData,
			IsCrisis:             reply.IsCrisis,
			Source:               source,
		},
	)
}

func (s *SupportService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
