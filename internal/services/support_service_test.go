package services

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/mindloom/support-backend/internal/domain"
	"github.com/mindloom/support-backend/internal/history"
	"github.com/mindloom/support-backend/internal/repo"
)

// ----- Fake completer -----

type fakeCompleter struct {
	gotSystem  string
	gotTurns   []domain.Turn
	gotMessage string
	calls      int

	reply string
	err   error
}

func (f *fakeCompleter) Complete(ctx context.Context, systemPrompt string, turns []domain.Turn, userMessage string) (string, error) {
	f.gotSystem = systemPrompt
	f.gotTurns = turns
	f.gotMessage = userMessage
	f.calls++
	return f.reply, f.err
}

// newSupportService wires a pipeline over in-memory fakes. The suggester
// probability is zero so replies carry no meditation suggestion unless a
// test overrides it.
func newSupportService(qr *fakeQuotaRepo, fc *fakeCompleter) *SupportService {
	quota := NewQuotaService(nil, qr, 10)
	quota.Now = fixedClock
	return &SupportService{
		Quota:         quota,
		Emotion:       &EmotionService{},
		History:       history.NewMemoryStore(),
		Completer:     fc,
		Suggester:     NewMeditationSuggester(rand.New(rand.NewSource(1)), 0, 0),
		HistoryWindow: 5,
		Now:           fixedClock,
	}
}

// ----- Tests -----

func TestRespond_HappyPath(t *testing.T) {
	qr := &fakeQuotaRepo{incCount: 1}
	fc := &fakeCompleter{reply: "That sounds wonderful!"}
	s := newSupportService(qr, fc)

	reply, err := s.Respond(context.Background(), "alice", "I feel happy today", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != "That sounds wonderful!" {
		t.Fatalf("text = %q", reply.Text)
	}
	if reply.Language != "en" {
		t.Fatalf("language = %q, want en", reply.Language)
	}
	if reply.IsCrisis {
		t.Fatal("unexpected crisis flag")
	}
	if reply.EmotionData == nil || reply.EmotionData.Emotion != domain.EmotionJoy {
		t.Fatalf("emotion data = %+v", reply.EmotionData)
	}

	// system prompt carries the emotion context hint inside the persona
	if !strings.Contains(fc.gotSystem, "compassionate AI emotional support companion") {
		t.Fatalf("system prompt missing persona: %q", fc.gotSystem)
	}
	if !strings.Contains(fc.gotSystem, "experiencing joy") {
		t.Fatalf("system prompt missing emotion hint: %q", fc.gotSystem)
	}
	if fc.gotMessage != "I feel happy today" {
		t.Fatalf("completer got message %q", fc.gotMessage)
	}

	// quota consumed under today's key
	if qr.gotKey != "alice:2025-03-14" {
		t.Fatalf("quota key = %q", qr.gotKey)
	}

	// both turns recorded
	turns := s.History.List("alice")
	if len(turns) != 2 {
		t.Fatalf("history length = %d, want 2", len(turns))
	}
	if turns[0].Role != domain.RoleUser || turns[1].Role != domain.RoleAssistant {
		t.Fatalf("roles = %q, %q", turns[0].Role, turns[1].Role)
	}
	if !turns[0].Timestamp.Equal(fixedClock()) {
		t.Fatalf("timestamp = %v", turns[0].Timestamp)
	}
}

func TestRespond_MissingUser(t *testing.T) {
	qr := &fakeQuotaRepo{}
	s := newSupportService(qr, &fakeCompleter{})

	_, err := s.Respond(context.Background(), "   ", "hello", "")
	if !errors.Is(err, ErrMissingUser) {
		t.Fatalf("err = %v, want ErrMissingUser", err)
	}
	if qr.gotKey != "" {
		t.Fatal("quota touched despite invalid input")
	}
}

func TestRespond_EmptyMessage(t *testing.T) {
	qr := &fakeQuotaRepo{}
	s := newSupportService(qr, &fakeCompleter{})

	_, err := s.Respond(context.Background(), "alice", "  \n ", "")
	if !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("err = %v, want ErrEmptyMessage", err)
	}
	if qr.gotKey != "" {
		t.Fatal("quota touched despite empty message")
	}
}

func TestRespond_QuotaExceeded(t *testing.T) {
	qr := &fakeQuotaRepo{incErr: repo.ErrLimitReached}
	fc := &fakeCompleter{reply: "should not be used"}
	s := newSupportService(qr, fc)

	_, err := s.Respond(context.Background(), "alice", "hello there", "")
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if fc.calls != 0 {
		t.Fatal("completer called after quota rejection")
	}
	if len(s.History.List("alice")) != 0 {
		t.Fatal("history written after quota rejection")
	}
}

func TestRespond_CrisisBypassesModel(t *testing.T) {
	qr := &fakeQuotaRepo{incCount: 1}
	fc := &fakeCompleter{reply: "should not be used"}
	s := newSupportService(qr, fc)
	// certain suggester proves the crisis path never attaches a video
	s.Suggester = NewMeditationSuggester(rand.New(rand.NewSource(1)), 1, 1)

	reply, err := s.Respond(context.Background(), "alice", "I want to end my life", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reply.IsCrisis {
		t.Fatal("crisis flag not set")
	}
	if reply.Text != crisisReplyText {
		t.Fatalf("text = %q", reply.Text)
	}
	if reply.MeditationSuggestion != nil {
		t.Fatal("crisis reply carries a meditation suggestion")
	}
	if fc.calls != 0 {
		t.Fatal("completer called on crisis path")
	}

	turns := s.History.List("alice")
	if len(turns) != 2 {
		t.Fatalf("history length = %d, want 2", len(turns))
	}
	if !turns[1].IsCrisis {
		t.Fatal("assistant turn not marked as crisis")
	}
}

func TestRespond_CompleterFailureDegradesToApology(t *testing.T) {
	qr := &fakeQuotaRepo{incCount: 1}
	fc := &fakeCompleter{err: errors.New("upstream timeout")}
	s := newSupportService(qr, fc)

	reply, err := s.Respond(context.Background(), "alice", "hello there", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Text != apologyText {
		t.Fatalf("text = %q, want apology", reply.Text)
	}
	// the degraded exchange is still recorded
	if len(s.History.List("alice")) != 2 {
		t.Fatal("degraded exchange not recorded")
	}
}

func TestRespond_LanguageHint(t *testing.T) {
	qr := &fakeQuotaRepo{incCount: 1}
	fc := &fakeCompleter{reply: "¡Claro que sí!"}
	s := newSupportService(qr, fc)

	reply, err := s.Respond(context.Background(), "alice", "I feel happy today", "es")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.Language != "es" {
		t.Fatalf("language = %q, want es", reply.Language)
	}
	if !strings.HasPrefix(fc.gotSystem, "Eres un compañero") {
		t.Fatalf("system prompt not Spanish persona: %q", fc.gotSystem)
	}
}

func TestVoiceRespond_FormatsPausesAndTagsSource(t *testing.T) {
	qr := &fakeQuotaRepo{incCount: 1}
	fc := &fakeCompleter{reply: "Take a breath. You are safe! Everything passes."}
	s := newSupportService(qr, fc)

	reply, err := s.VoiceRespond(context.Background(), "alice", "I had a rough day", "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Take a breath., You are safe!, Everything passes."
	if reply.Text != want {
		t.Fatalf("text = %q, want %q", reply.Text, want)
	}

	turns := s.History.List("alice")
	if len(turns) != 2 {
		t.Fatalf("history length = %d, want 2", len(turns))
	}
	for _, turn := range turns {
		if turn.Source != "voice" {
			t.Fatalf("turn source = %q, want voice", turn.Source)
		}
	}
}

func TestRespond_WindowLimitsModelContext(t *testing.T) {
	qr := &fakeQuotaRepo{incCount: 1}
	fc := &fakeCompleter{reply: "ok"}
	s := newSupportService(qr, fc)
	s.HistoryWindow = 3

	for i := 0; i < 4; i++ {
		s.History.Append("alice",
			domain.Turn{Role: domain.RoleUser, Content: "q", Timestamp: fixedClock()},
			domain.Turn{Role: domain.RoleAssistant, Content: "a", Timestamp: fixedClock()},
		)
	}

	if _, err := s.Respond(context.Background(), "alice", "hello there", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fc.gotTurns) != 3 {
		t.Fatalf("completer received %d turns, want 3", len(fc.gotTurns))
	}
	// the window is the tail of the history
	if fc.gotTurns[len(fc.gotTurns)-1].Role != domain.RoleAssistant {
		t.Fatalf("window tail role = %q", fc.gotTurns[len(fc.gotTurns)-1].Role)
	}
}

func TestRespond_SuggestionRecordedOnAssistantTurn(t *testing.T) {
	qr := &fakeQuotaRepo{incCount: 1}
	fc := &fakeCompleter{reply: "ok"}
	s := newSupportService(qr, fc)
	s.Suggester = NewMeditationSuggester(rand.New(rand.NewSource(1)), 1, 1)

	reply, err := s.Respond(context.Background(), "alice", "hello there", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply.MeditationSuggestion == nil {
		t.Fatal("expected a suggestion with p=1")
	}

	turns := s.History.List("alice")
	if turns[1].MeditationSuggestion == nil {
		t.Fatal("assistant turn missing the suggestion")
	}
	if turns[1].MeditationSuggestion.URL != reply.MeditationSuggestion.URL {
		t.Fatal("stored suggestion differs from reply suggestion")
	}
}

func TestRespond_DefaultClock(t *testing.T) {
	qr := &fakeQuotaRepo{incCount: 1}
	s := newSupportService(qr, &fakeCompleter{reply: "ok"})
	s.Now = nil

	before := time.Now().UTC()
	if _, err := s.Respond(context.Background(), "alice", "hello there", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	turns := s.History.List("alice")
	if ts := turns[0].Timestamp; ts.Before(before.Add(-time.Second)) || ts.After(time.Now().UTC().Add(time.Second)) {
		t.Fatalf("timestamp %v outside test window", ts)
	}
}
