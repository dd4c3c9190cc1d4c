// Emotional-support HTTP handlers.
//
// This file exposes the chat pipeline endpoints:
//   - POST   /chat               (emotion-aware chat reply)
//   - POST   /voice-support      (voice-formatted reply for transcriptions)
//   - POST   /test-emotion       (classification only, no generation)
//   - GET    /history            (the caller's stored conversation turns)
//   - DELETE /history            (clear the caller's turns)
//   - GET    /meditation-videos  (static catalog)
//   - GET    /languages          (fixed supported-language list)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Caller identity travels in the
// X-User-ID header; requests without it are rejected with 401.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mindloom/support-backend/internal/domain"
	"github.com/mindloom/support-backend/internal/history"
	"github.com/mindloom/support-backend/internal/services"
	"github.com/mindloom/support-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// SupportService defines the response-pipeline operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type SupportService interface {
	// Respond runs the full pipeline for one chat message.
	Respond(ctx context.Context, userID, message, languageHint string) (*domain.ChatReply, error)
	// VoiceRespond is Respond for transcribed speech with voice formatting.
	VoiceRespond(ctx context.Context, userID, transcription, languageHint string) (*domain.ChatReply, error)
}

// EmotionClassifier defines the classification-only operation behind the
// test-emotion endpoint.
type EmotionClassifier interface {
	Classify(ctx context.Context, text string) domain.EmotionResult
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the emotional-support API.
type Handlers struct {
	supportSvc SupportService
	classifier EmotionClassifier
	turns      history.Store
}

// New constructs a Handlers instance bound to the given collaborators.
func New(supportSvc SupportService, classifier EmotionClassifier, turns history.Store) *Handlers {
	return &Handlers{supportSvc: supportSvc, classifier: classifier, turns: turns}
}

// userID extracts the caller identity from the X-User-ID header. An empty
// result means the request must be rejected with 401.
func userID(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return ""
	}
	return strings.TrimSpace(c.GetHeader("X-User-ID"))
}

//
// DTOs
//

// ChatRequest is the JSON payload for POST /chat.
type ChatRequest struct {
	// Message is the user's chat message (required).
	Message string `json:"message" binding:"required" example:"I feel anxious about tomorrow"`
	// Language optionally fixes the response language; "auto" (default)
	// triggers detection.
	Language string `json:"language" example:"auto"`
}

// VoiceRequest is the JSON payload for POST /voice-support.
type VoiceRequest struct {
	// Transcription is the recognized speech text (required).
	Transcription string `json:"transcription" binding:"required" example:"I had a rough day"`
	// Language optionally fixes the response language.
	Language string `json:"language" example:"auto"`
}

// TestEmotionRequest is the JSON payload for POST /test-emotion.
type TestEmotionRequest struct {
	Message string `json:"message" binding:"required" example:"I am so happy today"`
}

// ChatResponse is the reply envelope for chat and voice endpoints.
type ChatResponse struct {
	Response             string                  `json:"response"`
	Language             string                  `json:"language"`
	MeditationSuggestion *domain.MeditationVideo `json:"meditationSuggestion,omitempty"`
	EmotionData          *domain.EmotionResult   `json:"emotionData,omitempty"`
	IsCrisis             bool                    `json:"isCrisis"`
	VoiceResponse        bool                    `json:"voiceResponse,omitempty"`
	Timestamp            time.Time               `json:"timestamp"`
}

// HistoryResponse wraps the caller's stored conversation turns.
type HistoryResponse struct {
	History []domain.Turn `json:"history"`
	Count   int           `json:"count"`
}

// VideosResponse wraps the static meditation-video catalog.
type VideosResponse struct {
	Videos []domain.MeditationVideo `json:"videos"`
	Count  int                      `json:"count"`
}

// LanguagesResponse wraps the fixed supported-language list.
type LanguagesResponse struct {
	Languages []services.SupportedLanguage `json:"languages"`
}

// TestEmotionResponse echoes the message with its classification.
type TestEmotionResponse struct {
	Message     string               `json:"message"`
	EmotionData domain.EmotionResult `json:"emotionData"`
	Timestamp   time.Time            `json:"timestamp"`
}

//
// Handlers
//

// Chat godoc
// @ID          chat
// @Summary     Send a chat message
// @Description Runs the emotion-aware pipeline and returns the assistant reply.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
// @Param       body       body    handlers.ChatRequest  true  "Chat payload"
//
// @Success     200  {object}  handlers.ChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user id"
// @Failure     429  {object}  handlers.ErrorResponse  "Daily quota exceeded"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /chat [post]
func (h *Handlers) Chat(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "user id is required")
		return
	}

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message is required and must be a non-empty string")
		return
	}

	reply, err := h.supportSvc.Respond(c.Request.Context(), uid, req.Message, req.Language)
	if err != nil {
		h.failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, chatResponse(reply, false))
}

// VoiceSupport godoc
// @ID          voiceSupport
// @Summary     Voice-enabled emotional support
// @Description Like /chat, but takes a speech transcription and returns a reply formatted for text-to-speech.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
// @Param       body       body    handlers.VoiceRequest  true  "Voice payload"
//
// @Success     200  {object}  handlers.ChatResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid input"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user id"
// @Failure     429  {object}  handlers.ErrorResponse  "Daily quota exceeded"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /voice-support [post]
func (h *Handlers) VoiceSupport(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "user id is required")
		return
	}

	var req VoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Transcription) == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "transcription is required and must be a non-empty string")
		return
	}

	reply, err := h.supportSvc.VoiceRespond(c.Request.Context(), uid, req.Transcription, req.Language)
	if err != nil {
		h.failFromService(c, err)
		return
	}
	ok(c, http.StatusOK, chatResponse(reply, true))
}

// TestEmotion godoc
// @ID          testEmotion
// @Summary     Classify a message's emotion
// @Description Runs emotion classification only; no reply is generated and no quota is consumed.
// @Tags        Chat
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.TestEmotionRequest  true  "Message to classify"
//
// @Success     200  {object}  handlers.TestEmotionResponse
// @Failure     400  {object}  handlers.ErrorResponse  "Invalid input"
// @Router      /test-emotion [post]
func (h *Handlers) TestEmotion(c *gin.Context) {
	var req TestEmotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message is required and must be a string")
		return
	}

	emo := h.classifier.Classify(c.Request.Context(), req.Message)
	ok(c, http.StatusOK, TestEmotionResponse{
		Message:     req.Message,
		EmotionData: emo,
		Timestamp:   time.Now().UTC(),
	})
}

// GetHistory godoc
// @ID          getHistory
// @Summary     Get conversation history
// @Description Returns the caller's stored turns, oldest first. An optional limit keeps only the most recent turns.
// @Tags        History
// @Produce     json
//
// @Param       X-User-ID  header  string  true   "User ID"         example(user123)
// @Param       limit      query   int     false  "Max turns (1-50)"
//
// @Success     200  {object}  handlers.HistoryResponse
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user id"
// @Router      /history [get]
func (h *Handlers) GetHistory(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "user id is required")
		return
	}

	turns := h.turns.List(uid)
	if limit := utils.AtoiDefault(c.Query("limit"), 0); limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	ok(c, http.StatusOK, HistoryResponse{History: turns, Count: len(turns)})
}

// ClearHistory godoc
// @ID          clearHistory
// @Summary     Clear conversation history
// @Tags        History
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "User ID"  example(user123)
//
// @Success     204  {string}  string  "No Content"
// @Failure     401  {object}  handlers.ErrorResponse  "Missing user id"
// @Router      /history [delete]
func (h *Handlers) ClearHistory(c *gin.Context) {
	uid := userID(c)
	if uid == "" {
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "user id is required")
		return
	}

	h.turns.Clear(uid)
	noContent(c)
}

// MeditationVideos godoc
// @ID          meditationVideos
// @Summary     List meditation videos
// @Tags        Catalog
// @Produce     json
//
// @Success     200  {object}  handlers.VideosResponse
// @Router      /meditation-videos [get]
func (h *Handlers) MeditationVideos(c *gin.Context) {
	videos := services.MeditationVideos()
	ok(c, http.StatusOK, VideosResponse{Videos: videos, Count: len(videos)})
}

// Languages godoc
// @ID          languages
// @Summary     List supported languages
// @Tags        Catalog
// @Produce     json
//
// @Success     200  {object}  handlers.LanguagesResponse
// @Router      /languages [get]
func (h *Handlers) Languages(c *gin.Context) {
	ok(c, http.StatusOK, LanguagesResponse{Languages: services.SupportedLanguages()})
}

//
// Helpers
//

// failFromService maps service sentinel errors onto HTTP responses.
func (h *Handlers) failFromService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrMissingUser):
		fail(c, http.StatusUnauthorized, ErrCodeUnauthorized, "user id is required")
	case errors.Is(err, services.ErrEmptyMessage):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "message is empty")
	case errors.Is(err, services.ErrQuotaExceeded):
		c.Header("Retry-After", "86400")
		fail(c, http.StatusTooManyRequests, ErrCodeQuotaExceeded, "Daily limit reached. Please try again tomorrow.")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeChatFailed, err.Error())
	}
}

// chatResponse converts a pipeline reply into the HTTP envelope.
func chatResponse(reply *domain.ChatReply, voice bool) ChatResponse {
	return ChatResponse{
		Response:             reply.Text,
		Language:             reply.Language,
		MeditationSuggestion: reply.MeditationSuggestion,
		EmotionData:          reply.EmotionData,
		IsCrisis:             reply.IsCrisis,
		VoiceResponse:        voice,
		Timestamp:            time.Now().UTC(),
	}
}
