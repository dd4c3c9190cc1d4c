// Package domain defines the core data types of the emotional-support
// backend: conversation turns, emotion classification results, the
// persisted daily quota model, and the meditation-video catalog entry.
// Only UserQuota is mapped with GORM; everything else lives in memory
// or on the wire.
package domain

import "time"

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Emotion labels produced by classification. Crisis is a sentinel that
// short-circuits response generation entirely.
const (
	EmotionNeutral  = "neutral"
	EmotionJoy      = "joy"
	EmotionSadness  = "sadness"
	EmotionAnger    = "anger"
	EmotionFear     = "fear"
	EmotionSurprise = "surprise"
	EmotionDisgust  = "disgust"
	EmotionCrisis   = "crisis"
)

// EmotionResult is the outcome of classifying one message.
//
// Method records which detection layer produced the answer so callers
// (and tests) can tell a transformer verdict from a keyword fallback:
//   - "transformer":             remote model classified the text
//   - "keyword_fallback":        remote unavailable or returned nothing usable
//   - "keyword_fallback_error":  remote call failed outright
//   - "":                        purely local result (blank text, crisis)
type EmotionResult struct {
	Emotion     string             `json:"emotion"`
	Confidence  float64            `json:"confidence"`
	AllEmotions map[string]float64 `json:"allEmotions,omitempty"`
	Method      string             `json:"method,omitempty"`
}

// IsCrisis reports whether the result is the crisis sentinel.
func (r EmotionResult) IsCrisis() bool { return r.Emotion == EmotionCrisis }

// MeditationVideo is one entry of the static guided-meditation catalog.
// The catalog is immutable and held in memory; it is never persisted.
type MeditationVideo struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Turn is a single exchange unit in a user's conversation history.
//
// MeditationSuggestion, EmotionData, and IsCrisis are only set on
// assistant turns. Source is "voice" for turns that arrived through the
// voice-support endpoint, empty otherwise.
type Turn struct {
	Role                 string           `json:"role"`
	Content              string           `json:"content"`
	Timestamp            time.Time        `json:"timestamp"`
	Language             string           `json:"language,omitempty"`
	MeditationSuggestion *MeditationVideo `json:"meditationSuggestion,omitempty"`
	EmotionData          *EmotionResult   `json:"emotionData,omitempty"`
	IsCrisis             bool             `json:"isCrisis,omitempty"`
	Source               string           `json:"source,omitempty"`
}

// ChatReply is the pipeline's answer to one inbound message.
type ChatReply struct {
	Text                 string           `json:"response"`
	Language             string           `json:"language"`
	EmotionData          *EmotionResult   `json:"emotionData,omitempty"`
	MeditationSuggestion *MeditationVideo `json:"meditationSuggestion,omitempty"`
	IsCrisis             bool             `json:"isCrisis"`
}

// UserQuota tracks one user's request count for one calendar day.
//
// Key is the composite "userID:YYYY-MM-DD". A new day simply produces a
// new key; rows are never reset or deleted. Count is monotonically
// non-decreasing within a day.
type UserQuota struct {
	ID        uint      `json:"-"          gorm:"primaryKey"`
	Key       string    `json:"key"        gorm:"type:varchar(80);not null;uniqueIndex:ux_user_quota_key"`
	Count     int       `json:"count"      gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserQuota.
func (UserQuota) TableName() string { return "user_quotas" }

// QuotaKey builds the composite per-user-per-day quota key.
func QuotaKey(userID string, day time.Time) string {
	return userID + ":" + day.UTC().Format("2006-01-02")
}
