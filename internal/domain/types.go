package domain

import (
	"errors"
	"fmt"
	"time"
)

// Status is the curator decision recorded for a word
type Status string

const (
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusUnchecked Status = "unchecked"
)

// ErrInvalidStatus is returned when a status string is not one of the known values
var ErrInvalidStatus = errors.New("invalid status")

// ParseStatus validates a status string
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusApproved, StatusRejected, StatusUnchecked:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Word represents a candidate crossword answer
type Word struct {
	Text              string    `json:"word"`
	Status            Status    `json:"status"`
	StatusLastUpdated time.Time `json:"status_last_updated"`
	CluesLastUpdated  time.Time `json:"clues_last_updated"`
	TimeAdded         time.Time `json:"time_added"`
	Clues             []string  `json:"clues,omitempty"`
}

// Source is an origin wordlist that words were ingested from
type Source struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Link     string `json:"link"`
	FilePath string `json:"file_path"`
}

// SourceWord links a word to a source with the source's own score
type SourceWord struct {
	SourceID int64  `json:"source_id"`
	Word     string `json:"word"`
	Score    *int   `json:"score,omitempty"`
}

// Clue is a deduplicated clue text
type Clue struct {
	ID       int64     `json:"id"`
	Text     string    `json:"text"`
	LastSeen time.Time `json:"last_seen"`
}

// Model is one immutable trained classifier version
type Model struct {
	ID               int64          `json:"id"`
	ArtifactPath     string         `json:"artifact_path"`
	TrainingScore    float64        `json:"training_score"`
	TrainedAt        time.Time      `json:"trained_at"`
	TrainingDuration time.Duration  `json:"training_duration"`
	Meta             map[string]any `json:"meta,omitempty"`
}

// WordModelScore is the raw decision-function score of a word under a model
type WordModelScore struct {
	Word    string  `json:"word"`
	ModelID int64   `json:"model_id"`
	Score   float64 `json:"score"`
}

// ScoredWord is a word with its status and optional raw score, used for ranking
type ScoredWord struct {
	Word   string   `json:"word"`
	Status Status   `json:"status"`
	Score  *float64 `json:"score,omitempty"`
}
