package model

import (
	"time"

	"github.com/google/uuid"
)

// WatchEventType enumerates the lifecycle stages of a watch session.
type WatchEventType string

const (
	WatchEventStart    WatchEventType = "start"
	WatchEventProgress WatchEventType = "progress"
	WatchEventEnd      WatchEventType = "end"
)

// WatchEvent is one append-only telemetry record for an explanation-video
// watch session. Events sharing a session id supersede each other; the
// newest row per session is authoritative. Rows are never deleted here —
// retention is an external concern.
type WatchEvent struct {
	ID                   int64          `json:"id,omitempty"`
	SessionID            uuid.UUID      `json:"session_id"`
	QuestionID           uuid.UUID      `json:"question_id"`
	ResultID             *uuid.UUID     `json:"result_id,omitempty"`
	VideoRef             string         `json:"video_ref"`
	WatchDurationSeconds float64        `json:"watch_duration_seconds"`
	TotalDurationSeconds float64        `json:"total_duration_seconds"`
	CompletionPercentage float64        `json:"completion_percentage"`
	EventType            WatchEventType `json:"event_type"`
	CreatedAt            time.Time      `json:"created_at,omitempty"`
}

// IngestWatchEventRequest is the collector-facing ingest payload.
type IngestWatchEventRequest struct {
	SessionID            uuid.UUID  `json:"session_id" binding:"required"`
	QuestionID           uuid.UUID  `json:"question_id" binding:"required"`
	ResultID             *uuid.UUID `json:"result_id" binding:"omitempty"`
	VideoRef             string     `json:"video_ref" binding:"required,max=512"`
	WatchDurationSeconds float64    `json:"watch_duration_seconds" binding:"min=0"`
	TotalDurationSeconds float64    `json:"total_duration_seconds" binding:"min=0"`
	CompletionPercentage float64    `json:"completion_percentage" binding:"min=0,max=100"`
	EventType            string     `json:"event_type" binding:"required,oneof=start progress end"`
}
