package events

import "time"

const (
	TypeAICallCompleted = "AI_CALL_COMPLETED"
	TypeAICallFailed    = "AI_CALL_FAILED"
	TypeUploadCompleted = "UPLOAD_COMPLETED"
	TypeUploadFailed    = "UPLOAD_FAILED"
	TypeNotesCacheHit   = "NOTES_CACHE_HIT"
)

// AICall describes one finished request to the generative service.
type AICall struct {
	Operation    string
	SessionID    string
	Model        string
	DurationMs   int64
	PromptTokens int
	OutputTokens int
	TotalTokens  int
	ErrorKind    string
	Error        string
}

func NewAICallEvent(c AICall, at time.Time) BaseEvent {
	data := map[string]interface{}{
		"operation":   c.Operation,
		"session_id":  c.SessionID,
		"model":       c.Model,
		"duration_ms": c.DurationMs,
	}
	typ := TypeAICallCompleted
	if c.Error != "" {
		typ = TypeAICallFailed
		data["error_kind"] = c.ErrorKind
		data["error"] = c.Error
	} else {
		data["prompt_tokens"] = c.PromptTokens
		data["output_tokens"] = c.OutputTokens
		data["total_tokens"] = c.TotalTokens
	}
	return BaseEvent{Type: typ, Data: data, OccurredAt: at}
}

func NewUploadCompletedEvent(sessionID, filename string, pages int, withOverview bool, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeUploadCompleted,
		Data: map[string]interface{}{
			"session_id":    sessionID,
			"filename":      filename,
			"total_pages":   pages,
			"with_overview": withOverview,
		},
		OccurredAt: at,
	}
}

func NewUploadFailedEvent(sessionID, filename, stage, reason string, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeUploadFailed,
		Data: map[string]interface{}{
			"session_id": sessionID,
			"filename":   filename,
			"stage":      stage,
			"reason":     reason,
		},
		OccurredAt: at,
	}
}

func NewNotesCacheHitEvent(sessionID, documentName string, cachedPages []int, totalPages int, at time.Time) BaseEvent {
	return BaseEvent{
		Type: TypeNotesCacheHit,
		Data: map[string]interface{}{
			"session_id":    sessionID,
			"document_name": documentName,
			"cached_pages":  cachedPages,
			"total_pages":   totalPages,
		},
		OccurredAt: at,
	}
}
