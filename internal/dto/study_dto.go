package dto

// PageContent is one page of extracted PDF text. PageNumber is 1-indexed.
type PageContent struct {
	PageNumber int    `json:"page_number" validate:"gte=1"`
	Text       string `json:"text"`
	HasImages  bool   `json:"has_images"`
	HasTables  bool   `json:"has_tables"`
}

type UserProfile struct {
	PriorExpertise    string  `json:"prior_expertise" validate:"required"`
	MathComfort       string  `json:"math_comfort" validate:"required"`
	DetailLevel       string  `json:"detail_level" validate:"required"`
	PrimaryGoal       string  `json:"primary_goal" validate:"required"`
	AdditionalContext *string `json:"additional_context,omitempty"`
}

type TopicMastery struct {
	Score       float64 `json:"score" validate:"gte=0,lte=1"`
	Attempts    int     `json:"attempts" validate:"gte=0"`
	LastUpdated string  `json:"last_updated"`
}

type NotesRequest struct {
	CurrentPage          PageContent             `json:"current_page"`
	PreviousPage         *PageContent            `json:"previous_page,omitempty"`
	UserProfile          UserProfile             `json:"user_profile"`
	TopicMastery         map[string]TopicMastery `json:"topic_mastery" validate:"omitempty,dive"`
	PreviousNotesContext *string                 `json:"previous_notes_context,omitempty"`
	DocumentName         *string                 `json:"document_name,omitempty"`
	SessionId            *string                 `json:"session_id,omitempty"`
}

type NotesResponse struct {
	Markdown       string   `json:"markdown"`
	TopicLabels    []string `json:"topic_labels"`
	PageReferences []int    `json:"page_references"`
}

type InlineCommandType string

const (
	InlineCommandElaborate InlineCommandType = "elaborate"
	InlineCommandSimplify  InlineCommandType = "simplify"
	InlineCommandAnalogy   InlineCommandType = "analogy"
)

type InlineCommandRequest struct {
	CommandType  InlineCommandType `json:"command_type" validate:"required,oneof=elaborate simplify analogy"`
	SelectedText string            `json:"selected_text" validate:"required"`
	PageNumber   int               `json:"page_number" validate:"gte=1"`
	PageText     string            `json:"page_text"`
	UserProfile  UserProfile       `json:"user_profile"`
	SessionId    *string           `json:"session_id,omitempty"`
}

type InlineCommandResponse struct {
	Content     string            `json:"content"`
	CommandType InlineCommandType `json:"command_type"`
}

type IntegrateEmphasisRequest struct {
	PageNumber      int          `json:"page_number" validate:"gte=1"`
	ExistingNotes   string       `json:"existing_notes" validate:"required"`
	EmphasisContent string       `json:"emphasis_content" validate:"required"`
	PageContent     *PageContent `json:"page_content,omitempty"`
	UserProfile     UserProfile  `json:"user_profile"`
	SessionId       *string      `json:"session_id,omitempty"`
}

type DocumentOverview struct {
	Content           string `json:"content"`
	VisualizationType string `json:"visualization_type"`
	DocumentType      string `json:"document_type"`
}
