package dto

type ParsedPDF struct {
	OriginalFilename string            `json:"original_filename"`
	TotalPages       int               `json:"total_pages"`
	Pages            []PageContent     `json:"pages"`
	SessionId        string            `json:"session_id"`
	ContentHash      string            `json:"content_hash"`
	Overview         *DocumentOverview `json:"overview,omitempty"`
}

// ExtractionResult is the structured output of the PDF extraction call.
type ExtractionResult struct {
	Pages []PageContent `json:"pages" validate:"dive"`
}

type UploadStep string

const (
	StepValidating         UploadStep = "validating"
	StepExtracting         UploadStep = "extracting"
	StepParsing            UploadStep = "parsing"
	StepGeneratingOverview UploadStep = "generating_overview"
	StepComplete           UploadStep = "complete"
	StepError              UploadStep = "error"
)

// Percent is the fixed progress value reported when a step starts.
func (s UploadStep) Percent() int {
	switch s {
	case StepValidating:
		return 5
	case StepExtracting:
		return 15
	case StepParsing:
		return 75
	case StepGeneratingOverview:
		return 80
	case StepComplete:
		return 100
	}
	return 0
}

type UploadProgressEvent struct {
	Step            UploadStep `json:"step"`
	Message         string     `json:"message"`
	ProgressPercent int        `json:"progress_percent"`
	Data            *ParsedPDF `json:"data,omitempty"`
}

// UploadFile is a fully buffered multipart upload.
type UploadFile struct {
	Filename string
	Content  []byte
}

type CacheHitRequest struct {
	DocumentName string  `json:"document_name" validate:"required"`
	CachedPages  []int   `json:"cached_pages"`
	TotalPages   int     `json:"total_pages" validate:"gte=0"`
	SessionId    *string `json:"session_id,omitempty"`
}

type CacheHitResponse struct {
	Logged  bool   `json:"logged"`
	Message string `json:"message"`
}

type ValidateKeyResponse struct {
	Valid     bool   `json:"valid"`
	ErrorType string `json:"error_type,omitempty"`
	Message   string `json:"message"`
}

type LogsQuery struct {
	Level  string `query:"level" validate:"omitempty,oneof=DEBUG INFO WARN ERROR"`
	Limit  int    `query:"limit" validate:"gte=0,lte=1000"`
	Offset int    `query:"offset" validate:"gte=0"`
}
