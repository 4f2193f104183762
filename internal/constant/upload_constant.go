package constant

const (
	MsgValidating         = "Validating PDF file..."
	MsgExtracting         = "Extracting text with Gemini AI..."
	MsgParsing            = "Parsing extracted content..."
	MsgGeneratingOverview = "Generating document overview..."
	MsgComplete           = "Upload complete!"

	ErrMsgNotPDF         = "Only PDF files are accepted"
	ErrMsgTooLarge       = "PDF exceeds 50MB limit. Please upload a smaller file."
	ErrMsgInvalidProfile = "Invalid user_profile: %s"
	ErrMsgGemini         = "Gemini API error: %s"
	ErrMsgParse          = "Failed to parse Gemini response: %s"
	ErrMsgSchema         = "Gemini response did not match expected schema"

	ErrMsgAPIKeyRequired      = "API key required. Please provide your Gemini API key."
	ErrMsgAPIKeyNotConfigured = "GOOGLE_API_KEY not configured"

	PDFMimeType = "application/pdf"
)
