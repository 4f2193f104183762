package constant

const (
	PromptNotesGeneration   = "notes_generation.md"
	PromptIntegrateEmphasis = "integrate_emphasis.md"
	PromptDocumentOverview  = "document_overview.md"
	PromptInlineCommandDir  = "inline_commands"

	ExtractionPrompt = `Analyze this PDF document and extract the content from each page.

For each page, provide:
1. The page number (1-indexed)
2. The full text content
3. Whether the page contains images (true/false)
4. Whether the page contains tables (true/false)

Extract ALL pages. Preserve paragraph structure. Include all text, headings, captions, and footnotes.`

	NoPreviousPage         = "(No previous page - this is page 1)"
	NoMasteryData          = "(No prior mastery data)"
	NoPreviousNotes        = "(None)"
	NoAdditionalContext    = "None"
	OverviewNoContext      = "None provided"
	PageContentUnavailable = "(Original page content not available - use existing notes for context)"

	NotesTemperature         = 0.2
	InlineCommandTemperature = 0.3
	EmphasisTemperature      = 0.2
)

// DefaultAnalogyExpertise is used when prior_expertise matches no entry.
const DefaultAnalogyExpertise = "Domain Novice"

// AnalogyInstructions maps a learner's prior_expertise to the framing used by
// the analogy inline command.
var AnalogyInstructions = map[string]string{
	"Software Engineering":     "Create an analogy drawn from programming and software systems: functions, data structures, APIs, caching, version control, or debugging. The learner writes code daily and will recognize these immediately.",
	"Data Science / Analytics": "Create an analogy drawn from data work: datasets, spreadsheets, SQL queries, dashboards, model training, or statistical sampling. The learner thinks in terms of data pipelines and metrics.",
	"Business / Finance":       "Create an analogy drawn from business and finance: budgets, markets, supply chains, investments, contracts, or organizational roles. The learner reasons about trade-offs and incentives.",
	"Academic Research":        "Create an analogy drawn from the research process: hypotheses, experiments, literature reviews, peer review, or controlled variables. The learner is comfortable with rigorous argument.",
	DefaultAnalogyExpertise:    "Create an analogy drawn from everyday life: cooking, travel, sports, household tasks, or familiar tools. Assume no specialist background and avoid jargon entirely.",
}

// AnalogyInstruction returns the fragment for expertise, falling back to the
// Domain Novice framing.
func AnalogyInstruction(expertise string) string {
	if s, ok := AnalogyInstructions[expertise]; ok {
		return s
	}
	return AnalogyInstructions[DefaultAnalogyExpertise]
}
