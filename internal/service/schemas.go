package service

import "nana-be/pkg/llm"

var pageContentSchema = llm.Object("PageContent", map[string]*llm.Schema{
	"page_number": llm.Integer("1-indexed page number"),
	"text":        llm.String("Full text content of the page"),
	"has_images":  llm.Boolean("Whether the page contains images"),
	"has_tables":  llm.Boolean("Whether the page contains tables"),
}, "page_number", "text")

var ExtractionSchema = llm.Object("PDFExtractionResponse", map[string]*llm.Schema{
	"pages": llm.ArrayOf(pageContentSchema, "Every page of the document in order"),
}, "pages")

var NotesResponseSchema = llm.Object("NotesResponse", map[string]*llm.Schema{
	"markdown":        llm.String("Full markdown content of the notes with Obsidian-style callouts"),
	"topic_labels":    llm.ArrayOf(llm.String(""), "Topics covered for mastery tracking (lowercase, hyphenated)"),
	"page_references": llm.ArrayOf(llm.Integer(""), "Page numbers referenced in these notes"),
}, "markdown")

var InlineCommandSchema = llm.Object("InlineCommandResponse", map[string]*llm.Schema{
	"content":      llm.String("Transformed markdown content"),
	"command_type": llm.Enum("The command type that was executed", "elaborate", "simplify", "analogy"),
}, "content")

var DocumentOverviewSchema = llm.Object("DocumentOverview", map[string]*llm.Schema{
	"content":            llm.String("Markdown visualization of document structure"),
	"visualization_type": llm.String("executive_summary, table, concept_map, outline, or timeline"),
	"document_type":      llm.String("academic_paper, presentation, textbook, manual, report, or other"),
}, "content", "visualization_type", "document_type")
