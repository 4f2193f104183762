package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"nana-be/internal/constant"
	"nana-be/internal/dto"
	"nana-be/pkg/llm"
	"nana-be/pkg/prompt"
)

type INotesService interface {
	GenerateNotes(ctx context.Context, apiKey string, req *dto.NotesRequest) (*dto.NotesResponse, error)
}

type notesService struct {
	ai      *aiCaller
	prompts *prompt.Loader
}

func NewNotesService(deps AIDeps, prompts *prompt.Loader) INotesService {
	return &notesService{
		ai:      newAICaller(deps),
		prompts: prompts,
	}
}

func (s *notesService) GenerateNotes(ctx context.Context, apiKey string, req *dto.NotesRequest) (*dto.NotesResponse, error) {
	filled, err := s.prompts.Fill(constant.PromptNotesGeneration, notesPromptValues(req))
	if err != nil {
		return nil, toHTTPError(err)
	}

	provider, err := s.ai.provider(apiKey)
	if err != nil {
		return nil, err
	}

	var res dto.NotesResponse
	err = s.ai.call(ctx, provider, aiRequest{
		name:        fmt.Sprintf("notes_page_%d", req.CurrentPage.PageNumber),
		sessionID:   deref(req.SessionId),
		parts:       []llm.Part{llm.TextPart(filled)},
		schema:      NotesResponseSchema,
		temperature: temperature(constant.NotesTemperature),
	}, &res)
	if err != nil {
		s.ai.logger.Error("NOTES", "Notes generation failed", map[string]interface{}{
			"page":     req.CurrentPage.PageNumber,
			"document": deref(req.DocumentName),
			"session":  deref(req.SessionId),
			"error":    err.Error(),
		})
		return nil, toHTTPError(err)
	}

	normalizeNotes(&res)
	return &res, nil
}

func notesPromptValues(req *dto.NotesRequest) map[string]string {
	values := profileValues(req.UserProfile)
	values["additional_context"] = derefOr(req.UserProfile.AdditionalContext, constant.NoAdditionalContext)
	values["topic_mastery_text"] = formatMastery(req.TopicMastery)
	values["previous_page_text"] = formatPreviousPage(req.PreviousPage)
	values["previous_notes_text"] = derefOr(req.PreviousNotesContext, constant.NoPreviousNotes)
	values["page_number"] = strconv.Itoa(req.CurrentPage.PageNumber)
	values["page_text"] = req.CurrentPage.Text
	return values
}

func profileValues(p dto.UserProfile) map[string]string {
	return map[string]string{
		"prior_expertise": p.PriorExpertise,
		"math_comfort":    p.MathComfort,
		"detail_level":    p.DetailLevel,
		"primary_goal":    p.PrimaryGoal,
	}
}

func formatPreviousPage(p *dto.PageContent) string {
	if p == nil {
		return constant.NoPreviousPage
	}
	return formatPage(*p)
}

func formatPage(p dto.PageContent) string {
	return fmt.Sprintf("--- Page %d ---\n%s", p.PageNumber, p.Text)
}

// formatMastery renders one line per topic, sorted by topic name.
func formatMastery(m map[string]dto.TopicMastery) string {
	if len(m) == 0 {
		return constant.NoMasteryData
	}
	topics := make([]string, 0, len(m))
	for t := range m {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	var b strings.Builder
	for _, t := range topics {
		fmt.Fprintf(&b, "- %s: Score %.2f (Attempts: %d)\n", t, m[t].Score, m[t].Attempts)
	}
	return b.String()
}

func normalizeNotes(res *dto.NotesResponse) {
	if res.TopicLabels == nil {
		res.TopicLabels = []string{}
	}
	if res.PageReferences == nil {
		res.PageReferences = []int{}
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
