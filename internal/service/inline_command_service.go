package service

import (
	"context"
	"path"
	"strconv"

	"nana-be/internal/constant"
	"nana-be/internal/dto"
	"nana-be/internal/pkg/serverutils"
	"nana-be/pkg/llm"
	"nana-be/pkg/prompt"
)

type IInlineCommandService interface {
	Execute(ctx context.Context, apiKey string, req *dto.InlineCommandRequest) (*dto.InlineCommandResponse, error)
}

type inlineCommandService struct {
	ai      *aiCaller
	prompts *prompt.Loader
}

func NewInlineCommandService(deps AIDeps, prompts *prompt.Loader) IInlineCommandService {
	return &inlineCommandService{
		ai:      newAICaller(deps),
		prompts: prompts,
	}
}

var inlineCommandTemplates = map[dto.InlineCommandType]string{
	dto.InlineCommandElaborate: "elaborate.md",
	dto.InlineCommandSimplify:  "simplify.md",
	dto.InlineCommandAnalogy:   "analogy.md",
}

func (s *inlineCommandService) Execute(ctx context.Context, apiKey string, req *dto.InlineCommandRequest) (*dto.InlineCommandResponse, error) {
	file, ok := inlineCommandTemplates[req.CommandType]
	if !ok {
		return nil, serverutils.BadRequest("Unknown command type: "+string(req.CommandType), nil)
	}

	values := profileValues(req.UserProfile)
	values["selected_text"] = req.SelectedText
	values["page_number"] = strconv.Itoa(req.PageNumber)
	values["page_text"] = req.PageText
	if req.CommandType == dto.InlineCommandAnalogy {
		values["analogy_instruction"] = constant.AnalogyInstruction(req.UserProfile.PriorExpertise)
	}

	filled, err := s.prompts.Fill(path.Join(constant.PromptInlineCommandDir, file), values)
	if err != nil {
		return nil, toHTTPError(err)
	}

	provider, err := s.ai.provider(apiKey)
	if err != nil {
		return nil, err
	}

	var res dto.InlineCommandResponse
	err = s.ai.call(ctx, provider, aiRequest{
		name:        "inline_command_" + string(req.CommandType),
		sessionID:   deref(req.SessionId),
		parts:       []llm.Part{llm.TextPart(filled)},
		schema:      InlineCommandSchema,
		temperature: temperature(constant.InlineCommandTemperature),
	}, &res)
	if err != nil {
		s.ai.logger.Error("INLINE_COMMAND", "Inline command failed", map[string]interface{}{
			"command": req.CommandType,
			"page":    req.PageNumber,
			"session": deref(req.SessionId),
			"error":   err.Error(),
		})
		return nil, toHTTPError(err)
	}

	return &dto.InlineCommandResponse{
		Content:     res.Content,
		CommandType: req.CommandType,
	}, nil
}
