package service

import (
	"context"

	"nana-be/internal/dto"
	"nana-be/internal/pkg/logger"
	"nana-be/pkg/llm"
	"nana-be/pkg/llm/factory"
)

type IAPIKeyService interface {
	Validate(ctx context.Context, apiKey string) *dto.ValidateKeyResponse
}

type apiKeyService struct {
	providers factory.ProviderFactory
	model     string
	logger    logger.ILogger
}

func NewAPIKeyService(providers factory.ProviderFactory, model string, log logger.ILogger) IAPIKeyService {
	return &apiKeyService{
		providers: providers,
		model:     model,
		logger:    log,
	}
}

// Validate spends a one-token request to see whether the service accepts
// the key.
func (s *apiKeyService) Validate(ctx context.Context, apiKey string) *dto.ValidateKeyResponse {
	provider, err := s.providers(apiKey)
	if err != nil {
		return &dto.ValidateKeyResponse{Valid: false, ErrorType: string(llm.KindOther), Message: err.Error()}
	}

	_, err = provider.Generate(ctx, []llm.Part{llm.TextPart("ping")}, llm.WithModel(s.model), llm.WithMaxTokens(1))
	if err == nil {
		return &dto.ValidateKeyResponse{Valid: true, Message: "API key is valid"}
	}

	kind := llm.KindOther
	if se, ok := llm.AsServiceError(err); ok {
		kind = se.Kind
	}
	s.logger.Info("APIKEY", "API key validation failed", map[string]interface{}{
		"error_type": string(kind),
	})

	switch kind {
	case llm.KindInvalidKey:
		return &dto.ValidateKeyResponse{Valid: false, ErrorType: string(kind), Message: "Invalid API key. Please check your key and try again."}
	case llm.KindQuotaExceeded:
		return &dto.ValidateKeyResponse{Valid: false, ErrorType: string(kind), Message: "API key quota exceeded. Please try again later or use a different key."}
	}
	return &dto.ValidateKeyResponse{Valid: false, ErrorType: string(kind), Message: "Could not validate API key: " + err.Error()}
}
