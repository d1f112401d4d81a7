package provider

import (
	"context"

	"github.com/shouni/go-manga-studio/pkg/apperr"
	"github.com/shouni/go-manga-studio/pkg/domain"
	"github.com/shouni/go-manga-studio/pkg/respcache"
)

const (
	openRouterBaseURL      = "https://openrouter.ai"
	openRouterChatEndpoint = "/api/v1/chat/completions"
	openRouterDefaultModel = "anthropic/claude-3-opus"

	// OpenRouter はアプリ識別ヘッダを要求する
	openRouterReferer = "https://go-manga-studio.app"
	openRouterTitle   = "Go Manga Studio"
)

// OpenRouterProvider は OpenRouter 互換バックエンドのアダプタです。
// LLMプロキシであり画像生成は提供しないため、推敲専用です。
type OpenRouterProvider struct {
	apiKey  string
	deps    Deps
	baseURL string
	model   string
}

// NewOpenRouterProvider は OpenRouter アダプタを生成します。ネットワークには触れません。
func NewOpenRouterProvider(apiKey string, deps Deps) *OpenRouterProvider {
	return &OpenRouterProvider{
		apiKey:  apiKey,
		deps:    deps,
		baseURL: openRouterBaseURL,
		model:   openRouterDefaultModel,
	}
}

// WithBaseURL は接続先を差し替えます（テスト用）。
func (p *OpenRouterProvider) WithBaseURL(u string) *OpenRouterProvider {
	p.baseURL = u
	return p
}

// WithModel はモデル名を差し替えます。
func (p *OpenRouterProvider) WithModel(model string) *OpenRouterProvider {
	if model != "" {
		p.model = model
	}
	return p
}

// GenerateImage はこのアダプタでは提供しません。
func (p *OpenRouterProvider) GenerateImage(ctx context.Context, prompt string, style domain.MangaStyle, guides []domain.CharacterReference) (*GeneratedImage, error) {
	return nil, apperr.Unsupported("image generation (OpenRouter provider)")
}

// RefinePrompt はチャット補完互換エンドポイントで推敲を行います。
func (p *OpenRouterProvider) RefinePrompt(ctx context.Context, original string, style domain.MangaStyle, extra string) (string, error) {
	req := chatCompletionRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: refineSystemPrompt(style)},
			{Role: "user", Content: refineUserPrompt(original, extra)},
		},
		Temperature: refineTemperature,
		MaxTokens:   refineMaxTokens,
	}

	key := respcache.Fingerprint(p.baseURL, openRouterChatEndpoint, req)
	var resp chatCompletionResponse
	err := p.deps.Responses.Do(ctx, key, respcache.DefaultTTL, &resp, func(ctx context.Context) (any, error) {
		var r chatCompletionResponse
		if err := p.deps.Client.PostJSON(ctx, p.baseURL, openRouterChatEndpoint, req, p.authHeaders(), &r); err != nil {
			return nil, err
		}
		if len(r.Choices) == 0 || r.Choices[0].Message.Content == "" {
			return nil, apperr.API(apperr.APIUnknown, "No response from prompt refinement")
		}
		return r, nil
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", apperr.API(apperr.APIUnknown, "No response from prompt refinement")
	}
	return resp.Choices[0].Message.Content, nil
}

// AnalyzeCharacterConsistency は未実装です。
func (p *OpenRouterProvider) AnalyzeCharacterConsistency(ctx context.Context, referenceImage, panelImage []byte) (*ConsistencyReport, error) {
	return nil, apperr.NotImplemented("Character consistency analysis")
}

func (p *OpenRouterProvider) authHeaders() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + p.apiKey,
		"HTTP-Referer":  openRouterReferer,
		"X-Title":       openRouterTitle,
	}
}
