package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/shouni/go-manga-studio/pkg/apperr"
	"github.com/shouni/go-manga-studio/pkg/domain"
	"github.com/shouni/go-manga-studio/pkg/respcache"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com"
	geminiDefaultModel = "gemini-pro"
)

// GeminiProvider は Gemini 互換バックエンドのアダプタです。
// 認証はヘッダではなくクエリパラメータで行い、封筒形式も独自です。
type GeminiProvider struct {
	apiKey  string
	deps    Deps
	baseURL string
	model   string
}

// NewGeminiProvider は Gemini アダプタを生成します。ネットワークには触れません。
func NewGeminiProvider(apiKey string, deps Deps) *GeminiProvider {
	return &GeminiProvider{
		apiKey:  apiKey,
		deps:    deps,
		baseURL: geminiBaseURL,
		model:   geminiDefaultModel,
	}
}

// WithBaseURL は接続先を差し替えます（テスト用）。
func (p *GeminiProvider) WithBaseURL(u string) *GeminiProvider {
	p.baseURL = u
	return p
}

// WithModel はテキストモデル名を差し替えます。
func (p *GeminiProvider) WithModel(model string) *GeminiProvider {
	if model != "" {
		p.model = model
	}
	return p
}

// GenerateImage はこのアダプタでは提供しません。
func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt string, style domain.MangaStyle, guides []domain.CharacterReference) (*GeneratedImage, error) {
	return nil, apperr.Unsupported("image generation (Gemini provider)")
}

// RefinePrompt は generateContent エンドポイントで推敲を行います。
func (p *GeminiProvider) RefinePrompt(ctx context.Context, original string, style domain.MangaStyle, extra string) (string, error) {
	// Gemini にはシステムロールの区別がないため、指示と本文を1つにまとめる
	fullPrompt := fmt.Sprintf("%s\n\n%s", refineSystemPrompt(style), refineUserPrompt(original, extra))

	req := geminiGenerateContentRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: fullPrompt}}}},
	}
	endpoint := fmt.Sprintf("/v1beta/models/%s:generateContent?key=%s", p.model, url.QueryEscape(p.apiKey))

	// キャッシュキーにAPIキーを混ぜないよう、指紋はモデルパスのみで取る
	key := respcache.Fingerprint(p.baseURL, "/v1beta/models/"+p.model+":generateContent", req)
	var resp geminiGenerateContentResponse
	err := p.deps.Responses.Do(ctx, key, respcache.DefaultTTL, &resp, func(ctx context.Context) (any, error) {
		var r geminiGenerateContentResponse
		if err := p.deps.Client.PostJSON(ctx, p.baseURL, endpoint, req, nil, &r); err != nil {
			return nil, err
		}
		if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 || r.Candidates[0].Content.Parts[0].Text == "" {
			return nil, apperr.API(apperr.APIUnknown, "No response from Gemini")
		}
		return r, nil
	})
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", apperr.API(apperr.APIUnknown, "No response from Gemini")
	}
	return resp.Candidates[0].Content.Parts[0].Text, nil
}

// AnalyzeCharacterConsistency は未実装です。
func (p *GeminiProvider) AnalyzeCharacterConsistency(ctx context.Context, referenceImage, panelImage []byte) (*ConsistencyReport, error) {
	return nil, apperr.NotImplemented("Character consistency analysis")
}
