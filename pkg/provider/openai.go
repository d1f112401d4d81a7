package provider

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-manga-studio/pkg/apperr"
	"github.com/shouni/go-manga-studio/pkg/domain"
	"github.com/shouni/go-manga-studio/pkg/respcache"
)

const (
	openAIBaseURL           = "https://api.openai.com"
	openAIChatEndpoint      = "/v1/chat/completions"
	openAIImageEndpoint     = "/v1/images/generations"
	openAIDefaultChatModel  = "gpt-4-turbo"
	openAIDefaultImageModel = "dall-e-3"
	refineTemperature       = 0.7
	refineMaxTokens         = 200
)

// OpenAIProvider は OpenAI 互換バックエンドのアダプタです。
// 3能力（画像生成・プロンプト推敲・一貫性分析）のうち前者2つを実装します。
type OpenAIProvider struct {
	apiKey     string
	deps       Deps
	baseURL    string
	chatModel  string
	imageModel string
}

// NewOpenAIProvider は OpenAI アダプタを生成します。ネットワークには触れません。
func NewOpenAIProvider(apiKey string, deps Deps) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:     apiKey,
		deps:       deps,
		baseURL:    openAIBaseURL,
		chatModel:  openAIDefaultChatModel,
		imageModel: openAIDefaultImageModel,
	}
}

// WithBaseURL は接続先を差し替えます（互換APIサーバーやテスト用）。
func (p *OpenAIProvider) WithBaseURL(u string) *OpenAIProvider {
	p.baseURL = u
	return p
}

// WithModels はチャット/画像モデル名を差し替えます。
func (p *OpenAIProvider) WithModels(chatModel, imageModel string) *OpenAIProvider {
	if chatModel != "" {
		p.chatModel = chatModel
	}
	if imageModel != "" {
		p.imageModel = imageModel
	}
	return p
}

// GenerateImage はプロンプトを推敲してから画像エンドポイントを呼び、
// 生成結果をダウンロードして画像キャッシュへ新しいキーで格納します。
func (p *OpenAIProvider) GenerateImage(ctx context.Context, prompt string, style domain.MangaStyle, guides []domain.CharacterReference) (*GeneratedImage, error) {
	start := time.Now()

	refined, err := p.RefinePrompt(ctx, prompt, style, GuideContext(guides))
	if err != nil {
		return nil, err
	}

	req := imageGenerationRequest{
		Prompt:  refined,
		Model:   p.imageModel,
		Size:    "1024x1024",
		Quality: "hd",
		N:       1,
		Style:   "vivid",
	}

	var resp imageGenerationResponse
	if err := p.deps.Client.PostJSON(ctx, p.baseURL, openAIImageEndpoint, req, p.authHeaders(), &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return nil, apperr.ImageProcessingFailed("No image in response")
	}

	data, err := p.deps.Client.Download(ctx, resp.Data[0].URL)
	if err != nil {
		return nil, err
	}

	key := uuid.NewString()
	if err := p.deps.Images.Put(key, data); err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	slog.Info("パネル画像を生成したのだ",
		"provider", TypeOpenAI, "model", p.imageModel, "elapsed", elapsed)

	return &GeneratedImage{
		Data:     data,
		CacheKey: key,
		Metadata: ImageMetadata{
			Model: p.imageModel,
			// DALL-E 3 は再現可能なシードを提供しない
			Seed:   nil,
			Width:  1024,
			Height: 1024,
		},
		GenerationTime: elapsed,
	}, nil
}

// RefinePrompt はチャット補完エンドポイントで推敲を行います。
// 冪等な呼び出しなので、同一内容のリクエストは応答キャッシュで重複排除されます。
func (p *OpenAIProvider) RefinePrompt(ctx context.Context, original string, style domain.MangaStyle, extra string) (string, error) {
	req := chatCompletionRequest{
		Model: p.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: refineSystemPrompt(style)},
			{Role: "user", Content: refineUserPrompt(original, extra)},
		},
		Temperature: refineTemperature,
		MaxTokens:   refineMaxTokens,
	}

	key := respcache.Fingerprint(p.baseURL, openAIChatEndpoint, req)
	var resp chatCompletionResponse
	err := p.deps.Responses.Do(ctx, key, respcache.DefaultTTL, &resp, func(ctx context.Context) (any, error) {
		var r chatCompletionResponse
		if err := p.deps.Client.PostJSON(ctx, p.baseURL, openAIChatEndpoint, req, p.authHeaders(), &r); err != nil {
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

// AnalyzeCharacterConsistency は未実装です。捏造レポートは返しません。
func (p *OpenAIProvider) AnalyzeCharacterConsistency(ctx context.Context, referenceImage, panelImage []byte) (*ConsistencyReport, error) {
	return nil, apperr.NotImplemented("Character consistency analysis")
}

func (p *OpenAIProvider) authHeaders() map[string]string {
	return map[string]string{"Authorization": "Bearer " + p.apiKey}
}
