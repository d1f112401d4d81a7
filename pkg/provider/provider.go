// Package provider は複数のAIバックエンドを一つの能力契約の背後に抽象化します。
// 新しいバックエンドの追加は、実装を一つ増やしてファクトリに分岐を足すだけで、
// 呼び出し側に手を入れる必要はありません。
package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shouni/go-manga-studio/pkg/apiclient"
	"github.com/shouni/go-manga-studio/pkg/domain"
	"github.com/shouni/go-manga-studio/pkg/imagecache"
	"github.com/shouni/go-manga-studio/pkg/respcache"
)

// AIProvider は1つのAIバックエンドが提供する能力の契約です。
// 対応しない操作は汎用の失敗ではなく、unsupported / not implemented として
// 明確に区別できるエラーを返さなければなりません。
type AIProvider interface {
	// GenerateImage はプロンプトからパネル画像を生成します。
	// 成功時、画像バイト列は画像キャッシュへ格納済みで、CacheKey で参照できます。
	GenerateImage(ctx context.Context, prompt string, style domain.MangaStyle, guides []domain.CharacterReference) (*GeneratedImage, error)

	// RefinePrompt は画像生成向けにプロンプトを推敲して返します。
	// バックエンドが候補テキストを返さなかった場合は明確に失敗します。
	RefinePrompt(ctx context.Context, original string, style domain.MangaStyle, extra string) (string, error)

	// AnalyzeCharacterConsistency は参照画像と生成画像の一貫性を分析します。
	// 実装を持たないバックエンドは捏造レポートを返さず not implemented で失敗します。
	AnalyzeCharacterConsistency(ctx context.Context, referenceImage, panelImage []byte) (*ConsistencyReport, error)
}

// GeneratedImage は画像生成の成果物です。
type GeneratedImage struct {
	Data           []byte
	CacheKey       string // 画像キャッシュ上のキー
	Metadata       ImageMetadata
	GenerationTime time.Duration // 生成にかかった実時間
}

// ImageMetadata は生成画像の再現性・解像度情報です。
type ImageMetadata struct {
	Model         string
	Seed          *int64 // 再現用シード。提供しないバックエンドでは nil
	Width         int
	Height        int
	Steps         *int
	GuidanceScale *float64
}

// Severity は一貫性問題の深刻度です。
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ConsistencyIssue は検出された個別の一貫性問題です。
type ConsistencyIssue struct {
	Severity    Severity
	Description string
	Suggestion  string
}

// ConsistencyReport はキャラクター一貫性分析の結果です。スコアは 0.0〜1.0 です。
type ConsistencyReport struct {
	OverallScore                   float64
	CharacterRecognitionConfidence float64
	StyleConsistency               float64
	Issues                         []ConsistencyIssue
}

// Type は利用可能なバックエンドの識別子です。
type Type string

const (
	TypeOpenAI     Type = "openai"
	TypeGemini     Type = "gemini"
	TypeOpenRouter Type = "openrouter"
)

// ParseType は文字列をプロバイダ識別子として解釈します。
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "openai":
		return TypeOpenAI, nil
	case "gemini":
		return TypeGemini, nil
	case "openrouter":
		return TypeOpenRouter, nil
	default:
		return "", fmt.Errorf("未知のプロバイダなのだ: %q", s)
	}
}

// Types は対応する全プロバイダ識別子を返します。
func Types() []Type {
	return []Type{TypeOpenAI, TypeGemini, TypeOpenRouter}
}

// Deps はアダプタが共有する依存の束です。
// アダプタはUIから独立に構築できるため、単体テストと実行時の差し替えが可能です。
type Deps struct {
	Client    *apiclient.Client
	Images    *imagecache.Cache
	Responses *respcache.Cache
}
