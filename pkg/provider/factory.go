package provider

import (
	"fmt"
	"os"
	"strings"

	"github.com/shouni/go-manga-studio/pkg/apperr"
)

// 資格情報ストア上の安定した識別子です。
const (
	CredOpenAI     = "openai_api_key"
	CredGemini     = "gemini_api_key"
	CredOpenRouter = "openrouter_api_key"
)

// CredentialFunc は秘密情報ストアへの検索能力です。
// ストアの実体（キーチェーン、環境変数、設定ファイル）はこの層では関知しません。
type CredentialFunc func(name string) (string, bool)

// EnvCredentials は環境変数から資格情報を引きます。
// 識別子は大文字化して検索します（openai_api_key -> OPENAI_API_KEY）。
func EnvCredentials(name string) (string, bool) {
	v, ok := os.LookupEnv(strings.ToUpper(name))
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// StaticCredentials は固定マップを資格情報ストアとして使います（主にテスト用）。
func StaticCredentials(values map[string]string) CredentialFunc {
	return func(name string) (string, bool) {
		v, ok := values[name]
		if !ok || v == "" {
			return "", false
		}
		return v, true
	}
}

// ChainCredentials は複数のストアを順に試し、最初に見つかった値を返します。
func ChainCredentials(fns ...CredentialFunc) CredentialFunc {
	return func(name string) (string, bool) {
		for _, fn := range fns {
			if v, ok := fn(name); ok {
				return v, true
			}
		}
		return "", false
	}
}

// Factory はプロバイダ識別子と資格情報から構築済みアダプタを解決します。
// アダプタの構築はネットワークに触れないため、資格情報が無い場合は即座に失敗します。
type Factory struct {
	creds CredentialFunc
	deps  Deps
}

// NewFactory はファクトリを生成します。
func NewFactory(creds CredentialFunc, deps Deps) *Factory {
	return &Factory{creds: creds, deps: deps}
}

// Provider は識別子に対応するアダプタを構築して返します。
func (f *Factory) Provider(t Type) (AIProvider, error) {
	credName, err := credentialName(t)
	if err != nil {
		return nil, err
	}
	apiKey, ok := f.creds(credName)
	if !ok {
		return nil, apperr.Unauthorized(fmt.Sprintf("missing credential %q", credName))
	}

	switch t {
	case TypeOpenAI:
		return NewOpenAIProvider(apiKey, f.deps), nil
	case TypeGemini:
		return NewGeminiProvider(apiKey, f.deps), nil
	case TypeOpenRouter:
		return NewOpenRouterProvider(apiKey, f.deps), nil
	default:
		return nil, apperr.InvalidInput(fmt.Sprintf("unknown provider type: %q", t))
	}
}

func credentialName(t Type) (string, error) {
	switch t {
	case TypeOpenAI:
		return CredOpenAI, nil
	case TypeGemini:
		return CredGemini, nil
	case TypeOpenRouter:
		return CredOpenRouter, nil
	default:
		return "", apperr.InvalidInput(fmt.Sprintf("unknown provider type: %q", t))
	}
}
