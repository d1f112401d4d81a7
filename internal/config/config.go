package config

import (
	"path/filepath"
	"time"

	"github.com/shouni/go-utils/envutil"

	"github.com/shouni/go-manga-studio/pkg/imagecache"
	"github.com/shouni/go-manga-studio/pkg/provider"
	"github.com/shouni/go-manga-studio/pkg/store"
)

// デフォルト値の定義なのだ
const (
	DefaultProvider         = "openai"
	DefaultStyle            = "Shounen"
	DefaultAutoSaveInterval = 30 * time.Second
	DefaultBatchInterval    = time.Second
	DefaultCharactersFile   = "examples/characters.yaml" // キャラクター設定（名簿）を定義したYAMLパス
)

// Config はアプリケーション全体の環境設定（APIキーや保存先）を保持する構造体なのだ。
type Config struct {
	Provider         string
	OpenAIAPIKey     string
	GeminiAPIKey     string
	OpenRouterAPIKey string

	ProjectsDir      string
	ImageCacheDir    string
	AutoSaveInterval time.Duration
	BatchInterval    time.Duration

	Options Options
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	return &Config{
		Provider:         envutil.GetEnv("MANGA_PROVIDER", DefaultProvider),
		OpenAIAPIKey:     envutil.GetEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		OpenRouterAPIKey: envutil.GetEnv("OPENROUTER_API_KEY", ""),
		ProjectsDir:      envutil.GetEnv("MANGA_PROJECTS_DIR", ""),
		ImageCacheDir:    envutil.GetEnv("MANGA_IMAGE_CACHE_DIR", ""),
		AutoSaveInterval: durationEnv("MANGA_AUTOSAVE_INTERVAL", DefaultAutoSaveInterval),
		BatchInterval:    durationEnv("MANGA_BATCH_INTERVAL", DefaultBatchInterval),
	}
}

// Credentials は設定済みのAPIキーを資格情報として公開するのだ。
// 空のキーは「未設定」として扱い、環境変数への後段フォールバックに委ねるのだ。
func (c *Config) Credentials() provider.CredentialFunc {
	values := map[string]string{}
	for name, key := range map[string]string{
		provider.CredOpenAI:     c.OpenAIAPIKey,
		provider.CredGemini:     c.GeminiAPIKey,
		provider.CredOpenRouter: c.OpenRouterAPIKey,
	} {
		if key != "" {
			values[name] = key
		}
	}
	return provider.StaticCredentials(values)
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	raw := envutil.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Options は CLI フラグから渡される実行時のパラメータなのだ。
type Options struct {
	// プロジェクト関連
	ProjectID string // --project: 既存プロジェクトのID
	Title     string // --title: 新規プロジェクトのタイトル
	Creator   string // --creator
	Style     string // --style: Shounen / Shoujo などのスタイルプリセット名

	// キャラクター設定
	CharactersFile string // --characters: キャラクター名簿YAMLのパス

	// 生成関連
	Provider string // --provider: openai / gemini / openrouter
	Prompts  []string

	// 実行制御
	AutoSave      bool          // --autosave
	BatchInterval time.Duration // --batch-interval
}

// ResolveProjectsDir は保存先ディレクトリを決定するのだ。
// 環境変数が空ならユーザー設定ディレクトリ配下の既定値を使うのだ。
func (c *Config) ResolveProjectsDir() (string, error) {
	if c.ProjectsDir != "" {
		return filepath.Clean(c.ProjectsDir), nil
	}
	return store.DefaultRoot()
}

// ResolveImageCacheDir は画像キャッシュの置き場所を決定するのだ。
func (c *Config) ResolveImageCacheDir() (string, error) {
	if c.ImageCacheDir != "" {
		return filepath.Clean(c.ImageCacheDir), nil
	}
	return imagecache.DefaultDir()
}
