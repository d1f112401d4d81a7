package builder

import (
	"github.com/shouni/go-manga-studio/internal/config"

	"github.com/shouni/go-manga-studio/pkg/apiclient"
	"github.com/shouni/go-manga-studio/pkg/imagecache"
	"github.com/shouni/go-manga-studio/pkg/provider"
	"github.com/shouni/go-manga-studio/pkg/respcache"
	"github.com/shouni/go-manga-studio/pkg/store"
)

// App は、アプリケーション実行に必要な共通コンテキストを保持する。
// これを各コマンドに渡すことで、依存関係の注入を簡素化します。
type App struct {
	Config    *config.Config    // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、保存先など）。
	Client    *apiclient.Client // Clientは、全プロバイダが共有する外部API通信の出口です。
	Images    *imagecache.Cache // Imagesは、生成画像のメモリ+ディスク2層キャッシュです。
	Responses *respcache.Cache  // Responsesは、テキスト推敲呼び出しの重複排除キャッシュです。
	Factory   *provider.Factory // Factoryは、プロバイダ識別子と資格情報からアダプタを構築します。
	Store     *store.FileStore  // Storeは、プロジェクトの永続化先です。
}

// NewApp は設定からアプリケーションの全コンポーネントを配線するのだ。
// 資格情報は設定ファイル（環境変数経由）を先に、プロセス環境変数を後に探すのだ。
func NewApp(cfg *config.Config) (*App, error) {
	imageDir, err := cfg.ResolveImageCacheDir()
	if err != nil {
		return nil, err
	}
	images, err := imagecache.New(imageDir)
	if err != nil {
		return nil, err
	}

	projectsDir, err := cfg.ResolveProjectsDir()
	if err != nil {
		return nil, err
	}

	client := apiclient.New()
	responses := respcache.New()
	deps := provider.Deps{Client: client, Images: images, Responses: responses}
	factory := provider.NewFactory(
		provider.ChainCredentials(cfg.Credentials(), provider.EnvCredentials),
		deps,
	)

	st, err := store.NewFileStore(projectsDir, images)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:    cfg,
		Client:    client,
		Images:    images,
		Responses: responses,
		Factory:   factory,
		Store:     st,
	}, nil
}
