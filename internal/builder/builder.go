package builder

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shouni/go-manga-studio/internal/config"
	"github.com/shouni/go-manga-studio/pkg/domain"
	"github.com/shouni/go-manga-studio/pkg/editor"
	"github.com/shouni/go-manga-studio/pkg/provider"
)

// resolveProviderType はCLIフラグ優先でプロバイダ種別を決定します。
func (a *App) resolveProviderType() (provider.Type, error) {
	name := a.Config.Options.Provider
	if name == "" {
		name = a.Config.Provider
	}
	t, err := provider.ParseType(name)
	if err != nil {
		return "", fmt.Errorf("プロバイダの指定が不正なのだ: %w", err)
	}
	return t, nil
}

// BuildEditor は既存プロジェクトをストアから開き、編集セッションを構築します。
func (a *App) BuildEditor(ctx context.Context, projectID uuid.UUID) (*editor.Editor, error) {
	manga, err := a.Store.Load(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("プロジェクトを開けないのだ: %w", err)
	}
	return a.newEditor(manga)
}

// BuildNewProjectEditor は新規プロジェクトを作って編集セッションを構築します。
// キャラクター名簿が指定されていれば読み込んでプロジェクトに登録します。
func (a *App) BuildNewProjectEditor(title, creator, styleName string) (*editor.Editor, error) {
	manga := domain.NewManga(title, creator, domain.StyleByName(styleName))

	if path := a.Config.Options.CharactersFile; path != "" {
		characters, err := config.LoadCharacters(path)
		if err != nil {
			return nil, err
		}
		manga.Characters = characters
	}
	return a.newEditor(manga)
}

func (a *App) newEditor(manga *domain.Manga) (*editor.Editor, error) {
	t, err := a.resolveProviderType()
	if err != nil {
		return nil, err
	}
	e, err := editor.New(manga, a.Factory, t, a.Store, a.Images)
	if err != nil {
		return nil, fmt.Errorf("エディタの構築に失敗したのだ: %w", err)
	}
	if d := a.Config.BatchInterval; d > 0 {
		e.WithBatchInterval(d)
	}
	return e, nil
}
