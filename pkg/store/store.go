// Package store はプロジェクトの永続化を担当します。
//
// オーケストレータからは ProjectStore インターフェースとしてのみ参照され、
// 保存先がファイルかデータベースかは利用側から見えない設計です。
package store

import (
	"context"

	"github.com/google/uuid"

	"github.com/shouni/go-manga-studio/pkg/domain"
)

// ProjectStore はプロジェクト一式の保存・読込の契約です。
//
//   - Save は同じ内容の再保存で実質的に何も変えません（冪等）。
//   - Load は存在しない ID に対して not found で失敗します。
//   - ListAll は更新日時の新しい順に返します。
//   - Delete はそのプロジェクトの永続状態をすべて取り除きます。
type ProjectStore interface {
	Save(ctx context.Context, manga *domain.Manga) error
	Load(ctx context.Context, id uuid.UUID) (*domain.Manga, error)
	ListAll(ctx context.Context) ([]*domain.Manga, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
