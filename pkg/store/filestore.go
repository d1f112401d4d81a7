package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shouni/go-manga-studio/pkg/apperr"
	"github.com/shouni/go-manga-studio/pkg/domain"
	"github.com/shouni/go-manga-studio/pkg/imagecache"
)

const (
	metadataFile = "metadata.json"
	panelsDir    = "panels"
	panelFile    = "panel.json"
	imageFile    = "image.png"

	// listConcurrency は ListAll で同時に読み込むプロジェクト数の上限です。
	listConcurrency = 4
)

// FileStore はプロジェクトをディレクトリ単位でファイルに保存する ProjectStore 実装です。
//
// レイアウト:
//
//	<root>/<project-id>/metadata.json
//	<root>/<project-id>/panels/<index>/panel.json
//	<root>/<project-id>/panels/<index>/image.png  (生成済みの場合のみ)
//
// 画像バイト列は画像キャッシュと共有し、保存時はキャッシュからコピー、
// 読込時はキャッシュへ書き戻します。
type FileStore struct {
	root   string
	images *imagecache.Cache
}

var _ ProjectStore = (*FileStore)(nil)

// DefaultRoot は保存先ディレクトリの既定値を返します。
func DefaultRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("ユーザー設定ディレクトリの解決に失敗しました: %w", err)
	}
	return filepath.Join(base, "go-manga-studio", "projects"), nil
}

// NewFileStore は root 配下を保存先とする FileStore を生成します。
func NewFileStore(root string, images *imagecache.Cache) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, apperr.FileWriteFailed("保存先ディレクトリを作成できません", err)
	}
	return &FileStore{root: root, images: images}, nil
}

// Root は保存先ディレクトリを返します。
func (s *FileStore) Root() string { return s.root }

func (s *FileStore) projectDir(id uuid.UUID) string {
	return filepath.Join(s.root, id.String())
}

// Save はプロジェクト全体をディスクへ書き出します。
//
// メタデータとコマのJSONは整形して決定的に書くため、内容が変わらない限り
// 再保存してもバイト列は同一になります。コマの削除で不要になった
// インデックスのディレクトリは取り除きます。
func (s *FileStore) Save(ctx context.Context, manga *domain.Manga) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := s.projectDir(manga.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.FileWriteFailed("プロジェクトディレクトリを作成できません", err)
	}

	if err := writeJSON(filepath.Join(dir, metadataFile), manga); err != nil {
		return err
	}

	pdir := filepath.Join(dir, panelsDir)
	if err := os.MkdirAll(pdir, 0o755); err != nil {
		return apperr.FileWriteFailed("コマ用ディレクトリを作成できません", err)
	}

	for i := range manga.Panels {
		if err := s.savePanel(pdir, i, &manga.Panels[i]); err != nil {
			return err
		}
	}

	return s.pruneStalePanels(pdir, len(manga.Panels))
}

func (s *FileStore) savePanel(pdir string, index int, panel *domain.Panel) error {
	dir := filepath.Join(pdir, strconv.Itoa(index))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.FileWriteFailed(fmt.Sprintf("コマ %d のディレクトリを作成できません", index), err)
	}
	if err := writeJSON(filepath.Join(dir, panelFile), panel); err != nil {
		return err
	}

	if panel.GeneratedImageKey == "" {
		return nil
	}
	data, ok := s.images.Get(panel.GeneratedImageKey)
	if !ok {
		// 画像キャッシュが退避済みでも保存自体は続行する。
		// メタデータから再生成できるため致命傷ではない。
		slog.Warn("生成画像がキャッシュに見つからないため保存をスキップするのだ",
			"panel_id", panel.ID, "cache_key", panel.GeneratedImageKey)
		return nil
	}
	if err := os.WriteFile(filepath.Join(dir, imageFile), data, 0o644); err != nil {
		return apperr.FileWriteFailed(fmt.Sprintf("コマ %d の画像を書き込めません", index), err)
	}
	return nil
}

// pruneStalePanels はコマ数の減少後に残る古いインデックスのディレクトリを取り除きます。
func (s *FileStore) pruneStalePanels(pdir string, count int) error {
	entries, err := os.ReadDir(pdir)
	if err != nil {
		return apperr.FileWriteFailed("コマ用ディレクトリを参照できません", err)
	}
	for _, e := range entries {
		n, convErr := strconv.Atoi(e.Name())
		if convErr != nil || n < count {
			continue
		}
		if err := os.RemoveAll(filepath.Join(pdir, e.Name())); err != nil {
			return apperr.FileWriteFailed("古いコマディレクトリを削除できません", err)
		}
	}
	return nil
}

// Load は保存済みプロジェクトを読み込みます。
//
// 画像ファイルを伴うコマはキャッシュ済み状態として復元し、バイト列を
// 画像キャッシュへ書き戻します。数値でない名前のコマディレクトリは
// 警告を出して読み飛ばします。
func (s *FileStore) Load(ctx context.Context, id uuid.UUID) (*domain.Manga, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := s.projectDir(id)
	data, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperr.FileNotFound(fmt.Sprintf("プロジェクト %s", id))
		}
		return nil, apperr.Unknown(fmt.Errorf("メタデータを読み込めません: %w", err))
	}

	var manga domain.Manga
	if err := json.Unmarshal(data, &manga); err != nil {
		return nil, apperr.Unknown(fmt.Errorf("メタデータの形式が不正です: %w", err))
	}

	panels, err := s.loadPanels(filepath.Join(dir, panelsDir))
	if err != nil {
		return nil, err
	}
	if panels != nil {
		manga.Panels = panels
	}
	manga.NormalizePanelOrders()
	return &manga, nil
}

func (s *FileStore) loadPanels(pdir string) ([]domain.Panel, error) {
	entries, err := os.ReadDir(pdir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, apperr.Unknown(fmt.Errorf("コマ用ディレクトリを参照できません: %w", err))
	}

	indices := make([]int, 0, len(entries))
	for _, e := range entries {
		n, convErr := strconv.Atoi(e.Name())
		if convErr != nil {
			slog.Warn("数値でないコマディレクトリを読み飛ばすのだ", "name", e.Name())
			continue
		}
		indices = append(indices, n)
	}
	sort.Ints(indices)

	panels := make([]domain.Panel, 0, len(indices))
	for _, n := range indices {
		dir := filepath.Join(pdir, strconv.Itoa(n))
		data, err := os.ReadFile(filepath.Join(dir, panelFile))
		if err != nil {
			return nil, apperr.Unknown(fmt.Errorf("コマ %d を読み込めません: %w", n, err))
		}
		var panel domain.Panel
		if err := json.Unmarshal(data, &panel); err != nil {
			return nil, apperr.Unknown(fmt.Errorf("コマ %d の形式が不正です: %w", n, err))
		}

		if img, err := os.ReadFile(filepath.Join(dir, imageFile)); err == nil {
			key := panel.GeneratedImageKey
			if key == "" {
				key = panel.ID.String()
			}
			if putErr := s.images.Put(key, img); putErr != nil {
				return nil, putErr
			}
			panel.GeneratedImageKey = key
			panel.Status = domain.Cached()
		}

		panels = append(panels, panel)
	}
	return panels, nil
}

// ListAll は保存されている全プロジェクトを更新日時の新しい順で返します。
// 壊れたディレクトリは警告を出して読み飛ばし、一覧全体は失敗させません。
func (s *FileStore) ListAll(ctx context.Context) ([]*domain.Manga, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, apperr.Unknown(fmt.Errorf("保存先ディレクトリを参照できません: %w", err))
	}

	var (
		mu       sync.Mutex
		projects []*domain.Manga
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)

	for _, e := range entries {
		id, parseErr := uuid.Parse(e.Name())
		if parseErr != nil {
			continue
		}
		g.Go(func() error {
			manga, loadErr := s.Load(gctx, id)
			if loadErr != nil {
				slog.Warn("読み込めないプロジェクトを一覧から除外するのだ",
					"project_id", id, "error", loadErr)
				return nil
			}
			mu.Lock()
			projects = append(projects, manga)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(projects, func(i, j int) bool {
		return projects[i].ModifiedAt.After(projects[j].ModifiedAt)
	})
	return projects, nil
}

// Delete はプロジェクトの永続状態をすべて取り除きます。
func (s *FileStore) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := s.projectDir(id)
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return apperr.FileNotFound(fmt.Sprintf("プロジェクト %s", id))
	}
	if err := os.RemoveAll(dir); err != nil {
		return apperr.FileWriteFailed("プロジェクトを削除できません", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Unknown(fmt.Errorf("JSONへの変換に失敗しました: %w", err))
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return apperr.FileWriteFailed(fmt.Sprintf("%s を書き込めません", filepath.Base(path)), err)
	}
	return nil
}
