package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shouni/go-manga-studio/pkg/apperr"
	"github.com/shouni/go-manga-studio/pkg/domain"
	"github.com/shouni/go-manga-studio/pkg/imagecache"
)

func newTestStore(t *testing.T) (*FileStore, *imagecache.Cache) {
	t.Helper()
	images, err := imagecache.New(filepath.Join(t.TempDir(), "images"))
	if err != nil {
		t.Fatalf("画像キャッシュ作成に失敗したのだ: %v", err)
	}
	s, err := NewFileStore(filepath.Join(t.TempDir(), "projects"), images)
	if err != nil {
		t.Fatalf("ストア作成に失敗したのだ: %v", err)
	}
	return s, images
}

func sampleManga(t *testing.T, images *imagecache.Cache) *domain.Manga {
	t.Helper()
	manga := domain.NewManga("テスト作品", "ずんだもん", domain.StyleByName("Shounen"))
	manga.Characters = []domain.Character{domain.NewCharacter("主人公", "元気な少年")}

	p0 := domain.NewPanel(0)
	p0.Prompt = "夜明けの街"
	p0.GeneratedImageKey = "img-" + p0.ID.String()
	p0.Status = domain.Completed()
	if err := images.Put(p0.GeneratedImageKey, []byte("png-bytes-0")); err != nil {
		t.Fatalf("画像格納に失敗したのだ: %v", err)
	}

	p1 := domain.NewPanel(1)
	p1.Prompt = "決戦"
	p1.Status = domain.Failed("rate limited")
	// 存在しないキャラクターIDへの弱参照。読込後も壊れずに残るべきなのだ。
	p1.CharacterGuide = []domain.CharacterReference{
		{CharacterID: "missing-character", Action: "running"},
	}

	manga.Panels = []domain.Panel{p0, p1}
	return manga
}

func TestFileStore_SaveLoad(t *testing.T) {
	t.Run("全フィールドが欠けずに往復するのだ", func(t *testing.T) {
		s, images := newTestStore(t)
		ctx := context.Background()
		manga := sampleManga(t, images)

		if err := s.Save(ctx, manga); err != nil {
			t.Fatalf("Save失敗なのだ: %v", err)
		}
		loaded, err := s.Load(ctx, manga.ID)
		if err != nil {
			t.Fatalf("Load失敗なのだ: %v", err)
		}

		if loaded.Title != manga.Title || loaded.Creator != manga.Creator {
			t.Errorf("メタデータが一致しないのだ: %+v", loaded)
		}
		if len(loaded.Panels) != 2 {
			t.Fatalf("コマ数が違うのだ: %d", len(loaded.Panels))
		}
		if loaded.Panels[1].Status.Kind != domain.StatusFailed {
			t.Errorf("failed状態が失われたのだ: %+v", loaded.Panels[1].Status)
		}
		if loaded.Panels[1].Status.Reason != "rate limited" {
			t.Errorf("失敗理由が失われたのだ: %q", loaded.Panels[1].Status.Reason)
		}
		if got := loaded.Panels[1].CharacterGuide[0].CharacterID; got != "missing-character" {
			t.Errorf("宙ぶらりんの弱参照が保てていないのだ: %q", got)
		}
		for i, p := range loaded.Panels {
			if p.Order != i {
				t.Errorf("順序が密でないのだ: panels[%d].Order = %d", i, p.Order)
			}
		}
	})

	t.Run("画像付きコマはキャッシュ済みとして復元されるのだ", func(t *testing.T) {
		s, images := newTestStore(t)
		ctx := context.Background()
		manga := sampleManga(t, images)

		if err := s.Save(ctx, manga); err != nil {
			t.Fatalf("Save失敗なのだ: %v", err)
		}
		// 読込がディスク上の画像からキャッシュを再構築することを確認する
		if err := images.Clear(); err != nil {
			t.Fatalf("キャッシュ削除に失敗したのだ: %v", err)
		}

		loaded, err := s.Load(ctx, manga.ID)
		if err != nil {
			t.Fatalf("Load失敗なのだ: %v", err)
		}
		p := loaded.Panels[0]
		if p.Status.Kind != domain.StatusCached {
			t.Errorf("cached状態で復元されるべきなのだ: %+v", p.Status)
		}
		data, ok := images.Get(p.GeneratedImageKey)
		if !ok || string(data) != "png-bytes-0" {
			t.Error("画像バイト列がキャッシュへ書き戻されていないのだ")
		}
	})

	t.Run("同じ内容の再保存はバイト単位で冪等なのだ", func(t *testing.T) {
		s, images := newTestStore(t)
		ctx := context.Background()
		manga := sampleManga(t, images)

		if err := s.Save(ctx, manga); err != nil {
			t.Fatalf("Save失敗なのだ: %v", err)
		}
		path := filepath.Join(s.Root(), manga.ID.String(), metadataFile)
		first, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("metadata.jsonが読めないのだ: %v", err)
		}

		if err := s.Save(ctx, manga); err != nil {
			t.Fatalf("再Save失敗なのだ: %v", err)
		}
		second, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("metadata.jsonが読めないのだ: %v", err)
		}
		if string(first) != string(second) {
			t.Error("再保存でバイト列が変わったのだ")
		}
	})

	t.Run("コマを減らして保存すると古いディレクトリが消えるのだ", func(t *testing.T) {
		s, images := newTestStore(t)
		ctx := context.Background()
		manga := sampleManga(t, images)

		if err := s.Save(ctx, manga); err != nil {
			t.Fatalf("Save失敗なのだ: %v", err)
		}
		manga.Panels = manga.Panels[:1]
		if err := s.Save(ctx, manga); err != nil {
			t.Fatalf("再Save失敗なのだ: %v", err)
		}

		loaded, err := s.Load(ctx, manga.ID)
		if err != nil {
			t.Fatalf("Load失敗なのだ: %v", err)
		}
		if len(loaded.Panels) != 1 {
			t.Errorf("古いコマが復活したのだ: %d コマ", len(loaded.Panels))
		}
	})

	t.Run("数値でないコマディレクトリは読み飛ばすのだ", func(t *testing.T) {
		s, images := newTestStore(t)
		ctx := context.Background()
		manga := sampleManga(t, images)

		if err := s.Save(ctx, manga); err != nil {
			t.Fatalf("Save失敗なのだ: %v", err)
		}
		junk := filepath.Join(s.Root(), manga.ID.String(), panelsDir, ".DS_Store")
		if err := os.MkdirAll(junk, 0o755); err != nil {
			t.Fatalf("ディレクトリ作成に失敗したのだ: %v", err)
		}

		loaded, err := s.Load(ctx, manga.ID)
		if err != nil {
			t.Fatalf("Load失敗なのだ: %v", err)
		}
		if len(loaded.Panels) != 2 {
			t.Errorf("コマ数が変わったのだ: %d", len(loaded.Panels))
		}
	})
}

func TestFileStore_NotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Load(ctx, uuid.New()); apperr.CodeOf(err) != apperr.CodeFileNotFound {
		t.Errorf("Loadはnot foundで失敗すべきなのだ: %v", err)
	}
	if err := s.Delete(ctx, uuid.New()); apperr.CodeOf(err) != apperr.CodeFileNotFound {
		t.Errorf("Deleteはnot foundで失敗すべきなのだ: %v", err)
	}
}

func TestFileStore_ListAll(t *testing.T) {
	t.Run("更新日時の新しい順で返るのだ", func(t *testing.T) {
		s, _ := newTestStore(t)
		ctx := context.Background()

		base := time.Now()
		var ids []uuid.UUID
		for i := 0; i < 3; i++ {
			m := domain.NewManga("作品", "作者", domain.StyleByName("Shounen"))
			m.ModifiedAt = base.Add(time.Duration(i) * time.Hour)
			if err := s.Save(ctx, m); err != nil {
				t.Fatalf("Save失敗なのだ: %v", err)
			}
			ids = append(ids, m.ID)
		}

		got, err := s.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll失敗なのだ: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("件数が違うのだ: %d", len(got))
		}
		for i, want := range []uuid.UUID{ids[2], ids[1], ids[0]} {
			if got[i].ID != want {
				t.Errorf("並び順が違うのだ: got[%d] = %s", i, got[i].ID)
			}
		}
	})

	t.Run("壊れたディレクトリは一覧全体を壊さないのだ", func(t *testing.T) {
		s, images := newTestStore(t)
		ctx := context.Background()

		if err := s.Save(ctx, sampleManga(t, images)); err != nil {
			t.Fatalf("Save失敗なのだ: %v", err)
		}
		// メタデータの無いUUID名ディレクトリを混入させる
		if err := os.MkdirAll(filepath.Join(s.Root(), uuid.NewString()), 0o755); err != nil {
			t.Fatalf("ディレクトリ作成に失敗したのだ: %v", err)
		}

		got, err := s.ListAll(ctx)
		if err != nil {
			t.Fatalf("ListAll失敗なのだ: %v", err)
		}
		if len(got) != 1 {
			t.Errorf("正常なプロジェクトだけが返るべきなのだ: %d 件", len(got))
		}
	})
}

func TestFileStore_Delete(t *testing.T) {
	s, images := newTestStore(t)
	ctx := context.Background()
	manga := sampleManga(t, images)

	if err := s.Save(ctx, manga); err != nil {
		t.Fatalf("Save失敗なのだ: %v", err)
	}
	if err := s.Delete(ctx, manga.ID); err != nil {
		t.Fatalf("Delete失敗なのだ: %v", err)
	}
	if _, err := s.Load(ctx, manga.ID); apperr.CodeOf(err) != apperr.CodeFileNotFound {
		t.Errorf("削除後のLoadはnot foundであるべきなのだ: %v", err)
	}
}
