// Package editor はパネル生成ライフサイクルを司るオーケストレータです。
//
// パネルリストの変更は必ずこのパッケージを通し、単一書き手の規律を保ちます。
// 外部へはスナップショット読み取りだけを公開し、生成の失敗はパネルの状態と
// エラー観測チャネルに記録して呼び出し側へは伝播させません。
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/shouni/go-manga-studio/pkg/apperr"
	"github.com/shouni/go-manga-studio/pkg/domain"
	"github.com/shouni/go-manga-studio/pkg/imagecache"
	"github.com/shouni/go-manga-studio/pkg/provider"
	"github.com/shouni/go-manga-studio/pkg/store"
)

const (
	// DefaultAutoSaveInterval は自動保存の周期です。
	DefaultAutoSaveInterval = 30 * time.Second

	// DefaultBatchInterval は一括生成でAPIレート制限を守るための
	// パネル間の最小間隔です。
	DefaultBatchInterval = time.Second

	errBufferSize = 16
)

// Editor は1つの開いているプロジェクトに対する編集セッションです。
type Editor struct {
	mu    sync.RWMutex
	manga *domain.Manga

	provider     provider.AIProvider
	providerType provider.Type
	factory      *provider.Factory
	store        store.ProjectStore
	images       *imagecache.Cache

	undoStack []operation
	redoStack []operation

	inflight map[uuid.UUID]struct{}
	limiter  *rate.Limiter

	saving  atomic.Bool
	saveErr atomic.Pointer[error]
	errCh   chan error
}

// New は編集セッションを開始します。指定された種別のプロバイダを
// ファクトリで即座に構築し、資格情報が無ければその場で失敗します。
func New(manga *domain.Manga, factory *provider.Factory, t provider.Type, st store.ProjectStore, images *imagecache.Cache) (*Editor, error) {
	p, err := factory.Provider(t)
	if err != nil {
		return nil, err
	}
	return &Editor{
		manga:        manga,
		provider:     p,
		providerType: t,
		factory:      factory,
		store:        st,
		images:       images,
		inflight:     map[uuid.UUID]struct{}{},
		limiter:      rate.NewLimiter(rate.Every(DefaultBatchInterval), 1),
		errCh:        make(chan error, errBufferSize),
	}, nil
}

// WithBatchInterval は一括生成のパネル間隔を差し替えます（テスト用）。
func (e *Editor) WithBatchInterval(d time.Duration) *Editor {
	e.limiter = rate.NewLimiter(rate.Every(d), 1)
	return e
}

// WithProvider はファクトリを介さずプロバイダを直接差し替えます（テスト用）。
func (e *Editor) WithProvider(p provider.AIProvider) *Editor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.provider = p
	return e
}

// ProviderType は現在選択中のプロバイダ種別を返します。
func (e *Editor) ProviderType() provider.Type {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.providerType
}

// SelectProvider は実行中にプロバイダを切り替えます。
// 構築に失敗した場合は現在のプロバイダを維持します。
func (e *Editor) SelectProvider(t provider.Type) error {
	p, err := e.factory.Provider(t)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.provider = p
	e.providerType = t
	slog.Info("プロバイダを切り替えたのだ", "provider", t)
	return nil
}

// Snapshot は現在のプロジェクトのディープコピーを返します。
// 呼び出し側が自由に読めるよう、内部状態とは共有しません。
func (e *Editor) Snapshot() *domain.Manga {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.manga.Clone()
}

// ImageBytes はパネルの生成画像を画像キャッシュから取り出します。
func (e *Editor) ImageBytes(panelID uuid.UUID) ([]byte, bool) {
	e.mu.RLock()
	idx := e.manga.PanelIndex(panelID)
	if idx < 0 {
		e.mu.RUnlock()
		return nil, false
	}
	key := e.manga.Panels[idx].GeneratedImageKey
	e.mu.RUnlock()
	if key == "" {
		return nil, false
	}
	return e.images.Get(key)
}

// Errors は生成・保存の失敗を一度ずつ流す観測チャネルを返します。
// 受信されない場合でも編集は詰まりません。
func (e *Editor) Errors() <-chan error { return e.errCh }

func (e *Editor) reportError(err error) {
	select {
	case e.errCh <- err:
	default:
		slog.Warn("エラーチャネルが一杯なので通知を捨てるのだ", "error", err)
	}
}

// ---- 構造編集 ----

// AddPanel は新しいパネルを挿入し、そのIDを返します。
// afterID が nil か見つからない場合は末尾に追加します。
func (e *Editor) AddPanel(afterID *uuid.UUID) uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := len(e.manga.Panels)
	if afterID != nil {
		if i := e.manga.PanelIndex(*afterID); i >= 0 {
			idx = i + 1
		}
	}
	panel := domain.NewPanel(idx)

	e.manga.Panels = append(e.manga.Panels, domain.Panel{})
	copy(e.manga.Panels[idx+1:], e.manga.Panels[idx:])
	e.manga.Panels[idx] = panel
	e.finishEdit(operation{kind: opRemove, id: panel.ID})
	return panel.ID
}

// RemovePanel はパネルを取り除きます。
func (e *Editor) RemovePanel(id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.manga.PanelIndex(id)
	if idx < 0 {
		return apperr.InvalidInput(fmt.Sprintf("パネル %s は存在しません", id))
	}
	removed := e.manga.Panels[idx].Clone()
	e.manga.Panels = append(e.manga.Panels[:idx], e.manga.Panels[idx+1:]...)
	e.finishEdit(operation{kind: opReinsert, panel: removed, index: idx})
	return nil
}

// ReorderPanels は from の位置にあるパネル群を to の位置（移動前の座標）へ
// まとめて移動します。
func (e *Editor) ReorderPanels(from []int, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.manga.Panels)
	if to < 0 || to > n {
		return apperr.InvalidInput(fmt.Sprintf("移動先 %d が範囲外です", to))
	}
	moving := map[int]bool{}
	for _, f := range from {
		if f < 0 || f >= n {
			return apperr.InvalidInput(fmt.Sprintf("移動元 %d が範囲外です", f))
		}
		moving[f] = true
	}
	if len(moving) == 0 {
		return nil
	}

	prev := panelOrder(e.manga)

	var moved, rest []domain.Panel
	insert := to
	for i, p := range e.manga.Panels {
		if moving[i] {
			moved = append(moved, p)
			if i < to {
				insert--
			}
		} else {
			rest = append(rest, p)
		}
	}
	reordered := make([]domain.Panel, 0, n)
	reordered = append(reordered, rest[:insert]...)
	reordered = append(reordered, moved...)
	reordered = append(reordered, rest[insert:]...)
	e.manga.Panels = reordered

	e.finishEdit(operation{kind: opRestoreOrder, order: prev})
	return nil
}

// UpdatePanel は編集済みのパネル値でIDの一致するパネルを置き換えます。
func (e *Editor) UpdatePanel(edited domain.Panel) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.manga.PanelIndex(edited.ID)
	if idx < 0 {
		return apperr.InvalidInput(fmt.Sprintf("パネル %s は存在しません", edited.ID))
	}
	prev := e.manga.Panels[idx].Clone()
	e.manga.Panels[idx] = edited.Clone()
	e.finishEdit(operation{kind: opUpdate, panel: prev})
	return nil
}

// finishEdit は構造編集の共通の後始末です。ロック保持前提。
func (e *Editor) finishEdit(inverse operation) {
	e.manga.NormalizePanelOrders()
	e.manga.ModifiedAt = time.Now()
	e.undoStack = append(e.undoStack, inverse)
	e.redoStack = nil
}

// ---- Undo / Redo ----

// CanUndo は取り消せる編集があるかを返します。
func (e *Editor) CanUndo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.undoStack) > 0
}

// CanRedo はやり直せる編集があるかを返します。
func (e *Editor) CanRedo() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.redoStack) > 0
}

// Undo は直近の構造編集を取り消します。
func (e *Editor) Undo() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.undoStack) == 0 {
		return
	}
	op := e.undoStack[len(e.undoStack)-1]
	e.undoStack = e.undoStack[:len(e.undoStack)-1]
	e.redoStack = append(e.redoStack, op.apply(e.manga))
	e.manga.ModifiedAt = time.Now()
}

// Redo は取り消した編集をやり直します。
func (e *Editor) Redo() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.redoStack) == 0 {
		return
	}
	op := e.redoStack[len(e.redoStack)-1]
	e.redoStack = e.redoStack[:len(e.redoStack)-1]
	e.undoStack = append(e.undoStack, op.apply(e.manga))
	e.manga.ModifiedAt = time.Now()
}

// ---- 生成 ----

// GeneratePanel はパネル1枚の画像生成を実行します。
//
// 同じパネルが生成中の間の再呼び出しは重複リクエストにならず無視されます。
// 失敗はパネルの failed 状態とエラーチャネルに記録され、この関数自体は
// 対象パネルが存在しない場合を除いてエラーを返しません。
func (e *Editor) GeneratePanel(ctx context.Context, id uuid.UUID) error {
	e.mu.Lock()
	idx := e.manga.PanelIndex(id)
	if idx < 0 {
		e.mu.Unlock()
		return apperr.InvalidInput(fmt.Sprintf("パネル %s は存在しません", id))
	}
	if _, busy := e.inflight[id]; busy || !e.manga.Panels[idx].Status.CanStartGeneration() {
		e.mu.Unlock()
		return nil
	}
	panel := e.manga.Panels[idx]
	if panel.Prompt == "" {
		err := apperr.InvalidInput("プロンプトが空です")
		e.manga.Panels[idx].Status = domain.Failed(err.Error())
		e.mu.Unlock()
		e.reportError(err)
		return nil
	}

	e.inflight[id] = struct{}{}
	e.manga.Panels[idx].Status = domain.Generating()
	e.manga.Panels[idx].Progress = 0
	p := e.provider
	style := e.manga.Metadata.Style
	guides := append([]domain.CharacterReference(nil), panel.CharacterGuide...)
	e.mu.Unlock()

	img, err := p.GenerateImage(ctx, panel.Prompt, style, guides)

	e.mu.Lock()
	delete(e.inflight, id)
	idx = e.manga.PanelIndex(id)
	if idx < 0 {
		// 生成中に取り除かれたパネル。結果は捨てる。
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		e.manga.Panels[idx].Status = domain.Failed(err.Error())
		e.manga.Panels[idx].Progress = 0
		e.mu.Unlock()
		slog.Warn("パネル生成に失敗したのだ", "panel_id", id, "error", err)
		e.reportError(err)
		return nil
	}
	e.manga.Panels[idx].GeneratedImageKey = img.CacheKey
	e.manga.Panels[idx].Status = domain.Completed()
	e.manga.Panels[idx].Progress = 1
	e.manga.Panels[idx].EstimatedTimeRemaining = nil
	e.manga.ModifiedAt = time.Now()
	e.mu.Unlock()
	return nil
}

// GenerateBatch は与えられた順でパネルを1枚ずつ生成します。
// レート制限を守るため各パネルの間に最小間隔を置き、途中の失敗は
// 後続のパネルを止めません。ctx の取り消しだけが残りを中断します。
func (e *Editor) GenerateBatch(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
		if err := e.GeneratePanel(ctx, id); err != nil {
			// 存在しないIDは読み飛ばして残りを続行する
			slog.Warn("一括生成で不明なパネルを読み飛ばすのだ", "panel_id", id)
		}
	}
	return nil
}

// RefinePanelPrompt はパネルのプロンプトをプロバイダで推敲して置き換え、
// 推敲後の文字列を返します。置き換えはUndo可能な編集として記録されます。
func (e *Editor) RefinePanelPrompt(ctx context.Context, id uuid.UUID) (string, error) {
	e.mu.RLock()
	idx := e.manga.PanelIndex(id)
	if idx < 0 {
		e.mu.RUnlock()
		return "", apperr.InvalidInput(fmt.Sprintf("パネル %s は存在しません", id))
	}
	panel := e.manga.Panels[idx].Clone()
	style := e.manga.Metadata.Style
	p := e.provider
	e.mu.RUnlock()

	if panel.Prompt == "" {
		return "", apperr.InvalidInput("プロンプトが空です")
	}
	refined, err := p.RefinePrompt(ctx, panel.Prompt, style, provider.GuideContext(panel.CharacterGuide))
	if err != nil {
		return "", err
	}

	edited := panel.Clone()
	edited.Prompt = refined
	if err := e.UpdatePanel(edited); err != nil {
		return "", err
	}
	return refined, nil
}

// ---- 保存 ----

// Save は現在のプロジェクトをストアへ書き出します。
//
// 保存中は IsSaving が真になります。ストアの失敗は SaveError と
// エラーチャネルに記録されるだけで、メモリ上のプロジェクトは
// そのまま編集可能に保たれます。
func (e *Editor) Save(ctx context.Context) {
	if !e.saving.CompareAndSwap(false, true) {
		return
	}
	defer e.saving.Store(false)

	snapshot := e.Snapshot()
	if err := e.store.Save(ctx, snapshot); err != nil {
		e.saveErr.Store(&err)
		slog.Warn("プロジェクト保存に失敗したのだ", "project_id", snapshot.ID, "error", err)
		e.reportError(err)
		return
	}
	e.saveErr.Store(nil)
	slog.Debug("プロジェクトを保存したのだ", "project_id", snapshot.ID)
}

// IsSaving は保存処理が進行中かを返します。
func (e *Editor) IsSaving() bool { return e.saving.Load() }

// SaveError は直近の保存の失敗を返します。成功していれば nil です。
func (e *Editor) SaveError() error {
	if p := e.saveErr.Load(); p != nil {
		return *p
	}
	return nil
}

// StartAutoSave は周期的に Save を呼ぶ自動保存ループを開始します。
// ctx の取り消しで停止します。
func (e *Editor) StartAutoSave(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultAutoSaveInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.Save(ctx)
			}
		}
	}()
}
