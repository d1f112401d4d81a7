package cmd

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shouni/go-manga-studio/internal/builder"
	"github.com/shouni/go-manga-studio/internal/config"
	"github.com/shouni/go-manga-studio/pkg/domain"
	"github.com/shouni/go-manga-studio/pkg/editor"
)

// generateCmd は、AIによるパネル画像の生成を実行するのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "AIに漫画のコマ画像を生成させますなのだ。",
	Long: `プロジェクトの未生成・失敗コマをまとめて生成するのだ。
--prompt で新しいコマを追加してから生成することもできるのだよ。
途中で失敗したコマがあっても残りの生成は続行されるのだ。`,
	RunE: generateCommand,
}

func init() {
	generateCmd.Flags().StringArrayVarP(&opts.Prompts, "prompt", "p", nil, "追加するコマのプロンプトなのだ（複数指定可）。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.ProjectID == "" && opts.Title == "" {
		return fmt.Errorf("プロジェクト（--project）か新規タイトル（--title）を指定してほしいのだ")
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := config.LoadConfig()
	cfg.Options = opts
	if opts.BatchInterval > 0 {
		cfg.BatchInterval = opts.BatchInterval
	}

	app, err := builder.NewApp(cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの構築に失敗したのだ: %w", err)
	}

	ed, err := openEditor(cmd, app)
	if err != nil {
		return err
	}

	// 3. 指定されたプロンプトを新しいコマとして追加するのだ
	for _, prompt := range opts.Prompts {
		id := ed.AddPanel(nil)
		snap := ed.Snapshot()
		panel := snap.Panels[snap.PanelIndex(id)]
		panel.Prompt = prompt
		if err := ed.UpdatePanel(panel); err != nil {
			return fmt.Errorf("コマの追加に失敗したのだ: %w", err)
		}
	}

	// 4. 生成対象（未生成・失敗のコマ）を集めるのだ
	snap := ed.Snapshot()
	var targets []uuid.UUID
	for _, p := range snap.Panels {
		if p.Status.Kind == domain.StatusPending || p.Status.Kind == domain.StatusFailed {
			targets = append(targets, p.ID)
		}
	}
	if len(targets) == 0 {
		slog.Info("生成すべきコマが無いのだ", "project_id", snap.ID)
		return nil
	}

	slog.Info("コマ画像の一括生成を始めるのだ！",
		"project_id", snap.ID,
		"provider", ed.ProviderType(),
		"panels", len(targets))

	if opts.AutoSave {
		ed.StartAutoSave(ctx, cfg.AutoSaveInterval)
	}
	go drainErrors(ed)

	if err := ed.GenerateBatch(ctx, targets); err != nil {
		return fmt.Errorf("一括生成が中断されたのだ: %w", err)
	}

	// 5. 最終状態を保存して結果を報告するのだ
	ed.Save(ctx)
	if err := ed.SaveError(); err != nil {
		return fmt.Errorf("プロジェクトの保存に失敗したのだ: %w", err)
	}

	completed, failed := 0, 0
	for _, p := range ed.Snapshot().Panels {
		switch p.Status.Kind {
		case domain.StatusCompleted, domain.StatusCached:
			completed++
		case domain.StatusFailed:
			failed++
		}
	}
	slog.Info("生成工程が完了したのだ！", "completed", completed, "failed", failed)
	return nil
}

func openEditor(cmd *cobra.Command, app *builder.App) (*editor.Editor, error) {
	if opts.ProjectID != "" {
		id, err := uuid.Parse(opts.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("プロジェクトIDの形式が不正なのだ: %w", err)
		}
		return app.BuildEditor(cmd.Context(), id)
	}
	return app.BuildNewProjectEditor(opts.Title, opts.Creator, opts.Style)
}

// drainErrors は生成・保存の失敗通知をログに流し続けるのだ。
func drainErrors(ed *editor.Editor) {
	for err := range ed.Errors() {
		slog.Warn("生成中にエラーが記録されたのだ", "error", err)
	}
}
