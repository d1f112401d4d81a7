package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/shouni/go-manga-studio/internal/builder"
	"github.com/shouni/go-manga-studio/internal/config"
)

// projectCmd は、保存済みプロジェクトの管理を行うのだ。
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "保存済みプロジェクトを一覧・削除するのだ。",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "プロジェクトを更新日時の新しい順に一覧するのだ。",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		projects, err := app.Store.ListAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("一覧の取得に失敗したのだ: %w", err)
		}
		if len(projects) == 0 {
			cmd.Println("保存済みプロジェクトは無いのだ。")
			return nil
		}
		for _, p := range projects {
			cmd.Printf("%s  %-20s  %2dコマ  更新: %s\n",
				p.ID, p.Title, p.PanelCount(), p.ModifiedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project-id>",
	Short: "プロジェクトの永続状態をすべて削除するのだ。",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("プロジェクトIDの形式が不正なのだ: %w", err)
		}
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.Store.Delete(cmd.Context(), id); err != nil {
			return fmt.Errorf("削除に失敗したのだ: %w", err)
		}
		cmd.Printf("プロジェクト %s を削除したのだ。\n", id)
		return nil
	},
}

func init() {
	projectCmd.AddCommand(projectListCmd, projectDeleteCmd)
}

func newApp() (*builder.App, error) {
	cfg := config.LoadConfig()
	cfg.Options = opts
	app, err := builder.NewApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("アプリケーションの構築に失敗したのだ: %w", err)
	}
	return app, nil
}
