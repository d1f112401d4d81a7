package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// cacheCmd は、生成画像と応答のローカルキャッシュを管理するのだ。
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "生成画像・応答キャッシュを管理するのだ。",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "キャッシュの場所と状態を表示するのだ。",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		cmd.Printf("画像キャッシュ: %s\n", app.Images.Dir())
		cmd.Printf("応答キャッシュ: %d 件\n", app.Responses.ItemCount())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "キャッシュを全消去するのだ。",
	Long: `画像キャッシュ（メモリ+ディスク）と応答キャッシュを空にするのだ。
生成済みの画像はプロジェクトに保存済みであれば失われないのだよ。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		if err := app.Images.Clear(); err != nil {
			return fmt.Errorf("画像キャッシュの消去に失敗したのだ: %w", err)
		}
		app.Responses.Flush()
		cmd.Println("キャッシュを空にしたのだ。")
		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cacheInfoCmd, cacheClearCmd)
}
