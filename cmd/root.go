package cmd

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/shouni/go-manga-studio/internal/config"
)

// opts は、CLIフラグの値を各コマンドで共有するための実行時設定なのだ。
var opts config.Options

var rootCmd = &cobra.Command{
	Use:   "manga-studio",
	Short: "AIで漫画のコマ画像を生成・管理するスタジオなのだ。",
	Long: `プロジェクト単位で漫画のコマを管理し、AIプロバイダ（OpenAI / Gemini / OpenRouter）で
プロンプト推敲とパネル画像生成を行うのだ。生成画像はローカルにキャッシュされ、
プロジェクトはディレクトリ単位で保存されるのだよ。`,
	PersistentPreRunE: preRunAppE,
	SilenceUsage:      true,
}

// addAppFlags は、アプリケーション全般に適用されるグローバルフラグを定義するのだ。
func addAppFlags(root *cobra.Command) {
	// --- プロジェクト関連 ---
	root.PersistentFlags().StringVar(&opts.ProjectID, "project", "", "既存プロジェクトのIDなのだ。")
	root.PersistentFlags().StringVarP(&opts.Title, "title", "t", "", "新規プロジェクトのタイトルなのだ。")
	root.PersistentFlags().StringVar(&opts.Creator, "creator", "", "作者名なのだ。")
	root.PersistentFlags().StringVar(&opts.Style, "style", config.DefaultStyle, "スタイルプリセット名（Shounen / Shoujo）なのだ。")

	// --- キャラクター設定 ---
	root.PersistentFlags().StringVarP(&opts.CharactersFile, "characters", "c", "", "キャラクター名簿YAMLのパスなのだ。")

	// --- AIプロバイダ設定 ---
	root.PersistentFlags().StringVar(&opts.Provider, "provider", "", "使用するAIプロバイダ（openai / gemini / openrouter）なのだ。")

	// --- 実行制御 ---
	root.PersistentFlags().BoolVar(&opts.AutoSave, "autosave", true, "生成中の定期自動保存を有効にするのだ。")
	root.PersistentFlags().DurationVar(&opts.BatchInterval, "batch-interval", 0, "一括生成のコマ間隔（既定は環境変数か1秒）なのだ。")
}

// preRunAppE は、コマンド実行前の共通セットアップを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// .env は任意。無ければプロセス環境変数だけで動くのだ。
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn(".envの読み込みに失敗したのだ", "error", err)
	}

	level := slog.LevelInfo
	if os.Getenv("MANGA_DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func init() {
	addAppFlags(rootCmd)
	rootCmd.AddCommand(generateCmd, projectCmd, cacheCmd)
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("コマンド実行に失敗したのだ", "error", err)
		os.Exit(1)
	}
}
