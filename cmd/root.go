package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/app"
	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/config"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/logging"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/orchestrator"
)

// AppName はヘルプに表示するコマンド名
const AppName = "scheduler"

var (
	region   string
	profile  string
	logLevel string

	cfg    config.Config
	awsCtx awsx.Context
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   AppName,
	Short: "リソースの稼働時間帯スケジューラ",
	Long: `スケジュールに登録された稼働時間帯に合わせて、複数アカウント・リージョンの
EC2インスタンス、RDSインスタンス、ECSサービスを起動・停止します。

Lambdaと同じ処理を手元から実行したり、スケジュールの状態を確認したりできます。`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := RootCmd.ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&region, "region", "R", "", "AWSリージョン（未指定なら AWS_REGION）")
	RootCmd.PersistentFlags().StringVarP(&profile, "profile", "P", "", "AWSプロファイル")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "ログレベル（debug / info / warn / error）")

	// コマンド実行前に共通で設定を読み込む
	RootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		// ヘルプ・バージョン表示の場合はスキップ
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		return loadSettings(cmd)
	}
}

// loadSettings は環境変数とフラグから設定を組み立てる
func loadSettings(cmd *cobra.Command) error {
	cfg = config.Load()
	// CLIでは人が読みやすいコンソール形式を既定にする
	if os.Getenv("SCHEDULER_LOG_FORMAT") == "" {
		cfg.LogFormat = config.LogFormatConsole
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if region != "" {
		cfg.Region = region
	}
	if err := cfg.Validate(); err != nil {
		cmd.SilenceUsage = true
		return fmt.Errorf("❌ 設定エラー: %w", err)
	}

	if profile == "" {
		profile = os.Getenv("AWS_PROFILE")
		if profile != "" {
			cmd.PrintErrln("🔍 環境変数 AWS_PROFILE の値 '" + profile + "' を使用します")
		}
	}
	awsCtx = awsx.Context{Profile: profile, Region: cfg.Region}
	return nil
}

// newApp はコマンドから使うコンポーネントを組み立てる
func newApp(ctx context.Context, progress func(orchestrator.ProgressEvent)) (*app.App, error) {
	awsCfg, err := awsCtx.GetConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗: %w", err)
	}
	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat, Out: os.Stderr})
	return app.New(cfg, awsCfg, log, progress), nil
}
