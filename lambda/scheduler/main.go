package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/app"
	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/config"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/logging"
)

func main() {
	cfg := config.Load()
	log := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("❌ 設定が不正です")
		os.Exit(1)
	}

	// 実行ロールとリージョンは環境変数から読み込まれる
	awsCfg, err := awsx.LoadAwsConfig(context.Background(), awsx.Context{Region: cfg.Region})
	if err != nil {
		log.Error().Err(err).Msg("❌ AWS設定の読み込みに失敗しました")
		os.Exit(1)
	}

	a := app.New(cfg, awsCfg, log, nil)
	lambda.Start(app.Handler(a.Orchestrator, log))
}
