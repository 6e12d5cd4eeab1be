package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/rs/zerolog"

	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/config"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/audit"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/notify"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/orchestrator"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/store"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/tracker"
)

// App はCLIとLambdaで共通の組み立て済みコンポーネント
type App struct {
	Config       config.Config
	Logger       zerolog.Logger
	Store        *store.Store
	Orchestrator *orchestrator.Orchestrator
}

// New は実行環境のAWS設定から各コンポーネントを組み立てる
// progress は nil でもよい
func New(cfg config.Config, awsCfg aws.Config, log zerolog.Logger, progress func(orchestrator.ProgressEvent)) *App {
	db := dynamodb.NewFromConfig(awsCfg)

	st := store.New(db, store.Options{
		SchedulesTable: cfg.SchedulesTable,
		AccountsTable:  cfg.AccountsTable,
		ActiveIndex:    cfg.ActiveIndex,
	}, log)

	var notifier *notify.Notifier
	if cfg.AlertTopicArn != "" {
		notifier = notify.New(sns.NewFromConfig(awsCfg), cfg.AlertTopicArn, log)
	}

	o := orchestrator.New(orchestrator.Deps{
		Store:       st,
		Broker:      awsx.NewBroker(awsCfg),
		Reconcilers: orchestrator.DefaultReconcilers(log),
		Tracker: tracker.New(db, tracker.Options{
			ExecutionsTable: cfg.ExecutionsTable,
			StateTable:      cfg.StateTable,
			StateTTL:        cfg.StateTTL,
		}),
		Audit:            audit.New(db, cfg.AuditTable, cfg.AuditTTL, log),
		Notifier:         notifierOrNil(notifier),
		Logger:           log,
		MaxConcurrency:   cfg.MaxConcurrency,
		RequireOwnership: cfg.RequireOwnership,
		Progress:         progress,
	})

	return &App{Config: cfg, Logger: log, Store: st, Orchestrator: o}
}

// notifierOrNil は未設定の通知先をインターフェースのnilとして渡す
func notifierOrNil(n *notify.Notifier) orchestrator.Notifier {
	if !n.Enabled() {
		return nil
	}
	return n
}

// Runner はスケジューラ1回分の実行
type Runner interface {
	Run(ctx context.Context, req domain.RunRequest) (domain.RunResult, error)
}

// Handler はLambdaの入力イベントをRunRequestに変換して実行する
//
// EventBridgeの定期実行イベントなど、スケジュールの指定がないイベントはフルスキャンになる。
// API Gateway経由の呼び出しのように body に文字列でJSONが入っている形式も受け付ける。
func Handler(r Runner, log zerolog.Logger) func(ctx context.Context, event json.RawMessage) (domain.RunResult, error) {
	return func(ctx context.Context, event json.RawMessage) (domain.RunResult, error) {
		req, err := ParseEvent(event)
		if err != nil {
			log.Error().Err(err).Msg("❌ 入力イベントを解釈できません")
			return domain.RunResult{Status: domain.RunStatusFailed, Message: err.Error()}, err
		}
		return r.Run(ctx, req)
	}
}

// ParseEvent は入力イベントからRunRequestを取り出す
func ParseEvent(event json.RawMessage) (domain.RunRequest, error) {
	var req domain.RunRequest
	if len(strings.TrimSpace(string(event))) == 0 || string(event) == "null" {
		return req, nil
	}

	var envelope struct {
		domain.RunRequest
		Body   *string         `json:"body"`
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(event, &envelope); err != nil {
		return req, fmt.Errorf("入力イベントのJSONが不正です: %w", err)
	}
	req = envelope.RunRequest

	switch {
	case envelope.Body != nil && strings.TrimSpace(*envelope.Body) != "":
		if err := json.Unmarshal([]byte(*envelope.Body), &req); err != nil {
			return domain.RunRequest{}, fmt.Errorf("body のJSONが不正です: %w", err)
		}
	case len(envelope.Detail) > 0 && req.Mode() == domain.ModeFull:
		// EventBridgeの detail に指定があればそれを使う
		var detail domain.RunRequest
		if err := json.Unmarshal(envelope.Detail, &detail); err != nil {
			return domain.RunRequest{}, fmt.Errorf("detail のJSONが不正です: %w", err)
		}
		req = detail
	}
	return req, nil
}
