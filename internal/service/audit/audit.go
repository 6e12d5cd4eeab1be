package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

// DefaultTTL は監査イベントの保持期間
const DefaultTTL = 90 * 24 * time.Hour

// イベント種別
const (
	EventExecutionSummary  = "scheduler.execution.summary"
	EventRunSummary        = "scheduler.run.summary"
	EventCredentialFailure = "scheduler.credentials.failure"
	EventResourceFailure   = "scheduler.resource.failure"
	EventScheduleSkipped   = "scheduler.schedule.skipped"
	EventRunFailed         = "scheduler.run.failed"
)

// DynamoDBAPI は監査ログの書き込みに使うDynamoDB操作
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Logger は追記専用の監査ログ
// 書き込みの失敗はログに残すだけで呼び出し元には返さない
type Logger struct {
	db    DynamoDBAPI
	table string
	ttl   time.Duration
	now   func() time.Time
	newID func() string
	log   zerolog.Logger
}

// New は監査ロガーを作成（ttl が0以下なら90日）
func New(db DynamoDBAPI, table string, ttl time.Duration, log zerolog.Logger) *Logger {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Logger{
		db:    db,
		table: table,
		ttl:   ttl,
		now:   time.Now,
		newID: uuid.NewString,
		log:   log.With().Str("component", "audit").Logger(),
	}
}

// Log はIDと時刻、保持期限を補って監査イベントを書き込む
func (l *Logger) Log(ctx context.Context, ev domain.AuditEvent) {
	if l == nil || l.db == nil {
		return
	}
	if ev.ID == "" {
		ev.ID = l.newID()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = l.now().UTC()
	}
	ev.ExpireAt = ev.Timestamp.Add(l.ttl).Unix()
	if ev.User == "" {
		ev.User, ev.UserType = domain.SystemActor, domain.ActorSystem
	}

	item, err := attributevalue.MarshalMap(ev)
	if err != nil {
		l.log.Error().Err(err).Str("event_type", ev.EventType).Msg("❌ 監査イベントの変換に失敗")
		return
	}
	_, err = l.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(l.table),
		Item:      item,
	})
	if err != nil {
		l.log.Error().Err(err).Str("event_type", ev.EventType).Str("resource_id", ev.ResourceID).Msg("❌ 監査イベントの書き込みに失敗")
	}
}

func withActor(ev domain.AuditEvent, actor domain.Actor) domain.AuditEvent {
	ev.User = actor.Name
	ev.UserType = actor.Type
	return ev
}

// ExecutionSummary はスケジュール1回分の処理結果を記録する
func (l *Logger) ExecutionSummary(ctx context.Context, actor domain.Actor, schedule domain.Schedule, executionID string, status domain.ExecutionStatus, tally domain.Tally, duration time.Duration) {
	totals := tally.Totals()
	l.Log(ctx, withActor(domain.AuditEvent{
		EventType:    EventExecutionSummary,
		Action:       "execute",
		TenantID:     schedule.TenantID,
		ResourceType: "schedule",
		ResourceID:   schedule.ScheduleID,
		Status:       executionAuditStatus(status),
		Details: fmt.Sprintf("スケジュール '%s' を実行しました（起動 %d / 停止 %d / 失敗 %d / スキップ %d）",
			schedule.Name, totals.Started, totals.Stopped, totals.Failed, totals.Skipped),
		Metadata: map[string]any{
			"executionId":  executionID,
			"scheduleName": schedule.Name,
			"accountId":    schedule.AccountID,
			"status":       string(status),
			"breakdown":    tally.Breakdown(),
			"durationMs":   duration.Milliseconds(),
		},
	}, actor))
}

// RunSummary はスケジューラ1回の起動全体の結果を記録する
func (l *Logger) RunSummary(ctx context.Context, actor domain.Actor, result domain.RunResult) {
	status := domain.AuditSuccess
	switch result.Status {
	case domain.RunStatusPartial:
		status = domain.AuditWarning
	case domain.RunStatusFailed:
		status = domain.AuditError
	}
	l.Log(ctx, withActor(domain.AuditEvent{
		EventType:    EventRunSummary,
		Action:       "run",
		ResourceType: "scheduler",
		ResourceID:   result.ExecutionID,
		Status:       status,
		Details: fmt.Sprintf("%s スキャン完了: スケジュール %d 件（起動 %d / 停止 %d / 失敗 %d）",
			result.Mode, result.SchedulesProcessed, result.ResourcesStarted, result.ResourcesStopped, result.ResourcesFailed),
		Metadata: map[string]any{
			"mode":               string(result.Mode),
			"schedulesProcessed": result.SchedulesProcessed,
			"resourcesStarted":   result.ResourcesStarted,
			"resourcesStopped":   result.ResourcesStopped,
			"resourcesFailed":    result.ResourcesFailed,
			"durationMs":         result.DurationMs,
		},
	}, actor))
}

// CredentialFailure はロール引き受けの失敗を記録する
func (l *Logger) CredentialFailure(ctx context.Context, actor domain.Actor, schedule domain.Schedule, accountID, region string, resources int, err error) {
	l.Log(ctx, withActor(domain.AuditEvent{
		EventType:    EventCredentialFailure,
		Action:       "assume-role",
		TenantID:     schedule.TenantID,
		ResourceType: "account",
		ResourceID:   accountID,
		Status:       domain.AuditError,
		Details:      fmt.Sprintf("アカウント %s (%s) の認証情報を取得できませんでした: %v", accountID, region, err),
		Metadata: map[string]any{
			"scheduleId":    schedule.ScheduleID,
			"region":        region,
			"resourceCount": resources,
		},
	}, actor))
}

// ResourceFailure はリソース単位の失敗を記録する
func (l *Logger) ResourceFailure(ctx context.Context, actor domain.Actor, schedule domain.Schedule, executionID string, r domain.ResourceResult) {
	l.Log(ctx, withActor(domain.AuditEvent{
		EventType:    EventResourceFailure,
		Action:       string(r.Action),
		TenantID:     schedule.TenantID,
		ResourceType: string(r.Kind),
		ResourceID:   r.Arn,
		Status:       domain.AuditError,
		Details:      fmt.Sprintf("%s %s の %s に失敗しました: %s", r.Kind.Label(), r.ResourceID, r.Action, r.Error),
		Metadata: map[string]any{
			"scheduleId":  schedule.ScheduleID,
			"executionId": executionID,
		},
	}, actor))
}

// ScheduleSkipped は設定不備などで処理しなかったスケジュールを記録する
func (l *Logger) ScheduleSkipped(ctx context.Context, actor domain.Actor, schedule domain.Schedule, reason string) {
	l.Log(ctx, withActor(domain.AuditEvent{
		EventType:    EventScheduleSkipped,
		Action:       "skip",
		TenantID:     schedule.TenantID,
		ResourceType: "schedule",
		ResourceID:   schedule.ScheduleID,
		Status:       domain.AuditWarning,
		Details:      fmt.Sprintf("スケジュール '%s' をスキップしました: %s", schedule.Name, reason),
	}, actor))
}

// RunFailed はスケジューラ全体が続行できなかったことを記録する
func (l *Logger) RunFailed(ctx context.Context, actor domain.Actor, executionID string, mode domain.RunMode, err error) {
	l.Log(ctx, withActor(domain.AuditEvent{
		EventType:    EventRunFailed,
		Action:       "run",
		ResourceType: "scheduler",
		ResourceID:   executionID,
		Status:       domain.AuditError,
		Details:      fmt.Sprintf("スケジューラの実行に失敗しました: %v", err),
		Metadata: map[string]any{
			"mode": string(mode),
		},
	}, actor))
}

func executionAuditStatus(s domain.ExecutionStatus) domain.AuditStatus {
	switch s {
	case domain.ExecutionSuccess:
		return domain.AuditSuccess
	case domain.ExecutionPartial:
		return domain.AuditWarning
	}
	return domain.AuditError
}
