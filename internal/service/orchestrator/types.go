package orchestrator

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

// ScheduleStore はスケジュールとアカウントの参照先
type ScheduleStore interface {
	ListActiveSchedulesStrict(ctx context.Context) ([]domain.Schedule, error)
	GetSchedule(ctx context.Context, scheduleID, tenantID string) (*domain.Schedule, error)
	FindScheduleByName(ctx context.Context, name, tenantID string) (*domain.Schedule, error)
	ListActiveAccounts(ctx context.Context) ([]domain.Account, error)
	RecordLastExecution(ctx context.Context, schedule domain.Schedule, executionID string, status domain.ExecutionStatus, at time.Time)
}

// CredentialBroker はアカウント・リージョンごとの一時認証情報を払い出す
type CredentialBroker interface {
	AssumeRole(ctx context.Context, in awsx.AssumeRoleInput) (awsx.Credentials, error)
}

// ExecutionTracker は実行履歴とリソースの最終状態の記録先
type ExecutionTracker interface {
	SaveExecution(ctx context.Context, record domain.ExecutionRecord) error
	GetLastKnownState(ctx context.Context, tenantID, scheduleID, resourceArn string) (*domain.LastKnownState, error)
	PutLastKnownState(ctx context.Context, state domain.LastKnownState) error
}

// AuditSink は監査イベントの書き込み先（失敗は内部で握りつぶす）
type AuditSink interface {
	ExecutionSummary(ctx context.Context, actor domain.Actor, schedule domain.Schedule, executionID string, status domain.ExecutionStatus, tally domain.Tally, duration time.Duration)
	RunSummary(ctx context.Context, actor domain.Actor, result domain.RunResult)
	CredentialFailure(ctx context.Context, actor domain.Actor, schedule domain.Schedule, accountID, region string, resources int, err error)
	ResourceFailure(ctx context.Context, actor domain.Actor, schedule domain.Schedule, executionID string, r domain.ResourceResult)
	ScheduleSkipped(ctx context.Context, actor domain.Actor, schedule domain.Schedule, reason string)
	RunFailed(ctx context.Context, actor domain.Actor, executionID string, mode domain.RunMode, err error)
}

// Notifier は致命的な失敗を運用者に知らせる
type Notifier interface {
	Notify(ctx context.Context, subject, message string) error
}

// ReconcilerFactory は引き受けたロールの設定から種別ごとのリコンサイラを作る
// アカウント・リージョンの組ごとに1回呼ばれる
type ReconcilerFactory func(cfg aws.Config) map[domain.ResourceKind]domain.Reconciler

// ProgressEvent はスケジュール1件の処理完了通知
type ProgressEvent struct {
	Done     int
	Total    int
	Schedule domain.Schedule
	Skipped  bool
}

// scheduleOutcome はスケジュール1件分の集計
type scheduleOutcome struct {
	processed bool
	tally     domain.Tally
}

// resolvedResource はARNを解析済みのリソース
type resolvedResource struct {
	resource domain.ScheduleResource
	kind     domain.ResourceKind
	arn      awsx.Arn
}

// regionGroup は1つのアカウント・リージョンの組に属するリソース
type regionGroup struct {
	accountID string
	region    string
	resources []resolvedResource
}

// accountGroup は1つのアカウントに属するリージョンごとのリソース
type accountGroup struct {
	accountID string
	regions   []regionGroup
}
