package domain

import (
	"context"
	"strings"
)

// RunMode はスキャン方式
type RunMode string

const (
	ModeFull    RunMode = "full"
	ModePartial RunMode = "partial"
)

// RunRequest はオーケストレーターへの入力
// 空の場合は全スケジュールを対象とするフルスキャンになる
type RunRequest struct {
	ScheduleID   string      `json:"scheduleId,omitempty"`
	ScheduleName string      `json:"scheduleName,omitempty"`
	TenantID     string      `json:"tenantId,omitempty"`
	UserEmail    string      `json:"userEmail,omitempty"`
	TriggeredBy  TriggeredBy `json:"triggeredBy,omitempty"`
}

// Mode は入力からスキャン方式を判定する
func (r RunRequest) Mode() RunMode {
	if strings.TrimSpace(r.ScheduleID) != "" || strings.TrimSpace(r.ScheduleName) != "" {
		return ModePartial
	}
	return ModeFull
}

// Actor は監査記録に残す実行者を返す
func (r RunRequest) Actor() Actor {
	if email := strings.TrimSpace(r.UserEmail); email != "" {
		return Actor{Name: email, Type: ActorUser}
	}
	return SystemIdentity()
}

// Trigger は実行起点を返す（未指定ならsystem）
func (r RunRequest) Trigger() TriggeredBy {
	if r.TriggeredBy == "" {
		return TriggeredBySystem
	}
	return r.TriggeredBy
}

// RunResult はオーケストレーターの戻り値
type RunResult struct {
	Success            bool    `json:"success"`
	Status             string  `json:"status"`
	ExecutionID        string  `json:"executionId"`
	Mode               RunMode `json:"mode"`
	SchedulesProcessed int     `json:"schedulesProcessed"`
	ResourcesStarted   int     `json:"resourcesStarted"`
	ResourcesStopped   int     `json:"resourcesStopped"`
	ResourcesFailed    int     `json:"resourcesFailed"`
	DurationMs         int64   `json:"duration"`
	Message            string  `json:"message,omitempty"`
}

// 実行結果として利用者に見せるステータス
const (
	RunStatusSuccess = "success"
	RunStatusPartial = "partial"
	RunStatusFailed  = "failed"
)

// ReconcileRequest はリコンサイラへの入力
type ReconcileRequest struct {
	Resource         ScheduleResource
	Schedule         Schedule
	Action           Action
	LastKnownState   *LastKnownState
	RequireOwnership bool
}

// Reconciler はリソース種別ごとの状態合わせ込み処理
type Reconciler interface {
	Kind() ResourceKind
	Reconcile(ctx context.Context, req ReconcileRequest) ResourceResult
}

// OwnershipBlocksStart は所有権ゲート有効時に起動を見送るべきかを判定する
func OwnershipBlocksStart(req ReconcileRequest) bool {
	return req.RequireOwnership && req.Action == ActionStart && !req.LastKnownState.StoppedByScheduler()
}
