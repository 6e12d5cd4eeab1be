package domain

import (
	"time"
)

// ExecutionStatus はスケジュール1回分の処理結果
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionPartial ExecutionStatus = "partial"
	ExecutionError   ExecutionStatus = "error"
)

// ExecutionStatusFor は件数から実行ステータスを決める
func ExecutionStatusFor(started, stopped, failed int) ExecutionStatus {
	switch {
	case failed == 0:
		return ExecutionSuccess
	case started+stopped == 0:
		return ExecutionError
	default:
		return ExecutionPartial
	}
}

// TriggeredBy は実行の起点
type TriggeredBy string

const (
	TriggeredBySystem TriggeredBy = "system"
	TriggeredByWebUI  TriggeredBy = "web-ui"
)

// ExecutionRecord は状態変更または失敗があった処理の履歴
type ExecutionRecord struct {
	ExecutionID      string                      `json:"executionId" dynamodbav:"execution_id"`
	ScheduleID       string                      `json:"scheduleId" dynamodbav:"schedule_id"`
	ScheduleName     string                      `json:"scheduleName" dynamodbav:"schedule_name"`
	TenantID         string                      `json:"tenantId" dynamodbav:"tenant_id"`
	TriggeredBy      TriggeredBy                 `json:"triggeredBy" dynamodbav:"triggered_by"`
	TriggeredByUser  string                      `json:"triggeredByUser,omitempty" dynamodbav:"triggered_by_user,omitempty"`
	DesiredAction    Action                      `json:"desiredAction" dynamodbav:"desired_action"`
	Status           ExecutionStatus             `json:"status" dynamodbav:"status"`
	ResourcesStarted int                         `json:"resourcesStarted" dynamodbav:"resources_started"`
	ResourcesStopped int                         `json:"resourcesStopped" dynamodbav:"resources_stopped"`
	ResourcesFailed  int                         `json:"resourcesFailed" dynamodbav:"resources_failed"`
	ScheduleMetadata map[string][]ResourceResult `json:"schedule_metadata" dynamodbav:"schedule_metadata"`
	StartedAt        time.Time                   `json:"startedAt" dynamodbav:"started_at"`
	CompletedAt      time.Time                   `json:"completedAt" dynamodbav:"completed_at"`
	DurationMs       int64                       `json:"durationMs" dynamodbav:"duration_ms"`
}

// LastKnownState はスケジューラが最後に操作した時点のリソース状態
type LastKnownState struct {
	TenantID    string            `json:"tenantId" dynamodbav:"tenant_id"`
	ScheduleID  string            `json:"scheduleId" dynamodbav:"schedule_id"`
	ResourceArn string            `json:"resourceArn" dynamodbav:"resource_arn"`
	Kind        ResourceKind      `json:"kind" dynamodbav:"kind"`
	Action      Action            `json:"action" dynamodbav:"action"`
	State       string            `json:"state" dynamodbav:"state"`
	NewState    string            `json:"newState,omitempty" dynamodbav:"new_state,omitempty"`
	Details     map[string]string `json:"details,omitempty" dynamodbav:"details,omitempty"`
	ExecutionID string            `json:"executionId" dynamodbav:"execution_id"`
	RecordedAt  time.Time         `json:"recordedAt" dynamodbav:"recorded_at"`
}

// StoppedByScheduler は直近の操作がスケジューラによる停止だったか
func (s *LastKnownState) StoppedByScheduler() bool {
	return s != nil && s.Action == ActionStop
}

// Detail は詳細項目を安全に取り出す
func (s *LastKnownState) Detail(key string) string {
	if s == nil || s.Details == nil {
		return ""
	}
	return s.Details[key]
}

// KindCounts は種別ごとの件数
type KindCounts struct {
	Started int `json:"started" dynamodbav:"started"`
	Stopped int `json:"stopped" dynamodbav:"stopped"`
	Failed  int `json:"failed" dynamodbav:"failed"`
	Skipped int `json:"skipped" dynamodbav:"skipped"`
}

// Add は結果1件を件数に反映する
func (c *KindCounts) Add(r ResourceResult) {
	if r.Status == ResultFailed {
		c.Failed++
		return
	}
	switch r.Action {
	case ActionStart:
		c.Started++
	case ActionStop:
		c.Stopped++
	default:
		c.Skipped++
	}
}

// Merge は別の件数を加算する
func (c *KindCounts) Merge(o KindCounts) {
	c.Started += o.Started
	c.Stopped += o.Stopped
	c.Failed += o.Failed
	c.Skipped += o.Skipped
}

// Changed は実行履歴を残すべき件数（起動+停止+失敗）
func (c KindCounts) Changed() int {
	return c.Started + c.Stopped + c.Failed
}

// Tally は種別ごとの集計
type Tally map[ResourceKind]KindCounts

// NewTally は全種別をゼロで初期化した集計を返す
func NewTally() Tally {
	t := make(Tally, len(AllKinds))
	for _, k := range AllKinds {
		t[k] = KindCounts{}
	}
	return t
}

// Add は結果1件を集計に反映する
func (t Tally) Add(r ResourceResult) {
	c := t[r.Kind]
	c.Add(r)
	t[r.Kind] = c
}

// Totals は全種別の合計
func (t Tally) Totals() KindCounts {
	var total KindCounts
	for _, c := range t {
		total.Merge(c)
	}
	return total
}

// Breakdown は監査メタデータ用に文字列キーへ変換する
func (t Tally) Breakdown() map[string]KindCounts {
	out := make(map[string]KindCounts, len(t))
	for k, c := range t {
		out[string(k)] = c
	}
	return out
}
