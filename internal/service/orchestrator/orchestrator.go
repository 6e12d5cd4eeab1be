package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/common"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/store"
)

// DefaultMaxConcurrency は各段の並列数の既定値
const DefaultMaxConcurrency = 10

// Deps はオーケストレーターが使う依存
type Deps struct {
	Store       ScheduleStore
	Broker      CredentialBroker
	Reconcilers ReconcilerFactory
	Tracker     ExecutionTracker
	Audit       AuditSink
	Notifier    Notifier
	Logger      zerolog.Logger

	// MaxConcurrency はスケジュール・アカウント・リージョン・リソースの各段での同時実行数
	MaxConcurrency   int
	RequireOwnership bool

	// Progress はスケジュール1件の処理が終わるたびに呼ばれる（並行に呼ばれうる）
	Progress func(ProgressEvent)

	Now   func() time.Time
	NewID func() string
}

// Orchestrator はスケジュールを評価し、対象リソースの状態を合わせ込む
type Orchestrator struct {
	deps Deps
	log  zerolog.Logger
}

// New はオーケストレーターを作成
func New(deps Deps) *Orchestrator {
	if deps.MaxConcurrency < 1 {
		deps.MaxConcurrency = DefaultMaxConcurrency
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	return &Orchestrator{deps: deps, log: deps.Logger}
}

// run は1回の起動で共有する情報
type run struct {
	id       string
	req      domain.RunRequest
	actor    domain.Actor
	accounts map[string]domain.Account
	log      zerolog.Logger
}

// Run はフルスキャンまたは指定スケジュールのみの部分スキャンを行う
//
// スケジュール一覧が取得できないなど続行できない場合のみエラーを返す。
// リソース単位の失敗は結果の件数に反映される。
func (o *Orchestrator) Run(ctx context.Context, req domain.RunRequest) (domain.RunResult, error) {
	started := o.deps.Now()
	r := &run{
		id:    o.deps.NewID(),
		req:   req,
		actor: req.Actor(),
	}
	mode := req.Mode()
	r.log = o.log.With().Str("execution_id", r.id).Str("mode", string(mode)).Logger()

	result := domain.RunResult{ExecutionID: r.id, Mode: mode}
	finish := func() domain.RunResult {
		result.DurationMs = o.deps.Now().Sub(started).Milliseconds()
		return result
	}

	r.log.Info().
		Str("schedule_id", req.ScheduleID).
		Str("schedule_name", req.ScheduleName).
		Str("actor", r.actor.Name).
		Msg("🔄 スケジューラを開始します")

	schedules, err := o.loadSchedules(ctx, req)
	if err != nil {
		result.Status = domain.RunStatusFailed
		result.Message = err.Error()
		if errors.Is(err, store.ErrScheduleNotFound) || errors.Is(err, errScheduleInactive) {
			r.log.Warn().Err(err).Msg("⚠️ 対象のスケジュールを実行できません")
			result = finish()
			o.audit().RunSummary(ctx, r.actor, result)
			return result, nil
		}
		r.log.Error().Err(err).Msg("❌ スケジュールを取得できないため中断します")
		o.audit().RunFailed(ctx, r.actor, r.id, mode, err)
		o.notifyFailure(ctx, r, err)
		return finish(), fmt.Errorf("スケジュールの取得に失敗: %w", err)
	}

	r.accounts = o.loadAccounts(ctx, r.log)

	r.log.Info().Int("schedules", len(schedules)).Int("accounts", len(r.accounts)).Msg("📋 対象を取得しました")

	var done atomic.Int32
	outcomes := common.Map(ctx, o.deps.MaxConcurrency, schedules,
		func(ctx context.Context, s domain.Schedule) scheduleOutcome {
			out := o.processSchedule(ctx, r, s)
			o.progress(ProgressEvent{Done: int(done.Add(1)), Total: len(schedules), Schedule: s, Skipped: !out.processed})
			return out
		},
		func(s domain.Schedule, recovered any) scheduleOutcome {
			r.log.Error().Interface("panic", recovered).Str("schedule_id", s.ScheduleID).Msg("❌ スケジュールの処理中にパニックが発生しました")
			return scheduleOutcome{}
		},
	)

	total := domain.NewTally()
	for _, out := range outcomes {
		if !out.processed {
			continue
		}
		result.SchedulesProcessed++
		for kind, c := range out.tally {
			merged := total[kind]
			merged.Merge(c)
			total[kind] = merged
		}
	}

	counts := total.Totals()
	result.ResourcesStarted = counts.Started
	result.ResourcesStopped = counts.Stopped
	result.ResourcesFailed = counts.Failed
	result.Success = true
	result.Status = domain.RunStatusSuccess
	if counts.Failed > 0 {
		result.Status = domain.RunStatusPartial
	}
	result = finish()

	r.log.Info().
		Int("schedules_processed", result.SchedulesProcessed).
		Int("started", result.ResourcesStarted).
		Int("stopped", result.ResourcesStopped).
		Int("failed", result.ResourcesFailed).
		Int("skipped", counts.Skipped).
		Int64("duration_ms", result.DurationMs).
		Msg("🎉 スケジューラが完了しました")

	o.audit().RunSummary(ctx, r.actor, result)
	return result, nil
}

var errScheduleInactive = errors.New("スケジュールが無効化されています")

// loadSchedules はモードに応じて対象スケジュールを取得する
func (o *Orchestrator) loadSchedules(ctx context.Context, req domain.RunRequest) ([]domain.Schedule, error) {
	if req.Mode() == domain.ModeFull {
		return o.deps.Store.ListActiveSchedulesStrict(ctx)
	}

	var (
		schedule *domain.Schedule
		err      error
	)
	if id := strings.TrimSpace(req.ScheduleID); id != "" {
		schedule, err = o.deps.Store.GetSchedule(ctx, id, req.TenantID)
	} else {
		schedule, err = o.deps.Store.FindScheduleByName(ctx, strings.TrimSpace(req.ScheduleName), req.TenantID)
	}
	if err != nil {
		return nil, err
	}
	if !schedule.Active {
		return nil, fmt.Errorf("%w: %s", errScheduleInactive, schedule.ScheduleID)
	}
	return []domain.Schedule{*schedule}, nil
}

// loadAccounts はアクティブなアカウントをIDで引けるようにする
// 取得に失敗した場合は空として扱い、各リソースがアカウント未登録で失敗する
func (o *Orchestrator) loadAccounts(ctx context.Context, log zerolog.Logger) map[string]domain.Account {
	accounts, err := o.deps.Store.ListActiveAccounts(ctx)
	if err != nil {
		log.Error().Err(err).Msg("❌ アカウント一覧を取得できませんでした")
	}
	index := make(map[string]domain.Account, len(accounts))
	for _, a := range accounts {
		if !a.Active {
			continue
		}
		index[a.AccountID] = a
	}
	return index
}

func (o *Orchestrator) notifyFailure(ctx context.Context, r *run, cause error) {
	if o.deps.Notifier == nil {
		return
	}
	subject := fmt.Sprintf("[resource-scheduler] 実行失敗 (%s)", r.req.Mode())
	message := fmt.Sprintf("executionId: %s\nactor: %s\nerror: %v", r.id, r.actor.Name, cause)
	if err := o.deps.Notifier.Notify(ctx, subject, message); err != nil {
		r.log.Error().Err(err).Msg("❌ 失敗通知を送信できませんでした")
	}
}

func (o *Orchestrator) progress(ev ProgressEvent) {
	if o.deps.Progress != nil {
		o.deps.Progress(ev)
	}
}

func (o *Orchestrator) audit() AuditSink {
	if o.deps.Audit == nil {
		return nopAudit{}
	}
	return o.deps.Audit
}

// nopAudit は監査先が未設定のときに使う
type nopAudit struct{}

func (nopAudit) ExecutionSummary(context.Context, domain.Actor, domain.Schedule, string, domain.ExecutionStatus, domain.Tally, time.Duration) {
}
func (nopAudit) RunSummary(context.Context, domain.Actor, domain.RunResult) {}
func (nopAudit) CredentialFailure(context.Context, domain.Actor, domain.Schedule, string, string, int, error) {
}
func (nopAudit) ResourceFailure(context.Context, domain.Actor, domain.Schedule, string, domain.ResourceResult) {
}
func (nopAudit) ScheduleSkipped(context.Context, domain.Actor, domain.Schedule, string) {}
func (nopAudit) RunFailed(context.Context, domain.Actor, string, domain.RunMode, error) {}
