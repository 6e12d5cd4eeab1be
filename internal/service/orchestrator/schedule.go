package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/common"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/tracker"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/window"
)

// processSchedule はスケジュール1件を評価し、対象リソースを合わせ込む
func (o *Orchestrator) processSchedule(ctx context.Context, r *run, s domain.Schedule) scheduleOutcome {
	log := r.log.With().
		Str("schedule_id", s.ScheduleID).
		Str("schedule_name", s.Name).
		Str("tenant_id", s.TenantID).
		Logger()

	if err := s.Validate(); err != nil {
		log.Warn().Err(err).Msg("⚠️ 設定が不正なためスケジュールをスキップします")
		o.audit().ScheduleSkipped(ctx, r.actor, s, err.Error())
		return scheduleOutcome{}
	}
	now := o.deps.Now()
	action, err := window.DesiredAction(now, s)
	if err != nil {
		log.Warn().Err(err).Msg("⚠️ 稼働時間帯を評価できないためスケジュールをスキップします")
		o.audit().ScheduleSkipped(ctx, r.actor, s, err.Error())
		return scheduleOutcome{}
	}
	log = log.With().Str("desired_action", string(action)).Logger()

	tally := domain.NewTally()
	if len(s.Resources) == 0 {
		log.Info().Msg("対象リソースがないため処理しません")
		return scheduleOutcome{processed: true, tally: tally}
	}

	executionID := o.deps.NewID()
	log = log.With().Str("schedule_execution_id", executionID).Logger()
	startedAt := o.deps.Now()

	groups := groupResources(s.Resources, log)
	perAccount := common.Map(ctx, o.deps.MaxConcurrency, groups,
		func(ctx context.Context, g accountGroup) []domain.ResourceResult {
			return o.processAccount(ctx, r, s, action, executionID, g, log)
		},
		func(g accountGroup, recovered any) []domain.ResourceResult {
			return failAll(groupResourcesOf(g), action, fmt.Errorf("アカウント %s の処理中にパニックが発生しました: %v", g.accountID, recovered))
		},
	)

	var results []domain.ResourceResult
	for _, rs := range perAccount {
		results = append(results, rs...)
	}
	for _, res := range results {
		tally.Add(res)
	}
	totals := tally.Totals()
	status := domain.ExecutionStatusFor(totals.Started, totals.Stopped, totals.Failed)
	completedAt := o.deps.Now()
	duration := completedAt.Sub(startedAt)

	if totals.Changed() > 0 {
		record := domain.ExecutionRecord{
			ExecutionID:      executionID,
			ScheduleID:       s.ScheduleID,
			ScheduleName:     s.Name,
			TenantID:         s.TenantID,
			TriggeredBy:      r.req.Trigger(),
			TriggeredByUser:  r.req.UserEmail,
			DesiredAction:    action,
			Status:           status,
			ResourcesStarted: totals.Started,
			ResourcesStopped: totals.Stopped,
			ResourcesFailed:  totals.Failed,
			ScheduleMetadata: metadataByKind(results),
			StartedAt:        startedAt,
			CompletedAt:      completedAt,
			DurationMs:       duration.Milliseconds(),
		}
		if o.deps.Tracker != nil {
			if err := o.deps.Tracker.SaveExecution(ctx, record); err != nil {
				log.Error().Err(err).Msg("❌ 実行履歴を保存できませんでした")
			}
		}
		o.deps.Store.RecordLastExecution(ctx, s, executionID, status, completedAt)
	}

	for _, res := range results {
		if res.Status == domain.ResultFailed {
			o.audit().ResourceFailure(ctx, r.actor, s, executionID, res)
		}
	}
	o.audit().ExecutionSummary(ctx, r.actor, s, executionID, status, tally, duration)

	log.Info().
		Str("status", string(status)).
		Int("started", totals.Started).
		Int("stopped", totals.Stopped).
		Int("failed", totals.Failed).
		Int("skipped", totals.Skipped).
		Msg("✅ スケジュールの処理が完了しました")

	return scheduleOutcome{processed: true, tally: tally}
}

// processAccount はアカウント内のリージョンごとに並列で処理する
func (o *Orchestrator) processAccount(ctx context.Context, r *run, s domain.Schedule, action domain.Action, executionID string, g accountGroup, log zerolog.Logger) []domain.ResourceResult {
	log = log.With().Str("account_id", g.accountID).Logger()

	account, ok := r.accounts[g.accountID]
	if !ok {
		err := fmt.Errorf("アカウント %s が登録されていないか無効です", g.accountID)
		log.Warn().Err(err).Msg("⚠️ アカウントが見つからないため対象リソースを失敗として扱います")
		return failAll(groupResourcesOf(g), action, err)
	}

	perRegion := common.Map(ctx, o.deps.MaxConcurrency, g.regions,
		func(ctx context.Context, rg regionGroup) []domain.ResourceResult {
			return o.processRegion(ctx, r, s, action, executionID, account, rg, log)
		},
		func(rg regionGroup, recovered any) []domain.ResourceResult {
			return failAll(rg.resources, action, fmt.Errorf("リージョン %s の処理中にパニックが発生しました: %v", rg.region, recovered))
		},
	)

	var results []domain.ResourceResult
	for _, rs := range perRegion {
		results = append(results, rs...)
	}
	return results
}

// processRegion はロールを引き受け、リソースを種別に応じて並列に合わせ込む
func (o *Orchestrator) processRegion(ctx context.Context, r *run, s domain.Schedule, action domain.Action, executionID string, account domain.Account, rg regionGroup, log zerolog.Logger) []domain.ResourceResult {
	log = log.With().Str("region", rg.region).Logger()

	if len(account.Regions) > 0 && !account.Regions.Contains(rg.region) {
		log.Debug().Strs("account_regions", account.Regions).Msg("アカウントの登録リージョン外のリソースです")
	}

	creds, err := o.deps.Broker.AssumeRole(ctx, awsx.AssumeRoleInput{
		RoleArn:    account.RoleArn,
		AccountID:  account.AccountID,
		Region:     rg.region,
		ExternalID: account.ExternalID,
	})
	if err != nil {
		log.Error().Err(err).Int("resources", len(rg.resources)).Msg("❌ ロールを引き受けられないため対象リソースを失敗として扱います")
		o.audit().CredentialFailure(ctx, r.actor, s, rg.accountID, rg.region, len(rg.resources), err)
		return failAll(rg.resources, action, err)
	}

	reconcilers := o.deps.Reconcilers(creds.Config())

	results := common.Map(ctx, o.deps.MaxConcurrency, rg.resources,
		func(ctx context.Context, res resolvedResource) domain.ResourceResult {
			return o.reconcile(ctx, r, s, action, executionID, reconcilers[res.kind], res, log)
		},
		func(res resolvedResource, recovered any) domain.ResourceResult {
			log.Error().Interface("panic", recovered).Str("resource_arn", res.resource.Arn).Msg("❌ リコンサイル中にパニックが発生しました")
			return domain.FailedResult(res.resource, res.kind, action, fmt.Errorf("リコンサイル中にパニックが発生しました: %v", recovered))
		},
	)

	// タイムアウトで開始できなかったリソースは結果を持たない
	completed := results[:0]
	for _, res := range results {
		if res.Status != "" {
			completed = append(completed, res)
		}
	}
	return completed
}

// reconcile はリソース1件を合わせ込み、変更があれば最終状態を記録する
func (o *Orchestrator) reconcile(ctx context.Context, r *run, s domain.Schedule, action domain.Action, executionID string, rec domain.Reconciler, res resolvedResource, log zerolog.Logger) domain.ResourceResult {
	if rec == nil {
		return domain.FailedResult(res.resource, res.kind, action, fmt.Errorf("%w: %s", domain.ErrUnknownKind, res.kind))
	}

	var lks *domain.LastKnownState
	if o.deps.Tracker != nil {
		var err error
		lks, err = o.deps.Tracker.GetLastKnownState(ctx, s.TenantID, s.ScheduleID, res.resource.Arn)
		if err != nil {
			log.Warn().Err(err).Str("resource_arn", res.resource.Arn).Msg("最終状態を取得できませんでした")
			lks = nil
		}
	}

	result := rec.Reconcile(ctx, domain.ReconcileRequest{
		Resource:         res.resource,
		Schedule:         s,
		Action:           action,
		LastKnownState:   lks,
		RequireOwnership: o.deps.RequireOwnership,
	})
	if result.Kind == "" {
		result.Kind = res.kind
	}
	if result.Arn == "" {
		result.Arn = res.resource.Arn
	}

	if result.Changed() && o.deps.Tracker != nil {
		state := tracker.StateFromResult(s, executionID, result, o.deps.Now())
		if err := o.deps.Tracker.PutLastKnownState(ctx, state); err != nil {
			log.Warn().Err(err).Str("resource_arn", result.Arn).Msg("最終状態を記録できませんでした")
		}
	}
	return result
}

func groupResourcesOf(g accountGroup) []resolvedResource {
	var out []resolvedResource
	for _, rg := range g.regions {
		out = append(out, rg.resources...)
	}
	return out
}

func failAll(resources []resolvedResource, action domain.Action, err error) []domain.ResourceResult {
	if err == nil {
		err = errors.New("不明なエラー")
	}
	results := make([]domain.ResourceResult, 0, len(resources))
	for _, res := range resources {
		results = append(results, domain.FailedResult(res.resource, res.kind, action, err))
	}
	return results
}

// metadataByKind は実行履歴に残すため結果を種別ごとにまとめる
func metadataByKind(results []domain.ResourceResult) map[string][]domain.ResourceResult {
	out := make(map[string][]domain.ResourceResult)
	for _, res := range results {
		out[string(res.Kind)] = append(out[string(res.Kind)], res)
	}
	return out
}
