package ecs

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

// Reconciler はECSサービスのタスク数とキャパシティをスケジュールに合わせる
//
// 起動時はタスク数1、停止時は0を目標とする。EC2キャパシティプロバイダーを
// 使うクラスターでは、紐づくAuto Scalingグループも同じ目標に揃える。
type Reconciler struct {
	client      API
	scaling     ScalingAPI
	autoScaling AutoScalingAPI
	log         zerolog.Logger
}

// NewReconciler はECS用のリコンサイラを作成
// scaling / autoScaling が nil の場合はその処理を行わない
func NewReconciler(client API, scaling ScalingAPI, autoScaling AutoScalingAPI, log zerolog.Logger) *Reconciler {
	return &Reconciler{client: client, scaling: scaling, autoScaling: autoScaling, log: log}
}

// Kind はリソース種別を返す
func (r *Reconciler) Kind() domain.ResourceKind {
	return domain.KindContainerService
}

func targetCount(action domain.Action) (int32, error) {
	switch action {
	case domain.ActionStart:
		return 1, nil
	case domain.ActionStop:
		return 0, nil
	}
	return 0, fmt.Errorf("未対応の操作です: %s", action)
}

func countState(n int32) string {
	return fmt.Sprintf("desiredCount=%d", n)
}

// Reconcile はサービスの希望タスク数を確認し、目標と異なる場合のみ変更する
func (r *Reconciler) Reconcile(ctx context.Context, req domain.ReconcileRequest) domain.ResourceResult {
	res := req.Resource

	target, err := targetCount(req.Action)
	if err != nil {
		return domain.FailedResult(res, r.Kind(), req.Action, err)
	}
	ref, err := serviceRefFromArn(res.Arn)
	if err != nil {
		return domain.FailedResult(res, r.Kind(), req.Action, err)
	}
	log := r.log.With().
		Str("resource_arn", res.Arn).
		Str("cluster", ref.ClusterName).
		Str("service", ref.ServiceName).
		Logger()

	svc, err := describeService(ctx, r.client, ref)
	if err != nil {
		log.Error().Err(err).Msg("❌ ECSサービスの状態取得に失敗")
		return domain.FailedResult(res, r.Kind(), req.Action, err)
	}
	current := svc.DesiredCount

	details := map[string]string{
		detailDesiredCount: strconv.Itoa(int(current)),
		detailRunningCount: strconv.Itoa(int(svc.RunningCount)),
		detailCluster:      ref.ClusterName,
		detailService:      ref.ServiceName,
	}

	var groups []string
	if r.autoScaling != nil {
		groups, err = clusterAutoScalingGroups(ctx, r.client, ref.ClusterName)
		if err != nil {
			log.Error().Err(err).Msg("❌ キャパシティプロバイダーの確認に失敗")
			return domain.FailedResult(res, r.Kind(), req.Action, err)
		}
	}

	var st *scalableTarget
	if r.scaling != nil {
		// スケーラブルターゲットが取れなくてもタスク数の変更は続ける
		st, err = describeScalableTarget(ctx, r.scaling, ref)
		if err != nil {
			log.Warn().Err(err).Msg("スケーラブルターゲットを確認できませんでした")
			st = nil
		}
	}

	if req.Action == domain.ActionStart && current < target && domain.OwnershipBlocksStart(req) {
		log.Info().Int32("desired_count", current).Msg("⚠️ スケジューラが停止した記録がないため起動を見送ります")
		return domain.SkippedResult(res, r.Kind(), countState(current))
	}

	var changed bool
	var changedGroups []string
	switch req.Action {
	case domain.ActionStop:
		// オートスケーリングが0へ戻さないよう最小数を先に下げる
		if st != nil && st.MinCapacity > 0 {
			details[detailScalableMinCapacity] = strconv.Itoa(int(st.MinCapacity))
			err = SetEcsServiceCapacity(ctx, r.scaling, ServiceCapacityOptions{
				ClusterName: ref.ClusterName,
				ServiceName: ref.ServiceName,
				MinCapacity: 0,
				MaxCapacity: st.MaxCapacity,
			})
			if err != nil {
				break
			}
			changed = true
		} else if prev := previousMinCapacity(req.LastKnownState); prev > 0 {
			// 既に0まで下げてある場合は、前回記録した値を次の起動まで引き継ぐ
			details[detailScalableMinCapacity] = strconv.Itoa(int(prev))
		}
		if current != target {
			if err = updateDesiredCount(ctx, r.client, ref, target); err != nil {
				break
			}
			changed = true
		}
		changedGroups, err = scaleAutoScalingGroups(ctx, r.autoScaling, groups, target)

	case domain.ActionStart:
		// タスクを配置できるようにキャパシティを先に戻す
		changedGroups, err = scaleAutoScalingGroups(ctx, r.autoScaling, groups, target)
		if err != nil {
			break
		}
		if st != nil && st.MinCapacity == 0 {
			if prev := previousMinCapacity(req.LastKnownState); prev > 0 {
				err = SetEcsServiceCapacity(ctx, r.scaling, ServiceCapacityOptions{
					ClusterName: ref.ClusterName,
					ServiceName: ref.ServiceName,
					MinCapacity: prev,
					MaxCapacity: max(st.MaxCapacity, prev),
				})
				if err != nil {
					break
				}
				details[detailScalableMinCapacity] = strconv.Itoa(int(prev))
				changed = true
			}
		} else if st == nil {
			// 最小数を確認できなかった場合は次回の起動で戻せるよう記録を残す
			if prev := previousMinCapacity(req.LastKnownState); prev > 0 {
				details[detailScalableMinCapacity] = strconv.Itoa(int(prev))
			}
		}
		// スケールアウト中のサービスは縮めない
		if current < target {
			if err = updateDesiredCount(ctx, r.client, ref, target); err != nil {
				break
			}
			changed = true
		}
	}
	if len(changedGroups) > 0 {
		details[detailAutoScalingGroups] = strings.Join(changedGroups, ",")
		changed = true
	}
	if err != nil {
		log.Error().Err(err).Str("action", string(req.Action)).Msg("❌ ECSサービスの操作に失敗")
		result := domain.FailedResult(res, r.Kind(), req.Action, err)
		result.PreviousState = countState(current)
		result.Details = details
		return result
	}

	if !changed {
		log.Debug().Int32("desired_count", current).Msg("既に目標のタスク数のためスキップ")
		return domain.SkippedResult(res, r.Kind(), countState(current))
	}

	log.Info().
		Str("action", string(req.Action)).
		Int32("previous_count", current).
		Int32("new_count", target).
		Strs("auto_scaling_groups", changedGroups).
		Msg("✅ ECSサービスのタスク数を変更しました")

	return domain.ResourceResult{
		ResourceID:    res.ID,
		Arn:           res.Arn,
		Kind:          r.Kind(),
		Action:        req.Action,
		Status:        domain.ResultSuccess,
		PreviousState: countState(current),
		NewState:      countState(target),
		Details:       details,
	}
}

// previousMinCapacity は停止時に記録した最小キャパシティを返す
func previousMinCapacity(lks *domain.LastKnownState) int32 {
	v := lks.Detail(detailScalableMinCapacity)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return int32(n)
}
