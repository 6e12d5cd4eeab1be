package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/rs/zerolog"

	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

// Reconciler はEC2インスタンスの稼働状態をスケジュールに合わせる
type Reconciler struct {
	client API
	log    zerolog.Logger
}

// NewReconciler はEC2用のリコンサイラを作成
func NewReconciler(client API, log zerolog.Logger) *Reconciler {
	return &Reconciler{client: client, log: log}
}

// Kind はリソース種別を返す
func (r *Reconciler) Kind() domain.ResourceKind {
	return domain.KindComputeInstance
}

// Reconcile は現在の状態を確認し、必要な場合のみ起動・停止を行う
func (r *Reconciler) Reconcile(ctx context.Context, req domain.ReconcileRequest) domain.ResourceResult {
	res := req.Resource

	instanceId, err := instanceIdFromArn(res.Arn)
	if err != nil {
		return domain.FailedResult(res, r.Kind(), req.Action, err)
	}
	log := r.log.With().Str("resource_arn", res.Arn).Str("instance_id", instanceId).Logger()

	instance, err := DescribeEc2Instance(ctx, r.client, instanceId)
	if err != nil {
		log.Error().Err(err).Msg("❌ EC2インスタンスの状態取得に失敗")
		return domain.FailedResult(res, r.Kind(), req.Action, err)
	}

	if lks := req.LastKnownState; lks != nil {
		log.Debug().
			Str("last_action", string(lks.Action)).
			Str("last_state", lks.State).
			Time("recorded_at", lks.RecordedAt).
			Msg("前回の記録状態")
	}

	details := map[string]string{
		"state":        instance.State,
		"instanceType": instance.InstanceType,
		"name":         instance.InstanceName,
	}

	var newState string
	switch req.Action {
	case domain.ActionStart:
		if isStartedState(instance.State) {
			log.Debug().Msg("既に起動済みのためスキップ")
			return domain.SkippedResult(res, r.Kind(), instance.State)
		}
		if instance.State == string(types.InstanceStateNameStopping) {
			log.Info().Str("state", instance.State).Msg("⏭️ 停止処理中のため次回の実行で起動します")
			return domain.SkippedResult(res, r.Kind(), instance.State)
		}
		if domain.OwnershipBlocksStart(req) {
			log.Info().Str("state", instance.State).Msg("⚠️ スケジューラが停止した記録がないため起動を見送ります")
			return domain.SkippedResult(res, r.Kind(), instance.State)
		}
		newState, err = StartEc2Instance(ctx, r.client, instanceId)
	case domain.ActionStop:
		if isStoppedState(instance.State) {
			log.Debug().Msg("既に停止済みのためスキップ")
			return domain.SkippedResult(res, r.Kind(), instance.State)
		}
		if instance.State == string(types.InstanceStateNamePending) {
			log.Info().Str("state", instance.State).Msg("⏭️ 起動処理中のため次回の実行で停止します")
			return domain.SkippedResult(res, r.Kind(), instance.State)
		}
		newState, err = StopEc2Instance(ctx, r.client, instanceId)
	default:
		err = fmt.Errorf("未対応の操作です: %s", req.Action)
	}
	if err != nil {
		log.Error().Err(err).Str("action", string(req.Action)).Msg("❌ EC2インスタンスの操作に失敗")
		return domain.FailedResult(res, r.Kind(), req.Action, err)
	}

	log.Info().
		Str("action", string(req.Action)).
		Str("previous_state", instance.State).
		Str("new_state", newState).
		Msg("✅ EC2インスタンスの状態を変更しました")

	return domain.ResourceResult{
		ResourceID:    res.ID,
		Arn:           res.Arn,
		Kind:          r.Kind(),
		Action:        req.Action,
		Status:        domain.ResultSuccess,
		PreviousState: instance.State,
		NewState:      newState,
		Details:       details,
	}
}

// isStartedState は起動操作が不要な状態か（起動処理中も含む）
func isStartedState(state string) bool {
	switch types.InstanceStateName(state) {
	case types.InstanceStateNameRunning, types.InstanceStateNamePending:
		return true
	}
	return false
}

// isStoppedState は停止操作が不要な状態か（停止処理中・終了済みのインスタンスも含む）
func isStoppedState(state string) bool {
	switch types.InstanceStateName(state) {
	case types.InstanceStateNameStopped, types.InstanceStateNameStopping,
		types.InstanceStateNameTerminated, types.InstanceStateNameShuttingDown:
		return true
	}
	return false
}

func instanceIdFromArn(s string) (string, error) {
	parsed, err := awsx.ParseArn(s)
	if err != nil {
		return "", err
	}
	kind, segments := parsed.ResourcePath()
	if parsed.Service != "ec2" || kind != "instance" || len(segments) == 0 || segments[len(segments)-1] == "" {
		return "", fmt.Errorf("EC2インスタンスのARNではありません: %s", s)
	}
	return segments[len(segments)-1], nil
}
