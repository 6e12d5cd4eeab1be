package rds

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

// Reconciler はRDSインスタンスの稼働状態をスケジュールに合わせる
type Reconciler struct {
	client API
	log    zerolog.Logger
}

// NewReconciler はRDS用のリコンサイラを作成
func NewReconciler(client API, log zerolog.Logger) *Reconciler {
	return &Reconciler{client: client, log: log}
}

// Kind はリソース種別を返す
func (r *Reconciler) Kind() domain.ResourceKind {
	return domain.KindManagedDatabase
}

// Reconcile は available / stopped のときだけ起動・停止を要求し、処理中の状態はスキップする
// 完了までは待たない
func (r *Reconciler) Reconcile(ctx context.Context, req domain.ReconcileRequest) domain.ResourceResult {
	res := req.Resource

	instanceId, err := instanceIdFromArn(res.Arn)
	if err != nil {
		return domain.FailedResult(res, r.Kind(), req.Action, err)
	}
	log := r.log.With().Str("resource_arn", res.Arn).Str("db_instance", instanceId).Logger()

	db, err := DescribeRdsInstance(ctx, r.client, instanceId)
	if err != nil {
		log.Error().Err(err).Msg("❌ RDSインスタンスの状態取得に失敗")
		return domain.FailedResult(res, r.Kind(), req.Action, err)
	}

	if lks := req.LastKnownState; lks != nil {
		log.Debug().
			Str("last_action", string(lks.Action)).
			Str("last_state", lks.State).
			Str("last_instance_class", lks.Detail("instanceClass")).
			Msg("前回の記録状態")
	}

	details := map[string]string{
		"state":         db.Status,
		"instanceClass": db.InstanceClass,
		"engine":        db.Engine,
	}

	var newState string
	switch req.Action {
	case domain.ActionStart:
		if db.Status == StatusAvailable || db.Status == StatusStarting {
			log.Debug().Msg("既に起動済みのためスキップ")
			return domain.SkippedResult(res, r.Kind(), db.Status)
		}
		// StartDBInstance を受け付けるのは stopped のみ
		if db.Status != StatusStopped {
			log.Info().Str("state", db.Status).Msg("⏭️ 起動できない状態のため次回の実行に持ち越します")
			return domain.SkippedResult(res, r.Kind(), db.Status)
		}
		if domain.OwnershipBlocksStart(req) {
			log.Info().Str("state", db.Status).Msg("⚠️ スケジューラが停止した記録がないため起動を見送ります")
			return domain.SkippedResult(res, r.Kind(), db.Status)
		}
		newState, err = StartRdsInstance(ctx, r.client, instanceId)
	case domain.ActionStop:
		if db.Status == StatusStopped || db.Status == StatusStopping {
			log.Debug().Msg("既に停止済みのためスキップ")
			return domain.SkippedResult(res, r.Kind(), db.Status)
		}
		// StopDBInstance を受け付けるのは available のみ
		if db.Status != StatusAvailable {
			log.Info().Str("state", db.Status).Msg("⏭️ 停止できない状態のため次回の実行に持ち越します")
			return domain.SkippedResult(res, r.Kind(), db.Status)
		}
		newState, err = StopRdsInstance(ctx, r.client, instanceId)
	default:
		err = fmt.Errorf("未対応の操作です: %s", req.Action)
	}
	if err != nil {
		log.Error().Err(err).Str("action", string(req.Action)).Msg("❌ RDSインスタンスの操作に失敗")
		return domain.FailedResult(res, r.Kind(), req.Action, err)
	}

	log.Info().
		Str("action", string(req.Action)).
		Str("previous_state", db.Status).
		Str("new_state", newState).
		Msg("✅ RDSインスタンスの状態変更を要求しました")

	return domain.ResourceResult{
		ResourceID:    res.ID,
		Arn:           res.Arn,
		Kind:          r.Kind(),
		Action:        req.Action,
		Status:        domain.ResultSuccess,
		PreviousState: db.Status,
		NewState:      newState,
		Details:       details,
	}
}

func instanceIdFromArn(s string) (string, error) {
	parsed, err := awsx.ParseArn(s)
	if err != nil {
		return "", err
	}
	kind, segments := parsed.ResourcePath()
	if parsed.Service != "rds" || kind != "db" || len(segments) == 0 || segments[0] == "" {
		return "", fmt.Errorf("RDSインスタンスのARNではありません: %s", s)
	}
	return segments[0], nil
}
