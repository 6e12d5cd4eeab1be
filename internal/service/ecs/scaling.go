package ecs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/applicationautoscaling"
	autoscalingtypes "github.com/aws/aws-sdk-go-v2/service/applicationautoscaling/types"
)

func scalableResourceId(ref serviceRef) string {
	return fmt.Sprintf("service/%s/%s", ref.ClusterName, ref.ServiceName)
}

// describeScalableTarget はサービスのスケーラブルターゲットを取得する
// 登録されていない場合は nil を返す
func describeScalableTarget(ctx context.Context, client ScalingAPI, ref serviceRef) (*scalableTarget, error) {
	targetsResp, err := client.DescribeScalableTargets(ctx, &applicationautoscaling.DescribeScalableTargetsInput{
		ServiceNamespace:  autoscalingtypes.ServiceNamespaceEcs,
		ResourceIds:       []string{scalableResourceId(ref)},
		ScalableDimension: autoscalingtypes.ScalableDimensionECSServiceDesiredCount,
	})
	if err != nil {
		return nil, fmt.Errorf("スケーラブルターゲットの取得に失敗: %w", err)
	}

	if len(targetsResp.ScalableTargets) == 0 {
		return nil, nil
	}

	target := targetsResp.ScalableTargets[0]
	return &scalableTarget{
		MinCapacity: aws.ToInt32(target.MinCapacity),
		MaxCapacity: aws.ToInt32(target.MaxCapacity),
	}, nil
}

// SetEcsServiceCapacity はECSサービスの最小・最大キャパシティを設定します
func SetEcsServiceCapacity(ctx context.Context, client ScalingAPI, opts ServiceCapacityOptions) error {
	ref := serviceRef{ClusterName: opts.ClusterName, ServiceName: opts.ServiceName}

	// スケーラブルターゲットを登録
	_, err := client.RegisterScalableTarget(ctx, &applicationautoscaling.RegisterScalableTargetInput{
		ServiceNamespace:  autoscalingtypes.ServiceNamespaceEcs,
		ScalableDimension: autoscalingtypes.ScalableDimensionECSServiceDesiredCount,
		ResourceId:        aws.String(scalableResourceId(ref)),
		MinCapacity:       aws.Int32(opts.MinCapacity),
		MaxCapacity:       aws.Int32(opts.MaxCapacity),
	})
	if err != nil {
		return fmt.Errorf("スケーラブルターゲット登録でエラー: %w", err)
	}
	return nil
}
