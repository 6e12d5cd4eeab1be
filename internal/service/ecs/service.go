package ecs

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"

	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
)

// describeService はECSサービスの詳細情報を取得します
func describeService(ctx context.Context, ecsClient API, ref serviceRef) (*types.Service, error) {
	// サービスの詳細を取得
	resp, err := ecsClient.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(ref.ClusterName),
		Services: []string{ref.ServiceName},
	})
	if err != nil {
		return nil, fmt.Errorf("サービス情報の取得に失敗しました: %w", err)
	}

	for i := range resp.Services {
		svc := &resp.Services[i]
		if aws.ToString(svc.Status) == "INACTIVE" {
			continue
		}
		return svc, nil
	}

	return nil, fmt.Errorf("サービス '%s' がクラスター '%s' に見つかりません", ref.ServiceName, ref.ClusterName)
}

// updateDesiredCount はサービスのタスク希望数を変更します
func updateDesiredCount(ctx context.Context, ecsClient API, ref serviceRef, count int32) error {
	_, err := ecsClient.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(ref.ClusterName),
		Service:      aws.String(ref.ServiceName),
		DesiredCount: aws.Int32(count),
	})
	if err != nil {
		return fmt.Errorf("サービス '%s' の希望タスク数を%dに変更できませんでした: %w", ref.ServiceName, count, err)
	}
	return nil
}

// serviceRefFromArn はサービスARNからクラスター名とサービス名を解決します
// service/cluster/service 形式と旧形式の service/service の両方を受け付けます
func serviceRefFromArn(s string) (serviceRef, error) {
	parsed, err := awsx.ParseArn(s)
	if err != nil {
		return serviceRef{}, err
	}
	kind, segments := parsed.ResourcePath()
	if parsed.Service != "ecs" || kind != "service" {
		return serviceRef{}, fmt.Errorf("ECSサービスのARNではありません: %s", s)
	}
	switch len(segments) {
	case 1:
		if segments[0] != "" {
			return serviceRef{ClusterName: defaultCluster, ServiceName: segments[0]}, nil
		}
	case 2:
		if segments[0] != "" && segments[1] != "" {
			return serviceRef{ClusterName: segments[0], ServiceName: segments[1]}, nil
		}
	}
	return serviceRef{}, fmt.Errorf("ECSサービスのARNではありません: %s", s)
}
