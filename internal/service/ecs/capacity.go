package ecs

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

const asgNameMarker = "autoScalingGroupName/"

// clusterAutoScalingGroups はクラスターのキャパシティプロバイダーが持つASG名を返す
// Fargateのみのクラスターでは空になる
func clusterAutoScalingGroups(ctx context.Context, ecsClient API, clusterName string) ([]string, error) {
	clusters, err := ecsClient.DescribeClusters(ctx, &ecs.DescribeClustersInput{
		Clusters: []string{clusterName},
	})
	if err != nil {
		return nil, fmt.Errorf("クラスター '%s' の取得に失敗: %w", clusterName, err)
	}
	if len(clusters.Clusters) == 0 {
		return nil, fmt.Errorf("クラスター '%s' が見つかりません", clusterName)
	}

	var providers []string
	for _, name := range clusters.Clusters[0].CapacityProviders {
		if name == "FARGATE" || name == "FARGATE_SPOT" {
			continue
		}
		providers = append(providers, name)
	}
	if len(providers) == 0 {
		return nil, nil
	}

	resp, err := ecsClient.DescribeCapacityProviders(ctx, &ecs.DescribeCapacityProvidersInput{
		CapacityProviders: providers,
	})
	if err != nil {
		return nil, fmt.Errorf("キャパシティプロバイダーの取得に失敗: %w", err)
	}

	var groups []string
	for _, p := range resp.CapacityProviders {
		if p.AutoScalingGroupProvider == nil {
			continue
		}
		if name := asgNameFromArn(aws.ToString(p.AutoScalingGroupProvider.AutoScalingGroupArn)); name != "" {
			groups = append(groups, name)
		}
	}
	return groups, nil
}

// asgNameFromArn はASGのARN（またはASG名そのもの）からASG名を取り出す
func asgNameFromArn(s string) string {
	if i := strings.Index(s, asgNameMarker); i >= 0 {
		return s[i+len(asgNameMarker):]
	}
	if strings.HasPrefix(s, "arn:") {
		return ""
	}
	return s
}

// scaleAutoScalingGroups はASGの最小数と希望数を target に合わせる
// target が0の場合はちょうど0にし、それ以外は target 未満の値だけを引き上げる
// （スケールアウト中のASGは縮めない）。変更したASG名を返す
func scaleAutoScalingGroups(ctx context.Context, client AutoScalingAPI, names []string, target int32) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	resp, err := client.DescribeAutoScalingGroups(ctx, &autoscaling.DescribeAutoScalingGroupsInput{
		AutoScalingGroupNames: names,
	})
	if err != nil {
		return nil, fmt.Errorf("Auto Scalingグループの取得に失敗: %w", err)
	}

	var changed []string
	for _, g := range resp.AutoScalingGroups {
		name := aws.ToString(g.AutoScalingGroupName)
		minSize, desired := aws.ToInt32(g.MinSize), aws.ToInt32(g.DesiredCapacity)

		newMin, newDesired := target, target
		if target > 0 {
			newMin, newDesired = max(minSize, target), max(desired, target)
		}
		if newMin == minSize && newDesired == desired {
			continue
		}

		input := &autoscaling.UpdateAutoScalingGroupInput{
			AutoScalingGroupName: aws.String(name),
			MinSize:              aws.Int32(newMin),
			DesiredCapacity:      aws.Int32(newDesired),
		}
		if aws.ToInt32(g.MaxSize) < newDesired {
			input.MaxSize = aws.Int32(newDesired)
		}
		if _, err := client.UpdateAutoScalingGroup(ctx, input); err != nil {
			return changed, fmt.Errorf("Auto Scalingグループ '%s' の更新に失敗: %w", name, err)
		}
		changed = append(changed, name)
	}
	return changed, nil
}
