package ecs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/applicationautoscaling"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

// API はリコンサイルに必要なECS操作
type API interface {
	DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
	UpdateService(ctx context.Context, params *ecs.UpdateServiceInput, optFns ...func(*ecs.Options)) (*ecs.UpdateServiceOutput, error)
	DescribeClusters(ctx context.Context, params *ecs.DescribeClustersInput, optFns ...func(*ecs.Options)) (*ecs.DescribeClustersOutput, error)
	DescribeCapacityProviders(ctx context.Context, params *ecs.DescribeCapacityProvidersInput, optFns ...func(*ecs.Options)) (*ecs.DescribeCapacityProvidersOutput, error)
}

// ScalingAPI はサービスのスケーラブルターゲット操作（Application Auto Scaling）
type ScalingAPI interface {
	DescribeScalableTargets(ctx context.Context, params *applicationautoscaling.DescribeScalableTargetsInput, optFns ...func(*applicationautoscaling.Options)) (*applicationautoscaling.DescribeScalableTargetsOutput, error)
	RegisterScalableTarget(ctx context.Context, params *applicationautoscaling.RegisterScalableTargetInput, optFns ...func(*applicationautoscaling.Options)) (*applicationautoscaling.RegisterScalableTargetOutput, error)
}

// AutoScalingAPI はキャパシティプロバイダーのASG操作（EC2 Auto Scaling）
type AutoScalingAPI interface {
	DescribeAutoScalingGroups(ctx context.Context, params *autoscaling.DescribeAutoScalingGroupsInput, optFns ...func(*autoscaling.Options)) (*autoscaling.DescribeAutoScalingGroupsOutput, error)
	UpdateAutoScalingGroup(ctx context.Context, params *autoscaling.UpdateAutoScalingGroupInput, optFns ...func(*autoscaling.Options)) (*autoscaling.UpdateAutoScalingGroupOutput, error)
}

// ServiceCapacityOptions はECSサービスのキャパシティ設定用パラメータを格納する構造体
type ServiceCapacityOptions struct {
	ClusterName string
	ServiceName string
	MinCapacity int32
	MaxCapacity int32
}

// serviceRef はARNから解決したクラスター名とサービス名
type serviceRef struct {
	ClusterName string
	ServiceName string
}

// scalableTarget はサービスに登録されたスケーラブルターゲット
type scalableTarget struct {
	MinCapacity int32
	MaxCapacity int32
}

// Details のキー
const (
	detailDesiredCount        = "desiredCount"
	detailRunningCount        = "runningCount"
	detailCluster             = "cluster"
	detailService             = "service"
	detailScalableMinCapacity = "scalableMinCapacity"
	detailAutoScalingGroups   = "autoScalingGroups"
)

// defaultCluster はクラスター名を含まない旧形式ARNで使われるクラスター
const defaultCluster = "default"
