package rds

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// API はリコンサイルに必要なRDS操作
type API interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	StartDBInstance(ctx context.Context, params *rds.StartDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error)
	StopDBInstance(ctx context.Context, params *rds.StopDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error)
}

// RdsInstance はRDSインスタンスの情報を格納する構造体
type RdsInstance struct {
	InstanceId    string
	Engine        string
	InstanceClass string
	Status        string
}

// RDSの状態（DBInstanceStatus）
const (
	StatusAvailable = "available"
	StatusStopped   = "stopped"
	StatusStopping  = "stopping"
	StatusStarting  = "starting"
)
