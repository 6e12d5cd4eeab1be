package rds

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// StopRdsInstance RDSインスタンスを停止する
// 停止は非同期で、要求が受け付けられた時点の状態を返す
func StopRdsInstance(ctx context.Context, client API, instanceId string) (string, error) {
	input := &rds.StopDBInstanceInput{
		DBInstanceIdentifier: &instanceId,
	}

	out, err := client.StopDBInstance(ctx, input)
	if err != nil {
		return "", fmt.Errorf("RDSインスタンス停止エラー: %w", err)
	}

	if out.DBInstance != nil && out.DBInstance.DBInstanceStatus != nil {
		return awssdk.ToString(out.DBInstance.DBInstanceStatus), nil
	}
	return StatusStopping, nil
}
