package rds

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// StartRdsInstance RDSインスタンスを起動する
// 起動は非同期で、要求が受け付けられた時点の状態を返す
func StartRdsInstance(ctx context.Context, client API, instanceId string) (string, error) {
	input := &rds.StartDBInstanceInput{
		DBInstanceIdentifier: &instanceId,
	}

	out, err := client.StartDBInstance(ctx, input)
	if err != nil {
		return "", fmt.Errorf("RDSインスタンス起動エラー: %w", err)
	}

	if out.DBInstance != nil && out.DBInstance.DBInstanceStatus != nil {
		return awssdk.ToString(out.DBInstance.DBInstanceStatus), nil
	}
	return StatusStarting, nil
}
