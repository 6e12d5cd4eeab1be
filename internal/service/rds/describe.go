package rds

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// DescribeRdsInstance は単一のRDSインスタンスの状態を取得する
func DescribeRdsInstance(ctx context.Context, client API, instanceId string) (RdsInstance, error) {
	resp, err := client.DescribeDBInstances(ctx, &rds.DescribeDBInstancesInput{
		DBInstanceIdentifier: awssdk.String(instanceId),
	})
	if err != nil {
		return RdsInstance{}, fmt.Errorf("RDSインスタンス情報の取得に失敗: %w", err)
	}

	for _, db := range resp.DBInstances {
		if awssdk.ToString(db.DBInstanceIdentifier) != instanceId {
			continue
		}
		return RdsInstance{
			InstanceId:    instanceId,
			Engine:        awssdk.ToString(db.Engine),
			InstanceClass: awssdk.ToString(db.DBInstanceClass),
			Status:        awssdk.ToString(db.DBInstanceStatus),
		}, nil
	}

	return RdsInstance{}, fmt.Errorf("RDSインスタンス '%s' が見つかりません", instanceId)
}
