package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// DescribeEc2Instance は単一のEC2インスタンスの現在の状態を取得する
func DescribeEc2Instance(ctx context.Context, client API, instanceId string) (Instance, error) {
	result, err := client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceId},
	})
	if err != nil {
		return Instance{}, fmt.Errorf("EC2インスタンス情報の取得に失敗: %w", err)
	}

	for _, reservation := range result.Reservations {
		for _, instance := range reservation.Instances {
			if aws.ToString(instance.InstanceId) != instanceId {
				continue
			}

			// インスタンス名を取得（Nameタグから）
			instanceName := "（名前なし）"
			for _, tag := range instance.Tags {
				if aws.ToString(tag.Key) == "Name" && tag.Value != nil {
					instanceName = *tag.Value
					break
				}
			}

			state := ""
			if instance.State != nil {
				state = string(instance.State.Name)
			}

			return Instance{
				InstanceId:   instanceId,
				InstanceName: instanceName,
				InstanceType: string(instance.InstanceType),
				State:        state,
			}, nil
		}
	}

	return Instance{}, fmt.Errorf("EC2インスタンス '%s' が見つかりません", instanceId)
}
