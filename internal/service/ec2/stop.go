package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// StopEc2Instance はEC2インスタンスを停止し、遷移後の状態を返します
func StopEc2Instance(ctx context.Context, client API, instanceId string) (string, error) {
	input := &ec2.StopInstancesInput{
		InstanceIds: []string{instanceId},
	}

	out, err := client.StopInstances(ctx, input)
	if err != nil {
		return "", fmt.Errorf("EC2インスタンス停止エラー: %w", err)
	}

	for _, change := range out.StoppingInstances {
		if change.CurrentState != nil {
			return string(change.CurrentState.Name), nil
		}
	}
	return "stopping", nil
}
