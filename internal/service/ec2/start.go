package ec2

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
)

// StartEc2Instance はEC2インスタンスを起動し、遷移後の状態を返します
func StartEc2Instance(ctx context.Context, client API, instanceId string) (string, error) {
	input := &ec2.StartInstancesInput{
		InstanceIds: []string{instanceId},
	}

	out, err := client.StartInstances(ctx, input)
	if err != nil {
		return "", fmt.Errorf("EC2インスタンス起動エラー: %w", err)
	}

	for _, change := range out.StartingInstances {
		if change.CurrentState != nil {
			return string(change.CurrentState.Name), nil
		}
	}
	return "pending", nil
}
