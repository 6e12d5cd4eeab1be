package rds

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

const testArn = "arn:aws:rds:ap-south-1:123456789012:db:orders-db"

// Mock RDS client
type mockRdsClient struct {
	status     string
	stopErr    error
	startCalls int
	stopCalls  int
}

func (m *mockRdsClient) DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error) {
	return &rds.DescribeDBInstancesOutput{
		DBInstances: []types.DBInstance{{
			DBInstanceIdentifier: params.DBInstanceIdentifier,
			DBInstanceClass:      aws.String("db.t3.medium"),
			DBInstanceStatus:     aws.String(m.status),
			Engine:               aws.String("postgres"),
		}},
	}, nil
}

func (m *mockRdsClient) StartDBInstance(ctx context.Context, params *rds.StartDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StartDBInstanceOutput, error) {
	m.startCalls++
	return &rds.StartDBInstanceOutput{
		DBInstance: &types.DBInstance{DBInstanceStatus: aws.String("starting")},
	}, nil
}

func (m *mockRdsClient) StopDBInstance(ctx context.Context, params *rds.StopDBInstanceInput, optFns ...func(*rds.Options)) (*rds.StopDBInstanceOutput, error) {
	m.stopCalls++
	if m.stopErr != nil {
		return nil, m.stopErr
	}
	return &rds.StopDBInstanceOutput{}, nil
}

func request(action domain.Action) domain.ReconcileRequest {
	return domain.ReconcileRequest{
		Resource: domain.ScheduleResource{ID: "orders-db", Type: "rds", Arn: testArn},
		Action:   action,
	}
}

func TestReconcile_StartStoppedDatabase(t *testing.T) {
	client := &mockRdsClient{status: "stopped"}
	result := NewReconciler(client, zerolog.Nop()).Reconcile(context.Background(), request(domain.ActionStart))

	assert.Equal(t, domain.ActionStart, result.Action)
	assert.Equal(t, domain.ResultSuccess, result.Status)
	assert.Equal(t, "stopped", result.PreviousState)
	assert.Equal(t, "starting", result.NewState)
	assert.Equal(t, "db.t3.medium", result.Details["instanceClass"])
	assert.Equal(t, 1, client.startCalls)
}

func TestReconcile_StopAvailableDatabase(t *testing.T) {
	client := &mockRdsClient{status: "available"}
	result := NewReconciler(client, zerolog.Nop()).Reconcile(context.Background(), request(domain.ActionStop))

	assert.Equal(t, domain.ActionStop, result.Action)
	assert.Equal(t, domain.ResultSuccess, result.Status)
	assert.Equal(t, "stopping", result.NewState)
	assert.Equal(t, 1, client.stopCalls)
}

func TestReconcile_SkipsMatchingState(t *testing.T) {
	cases := []struct {
		status string
		action domain.Action
	}{
		{"available", domain.ActionStart},
		{"starting", domain.ActionStart},
		{"backing-up", domain.ActionStart},
		{"modifying", domain.ActionStart},
		{"stopping", domain.ActionStart},
		{"stopped", domain.ActionStop},
		{"stopping", domain.ActionStop},
		{"starting", domain.ActionStop},
		{"backing-up", domain.ActionStop},
	}
	for _, tc := range cases {
		t.Run(string(tc.action)+"/"+tc.status, func(t *testing.T) {
			client := &mockRdsClient{status: tc.status}
			result := NewReconciler(client, zerolog.Nop()).Reconcile(context.Background(), request(tc.action))

			assert.Equal(t, domain.ActionSkip, result.Action)
			assert.Zero(t, client.startCalls+client.stopCalls)
		})
	}
}

func TestReconcile_StopFailure(t *testing.T) {
	client := &mockRdsClient{status: "available", stopErr: errors.New("InvalidDBInstanceState")}
	result := NewReconciler(client, zerolog.Nop()).Reconcile(context.Background(), request(domain.ActionStop))

	assert.Equal(t, domain.ResultFailed, result.Status)
	assert.Contains(t, result.Error, "InvalidDBInstanceState")
}

func TestReconcile_RepeatedStartWhileStarting(t *testing.T) {
	client := &mockRdsClient{status: "stopped"}
	r := NewReconciler(client, zerolog.Nop())

	first := r.Reconcile(context.Background(), request(domain.ActionStart))
	assert.True(t, first.Changed())

	client.status = "starting"
	second := r.Reconcile(context.Background(), request(domain.ActionStart))

	assert.Equal(t, domain.ActionSkip, second.Action)
	assert.False(t, second.Changed())
	assert.Equal(t, 1, client.startCalls)
}

func TestInstanceIdFromArn(t *testing.T) {
	id, err := instanceIdFromArn(testArn)
	assert.NoError(t, err)
	assert.Equal(t, "orders-db", id)

	_, err = instanceIdFromArn("arn:aws:rds:ap-south-1:123456789012:cluster:aurora-1")
	assert.Error(t, err)
	_, err = instanceIdFromArn("orders-db")
	assert.Error(t, err)
}
