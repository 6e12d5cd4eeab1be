package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

// 書き込んだ項目をキーごとに保持する簡易テーブル
type mockDynamoDBClient struct {
	puts     []*dynamodb.PutItemInput
	putErr   error
	queryErr error
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	m.puts = append(m.puts, params)
	return &dynamodb.PutItemOutput{}, nil
}

// Query は state_key が一致する項目を recorded_at の降順で返す
func (m *mockDynamoDBClient) Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	key := params.ExpressionAttributeValues[":key"].(*dynamodbtypes.AttributeValueMemberS).Value

	var newest map[string]dynamodbtypes.AttributeValue
	var newestAt int64
	for _, p := range m.puts {
		if aws.ToString(p.TableName) != aws.ToString(params.TableName) {
			continue
		}
		var item stateItem
		if err := attributevalue.UnmarshalMap(p.Item, &item); err != nil || item.StateKey != key {
			continue
		}
		if newest == nil || item.RecordedAt > newestAt {
			newest, newestAt = p.Item, item.RecordedAt
		}
	}
	if newest == nil {
		return &dynamodb.QueryOutput{}, nil
	}
	return &dynamodb.QueryOutput{Items: []map[string]dynamodbtypes.AttributeValue{newest}}, nil
}

const testArn = "arn:aws:ec2:ap-south-1:123456789012:instance/i-abc"

func newTracker(db DynamoDBAPI) *Tracker {
	return New(db, Options{ExecutionsTable: "executions", StateTable: "state", StateTTL: 24 * time.Hour})
}

func TestLastKnownState_NewestWins(t *testing.T) {
	db := &mockDynamoDBClient{}
	tr := newTracker(db)
	ctx := context.Background()
	base := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, tr.PutLastKnownState(ctx, domain.LastKnownState{
		TenantID: "t-1", ScheduleID: "s-1", ResourceArn: testArn,
		Action: domain.ActionStop, State: "running", RecordedAt: base,
	}))
	require.NoError(t, tr.PutLastKnownState(ctx, domain.LastKnownState{
		TenantID: "t-1", ScheduleID: "s-1", ResourceArn: testArn,
		Action: domain.ActionStart, State: "stopped", RecordedAt: base.Add(time.Hour),
		Details: map[string]string{"instanceType": "t3.micro"},
	}))

	got, err := tr.GetLastKnownState(ctx, "t-1", "s-1", testArn)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, domain.ActionStart, got.Action)
	assert.Equal(t, "t3.micro", got.Detail("instanceType"))
	assert.True(t, got.RecordedAt.Equal(base.Add(time.Hour)))
}

func TestLastKnownState_ScopedByTenantAndSchedule(t *testing.T) {
	db := &mockDynamoDBClient{}
	tr := newTracker(db)
	ctx := context.Background()

	require.NoError(t, tr.PutLastKnownState(ctx, domain.LastKnownState{
		TenantID: "t-1", ScheduleID: "s-1", ResourceArn: testArn, Action: domain.ActionStop,
	}))

	got, err := tr.GetLastKnownState(ctx, "t-2", "s-1", testArn)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = tr.GetLastKnownState(ctx, "t-1", "s-9", testArn)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPutLastKnownState_SetsTTL(t *testing.T) {
	db := &mockDynamoDBClient{}
	tr := newTracker(db)
	at := time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

	require.NoError(t, tr.PutLastKnownState(context.Background(), domain.LastKnownState{
		TenantID: "t-1", ScheduleID: "s-1", ResourceArn: testArn, RecordedAt: at,
	}))

	require.Len(t, db.puts, 1)
	var item stateItem
	require.NoError(t, attributevalue.UnmarshalMap(db.puts[0].Item, &item))
	assert.Equal(t, "t-1#s-1#"+testArn, item.StateKey)
	assert.Equal(t, at.Add(24*time.Hour).Unix(), item.ExpireAt)
}

func TestGetLastKnownState_Error(t *testing.T) {
	tr := newTracker(&mockDynamoDBClient{queryErr: errors.New("throttled")})

	_, err := tr.GetLastKnownState(context.Background(), "t-1", "s-1", testArn)
	assert.ErrorContains(t, err, "throttled")
}

func TestSaveExecution(t *testing.T) {
	db := &mockDynamoDBClient{}
	tr := newTracker(db)

	record := domain.ExecutionRecord{
		ExecutionID:      "exec-1",
		ScheduleID:       "s-1",
		Status:           domain.ExecutionPartial,
		ResourcesStarted: 1,
		ResourcesFailed:  1,
		ScheduleMetadata: map[string][]domain.ResourceResult{
			"ec2": {{ResourceID: "i-abc", Action: domain.ActionStart, Status: domain.ResultSuccess}},
		},
	}
	require.NoError(t, tr.SaveExecution(context.Background(), record))

	require.Len(t, db.puts, 1)
	assert.Equal(t, "executions", aws.ToString(db.puts[0].TableName))
	var saved domain.ExecutionRecord
	require.NoError(t, attributevalue.UnmarshalMap(db.puts[0].Item, &saved))
	assert.Equal(t, "exec-1", saved.ExecutionID)
	assert.Equal(t, domain.ExecutionPartial, saved.Status)
	assert.Equal(t, "i-abc", saved.ScheduleMetadata["ec2"][0].ResourceID)
}

func TestSaveExecution_Error(t *testing.T) {
	tr := newTracker(&mockDynamoDBClient{putErr: errors.New("boom")})

	err := tr.SaveExecution(context.Background(), domain.ExecutionRecord{ExecutionID: "exec-1"})
	assert.ErrorContains(t, err, "exec-1")
}

func TestStateFromResult(t *testing.T) {
	at := time.Now()
	st := StateFromResult(
		domain.Schedule{ScheduleID: "s-1", TenantID: "t-1"},
		"exec-1",
		domain.ResourceResult{Arn: testArn, Kind: domain.KindComputeInstance, Action: domain.ActionStop, PreviousState: "running", NewState: "stopping"},
		at,
	)

	assert.Equal(t, "running", st.State)
	assert.Equal(t, "stopping", st.NewState)
	assert.True(t, st.StoppedByScheduler())
}
