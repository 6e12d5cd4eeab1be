package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

type mockDynamoDBClient struct {
	putItemFunc func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	events      []domain.AuditEvent
}

func (m *mockDynamoDBClient) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.putItemFunc != nil {
		return m.putItemFunc(ctx, params, optFns...)
	}
	var ev domain.AuditEvent
	if err := attributevalue.UnmarshalMap(params.Item, &ev); err != nil {
		return nil, err
	}
	m.events = append(m.events, ev)
	return &dynamodb.PutItemOutput{}, nil
}

var fixedNow = time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)

func newLogger(db DynamoDBAPI) *Logger {
	l := New(db, "audit", 0, zerolog.Nop())
	l.now = func() time.Time { return fixedNow }
	return l
}

func TestLog_FillsDefaults(t *testing.T) {
	db := &mockDynamoDBClient{}
	l := newLogger(db)

	l.Log(context.Background(), domain.AuditEvent{EventType: "test", Status: domain.AuditInfo})

	require.Len(t, db.events, 1)
	ev := db.events[0]
	assert.NotEmpty(t, ev.ID)
	assert.True(t, ev.Timestamp.Equal(fixedNow))
	assert.Equal(t, fixedNow.Add(90*24*time.Hour).Unix(), ev.ExpireAt)
	assert.Equal(t, domain.SystemActor, ev.User)
	assert.Equal(t, domain.ActorSystem, ev.UserType)
}

func TestLog_UniqueIDs(t *testing.T) {
	db := &mockDynamoDBClient{}
	l := newLogger(db)

	l.Log(context.Background(), domain.AuditEvent{EventType: "a"})
	l.Log(context.Background(), domain.AuditEvent{EventType: "b"})

	require.Len(t, db.events, 2)
	assert.NotEqual(t, db.events[0].ID, db.events[1].ID)
}

func TestLog_SwallowsErrors(t *testing.T) {
	db := &mockDynamoDBClient{
		putItemFunc: func(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			return nil, errors.New("table missing")
		},
	}

	assert.NotPanics(t, func() {
		newLogger(db).Log(context.Background(), domain.AuditEvent{EventType: "x"})
	})

	var nilLogger *Logger
	assert.NotPanics(t, func() {
		nilLogger.Log(context.Background(), domain.AuditEvent{EventType: "x"})
	})
}

func TestExecutionSummary(t *testing.T) {
	db := &mockDynamoDBClient{}
	l := newLogger(db)

	tally := domain.NewTally()
	tally.Add(domain.ResourceResult{Kind: domain.KindComputeInstance, Action: domain.ActionStop, Status: domain.ResultSuccess})
	tally.Add(domain.ResourceResult{Kind: domain.KindManagedDatabase, Action: domain.ActionStop, Status: domain.ResultFailed})

	actor := domain.Actor{Name: "ops@example.com", Type: domain.ActorUser}
	schedule := domain.Schedule{ScheduleID: "s-1", TenantID: "t-1", Name: "office-hours"}
	l.ExecutionSummary(context.Background(), actor, schedule, "exec-1", domain.ExecutionPartial, tally, 1500*time.Millisecond)

	require.Len(t, db.events, 1)
	ev := db.events[0]
	assert.Equal(t, EventExecutionSummary, ev.EventType)
	assert.Equal(t, "ops@example.com", ev.User)
	assert.Equal(t, domain.ActorUser, ev.UserType)
	assert.Equal(t, domain.AuditWarning, ev.Status)
	assert.Equal(t, "s-1", ev.ResourceID)
	assert.Equal(t, "exec-1", ev.Metadata["executionId"])
	assert.Contains(t, ev.Details, "停止 1")
	assert.Contains(t, ev.Details, "失敗 1")
}

func TestRunSummaryAndFailures(t *testing.T) {
	db := &mockDynamoDBClient{}
	l := newLogger(db)
	actor := domain.SystemIdentity()
	schedule := domain.Schedule{ScheduleID: "s-1", Name: "office-hours"}

	l.RunSummary(context.Background(), actor, domain.RunResult{ExecutionID: "run-1", Status: domain.RunStatusFailed, Mode: domain.ModeFull})
	l.CredentialFailure(context.Background(), actor, schedule, "123456789012", "ap-south-1", 3, errors.New("AccessDenied"))
	l.ResourceFailure(context.Background(), actor, schedule, "exec-1", domain.ResourceResult{
		ResourceID: "i-abc", Arn: "arn:aws:ec2:ap-south-1:123456789012:instance/i-abc",
		Kind: domain.KindComputeInstance, Action: domain.ActionStart, Error: "InsufficientInstanceCapacity",
	})
	l.ScheduleSkipped(context.Background(), actor, schedule, "タイムゾーンが不正")
	l.RunFailed(context.Background(), actor, "run-1", domain.ModeFull, errors.New("store down"))

	require.Len(t, db.events, 5)
	assert.Equal(t, domain.AuditError, db.events[0].Status)
	assert.Equal(t, EventCredentialFailure, db.events[1].EventType)
	assert.Contains(t, db.events[1].Details, "AccessDenied")
	assert.Equal(t, "arn:aws:ec2:ap-south-1:123456789012:instance/i-abc", db.events[2].ResourceID)
	assert.Equal(t, domain.AuditWarning, db.events[3].Status)
	assert.Equal(t, EventRunFailed, db.events[4].EventType)
}
