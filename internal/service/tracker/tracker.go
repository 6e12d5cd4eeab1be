package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

// DynamoDBAPI は実行履歴と状態記録で使うDynamoDB操作
type DynamoDBAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Options はテーブル名と状態記録の保持期間
type Options struct {
	ExecutionsTable string
	StateTable      string
	StateTTL        time.Duration
}

// Tracker は実行履歴とリソースの最終状態を記録する
type Tracker struct {
	db   DynamoDBAPI
	opts Options
	now  func() time.Time
}

// New はトラッカーを作成
func New(db DynamoDBAPI, opts Options) *Tracker {
	return &Tracker{db: db, opts: opts, now: time.Now}
}

// stateItem は状態テーブルの1行
// recorded_at はソートキーとしてミリ秒の数値で持つ
type stateItem struct {
	StateKey    string              `dynamodbav:"state_key"`
	RecordedAt  int64               `dynamodbav:"recorded_at"`
	TenantID    string              `dynamodbav:"tenant_id"`
	ScheduleID  string              `dynamodbav:"schedule_id"`
	ResourceArn string              `dynamodbav:"resource_arn"`
	Kind        domain.ResourceKind `dynamodbav:"kind"`
	Action      domain.Action       `dynamodbav:"action"`
	State       string              `dynamodbav:"state"`
	NewState    string              `dynamodbav:"new_state,omitempty"`
	Details     map[string]string   `dynamodbav:"details,omitempty"`
	ExecutionID string              `dynamodbav:"execution_id"`
	ExpireAt    int64               `dynamodbav:"expire_at,omitempty"`
}

// StateKey はテナント・スケジュール・リソースARNを連結したパーティションキー
func StateKey(tenantID, scheduleID, resourceArn string) string {
	return fmt.Sprintf("%s#%s#%s", tenantID, scheduleID, resourceArn)
}

// SaveExecution は実行履歴を1件書き込む
func (t *Tracker) SaveExecution(ctx context.Context, record domain.ExecutionRecord) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("実行履歴の変換に失敗: %w", err)
	}

	_, err = t.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(t.opts.ExecutionsTable),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(execution_id)"),
	})
	if err != nil {
		return fmt.Errorf("実行履歴 '%s' の書き込みに失敗: %w", record.ExecutionID, err)
	}
	return nil
}

// GetLastKnownState はリソースの直近の記録を返す（記録がなければ nil）
func (t *Tracker) GetLastKnownState(ctx context.Context, tenantID, scheduleID, resourceArn string) (*domain.LastKnownState, error) {
	out, err := t.db.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(t.opts.StateTable),
		KeyConditionExpression: aws.String("state_key = :key"),
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":key": &dynamodbtypes.AttributeValueMemberS{Value: StateKey(tenantID, scheduleID, resourceArn)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("最終状態の取得に失敗 (%s): %w", resourceArn, err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}

	var item stateItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, fmt.Errorf("最終状態の変換に失敗 (%s): %w", resourceArn, err)
	}
	return &domain.LastKnownState{
		TenantID:    item.TenantID,
		ScheduleID:  item.ScheduleID,
		ResourceArn: item.ResourceArn,
		Kind:        item.Kind,
		Action:      item.Action,
		State:       item.State,
		NewState:    item.NewState,
		Details:     item.Details,
		ExecutionID: item.ExecutionID,
		RecordedAt:  time.UnixMilli(item.RecordedAt).UTC(),
	}, nil
}

// PutLastKnownState はリソースの状態記録を追記する
func (t *Tracker) PutLastKnownState(ctx context.Context, state domain.LastKnownState) error {
	if state.RecordedAt.IsZero() {
		state.RecordedAt = t.now()
	}
	item := stateItem{
		StateKey:    StateKey(state.TenantID, state.ScheduleID, state.ResourceArn),
		RecordedAt:  state.RecordedAt.UnixMilli(),
		TenantID:    state.TenantID,
		ScheduleID:  state.ScheduleID,
		ResourceArn: state.ResourceArn,
		Kind:        state.Kind,
		Action:      state.Action,
		State:       state.State,
		NewState:    state.NewState,
		Details:     state.Details,
		ExecutionID: state.ExecutionID,
	}
	if t.opts.StateTTL > 0 {
		item.ExpireAt = state.RecordedAt.Add(t.opts.StateTTL).Unix()
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("最終状態の変換に失敗: %w", err)
	}
	_, err = t.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(t.opts.StateTable),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("最終状態の書き込みに失敗 (%s): %w", state.ResourceArn, err)
	}
	return nil
}

// StateFromResult はリコンサイル結果から状態記録を組み立てる
func StateFromResult(schedule domain.Schedule, executionID string, r domain.ResourceResult, at time.Time) domain.LastKnownState {
	return domain.LastKnownState{
		TenantID:    schedule.TenantID,
		ScheduleID:  schedule.ScheduleID,
		ResourceArn: r.Arn,
		Kind:        r.Kind,
		Action:      r.Action,
		State:       r.PreviousState,
		NewState:    r.NewState,
		Details:     r.Details,
		ExecutionID: executionID,
		RecordedAt:  at,
	}
}
