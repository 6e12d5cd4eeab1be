package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

// Store はスケジュールとアカウントのメタデータを読み出す
// スケジューラが書き込むのは実行結果の記録項目のみ
type Store struct {
	db   DynamoDBAPI
	opts Options
	log  zerolog.Logger
}

// New はDynamoDBクライアントからストアを作成
func New(db DynamoDBAPI, opts Options, log zerolog.Logger) *Store {
	if opts.ActiveIndex == "" {
		opts.ActiveIndex = "status-index"
	}
	return &Store{db: db, opts: opts, log: log.With().Str("component", "store").Logger()}
}

// ListActiveSchedules はアクティブなスケジュールを返す
// インデックスとスキャンの両方に失敗した場合は空のリストを返す
func (s *Store) ListActiveSchedules(ctx context.Context) []domain.Schedule {
	schedules, err := s.ListActiveSchedulesStrict(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("❌ アクティブなスケジュールを取得できませんでした")
		return []domain.Schedule{}
	}
	return schedules
}

// ListActiveSchedulesStrict は ListActiveSchedules と同じだが、全経路の失敗をエラーで返す
func (s *Store) ListActiveSchedulesStrict(ctx context.Context) ([]domain.Schedule, error) {
	return listActive(ctx, s, s.opts.SchedulesTable, func(sc domain.Schedule) bool { return sc.Active })
}

// ListActiveAccounts はアクティブなアカウントを返す
func (s *Store) ListActiveAccounts(ctx context.Context) ([]domain.Account, error) {
	return listActive(ctx, s, s.opts.AccountsTable, func(a domain.Account) bool { return a.Active })
}

// GetSchedule はIDでスケジュールを取得する
// tenantID を指定した場合、テナントが一致しなければ ErrScheduleNotFound
func (s *Store) GetSchedule(ctx context.Context, scheduleID, tenantID string) (*domain.Schedule, error) {
	result, err := s.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.opts.SchedulesTable),
		Key: map[string]dynamodbtypes.AttributeValue{
			"schedule_id": &dynamodbtypes.AttributeValueMemberS{Value: scheduleID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("スケジュール '%s' の取得に失敗: %w", scheduleID, err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: %s", ErrScheduleNotFound, scheduleID)
	}

	var schedule domain.Schedule
	if err := attributevalue.UnmarshalMap(result.Item, &schedule); err != nil {
		return nil, fmt.Errorf("スケジュール '%s' の変換に失敗: %w", scheduleID, err)
	}
	if tenantID != "" && schedule.TenantID != tenantID {
		return nil, fmt.Errorf("%w: %s (tenant=%s)", ErrScheduleNotFound, scheduleID, tenantID)
	}
	return &schedule, nil
}

// FindScheduleByName は名前（テナント内で一意）でスケジュールを探す
func (s *Store) FindScheduleByName(ctx context.Context, name, tenantID string) (*domain.Schedule, error) {
	filter := "#name = :name"
	values := map[string]dynamodbtypes.AttributeValue{
		":name": &dynamodbtypes.AttributeValueMemberS{Value: name},
	}
	names := map[string]string{"#name": "name"}
	if tenantID != "" {
		filter += " AND tenant_id = :tenant"
		values[":tenant"] = &dynamodbtypes.AttributeValueMemberS{Value: tenantID}
	}

	paginator := dynamodb.NewScanPaginator(s.db, &dynamodb.ScanInput{
		TableName:                 aws.String(s.opts.SchedulesTable),
		FilterExpression:          aws.String(filter),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("スケジュール '%s' の検索に失敗: %w", name, err)
		}
		for _, item := range page.Items {
			var schedule domain.Schedule
			if err := attributevalue.UnmarshalMap(item, &schedule); err != nil {
				s.log.Warn().Err(err).Str("key", itemKey(item)).Str("name", name).Msg("不正な項目をスキップします")
				continue
			}
			return &schedule, nil
		}
	}
	return nil, fmt.Errorf("%w: name=%s", ErrScheduleNotFound, name)
}

// RecordLastExecution はスケジュールに直近の実行結果を書き戻す
// 失敗してもログに残すだけで処理は続ける
func (s *Store) RecordLastExecution(ctx context.Context, schedule domain.Schedule, executionID string, status domain.ExecutionStatus, at time.Time) {
	_, err := s.db.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.opts.SchedulesTable),
		Key: map[string]dynamodbtypes.AttributeValue{
			"schedule_id": &dynamodbtypes.AttributeValueMemberS{Value: schedule.ScheduleID},
		},
		UpdateExpression:    aws.String("SET last_execution_id = :id, last_execution_status = :status, last_executed_at = :at"),
		ConditionExpression: aws.String("attribute_exists(schedule_id)"),
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":id":     &dynamodbtypes.AttributeValueMemberS{Value: executionID},
			":status": &dynamodbtypes.AttributeValueMemberS{Value: string(status)},
			":at":     &dynamodbtypes.AttributeValueMemberS{Value: at.UTC().Format(time.RFC3339)},
		},
	})
	if err != nil {
		s.log.Warn().Err(err).
			Str("schedule_id", schedule.ScheduleID).
			Str("execution_id", executionID).
			Msg("スケジュールの実行結果を書き戻せませんでした")
	}
}

// listActive はGSIで active な項目を取得し、失敗時や0件の場合はスキャン結果を絞り込む
// （GSIのキー属性を持たない項目はインデックスに載らないため）
func listActive[T any](ctx context.Context, s *Store, table string, active func(T) bool) ([]T, error) {
	log := s.log.With().Str("table", table).Logger()

	items, queryErr := s.queryActive(ctx, table)
	switch {
	case queryErr == nil && len(items) > 0:
		return decodeItems(items, log, func(T) bool { return true }), nil
	case queryErr == nil:
		log.Debug().Str("index", s.opts.ActiveIndex).Msg("インデックスに項目がないためスキャンで確認します")
	default:
		log.Warn().Err(queryErr).Str("index", s.opts.ActiveIndex).Msg("⚠️ インデックスの参照に失敗したためスキャンに切り替えます")
	}

	items, scanErr := s.scanAll(ctx, table)
	if scanErr != nil {
		if queryErr == nil {
			return nil, fmt.Errorf("テーブル '%s' のスキャンに失敗: %w", table, scanErr)
		}
		return nil, errors.Join(
			fmt.Errorf("テーブル '%s' のインデックス参照に失敗: %w", table, queryErr),
			fmt.Errorf("テーブル '%s' のスキャンに失敗: %w", table, scanErr),
		)
	}
	return decodeItems(items, log, active), nil
}

func (s *Store) queryActive(ctx context.Context, table string) ([]map[string]dynamodbtypes.AttributeValue, error) {
	paginator := dynamodb.NewQueryPaginator(s.db, &dynamodb.QueryInput{
		TableName:              aws.String(table),
		IndexName:              aws.String(s.opts.ActiveIndex),
		KeyConditionExpression: aws.String("#status = :status"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":status": &dynamodbtypes.AttributeValueMemberS{Value: statusActive},
		},
	})

	var items []map[string]dynamodbtypes.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

func (s *Store) scanAll(ctx context.Context, table string) ([]map[string]dynamodbtypes.AttributeValue, error) {
	paginator := dynamodb.NewScanPaginator(s.db, &dynamodb.ScanInput{
		TableName: aws.String(table),
	})

	var items []map[string]dynamodbtypes.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// decodeItems は変換できない項目を警告してスキップする
func decodeItems[T any](items []map[string]dynamodbtypes.AttributeValue, log zerolog.Logger, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := attributevalue.UnmarshalMap(item, &v); err != nil {
			log.Warn().Err(err).Str("key", itemKey(item)).Msg("不正な項目をスキップします")
			continue
		}
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func itemKey(item map[string]dynamodbtypes.AttributeValue) string {
	var keys []string
	for _, name := range []string{"schedule_id", "account_id"} {
		if v, ok := item[name].(*dynamodbtypes.AttributeValueMemberS); ok {
			keys = append(keys, name+"="+v.Value)
		}
	}
	return strings.Join(keys, ",")
}
