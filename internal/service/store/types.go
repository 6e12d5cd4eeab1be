package store

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoDBAPI はストアが使うDynamoDB操作
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// ErrScheduleNotFound は指定したスケジュールが存在しない（またはテナントが異なる）
var ErrScheduleNotFound = errors.New("スケジュールが見つかりません")

// Options はテーブル名とインデックス名
type Options struct {
	SchedulesTable string
	AccountsTable  string
	ActiveIndex    string
}

// statusActive はGSIのパーティションキー値
const statusActive = "active"
