package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ResourceKind はスケジューラが扱うリソース種別
type ResourceKind string

const (
	KindComputeInstance  ResourceKind = "compute-instance"
	KindManagedDatabase  ResourceKind = "managed-database"
	KindContainerService ResourceKind = "container-service"
)

// AllKinds は集計・監査で使う種別の並び順
var AllKinds = []ResourceKind{KindComputeInstance, KindContainerService, KindManagedDatabase}

// ErrUnknownKind は未対応のリソース種別を表す
var ErrUnknownKind = errors.New("未対応のリソース種別です")

// ParseResourceKind は正式名称と短縮名（ec2/rds/ecs）の両方を受け付ける
func ParseResourceKind(s string) (ResourceKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(KindComputeInstance), "ec2", "instance":
		return KindComputeInstance, nil
	case string(KindManagedDatabase), "rds", "database":
		return KindManagedDatabase, nil
	case string(KindContainerService), "ecs", "service":
		return KindContainerService, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// KindForService はARNのサービス部分からリソース種別を推定する
func KindForService(service string) (ResourceKind, error) {
	switch service {
	case "ec2":
		return KindComputeInstance, nil
	case "rds":
		return KindManagedDatabase, nil
	case "ecs":
		return KindContainerService, nil
	}
	return "", fmt.Errorf("%w: サービス %q", ErrUnknownKind, service)
}

// Label はログ表示用の名称を返す
func (k ResourceKind) Label() string {
	switch k {
	case KindComputeInstance:
		return "EC2インスタンス"
	case KindManagedDatabase:
		return "RDSインスタンス"
	case KindContainerService:
		return "ECSサービス"
	}
	return string(k)
}

// Action はリソースに対する操作
type Action string

const (
	ActionStart Action = "start"
	ActionStop  Action = "stop"
	ActionSkip  Action = "skip"
)

// ResultStatus はリソース単位の実行結果
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultFailed  ResultStatus = "failed"
)

// ScheduleResource はスケジュールに紐づくリソースの参照
type ScheduleResource struct {
	ID   string `json:"id" dynamodbav:"id"`
	Type string `json:"type" dynamodbav:"type"`
	Arn  string `json:"arn" dynamodbav:"arn"`
	Name string `json:"name,omitempty" dynamodbav:"name,omitempty"`
}

// ResourceResult はリコンサイル1件分の結果
type ResourceResult struct {
	ResourceID    string            `json:"resourceId" dynamodbav:"resourceId"`
	Arn           string            `json:"arn" dynamodbav:"arn"`
	Kind          ResourceKind      `json:"kind" dynamodbav:"kind"`
	Action        Action            `json:"action" dynamodbav:"action"`
	Status        ResultStatus      `json:"status" dynamodbav:"status"`
	PreviousState string            `json:"previousState,omitempty" dynamodbav:"previousState,omitempty"`
	NewState      string            `json:"newState,omitempty" dynamodbav:"newState,omitempty"`
	Error         string            `json:"error,omitempty" dynamodbav:"error,omitempty"`
	Details       map[string]string `json:"details,omitempty" dynamodbav:"details,omitempty"`
}

// Changed はスケジューラが実際に状態を変更したかどうか
func (r ResourceResult) Changed() bool {
	return r.Status == ResultSuccess && r.Action != ActionSkip
}

// FailedResult は失敗結果を組み立てる
func FailedResult(res ScheduleResource, kind ResourceKind, action Action, err error) ResourceResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return ResourceResult{
		ResourceID: res.ID,
		Arn:        res.Arn,
		Kind:       kind,
		Action:     action,
		Status:     ResultFailed,
		Error:      msg,
	}
}

// SkippedResult は既に目的の状態だった場合の結果を組み立てる
func SkippedResult(res ScheduleResource, kind ResourceKind, state string) ResourceResult {
	return ResourceResult{
		ResourceID:    res.ID,
		Arn:           res.Arn,
		Kind:          kind,
		Action:        ActionSkip,
		Status:        ResultSuccess,
		PreviousState: state,
		NewState:      state,
	}
}
