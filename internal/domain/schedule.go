package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Schedule は稼働時間帯の定義とその対象リソース
type Schedule struct {
	ScheduleID  string             `json:"scheduleId" dynamodbav:"schedule_id"`
	TenantID    string             `json:"tenantId" dynamodbav:"tenant_id"`
	Name        string             `json:"name" dynamodbav:"name"`
	Description string             `json:"description,omitempty" dynamodbav:"description,omitempty"`
	StartTime   string             `json:"starttime" dynamodbav:"starttime"`
	EndTime     string             `json:"endtime" dynamodbav:"endtime"`
	Timezone    string             `json:"timezone" dynamodbav:"timezone"`
	Days        []string           `json:"days" dynamodbav:"days"`
	Active      bool               `json:"active" dynamodbav:"active"`
	AccountID   string             `json:"accountId" dynamodbav:"account_id"`
	Resources   []ScheduleResource `json:"resources" dynamodbav:"resources"`

	// 実行時にスケジューラが書き戻す項目
	LastExecutionID     string     `json:"lastExecutionId,omitempty" dynamodbav:"last_execution_id,omitempty"`
	LastExecutionStatus string     `json:"lastExecutionStatus,omitempty" dynamodbav:"last_execution_status,omitempty"`
	LastExecutedAt      *time.Time `json:"lastExecutedAt,omitempty" dynamodbav:"last_executed_at,omitempty"`
}

// Validate はウィンドウ評価に必要な項目が揃っているか確認する
func (s Schedule) Validate() error {
	var missing []string
	if s.ScheduleID == "" {
		missing = append(missing, "schedule_id")
	}
	if s.StartTime == "" {
		missing = append(missing, "starttime")
	}
	if s.EndTime == "" {
		missing = append(missing, "endtime")
	}
	if s.Timezone == "" {
		missing = append(missing, "timezone")
	}
	if len(s.Days) == 0 {
		missing = append(missing, "days")
	}
	if len(missing) > 0 {
		return fmt.Errorf("スケジュール '%s' の必須項目が不足しています: %s", s.Name, strings.Join(missing, ", "))
	}
	return nil
}

// Account はクロスアカウントロールを引き受ける対象アカウント
type Account struct {
	AccountID  string  `json:"accountId" dynamodbav:"account_id"`
	Name       string  `json:"name,omitempty" dynamodbav:"name,omitempty"`
	RoleArn    string  `json:"roleArn" dynamodbav:"role_arn"`
	ExternalID string  `json:"externalId,omitempty" dynamodbav:"external_id,omitempty"`
	Regions    Regions `json:"regions" dynamodbav:"regions"`
	Active     bool    `json:"active" dynamodbav:"active"`
}

// Regions はリストでも区切り文字列でも保存されうるリージョン一覧
type Regions []string

// ParseRegions はカンマ・空白・セミコロン区切りの文字列をリストに正規化する
func ParseRegions(s string) Regions {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t'
	})
	regions := make(Regions, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			regions = append(regions, f)
		}
	}
	return regions
}

// Contains はリージョンが含まれているか
func (r Regions) Contains(region string) bool {
	for _, v := range r {
		if v == region {
			return true
		}
	}
	return false
}

// UnmarshalDynamoDBAttributeValue はL/SS/Sのいずれの形式も受け付ける
func (r *Regions) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		*r = ParseRegions(v.Value)
	case *types.AttributeValueMemberSS:
		*r = ParseRegions(strings.Join(v.Value, ","))
	case *types.AttributeValueMemberL:
		var parts []string
		for _, item := range v.Value {
			s, ok := item.(*types.AttributeValueMemberS)
			if !ok {
				return fmt.Errorf("regions の要素が文字列ではありません: %T", item)
			}
			parts = append(parts, s.Value)
		}
		*r = ParseRegions(strings.Join(parts, ","))
	case *types.AttributeValueMemberNULL:
		*r = nil
	default:
		return fmt.Errorf("regions の形式が不正です: %T", av)
	}
	return nil
}
