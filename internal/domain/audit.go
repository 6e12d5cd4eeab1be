package domain

import "time"

// AuditStatus は監査イベントの重要度
type AuditStatus string

const (
	AuditSuccess AuditStatus = "success"
	AuditWarning AuditStatus = "warning"
	AuditError   AuditStatus = "error"
	AuditInfo    AuditStatus = "info"
)

// SystemActor は自動実行時の実行者
const SystemActor = "system:scheduler"

// 実行者の種類
const (
	ActorUser   = "user"
	ActorSystem = "system"
)

// AuditEvent は追記専用の監査イベント
type AuditEvent struct {
	ID           string         `json:"id" dynamodbav:"id"`
	EventType    string         `json:"eventType" dynamodbav:"event_type"`
	Action       string         `json:"action" dynamodbav:"action"`
	User         string         `json:"user" dynamodbav:"user"`
	UserType     string         `json:"userType" dynamodbav:"user_type"`
	TenantID     string         `json:"tenantId,omitempty" dynamodbav:"tenant_id,omitempty"`
	ResourceType string         `json:"resourceType" dynamodbav:"resource_type"`
	ResourceID   string         `json:"resourceId" dynamodbav:"resource_id"`
	Status       AuditStatus    `json:"status" dynamodbav:"status"`
	Details      string         `json:"details" dynamodbav:"details"`
	Metadata     map[string]any `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
	Timestamp    time.Time      `json:"timestamp" dynamodbav:"timestamp"`
	ExpireAt     int64          `json:"expireAt" dynamodbav:"expire_at"`
}

// Actor は監査イベントの実行者
type Actor struct {
	Name string
	Type string
}

// SystemIdentity はシステム実行者を返す
func SystemIdentity() Actor {
	return Actor{Name: SystemActor, Type: ActorSystem}
}
