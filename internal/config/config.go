package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はスケジューラの実行設定（環境変数から読み込む）
type Config struct {
	SchedulesTable  string
	AccountsTable   string
	ExecutionsTable string
	StateTable      string
	AuditTable      string

	// ActiveIndex はアクティブなスケジュール・アカウントを引くGSI名
	ActiveIndex string

	MaxConcurrency   int
	RequireOwnership bool

	// AlertTopicArn が空の場合は通知しない
	AlertTopicArn string

	AuditTTL time.Duration
	StateTTL time.Duration

	LogLevel  string
	LogFormat string

	Region string
}

// 既定値
const (
	DefaultActiveIndex    = "status-index"
	DefaultMaxConcurrency = 10
	DefaultAuditTTLDays   = 90
	DefaultStateTTLDays   = 30
	DefaultLogLevel       = "info"
	LogFormatJSON         = "json"
	LogFormatConsole      = "console"
)

// Load は環境変数から設定を読み込む
func Load() Config {
	return LoadFrom(os.Getenv)
}

// LoadFrom は任意の参照関数から設定を読み込む
func LoadFrom(getenv func(string) string) Config {
	get := func(key, defaultValue string) string {
		if value := strings.TrimSpace(getenv(key)); value != "" {
			return value
		}
		return defaultValue
	}

	return Config{
		SchedulesTable:   get("SCHEDULER_SCHEDULES_TABLE", "scheduler-schedules"),
		AccountsTable:    get("SCHEDULER_ACCOUNTS_TABLE", "scheduler-accounts"),
		ExecutionsTable:  get("SCHEDULER_EXECUTIONS_TABLE", "scheduler-executions"),
		StateTable:       get("SCHEDULER_STATE_TABLE", "scheduler-resource-state"),
		AuditTable:       get("SCHEDULER_AUDIT_TABLE", "scheduler-audit-logs"),
		ActiveIndex:      get("SCHEDULER_ACTIVE_INDEX", DefaultActiveIndex),
		MaxConcurrency:   positiveInt(get("SCHEDULER_MAX_CONCURRENCY", ""), DefaultMaxConcurrency),
		RequireOwnership: parseBool(get("SCHEDULER_REQUIRE_OWNERSHIP", "")),
		AlertTopicArn:    get("SCHEDULER_ALERT_TOPIC_ARN", ""),
		AuditTTL:         days(positiveInt(get("AUDIT_TTL_DAYS", ""), DefaultAuditTTLDays)),
		StateTTL:         days(positiveInt(get("STATE_TTL_DAYS", ""), DefaultStateTTLDays)),
		LogLevel:         strings.ToLower(get("SCHEDULER_LOG_LEVEL", DefaultLogLevel)),
		LogFormat:        strings.ToLower(get("SCHEDULER_LOG_FORMAT", LogFormatJSON)),
		Region:           get("AWS_REGION", get("AWS_DEFAULT_REGION", "")),
	}
}

// Validate は必須項目と値の範囲を確認する
func (c Config) Validate() error {
	var errs []error
	for name, v := range map[string]string{
		"SCHEDULER_SCHEDULES_TABLE":  c.SchedulesTable,
		"SCHEDULER_ACCOUNTS_TABLE":   c.AccountsTable,
		"SCHEDULER_EXECUTIONS_TABLE": c.ExecutionsTable,
		"SCHEDULER_STATE_TABLE":      c.StateTable,
		"SCHEDULER_AUDIT_TABLE":      c.AuditTable,
	} {
		if v == "" {
			errs = append(errs, fmt.Errorf("%s が設定されていません", name))
		}
	}
	if c.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("同時実行数は1以上にしてください: %d", c.MaxConcurrency))
	}
	if c.LogFormat != LogFormatJSON && c.LogFormat != LogFormatConsole {
		errs = append(errs, fmt.Errorf("ログ形式 '%s' は未対応です（json / console）", c.LogFormat))
	}
	return errors.Join(errs...)
}

func positiveInt(s string, defaultValue int) int {
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return defaultValue
	}
	return n
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(s)
	return err == nil && b
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
