package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
)

// SessionDuration は引き受けたロールの有効期間（固定）
const SessionDuration = time.Hour

// STSAPI はロール引き受けに必要なSTS操作
type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// SecretsAPI は外部IDの解決に必要なSecrets Manager操作
type SecretsAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AssumeRoleInput はロール引き受けの入力
type AssumeRoleInput struct {
	RoleArn    string
	AccountID  string
	Region     string
	ExternalID string
}

// Credentials はアカウント・リージョンに限定された一時認証情報
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string
	Expiration      time.Time
}

// Config は一時認証情報からリージョン固定のAWS設定を組み立てる
func (c Credentials) Config() aws.Config {
	cfg := aws.NewConfig()
	cfg.Region = c.Region
	cfg.Credentials = aws.NewCredentialsCache(
		credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
	)
	return *cfg
}

// CredentialError はロール引き受けの失敗（アカウント・リージョン単位）
type CredentialError struct {
	AccountID string
	Region    string
	RoleArn   string
	Code      string
	Err       error
}

func (e *CredentialError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("ロール %s の引き受けに失敗 (account=%s, region=%s, code=%s): %v", e.RoleArn, e.AccountID, e.Region, e.Code, e.Err)
	}
	return fmt.Sprintf("ロール %s の引き受けに失敗 (account=%s, region=%s): %v", e.RoleArn, e.AccountID, e.Region, e.Err)
}

func (e *CredentialError) Unwrap() error { return e.Err }

// SessionName はCloudTrailで追跡できる決定的なセッション名を返す
func SessionName(accountID, region string) string {
	return fmt.Sprintf("scheduler-session-%s-%s", accountID, region)
}

// Broker はクロスアカウントロールを引き受けて一時認証情報を払い出す
// 1回のスケジューラ起動の間だけ使い、認証情報はキャッシュしない
type Broker struct {
	newSTS  func(region string) STSAPI
	secrets SecretsAPI

	mu          sync.Mutex
	externalIDs map[string]string
}

// NewBroker は実行環境の設定からブローカーを作成
func NewBroker(cfg aws.Config) *Broker {
	return NewBrokerWithClients(
		func(region string) STSAPI {
			return sts.NewFromConfig(cfg, func(o *sts.Options) { o.Region = region })
		},
		secretsmanager.NewFromConfig(cfg),
	)
}

// NewBrokerWithClients は任意のクライアントでブローカーを作成（テスト用）
func NewBrokerWithClients(newSTS func(region string) STSAPI, secrets SecretsAPI) *Broker {
	return &Broker{
		newSTS:      newSTS,
		secrets:     secrets,
		externalIDs: make(map[string]string),
	}
}

// AssumeRole は対象アカウント・リージョンのロールを引き受ける
func (b *Broker) AssumeRole(ctx context.Context, in AssumeRoleInput) (Credentials, error) {
	fail := func(err error) (Credentials, error) {
		credErr := &CredentialError{AccountID: in.AccountID, Region: in.Region, RoleArn: in.RoleArn, Err: err}
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			credErr.Code = apiErr.ErrorCode()
		}
		return Credentials{}, credErr
	}

	if strings.TrimSpace(in.RoleArn) == "" {
		return fail(errors.New("ロールARNが設定されていません"))
	}
	if !arn.IsARN(in.RoleArn) {
		return fail(fmt.Errorf("%w: %q", ErrMalformedArn, in.RoleArn))
	}

	externalID, err := b.resolveExternalID(ctx, in.ExternalID)
	if err != nil {
		return fail(err)
	}

	input := &sts.AssumeRoleInput{
		RoleArn:         aws.String(in.RoleArn),
		RoleSessionName: aws.String(SessionName(in.AccountID, in.Region)),
		DurationSeconds: aws.Int32(int32(SessionDuration / time.Second)),
	}
	if externalID != "" {
		input.ExternalId = aws.String(externalID)
	}

	out, err := b.newSTS(in.Region).AssumeRole(ctx, input)
	if err != nil {
		return fail(err)
	}
	if out.Credentials == nil {
		return fail(errors.New("STSの応答に認証情報が含まれていません"))
	}

	return Credentials{
		AccessKeyID:     aws.ToString(out.Credentials.AccessKeyId),
		SecretAccessKey: aws.ToString(out.Credentials.SecretAccessKey),
		SessionToken:    aws.ToString(out.Credentials.SessionToken),
		Region:          in.Region,
		Expiration:      aws.ToTime(out.Credentials.Expiration),
	}, nil
}

// resolveExternalID はSecrets ManagerのARNで指定された外部IDを実値に解決する
func (b *Broker) resolveExternalID(ctx context.Context, value string) (string, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "arn:") || !strings.Contains(value, ":secretsmanager:") {
		return value, nil
	}

	b.mu.Lock()
	cached, ok := b.externalIDs[value]
	b.mu.Unlock()
	if ok {
		return cached, nil
	}

	if b.secrets == nil {
		return "", errors.New("外部IDのシークレットを解決するクライアントがありません")
	}
	out, err := b.secrets.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(value),
	})
	if err != nil {
		return "", fmt.Errorf("外部IDのシークレット取得に失敗: %w", err)
	}

	resolved := parseExternalIDSecret(aws.ToString(out.SecretString))
	if resolved == "" {
		return "", fmt.Errorf("シークレット %s に外部IDが含まれていません", value)
	}

	b.mu.Lock()
	b.externalIDs[value] = resolved
	b.mu.Unlock()
	return resolved, nil
}

// parseExternalIDSecret は文字列そのまま、またはJSONの externalId / external_id を受け付ける
func parseExternalIDSecret(secret string) string {
	secret = strings.TrimSpace(secret)
	if !strings.HasPrefix(secret, "{") {
		return secret
	}
	var m map[string]interface{}
	if err := json.Unmarshal([]byte(secret), &m); err != nil {
		return ""
	}
	for _, key := range []string{"externalId", "external_id", "ExternalId"} {
		if v, ok := m[key].(string); ok {
			return v
		}
	}
	return ""
}
