package aws

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws/arn"
)

// ErrMalformedArn はARNとして解釈できない文字列を表す
var ErrMalformedArn = errors.New("ARNの形式が不正です")

// Arn は解析済みのARN
type Arn struct {
	Partition string
	Service   string
	Region    string
	AccountID string
	// Resource はリソース部分全体（例: instance/i-abc, db:mydb, service/cluster/svc）
	Resource string
}

// ParseArn はARNを解析してアカウントとリージョンを取り出す
// アカウントとリージョンはスケジュール側の設定ではなく必ずARNから決まる
func ParseArn(s string) (Arn, error) {
	s = strings.TrimSpace(s)
	if !arn.IsARN(s) {
		return Arn{}, fmt.Errorf("%w: %q", ErrMalformedArn, s)
	}
	parsed, err := arn.Parse(s)
	if err != nil {
		return Arn{}, fmt.Errorf("%w: %q: %v", ErrMalformedArn, s, err)
	}
	if parsed.AccountID == "" || parsed.Region == "" || parsed.Resource == "" {
		return Arn{}, fmt.Errorf("%w: アカウントIDまたはリージョンがありません: %q", ErrMalformedArn, s)
	}
	return Arn{
		Partition: parsed.Partition,
		Service:   parsed.Service,
		Region:    parsed.Region,
		AccountID: parsed.AccountID,
		Resource:  parsed.Resource,
	}, nil
}

// ResourceID はリソース部分の末尾の識別子を返す
func (a Arn) ResourceID() string {
	res := a.Resource
	if i := strings.LastIndexAny(res, "/:"); i >= 0 {
		return res[i+1:]
	}
	return res
}

// ResourcePath はリソース部分を種別とパスに分解する
// instance/i-abc → ("instance", ["i-abc"]), db:mydb → ("db", ["mydb"])
func (a Arn) ResourcePath() (string, []string) {
	res := a.Resource
	i := strings.IndexAny(res, "/:")
	if i < 0 {
		return res, nil
	}
	return res[:i], strings.Split(res[i+1:], "/")
}

// String はARN文字列を再構築する
func (a Arn) String() string {
	return arn.ARN{
		Partition: a.Partition,
		Service:   a.Service,
		Region:    a.Region,
		AccountID: a.AccountID,
		Resource:  a.Resource,
	}.String()
}
