package aws

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/applicationautoscaling"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// Clients は1つのアカウント・リージョンの組に対する各サービスクライアントを管理
// 同じ組の中で使い回し、スケジューラの起動をまたいで保持しない
type Clients struct {
	cfg aws.Config

	// 遅延初期化されるクライアント群
	ec2         *ec2.Client
	rds         *rds.Client
	ecs         *ecs.Client
	appScaling  *applicationautoscaling.Client
	autoScaling *autoscaling.Client
}

// NewClients は引き受けたロールの設定からクライアント管理構造体を作成
func NewClients(cfg aws.Config) *Clients {
	return &Clients{cfg: cfg}
}

// Region はクライアントの対象リージョン
func (c *Clients) Region() string {
	return c.cfg.Region
}

// Ec2 は遅延初期化でEC2クライアントを取得
func (c *Clients) Ec2() *ec2.Client {
	if c.ec2 == nil {
		c.ec2 = ec2.NewFromConfig(c.cfg)
	}
	return c.ec2
}

// Rds は遅延初期化でRDSクライアントを取得
func (c *Clients) Rds() *rds.Client {
	if c.rds == nil {
		c.rds = rds.NewFromConfig(c.cfg)
	}
	return c.rds
}

// Ecs は遅延初期化でECSクライアントを取得
func (c *Clients) Ecs() *ecs.Client {
	if c.ecs == nil {
		c.ecs = ecs.NewFromConfig(c.cfg)
	}
	return c.ecs
}

// AppAutoScaling は遅延初期化でApplication Auto Scalingクライアントを取得
func (c *Clients) AppAutoScaling() *applicationautoscaling.Client {
	if c.appScaling == nil {
		c.appScaling = applicationautoscaling.NewFromConfig(c.cfg)
	}
	return c.appScaling
}

// AutoScaling は遅延初期化でEC2 Auto Scalingクライアントを取得
// ECSクラスターのキャパシティプロバイダーが持つASGの操作に使う
func (c *Clients) AutoScaling() *autoscaling.Client {
	if c.autoScaling == nil {
		c.autoScaling = autoscaling.NewFromConfig(c.cfg)
	}
	return c.autoScaling
}
