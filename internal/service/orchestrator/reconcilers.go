package orchestrator

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/rs/zerolog"

	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/ec2"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/ecs"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/rds"
)

// DefaultReconcilers は実際のAWSクライアントを使うリコンサイラを作る
func DefaultReconcilers(log zerolog.Logger) ReconcilerFactory {
	return func(cfg aws.Config) map[domain.ResourceKind]domain.Reconciler {
		clients := awsx.NewClients(cfg)
		log := log.With().Str("region", clients.Region()).Logger()
		return map[domain.ResourceKind]domain.Reconciler{
			domain.KindComputeInstance:  ec2.NewReconciler(clients.Ec2(), log),
			domain.KindManagedDatabase:  rds.NewReconciler(clients.Rds(), log),
			domain.KindContainerService: ecs.NewReconciler(clients.Ecs(), clients.AppAutoScaling(), clients.AutoScaling(), log),
		}
	}
}
