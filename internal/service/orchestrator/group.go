package orchestrator

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

// resolveResource はARNを解析し、リソース種別を決める
// type が空または解釈できない場合はARNのサービスから推定する
func resolveResource(res domain.ScheduleResource) (resolvedResource, error) {
	parsed, err := awsx.ParseArn(res.Arn)
	if err != nil {
		return resolvedResource{}, err
	}

	kind, err := domain.ParseResourceKind(res.Type)
	if err != nil {
		kind, err = domain.KindForService(parsed.Service)
		if err != nil {
			return resolvedResource{}, fmt.Errorf("リソース '%s' の種別を判定できません: %w", res.Arn, err)
		}
	}
	if res.ID == "" {
		res.ID = parsed.ResourceID()
	}
	return resolvedResource{resource: res, kind: kind, arn: parsed}, nil
}

// groupResources はリソースをアカウント、リージョンの順にまとめる
// 解析できないリソースは警告を出して除外する
func groupResources(resources []domain.ScheduleResource, log zerolog.Logger) []accountGroup {
	byAccount := make(map[string]map[string][]resolvedResource)
	for _, res := range resources {
		resolved, err := resolveResource(res)
		if err != nil {
			log.Warn().Err(err).Str("resource_arn", res.Arn).Str("resource_id", res.ID).Msg("⚠️ 解析できないリソースを除外します")
			continue
		}
		acct, region := resolved.arn.AccountID, resolved.arn.Region
		if byAccount[acct] == nil {
			byAccount[acct] = make(map[string][]resolvedResource)
		}
		byAccount[acct][region] = append(byAccount[acct][region], resolved)
	}

	groups := make([]accountGroup, 0, len(byAccount))
	for _, acct := range sortedKeys(byAccount) {
		g := accountGroup{accountID: acct}
		for _, region := range sortedKeys(byAccount[acct]) {
			g.regions = append(g.regions, regionGroup{
				accountID: acct,
				region:    region,
				resources: byAccount[acct][region],
			})
		}
		groups = append(groups, g)
	}
	return groups
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
