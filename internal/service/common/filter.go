package common

import (
	"strings"

	"github.com/gobwas/glob"
)

// MatchPattern はワイルドカードパターンマッチングを行う
// ワイルドカード（* ? [ {）を含む場合はglob形式でマッチング、
// 含まない場合は部分一致で判定する。大文字小文字は区別しない
func MatchPattern(name, pattern string) bool {
	name, pattern = strings.ToLower(name), strings.ToLower(pattern)
	if strings.ContainsAny(pattern, "*?[{") {
		g, err := glob.Compile(pattern)
		if err != nil {
			return false
		}
		return g.Match(name)
	}
	// ワイルドカードなしの場合は部分一致
	return strings.Contains(name, pattern)
}

// FilterByPattern はパターンに一致する要素だけを返す（パターンが空なら全件）
func FilterByPattern[T any](items []T, pattern string, name func(T) string) []T {
	if pattern == "" {
		return items
	}
	var out []T
	for _, item := range items {
		if MatchPattern(name(item), pattern) {
			out = append(out, item)
		}
	}
	return out
}
