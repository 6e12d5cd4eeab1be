package common

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintTable_AlignsWideCharacters(t *testing.T) {
	var buf bytes.Buffer
	columns := []TableColumn{{Header: "名前"}, {Header: "状態"}}
	data := [][]string{
		{"営業時間", "active"},
		{"night-batch", "inactive"},
	}

	PrintTable(&buf, "スケジュール一覧", columns, data)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "スケジュール一覧:", lines[0])
	// 2列目の開始位置が全行で揃う
	first := runewidth.StringWidth("night-batch") + 1
	for _, line := range lines[1:] {
		assert.GreaterOrEqual(t, runewidth.StringWidth(line), first)
	}
	assert.True(t, strings.HasPrefix(lines[3], "営業時間"+strings.Repeat(" ", first-runewidth.StringWidth("営業時間"))+"active"))
}

func TestPrintTable_FixedWidthTruncates(t *testing.T) {
	var buf bytes.Buffer
	PrintTable(&buf, "", []TableColumn{{Header: "ARN", Width: 8}}, [][]string{{"arn:aws:ec2:ap-south-1"}})

	assert.Contains(t, buf.String(), "arn:aws…")
	assert.NotContains(t, buf.String(), "ap-south-1")
}

func TestDisplayList(t *testing.T) {
	toTable := func(items []string) ([]TableColumn, [][]string) {
		data := make([][]string, len(items))
		for i, item := range items {
			data[i] = []string{item}
		}
		return []TableColumn{{Header: "名前"}}, data
	}

	var empty bytes.Buffer
	DisplayList(&empty, nil, "スケジュール", toTable, &DisplayOptions{EmptyMessage: "スケジュールが見つかりませんでした"})
	assert.Equal(t, "スケジュールが見つかりませんでした\n", empty.String())

	var buf bytes.Buffer
	DisplayList(&buf, []string{"a", "b"}, "スケジュール", toTable, &DisplayOptions{ShowCount: true, FilterMessages: []string{"アクティブな"}})
	assert.Contains(t, buf.String(), "アクティブなスケジュール一覧:")
	assert.Contains(t, buf.String(), "合計: 2件")
}

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		name, pattern string
		want          bool
	}{
		{"office-hours", "office", true},
		{"office-hours", "OFFICE*", true},
		{"office-hours", "*-hours", true},
		{"office-hours", "night*", false},
		{"dev-web", "{dev,stg}-*", true},
		{"prod-web", "{dev,stg}-*", false},
		{"batch-1", "batch-?", true},
		{"anything", "[", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MatchPattern(tt.name, tt.pattern), "%s ~ %s", tt.name, tt.pattern)
	}
}

func TestFilterByPattern(t *testing.T) {
	items := []string{"dev-web", "prod-web", "dev-db"}

	assert.Equal(t, items, FilterByPattern(items, "", func(s string) string { return s }))
	assert.Equal(t, []string{"dev-web", "dev-db"}, FilterByPattern(items, "dev-*", func(s string) string { return s }))
}

func TestActionIcon(t *testing.T) {
	assert.Equal(t, SuccessIcon, ActionIcon("start"))
	assert.Equal(t, SuccessIcon, ActionIcon("stop"))
	assert.Equal(t, SkipIcon, ActionIcon("skip"))
	assert.Equal(t, InfoIcon, ActionIcon("unknown"))
}
