package cmd

import (
	"fmt"
	"io"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/common"
)

// printRunResult は実行結果を表形式で表示する
func printRunResult(w io.Writer, r domain.RunResult) {
	icon := common.SuccessIcon
	switch r.Status {
	case domain.RunStatusPartial:
		icon = common.WarningIcon
	case domain.RunStatusFailed:
		icon = common.ErrorIcon
	}

	columns := []common.TableColumn{
		{Header: "項目"},
		{Header: "値"},
	}
	data := [][]string{
		{"実行ID", r.ExecutionID},
		{"モード", string(r.Mode)},
		{"ステータス", icon + " " + r.Status},
		{"処理したスケジュール", fmt.Sprint(r.SchedulesProcessed)},
		{"起動", fmt.Sprint(r.ResourcesStarted)},
		{"停止", fmt.Sprint(r.ResourcesStopped)},
		{"失敗", fmt.Sprint(r.ResourcesFailed)},
		{"所要時間(ms)", fmt.Sprint(r.DurationMs)},
	}
	if r.Message != "" {
		data = append(data, []string{"メッセージ", r.Message})
	}
	common.PrintTable(w, "実行結果", columns, data)
}
