package cmd

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/orchestrator"
)

var (
	runScheduleID   string
	runScheduleName string
	runTenantID     string
	runUserEmail    string
	runProgress     bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "スケジューラを1回実行",
	Long: `Lambdaと同じ処理を手元から1回実行します。
スケジュールを指定しない場合はすべてのアクティブなスケジュールを処理します。

例:
  ` + AppName + ` run                                  # フルスキャン
  ` + AppName + ` run --progress                       # 進捗を表示しながらフルスキャン
  ` + AppName + ` run --schedule-id 0f3c... --user ops@example.com
  ` + AppName + ` run --schedule-name office-hours --tenant t-1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if runScheduleID != "" && runScheduleName != "" {
			return fmt.Errorf("--schedule-id と --schedule-name はどちらか一方を指定してください")
		}

		var progress func(orchestrator.ProgressEvent)
		if runProgress {
			progress = newProgressReporter()
		}

		a, err := newApp(cmd.Context(), progress)
		if err != nil {
			return err
		}

		req := domain.RunRequest{
			ScheduleID:   runScheduleID,
			ScheduleName: runScheduleName,
			TenantID:     runTenantID,
			UserEmail:    runUserEmail,
		}
		if runUserEmail != "" {
			req.TriggeredBy = domain.TriggeredByWebUI
		}

		result, err := a.Orchestrator.Run(cmd.Context(), req)
		fmt.Fprintln(cmd.OutOrStdout())
		printRunResult(cmd.OutOrStdout(), result)
		if err != nil {
			return fmt.Errorf("❌ スケジューラの実行に失敗: %w", err)
		}
		if !result.Success {
			return fmt.Errorf("❌ %s", result.Message)
		}
		return nil
	},
	SilenceUsage: true,
}

// newProgressReporter はスケジュールの処理件数をプログレスバーで表示する
// 総数は最初の通知で分かるため、バーはその時点で作る
func newProgressReporter() func(orchestrator.ProgressEvent) {
	var (
		mu  sync.Mutex
		bar *progressbar.ProgressBar
	)
	return func(ev orchestrator.ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		if bar == nil {
			bar = progressbar.NewOptions(ev.Total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("スケジュールを処理中..."),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "=",
					SaucerHead:    ">",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionShowCount(),
				progressbar.OptionShowElapsedTimeOnFinish(),
			)
		}
		_ = bar.Set(ev.Done)
		if ev.Done >= ev.Total {
			_ = bar.Finish()
		}
	}
}

func init() {
	RootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runScheduleID, "schedule-id", "", "実行するスケジュールのID")
	runCmd.Flags().StringVar(&runScheduleName, "schedule-name", "", "実行するスケジュールの名前")
	runCmd.Flags().StringVar(&runTenantID, "tenant", "", "スケジュールのテナントID")
	runCmd.Flags().StringVar(&runUserEmail, "user", "", "監査記録に残す実行者のメールアドレス")
	runCmd.Flags().BoolVar(&runProgress, "progress", false, "進捗をプログレスバーで表示する")
}
