package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/common"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/window"
)

var (
	scheduleSearch string
	// check サブコマンド用フラグ
	checkTenantID string
	checkAt       string
)

// ScheduleCmd はscheduleコマンドを表す
var ScheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "スケジュール確認コマンド",
	Long:  `登録されているスケジュールとその稼働時間帯を確認するためのコマンド群です。`,
}

var scheduleLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "アクティブなスケジュール一覧を表示",
	Long: `アクティブなスケジュールの一覧と、現在時刻での判定結果を表示します。

例:
  ` + AppName + ` schedule ls                      # すべて表示
  ` + AppName + ` schedule ls --search "dev-*"     # dev-で始まるスケジュールのみ表示
  ` + AppName + ` schedule ls --search "office"    # officeを含むスケジュールのみ表示`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), nil)
		if err != nil {
			return err
		}

		schedules, err := a.Store.ListActiveSchedulesStrict(cmd.Context())
		if err != nil {
			return fmt.Errorf("スケジュール一覧の取得に失敗: %w", err)
		}

		opts := &common.DisplayOptions{ShowCount: true, EmptyMessage: "スケジュールが見つかりませんでした"}
		if scheduleSearch != "" {
			schedules = common.FilterByPattern(schedules, scheduleSearch, func(s domain.Schedule) string { return s.Name })
			opts.FilterMessages = append(opts.FilterMessages, fmt.Sprintf("検索: %s", scheduleSearch))
		}

		now := time.Now()
		common.DisplayList(cmd.OutOrStdout(), schedules, "スケジュール一覧",
			func(items []domain.Schedule) ([]common.TableColumn, [][]string) {
				return scheduleTable(items, now)
			}, opts)
		return nil
	},
	SilenceUsage: true,
}

var scheduleCheckCmd = &cobra.Command{
	Use:   "check SCHEDULE_ID",
	Short: "スケジュールの判定結果と対象リソースを表示",
	Long: `指定した時刻（省略時は現在時刻）でスケジュールがどの操作を求めるかを表示します。
リソースの操作は行いません。

例:
  ` + AppName + ` schedule check 0f3c...                               # 現在時刻で判定
  ` + AppName + ` schedule check 0f3c... --at 2025-01-15T19:30:00+05:30  # 指定時刻で判定`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		at := time.Now()
		if checkAt != "" {
			parsed, err := time.Parse(time.RFC3339, checkAt)
			if err != nil {
				return fmt.Errorf("--at の形式が不正です（RFC3339）: %w", err)
			}
			at = parsed
		}

		a, err := newApp(cmd.Context(), nil)
		if err != nil {
			return err
		}
		s, err := a.Store.GetSchedule(cmd.Context(), args[0], checkTenantID)
		if err != nil {
			return fmt.Errorf("スケジュールの取得に失敗: %w", err)
		}

		return printScheduleCheck(cmd.OutOrStdout(), *s, at)
	},
	SilenceUsage: true,
}

// scheduleTable はスケジュール一覧の表データを作る
func scheduleTable(items []domain.Schedule, now time.Time) ([]common.TableColumn, [][]string) {
	columns := []common.TableColumn{
		{Header: "名前", Width: 32},
		{Header: "ID"},
		{Header: "テナント"},
		{Header: "時間帯"},
		{Header: "曜日"},
		{Header: "リソース数"},
		{Header: "現在の判定"},
	}
	data := make([][]string, 0, len(items))
	for _, s := range items {
		verdict := common.ErrorIcon + " 評価不可"
		if action, err := window.DesiredAction(now, s); err == nil {
			verdict = common.ActionIcon(string(action)) + " " + string(action)
		}
		data = append(data, []string{
			s.Name,
			s.ScheduleID,
			s.TenantID,
			fmt.Sprintf("%s-%s (%s)", s.StartTime, s.EndTime, s.Timezone),
			strings.Join(s.Days, ","),
			fmt.Sprint(len(s.Resources)),
			verdict,
		})
	}
	return columns, data
}

// printScheduleCheck は判定結果と対象リソースの一覧を表示する
func printScheduleCheck(w io.Writer, s domain.Schedule, at time.Time) error {
	if err := s.Validate(); err != nil {
		return err
	}
	action, err := window.DesiredAction(at, s)
	if err != nil {
		return fmt.Errorf("稼働時間帯を評価できません: %w", err)
	}

	loc, _ := time.LoadLocation(strings.TrimSpace(s.Timezone))
	fmt.Fprintf(w, "%s スケジュール '%s' (%s)\n", common.InfoIcon, s.Name, s.ScheduleID)
	fmt.Fprintf(w, "   判定時刻: %s\n", at.In(loc).Format("2006-01-02 15:04:05 MST (Mon)"))
	fmt.Fprintf(w, "   求める操作: %s %s\n", common.ActionIcon(string(action)), action)
	if !s.Active {
		fmt.Fprintf(w, "%s このスケジュールは無効化されているため実行されません\n", common.WarningIcon)
	}
	fmt.Fprintln(w)

	columns := []common.TableColumn{
		{Header: "種別"},
		{Header: "アカウント"},
		{Header: "リージョン"},
		{Header: "リソース"},
	}
	data := make([][]string, 0, len(s.Resources))
	for _, res := range s.Resources {
		parsed, err := awsx.ParseArn(res.Arn)
		if err != nil {
			data = append(data, []string{common.ErrorIcon + " 不正なARN", "-", "-", res.Arn})
			continue
		}
		kind, err := domain.ParseResourceKind(res.Type)
		if err != nil {
			kind, err = domain.KindForService(parsed.Service)
		}
		label := kind.Label()
		if err != nil {
			label = common.ErrorIcon + " 未対応"
		}
		data = append(data, []string{label, parsed.AccountID, parsed.Region, parsed.ResourceID()})
	}
	common.PrintTable(w, "対象リソース", columns, data)
	return nil
}

func init() {
	RootCmd.AddCommand(ScheduleCmd)
	ScheduleCmd.AddCommand(scheduleLsCmd)
	ScheduleCmd.AddCommand(scheduleCheckCmd)

	scheduleLsCmd.Flags().StringVarP(&scheduleSearch, "search", "s", "", "スケジュール名の検索パターン（ワイルドカード可）")
	scheduleCheckCmd.Flags().StringVar(&checkTenantID, "tenant", "", "スケジュールのテナントID")
	scheduleCheckCmd.Flags().StringVar(&checkAt, "at", "", "判定する時刻（RFC3339、省略時は現在時刻）")
}
