package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
)

// 時刻文字列として受け付ける形式
var timeLayouts = []string{"15:04:05", "15:04"}

// IsInRange は now がスケジュールの稼働時間帯に含まれるかを判定する
//
// 判定はすべてスケジュールのタイムゾーンで行う。開始と終了が同じ時刻の場合は
// 長さゼロの時間帯として常に false を返す。終了が開始より前の場合は日付を
// またぐ時間帯とみなし、開始日が稼働曜日であれば翌日の終了時刻まで稼働中とする。
func IsInRange(now time.Time, start, end, timezone string, days []string) (bool, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(timezone))
	if err != nil {
		return false, fmt.Errorf("タイムゾーン '%s' の読み込みに失敗: %w", timezone, err)
	}
	startClock, err := parseClock(start)
	if err != nil {
		return false, err
	}
	endClock, err := parseClock(end)
	if err != nil {
		return false, err
	}
	activeDays, err := parseDays(days)
	if err != nil {
		return false, err
	}

	if startClock == endClock {
		return false, nil
	}

	local := now.In(loc)
	today := dateOf(local)

	if activeDays[local.Weekday()] {
		startToday := at(today, startClock)
		endToday := at(today, endClock)
		if endToday.Before(startToday) {
			endToday = endToday.AddDate(0, 0, 1)
		}
		if inWindow(local, startToday, endToday) {
			return true, nil
		}
	}

	// 前日に始まり日付をまたいで続いている時間帯
	if endClock < startClock {
		yesterday := today.AddDate(0, 0, -1)
		if activeDays[yesterday.Weekday()] {
			startYesterday := at(yesterday, startClock)
			endToday := at(today, endClock)
			if inWindow(local, startYesterday, endToday) {
				return true, nil
			}
		}
	}

	return false, nil
}

// DesiredAction はスケジュールの時間帯から求める操作（start/stop）を返す
func DesiredAction(now time.Time, s domain.Schedule) (domain.Action, error) {
	in, err := IsInRange(now, s.StartTime, s.EndTime, s.Timezone, s.Days)
	if err != nil {
		return "", err
	}
	if in {
		return domain.ActionStart, nil
	}
	return domain.ActionStop, nil
}

// Evaluator は時計を差し替え可能な時間帯評価器
type Evaluator struct {
	Now func() time.Time
}

// NewEvaluator は現在時刻で評価する評価器を返す
func NewEvaluator() *Evaluator {
	return &Evaluator{Now: time.Now}
}

// DesiredAction は現在時刻における求める操作を返す
func (e *Evaluator) DesiredAction(s domain.Schedule) (domain.Action, error) {
	return DesiredAction(e.Now(), s)
}

func inWindow(now, start, end time.Time) bool {
	return !now.Before(start) && now.Before(end)
}

// dateOf は同じタイムゾーンでの0時を返す
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// at は日付と時刻を壁時計の時刻として組み合わせる（夏時間の切り替え日も含む）
func at(date time.Time, c time.Duration) time.Time {
	y, m, d := date.Date()
	h := int(c / time.Hour)
	mi := int(c % time.Hour / time.Minute)
	sec := int(c % time.Minute / time.Second)
	return time.Date(y, m, d, h, mi, sec, 0, date.Location())
}

// parseClock は HH:MM:SS / HH:MM を0時からの経過時間に変換する
func parseClock(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, nil
		}
	}
	return 0, fmt.Errorf("時刻 '%s' の形式が不正です（HH:MM:SS）", s)
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// parseDays は曜日名（Mon, monday, MON など）を集合に変換する
func parseDays(days []string) (map[time.Weekday]bool, error) {
	set := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		key := strings.ToLower(strings.TrimSpace(d))
		if len(key) >= 3 {
			key = key[:3]
		}
		wd, ok := weekdayNames[key]
		if !ok {
			return nil, fmt.Errorf("曜日 '%s' を解釈できません", d)
		}
		set[wd] = true
	}
	return set, nil
}
