package common

// メッセージの絵文字定数
const (
	ErrorIcon   = "❌"
	SuccessIcon = "✅"
	WarningIcon = "⚠️"
	SearchIcon  = "🔍"
	InfoIcon    = "📋"
	ProcessIcon = "🔄"
	SkipIcon    = "⏭️"
)

// ActionIcon は操作の表示用アイコンを返す
func ActionIcon(action string) string {
	switch action {
	case "start", "stop":
		return SuccessIcon
	case "skip":
		return SkipIcon
	}
	return InfoIcon
}
