package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const consoleTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Options はロガーの出力設定
type Options struct {
	Level  string
	Format string // json / console
	Out    io.Writer
}

// New は設定に応じたロガーを作成する
// Lambda ではJSON、CLI ではコンソール形式を使う
func New(opts Options) zerolog.Logger {
	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.ErrorFieldName = "err"

	if strings.EqualFold(opts.Format, "console") {
		// 標準出力以外（テストやファイル）には色を付けない
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: consoleTimeFormat, NoColor: opts.Out != nil}
	}
	return zerolog.New(out).
		Level(ParseLevel(opts.Level, zerolog.InfoLevel)).
		With().
		Timestamp().
		Str("service", "resource-scheduler").
		Logger()
}

// ParseLevel はログレベル名を変換する（不明な値は既定値）
func ParseLevel(s string, def zerolog.Level) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "":
		return def
	case "warning":
		return zerolog.WarnLevel
	case "err":
		return zerolog.ErrorLevel
	}
	lvl, err := zerolog.ParseLevel(s)
	if err != nil {
		return def
	}
	return lvl
}
