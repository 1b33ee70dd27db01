// Package logger はJSON構造化ログの初期化を提供する。
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// redactedKeys は値をログに出力しない属性キー（小文字）。
var redactedKeys = map[string]struct{}{
	"password":      {},
	"password_hash": {},
	"token":         {},
	"authorization": {},
	"jwt_secret":    {},
}

const redacted = "[REDACTED]"

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
// 資格情報を表すキーの値は常にマスクする。
func Setup(w io.Writer) *slog.Logger {
	return SetupWithLevel(w, slog.LevelInfo)
}

// SetupWithLevel は指定レベル以上を出力するJSONロガーを生成する。
func SetupWithLevel(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactCredentials,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerが指定された場合はそのwriterに出力する。
// 本番ではos.Stdoutを渡すことを想定している。
// 出力レベルは LOG_LEVEL（debug, info, warn, error）で指定する。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	logger := SetupWithLevel(w, ParseLevel(os.Getenv("LOG_LEVEL")))
	slog.SetDefault(logger)
}

// ParseLevel はログレベル名を slog.Level に変換する。未知の値は Info。
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// redactCredentials はキー名または "Bearer " で始まる値から資格情報を判定してマスクする。
func redactCredentials(groups []string, a slog.Attr) slog.Attr {
	if _, ok := redactedKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	if a.Value.Kind() == slog.KindString && hasBearerPrefix(a.Value.String()) {
		return slog.String(a.Key, redacted)
	}
	return a
}

func hasBearerPrefix(v string) bool {
	return len(v) > 7 && strings.EqualFold(v[:7], "bearer ")
}
