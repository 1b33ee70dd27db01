package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// statusRecorder はhttp.ResponseWriterをラップし、ステータスコードを記録する。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

// WriteHeader はステータスコードを記録してから委譲する。
func (sr *statusRecorder) WriteHeader(code int) {
	if !sr.written {
		sr.statusCode = code
		sr.written = true
	}
	sr.ResponseWriter.WriteHeader(code)
}

// Write はデータを書き込む。WriteHeaderが未呼び出しの場合は200を記録する。
func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.written {
		sr.statusCode = http.StatusOK
		sr.written = true
	}
	return sr.ResponseWriter.Write(b)
}

// requestLogFields は内側のミドルウェアからリクエストログへ値を渡すための入れ物。
// ロギングミドルウェアがコンテキストに置き、認証・テナントミドルウェアが書き込む。
type requestLogFields struct {
	userID   string
	clinicID string
}

var logFieldsContextKey = contextKey("log_fields")

// setLogUserID はリクエストログに出力するユーザーIDを記録する。
func setLogUserID(ctx context.Context, userID string) {
	if f, ok := ctx.Value(logFieldsContextKey).(*requestLogFields); ok {
		f.userID = userID
	}
}

// setLogClinicID はリクエストログに出力するクリニックIDを記録する。
func setLogClinicID(ctx context.Context, clinicID string) {
	if f, ok := ctx.Value(logFieldsContextKey).(*requestLogFields); ok {
		f.clinicID = clinicID
	}
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms を含み、認証済みの場合は user_id と clinic_id を加える。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			fields := &requestLogFields{}
			ctx := context.WithValue(r.Context(), logFieldsContextKey, fields)

			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			// 認証済みの場合はユーザーIDを追加
			userID := fields.userID
			if userID == "" {
				userID, _ = UserIDFromContext(r.Context())
			}
			if userID != "" {
				attrs = append(attrs, slog.String("user_id", userID))
			}
			if fields.clinicID != "" {
				attrs = append(attrs, slog.String("clinic_id", fields.clinicID))
			}

			// slogのログレベルをステータスコードに応じて変更
			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			// slog.Attr をany スライスに変換
			args := make([]any, len(attrs))
			for i, attr := range attrs {
				args[i] = attr
			}

			logger.Log(r.Context(), level, "http_request", args...)
		})
	}
}
