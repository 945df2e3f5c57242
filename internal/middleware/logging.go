package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
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

// requestAnnotations は内側のミドルウェアが外側のロギングへ渡す値。
// 認証ミドルウェアは内側で新しいコンテキストを作るため、ポインタ経由で共有する。
type requestAnnotations struct {
	mu        sync.Mutex
	subjectID string
}

var annotationsContextKey = contextKey("request_annotations")

// annotateSubject はリクエストログに出力する主体IDを記録する。
func annotateSubject(ctx context.Context, subjectID string) {
	a, ok := ctx.Value(annotationsContextKey).(*requestAnnotations)
	if !ok {
		return
	}
	a.mu.Lock()
	a.subjectID = subjectID
	a.mu.Unlock()
}

func (a *requestAnnotations) subject() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.subjectID
}

// NewLoggingMiddleware はリクエストのJSON構造化ログを出力するミドルウェアを返す。
// ログにはmethod、path、status、duration_ms、subject_id（認証済みの場合）を含む。
func NewLoggingMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			ann := &requestAnnotations{}
			ctx := context.WithValue(r.Context(), annotationsContextKey, ann)

			next.ServeHTTP(rec, r.WithContext(ctx))

			duration := time.Since(start)
			durationMs := float64(duration.Nanoseconds()) / float64(time.Millisecond)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.statusCode),
				slog.Float64("duration_ms", durationMs),
			}

			subjectID := ann.subject()
			if subjectID == "" {
				if p, ok := PrincipalFromContext(r.Context()); ok {
					subjectID = p.SubjectID
				}
			}
			if subjectID != "" {
				attrs = append(attrs, slog.String("subject_id", subjectID))
			}

			// ステータスコードに応じてログレベルを変更
			level := slog.LevelInfo
			if rec.statusCode >= 500 {
				level = slog.LevelError
			} else if rec.statusCode >= 400 {
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http_request", attrs...)
		})
	}
}

// HTTPStatusRecorder はレスポンスステータスのメトリクス記録インターフェース。
type HTTPStatusRecorder interface {
	RecordHTTPStatus(statusCode int)
}

// NewHTTPMetricsMiddleware はレスポンスのステータスコードを記録するミドルウェアを返す。
func NewHTTPMetricsMiddleware(m HTTPStatusRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}
			next.ServeHTTP(rec, r)
			m.RecordHTTPStatus(rec.statusCode)
		})
	}
}
