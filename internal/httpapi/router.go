// Package httpapi 车载监控的本地 HTTP 接口（HMI / 调试工具使用）
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// NewRouter 注册全部路由
// CORS 包在路由外层：预检请求匹配不到 Methods，mux 中间件不会执行
func NewRouter(h *DriverHandler, logger *zap.Logger) http.Handler {
	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))

	api := router.PathPrefix("/api/v1/driver").Subrouter()
	api.HandleFunc("/state", h.GetState).Methods(http.MethodGet)
	api.HandleFunc("/stats", h.GetStats).Methods(http.MethodGet)
	api.HandleFunc("/profiles", h.GetProfiles).Methods(http.MethodGet)
	api.HandleFunc("/logs", h.GetLogs).Methods(http.MethodGet)
	api.HandleFunc("/logs", h.ClearLogs).Methods(http.MethodDelete)
	api.HandleFunc("/logs/export", h.ExportLogs).Methods(http.MethodGet)
	api.HandleFunc("/mode", h.SetMode).Methods(http.MethodPut)
	api.HandleFunc("/monitoring", h.SetMonitoring).Methods(http.MethodPut)
	api.HandleFunc("/frames", h.PostFrame).Methods(http.MethodPost)

	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	}).Methods(http.MethodGet)

	return corsMiddleware(router)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
