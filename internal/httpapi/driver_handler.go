package httpapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"driveguard/internal/eventlog"
	"driveguard/internal/models"
	"driveguard/internal/monitor"
	"driveguard/internal/profile"

	"go.uber.org/zap"
)

// DriverHandler 驾驶员监控接口
type DriverHandler struct {
	monitor *monitor.Monitor
	now     func() time.Time
	logger  *zap.Logger
}

func NewDriverHandler(m *monitor.Monitor, now func() time.Time, logger *zap.Logger) *DriverHandler {
	if now == nil {
		now = time.Now
	}
	return &DriverHandler{monitor: m, now: now, logger: logger}
}

// StateResponse GET /state 返回内容
type StateResponse struct {
	Snapshot models.DriverStateSnapshot `json:"snapshot"`
	Session  models.SessionInfo         `json:"session"`
	Elapsed  string                     `json:"elapsed"`
}

func (h *DriverHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(StateResponse{
		Snapshot: h.monitor.Snapshot(),
		Session:  h.monitor.Session(),
		Elapsed:  monitor.FormatElapsed(h.monitor.Elapsed()),
	}))
}

func (h *DriverHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.monitor.Stats()))
}

func (h *DriverHandler) GetProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.monitor.Profiles()))
}

func (h *DriverHandler) GetLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Ok(h.monitor.Logs()))
}

func (h *DriverHandler) ClearLogs(w http.ResponseWriter, r *http.Request) {
	h.monitor.ClearLog(r.Context())
	writeJSON(w, http.StatusOK, Ok[any](nil))
}

// ExportLogs 导出日志，format=csv（默认）或 xlsx
func (h *DriverHandler) ExportLogs(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}

	store := h.monitor.LogStore()
	var (
		body        []byte
		contentType string
	)
	switch format {
	case "csv":
		body = []byte(store.ExportCSV())
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		data, err := store.ExportXLSX()
		if err != nil {
			h.logger.Error("Failed to export driver logs", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, Fail("failed to export logs"))
			return
		}
		body = data
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("unsupported format %q", format)))
		return
	}

	filename := eventlog.ExportFileName(h.now(), format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

func (h *DriverHandler) SetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	mode, ok := profile.ParseMode(req.Mode)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail(fmt.Sprintf("unknown mode %q", req.Mode)))
		return
	}
	if err := h.monitor.SetMode(mode); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, Ok(h.monitor.Session()))
}

type setMonitoringRequest struct {
	Enabled *bool `json:"enabled"`
}

func (h *DriverHandler) SetMonitoring(w http.ResponseWriter, r *http.Request) {
	var req setMonitoringRequest
	if err := readBodyJSON(r, maxBodyBytes, &req); err != nil || req.Enabled == nil {
		writeJSON(w, http.StatusBadRequest, Fail("enabled is required"))
		return
	}
	h.monitor.SetMonitoring(*req.Enabled)
	writeJSON(w, http.StatusOK, Ok(h.monitor.Session()))
}

// FrameResponse POST /frames 返回内容
type FrameResponse struct {
	Processed bool                       `json:"processed"`
	Snapshot  models.DriverStateSnapshot `json:"snapshot"`
}

func (h *DriverHandler) PostFrame(w http.ResponseWriter, r *http.Request) {
	var payload models.LandmarkPayload
	if err := readBodyJSON(r, maxBodyBytes, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid landmark payload"))
		return
	}
	snap, processed := h.monitor.ProcessFrame(r.Context(), payload.Frame())
	writeJSON(w, http.StatusOK, Ok(FrameResponse{Processed: processed, Snapshot: snap}))
}
