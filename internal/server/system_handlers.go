package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/quantalab/quanta/internal/database"
	"github.com/quantalab/quanta/internal/queue"
)

// SystemHandlers provides system monitoring endpoints
type SystemHandlers struct {
	log       zerolog.Logger
	dataDir   string
	jobsDB    *database.DB
	queue     *queue.Service
	startedAt time.Time
}

// NewSystemHandlers creates system monitoring handlers
func NewSystemHandlers(log zerolog.Logger, dataDir string, jobsDB *database.DB, q *queue.Service, startedAt time.Time) *SystemHandlers {
	return &SystemHandlers{
		log:       log.With().Str("component", "system_handlers").Logger(),
		dataDir:   dataDir,
		jobsDB:    jobsDB,
		queue:     q,
		startedAt: startedAt,
	}
}

// SystemStatusResponse describes overall process health
type SystemStatusResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds float64      `json:"uptime_seconds"`
	CPUPercent    float64      `json:"cpu_percent"`
	RAMPercent    float64      `json:"ram_percent"`
	Queue         *queue.Stats `json:"queue,omitempty"`
	DataDirMB     float64      `json:"data_dir_mb"`
	Timestamp     string       `json:"timestamp"`
}

// GetSystemStatusSnapshot assembles the current status
func (h *SystemHandlers) GetSystemStatusSnapshot() (SystemStatusResponse, error) {
	cpuPercent, ramPercent := h.getSystemStats()

	response := SystemStatusResponse{
		Status:        "operational",
		UptimeSeconds: time.Since(h.startedAt).Seconds(),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		DataDirMB:     h.getDirSize(h.dataDir),
		Timestamp:     time.Now().Format(time.RFC3339),
	}

	if h.queue != nil {
		stats, err := h.queue.GetStats()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to get queue stats")
		} else {
			response.Queue = stats
		}
	}

	return response, nil
}

// HandleSystemStatus handles GET /api/system/status
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	response, err := h.GetSystemStatusSnapshot()
	if err != nil {
		http.Error(w, "Failed to get system status", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode system status")
	}
}

// HandleQueueStats handles GET /api/queue/stats
func (h *SystemHandlers) HandleQueueStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.queue.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get queue stats")
		http.Error(w, "Failed to get queue stats", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"data": stats,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode queue stats")
	}
}

// DatabaseStatsResponse describes the jobs database
type DatabaseStatsResponse struct {
	Name      string  `json:"name"`
	SizeMB    float64 `json:"size_mb"`
	WALSizeMB float64 `json:"wal_size_mb"`
	PageCount int64   `json:"page_count"`
	FreePages int64   `json:"free_pages"`
	Timestamp string  `json:"timestamp"`
}

// HandleDatabaseStats handles GET /api/system/database/stats
func (h *SystemHandlers) HandleDatabaseStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.jobsDB.GetStats()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get database stats")
		http.Error(w, "Failed to get database stats", http.StatusInternalServerError)
		return
	}

	response := DatabaseStatsResponse{
		Name:      h.jobsDB.Name(),
		SizeMB:    float64(stats.SizeBytes) / 1024 / 1024,
		WALSizeMB: float64(stats.WALSizeBytes) / 1024 / 1024,
		PageCount: stats.PageCount,
		FreePages: stats.FreelistCount,
		Timestamp: time.Now().Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode database stats")
	}
}

// getDirSize calculates total size of a directory in MB
func (h *SystemHandlers) getDirSize(dirPath string) float64 {
	var totalSize int64

	err := filepath.Walk(dirPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if !info.IsDir() {
			totalSize += info.Size()
		}
		return nil
	})

	if err != nil {
		h.log.Warn().Err(err).Str("dir", dirPath).Msg("Failed to calculate directory size")
		return 0
	}

	return float64(totalSize) / 1024 / 1024
}

// getSystemStats calculates CPU and RAM usage percentages.
// Uses a short sampling interval so the endpoint responds quickly.
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}
