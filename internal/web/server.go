package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"pdf-squeeze-go/internal/compressor"
	"pdf-squeeze-go/internal/config"
	"pdf-squeeze-go/internal/statistics"
	"pdf-squeeze-go/internal/walker"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Server exposes batch compression status and control over HTTP, with
// live per-file progress streamed to WebSocket clients.
type Server struct {
	cfg        *config.Config
	log        *logrus.Logger
	router     *mux.Router
	httpServer *http.Server
	wsUpgrader websocket.Upgrader
	wsClients  map[*websocket.Conn]bool
	wsMutex    sync.RWMutex

	// Current batch state
	operationMutex sync.RWMutex
	isRunning      bool
	currentStats   *statistics.Statistics
}

type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type RunRequest struct {
	SourceDirectory      string  `json:"source_directory"`
	DestinationDirectory string  `json:"destination_directory"`
	TargetSizeMB         float64 `json:"target_size_mb,omitempty"`
	DryRun               bool    `json:"dry_run"`
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewServer(cfg *config.Config, log *logrus.Logger) *Server {
	s := &Server{
		cfg:       cfg,
		log:       log,
		router:    mux.NewRouter(),
		wsClients: make(map[*websocket.Conn]bool),
		wsUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in development
			},
		},
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	// API routes
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/status", s.handleStatus).Methods("GET")
	api.HandleFunc("/summary", s.handleSummary).Methods("GET")
	api.HandleFunc("/run", s.handleRun).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.log.Infof("Starting monitor server on http://localhost%s", addr)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	running := s.isRunning
	stats := s.currentStats
	s.operationMutex.RUnlock()

	var snapshot interface{}
	if stats != nil {
		snapshot = stats.GetSnapshot()
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"running":    running,
			"statistics": snapshot,
		},
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	s.operationMutex.RLock()
	stats := s.currentStats
	s.operationMutex.RUnlock()

	if stats == nil {
		s.writeJSON(w, APIResponse{
			Success: true,
			Data:    nil,
		})
		return
	}

	s.writeJSON(w, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"summary":  stats.GetSummary(),
			"snapshot": stats.GetSnapshot(),
		},
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if req.SourceDirectory == "" {
		s.writeError(w, "Source directory is required", http.StatusBadRequest)
		return
	}
	if req.DestinationDirectory == "" {
		s.writeError(w, "Destination directory is required", http.StatusBadRequest)
		return
	}

	// Check if already running
	s.operationMutex.RLock()
	if s.isRunning {
		s.operationMutex.RUnlock()
		s.writeError(w, "Batch already in progress", http.StatusConflict)
		return
	}
	s.operationMutex.RUnlock()

	if _, err := os.Stat(req.SourceDirectory); os.IsNotExist(err) {
		s.writeError(w, "Source directory does not exist", http.StatusBadRequest)
		return
	}

	go s.runBatchAsync(req)

	s.writeJSON(w, APIResponse{
		Success: true,
		Message: "Batch compression started",
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	s.log.Debug("WebSocket client connected")

	// Remove client on disconnect
	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
		s.log.Debug("WebSocket client disconnected")
	}()

	// Keep connection alive
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

func (s *Server) runBatchAsync(req RunRequest) {
	s.operationMutex.Lock()
	s.isRunning = true
	s.currentStats = statistics.NewStatistics()
	stats := s.currentStats
	s.operationMutex.Unlock()

	s.broadcastWSMessage("batch_started", map[string]interface{}{
		"source_directory":      req.SourceDirectory,
		"destination_directory": req.DestinationDirectory,
		"dry_run":               req.DryRun,
	})

	// Copy config for this batch
	cfg := *s.cfg
	cfg.SourceDirectory = req.SourceDirectory
	cfg.DestinationDirectory = req.DestinationDirectory
	if req.TargetSizeMB > 0 {
		cfg.TargetSizeMB = req.TargetSizeMB
	}
	cfg.Security.DryRun = req.DryRun

	failLog := compressor.NewFailureLog(cfg.Compression.FailureLogPath)
	comp := compressor.NewQualitySearchCompressor(cfg.Compression.Tool, s.log, failLog)
	bw := walker.NewBatchWalkerWithProgress(&cfg, s.log, stats, comp, func(result compressor.Result) {
		s.broadcastWSMessage("file_completed", map[string]interface{}{
			"input":       result.InputPath,
			"output":      result.OutputPath,
			"outcome":     result.Outcome,
			"quality":     result.FinalQuality,
			"output_size": result.OutputSize,
		})
	})

	summary, err := bw.Run(context.Background())

	s.operationMutex.Lock()
	s.isRunning = false
	s.operationMutex.Unlock()

	if err != nil {
		s.broadcastWSMessage("batch_error", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		s.broadcastWSMessage("batch_completed", map[string]interface{}{
			"total":     summary.TotalFound,
			"processed": summary.Processed,
			"failed":    summary.Failed,
			"skipped":   summary.Skipped,
		})
	}
}

func (s *Server) broadcastWSMessage(messageType string, data interface{}) {
	message := WSMessage{
		Type: messageType,
		Data: data,
	}

	msgBytes, err := json.Marshal(message)
	if err != nil {
		s.log.Errorf("Failed to marshal WebSocket message: %v", err)
		return
	}

	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()

	for conn := range s.wsClients {
		err := conn.WriteMessage(websocket.TextMessage, msgBytes)
		if err != nil {
			s.log.Errorf("Failed to write WebSocket message: %v", err)
			// Remove failed connection
			go func(c *websocket.Conn) {
				s.wsMutex.Lock()
				delete(s.wsClients, c)
				s.wsMutex.Unlock()
				c.Close()
			}(conn)
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
	})
}
