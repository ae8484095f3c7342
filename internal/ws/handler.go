package ws

import (
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/conveyorci/conveyor/internal/events"
	"github.com/conveyorci/conveyor/internal/infrastructure/monitoring"
	"github.com/conveyorci/conveyor/internal/logging"
	"github.com/conveyorci/conveyor/internal/store"
	"github.com/conveyorci/conveyor/internal/types"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in dev
	},
}

// Handler streams run lifecycle events to WebSocket clients.
type Handler struct {
	broker  *events.Broker
	runs    *store.Runs
	metrics *monitoring.Metrics
	log     *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(broker *events.Broker, runs *store.Runs, metrics *monitoring.Metrics, log *logging.Logger) *Handler {
	return &Handler{
		broker:  broker,
		runs:    runs,
		metrics: metrics,
		log:     log,
	}
}

// StreamRun upgrades the connection and forwards one run's events until
// the run finishes or the client disconnects.
func (h *Handler) StreamRun(c *gin.Context) {
	runID := c.Param("id")
	run, err := h.runs.Get(runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.metrics.IncWSConnections()
	defer h.metrics.DecWSConnections()

	// Subscribe before reporting current state so no transition is lost.
	ch, cancel := h.broker.Subscribe(runID)
	defer cancel()

	status := run.Snapshot().Status
	if err := h.send(conn, types.RunEvent{
		Type:      snapshotType(status),
		RunID:     runID,
		Status:    status,
		Timestamp: time.Now(),
	}); err != nil {
		return
	}
	if finished(status) {
		return
	}

	// Drain reads so close frames are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event, ok := <-ch:
			if !ok {
				return
			}
			if err := h.send(conn, event); err != nil {
				return
			}
			if event.Type == types.EventRunFinished {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *Handler) send(conn *websocket.Conn, event types.RunEvent) error {
	data, err := sonic.Marshal(event)
	if err != nil {
		return err
	}
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// snapshotType maps the run's current status to the event announcing it
// to a late subscriber.
func snapshotType(status types.RunStatus) types.RunEventType {
	if finished(status) {
		return types.EventRunFinished
	}
	return types.EventRunStarted
}

func finished(status types.RunStatus) bool {
	switch status {
	case types.RunSuccess, types.RunFailure, types.RunCanceled:
		return true
	}
	return false
}
