package monitor

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"nhooyr.io/websocket"
)

const feedWriteTimeout = 5 * time.Second

// RegisterRoutes adds health, stats and live feed endpoints to engine.
func RegisterRoutes(engine *gin.Engine, m *Monitor) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	engine.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, m.Stats())
	})
	engine.GET("/feed", m.serveWebsocket)
}

// serveWebsocket streams every published record as a JSON text message.
func (m *Monitor) serveWebsocket(c *gin.Context) {
	ws, err := websocket.Accept(c.Writer, c.Request, nil)
	if err != nil {
		m.logger.Warn("websocket accept failed", "remote_addr", c.Request.RemoteAddr, "error", err)
		return
	}
	defer ws.CloseNow()

	id, ch := m.Subscribe(subscriberBufferSize)
	defer m.Unsubscribe(id)

	ctx := ws.CloseRead(c.Request.Context())
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-ch:
			if !ok {
				_ = ws.Close(websocket.StatusGoingAway, "monitor shutting down")
				return
			}
			if err := writeText(ctx, ws, frame); err != nil {
				m.logger.Debug("websocket write failed", "subscriber_id", id, "error", err)
				return
			}
		}
	}
}

func writeText(ctx context.Context, ws *websocket.Conn, frame Frame) error {
	ctx, cancel := context.WithTimeout(ctx, feedWriteTimeout)
	defer cancel()
	return ws.Write(ctx, websocket.MessageText, frame)
}
