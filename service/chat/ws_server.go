package chat

import (
	"context"
	"net"
	"net/http"
	"time"

	"CBProject/logger"
	"CBProject/tools/ids"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	readLimit    = 1 << 20 // 1MB
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades the connection and runs its read loop. Each connection
// gets one reader (this handler) and one writer goroutine; events are
// handled in arrival order so an in-flight send always completes before the
// disconnect teardown runs.
func (s *Server) HandleWS(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Infof("[WS] upgrade error: %v", err)
		return
	}

	client := NewClient(ids.GenerateString(), ws, s.sendQueueSize)
	go s.writePump(client)

	ws.SetReadLimit(readLimit)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := context.Background()
	for {
		mt, data, rerr := ws.ReadMessage()
		if rerr != nil {
			if websocket.IsCloseError(rerr,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				logger.Infof("[WS] peer closed conn=%s", client.ConnID)
			} else if ne, ok := rerr.(net.Error); ok && ne.Timeout() {
				logger.Infof("[WS] read timeout conn=%s", client.ConnID)
			} else {
				logger.Infof("[WS] read err conn=%s err=%v", client.ConnID, rerr)
			}
			break
		}
		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		frame, perr := ParseFrame(data)
		if perr != nil {
			sample := data
			if len(sample) > 256 {
				sample = sample[:256]
			}
			logger.Warnf("[WS] bad frame conn=%s err=%v sample=%q", client.ConnID, perr, sample)
			continue
		}

		if err := s.disp.Dispatch(ctx, s, frame, client); err != nil {
			// Protocol-visible failures were already signaled to the
			// client by the handler; this is for the operator.
			logger.Infof("[WS] event=%s conn=%s: %v", frame.Event, client.ConnID, err)
		}
	}

	s.teardown(ctx, client)
}

// teardown runs once the read loop exits: identity unbinds, every group
// membership is dropped, and the writer is told to finish.
func (s *Server) teardown(ctx context.Context, client *Client) {
	userID, stillOnline := s.reg.Unregister(client)
	s.router.LeaveAll(client)
	client.CloseSend()

	if userID != "" && !stillOnline {
		tctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.users.TouchLastSeen(tctx, userID); err != nil {
			logger.Warnf("[WS] last_seen user=%s: %v", userID, err)
		}
	}
	logger.Infof("[WS] closed conn=%s user=%s", client.ConnID, userID)
}

// writePump is the single writer for one connection: payload frames from
// the send queue, periodic pings, and the final close frame.
func (s *Server) writePump(c *Client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
		_ = c.WS.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = c.WS.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			if !ok {
				return
			}
			_ = c.WS.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WS.WriteMessage(websocket.TextMessage, payload); err != nil {
				logger.Infof("[WS] write err conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-ticker.C:
			if err := c.WS.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(writeWait)); err != nil {
				logger.Infof("[WS] ping err conn=%s err=%v", c.ConnID, err)
				return
			}
		case <-c.Done():
			return
		}
	}
}
