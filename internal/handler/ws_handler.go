package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/gradebook-backend/internal/config"
	"github.com/stemsi/gradebook-backend/internal/metrics"
	"github.com/stemsi/gradebook-backend/internal/middleware"
	"github.com/stemsi/gradebook-backend/internal/model"
	"github.com/stemsi/gradebook-backend/internal/response"
	ws "github.com/stemsi/gradebook-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams committed grade history entries over WebSocket.
type WSHandler struct {
	rdb      *redis.Client
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(rdb *redis.Client, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		rdb:      rdb,
		log:      log.With().Str("component", "ws_handler").Logger(),
		upgrader: buildUpgrader(allowedOrigins),
	}
}

// HistoryStream godoc
// WS /ws/v1/grades/history?token=&student_id=&subject=
// Pushes every committed grade history entry matching the filter. Clients
// may change the filter with {"action":"filter",...} and ping with
// {"action":"ping"}.
func (h *WSHandler) HistoryStream(c *gin.Context) {
	p, ok := middleware.GetPrincipal(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	filter := ws.Filter{Subject: c.Query("subject")}
	if raw := c.Query("student_id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id <= 0 {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
		filter.StudentID = id
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := h.rdb.Subscribe(ctx, config.CacheKey.GradeHistoryChannel())
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		h.log.Error().Err(err).Msg("History subscription failed")
		ws.WriteError(conn, "history feed unavailable")
		return
	}

	metrics.WSClients.Inc()
	defer metrics.WSClients.Dec()

	wsLog := h.log.With().Int("user_id", p.UserID).Logger()
	wsLog.Info().Msg("History listener connected")

	requests := make(chan ws.Request)
	go h.readLoop(ctx, cancel, conn, requests, wsLog)

	ws.WriteTyped(conn, ws.SubscribedResponse{Event: ws.EventSubscribed, Filter: filter})

	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()
	messages := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			wsLog.Debug().Msg("History listener disconnected")
			return

		case req := <-requests:
			switch req.Action {
			case ws.ActionPing:
				err = ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
			case ws.ActionFilter:
				filter = ws.Filter{StudentID: req.StudentID, Subject: req.Subject}
				err = ws.WriteTyped(conn, ws.SubscribedResponse{Event: ws.EventSubscribed, Filter: filter})
			default:
				err = ws.WriteError(conn, "unknown action: "+string(req.Action))
			}

		case msg, ok := <-messages:
			if !ok {
				return
			}
			var entry model.GradeHistory
			if jerr := json.Unmarshal([]byte(msg.Payload), &entry); jerr != nil {
				wsLog.Warn().Err(jerr).Msg("Dropping malformed history message")
				continue
			}
			if !filter.Matches(entry) {
				continue
			}
			err = ws.WriteTyped(conn, ws.HistoryEvent{Event: ws.EventHistory, Entry: entry})

		case <-ping.C:
			err = ws.WritePing(conn)
		}

		if err != nil {
			wsLog.Debug().Err(err).Msg("Write failed, closing")
			return
		}
	}
}

// readLoop owns all reads on conn and hands client requests to the writer.
func (h *WSHandler) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out chan<- ws.Request, log zerolog.Logger) {
	defer cancel()
	ws.KeepAlive(conn)
	for {
		var req ws.Request
		if err := ws.ReadJSON(conn, &req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("Unexpected close")
			}
			return
		}
		select {
		case out <- req:
		case <-ctx.Done():
			return
		}
	}
}
