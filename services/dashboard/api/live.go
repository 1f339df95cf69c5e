package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/chart"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/common"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/scheduler"
	"github.com/iulianpascalau/storage-console-metrics/services/dashboard/timespan"
	"github.com/tidwall/gjson"
)

const (
	liveWriteTimeout = 5 * time.Second
	livePingInterval = 30 * time.Second
	liveOutboxSize   = 4
	liveReadLimit    = 4096
	// liveSpanPath is the field of a client message carrying the requested span, e.g. {"span":"now-7d"}
	liveSpanPath = "span"
)

var errMalformedLiveMessage = errors.New("malformed live chart message")

func newLiveUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[normalizeHost(origin)] = struct{}{}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return isOriginAllowed(r, allowed)
		},
	}
}

// isOriginAllowed accepts requests without an Origin header, same-origin requests and the configured origins
func isOriginAllowed(r *http.Request, allowed map[string]struct{}) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}

	originHost := strings.ToLower(strings.TrimSpace(u.Host))
	if originHost == strings.ToLower(strings.TrimSpace(r.Host)) {
		return true
	}
	_, found := allowed[originHost]

	return found
}

// normalizeHost accepts both "https://host:port" and "host:port"
func normalizeHost(origin string) string {
	origin = strings.TrimSpace(origin)
	u, err := url.Parse(origin)
	if err == nil && len(u.Host) > 0 {
		origin = u.Host
	}

	return strings.ToLower(origin)
}

// liveError is pushed to the client when a message can not be applied
type liveError struct {
	Error string `json:"error"`
}

// liveScheduler is the part of the refresh scheduler a live view drives
type liveScheduler interface {
	Start(req common.ChartRequest)
	UpdateTargets(targets []common.Target)
	UpdateSpan(span timespan.Span)
	Stop()
}

type liveSession struct {
	id        string
	conn      *websocket.Conn
	scheduler liveScheduler
	outbox    chan chart.Bundle
	errors    chan liveError
}

// handleLiveChart upgrades the connection and runs one refresh scheduler for it until the client goes away
func (s *server) handleLiveChart(c *gin.Context) {
	kind, span, ok := s.parseChartParams(c)
	if !ok {
		return
	}

	conn, err := s.liveUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug("websocket upgrade failed", "error", err)
		return
	}

	session := &liveSession{
		id:     uuid.NewString(),
		conn:   conn,
		outbox: make(chan chart.Bundle, liveOutboxSize),
		errors: make(chan liveError, 1),
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	session.scheduler, err = scheduler.NewRefreshScheduler(scheduler.ArgsRefreshScheduler{
		Name:     "live-" + session.id,
		Context:  ctx,
		Engine:   s.engine,
		Interval: s.refreshInterval,
		Sink:     session.push,
	})
	if err != nil {
		log.Error("failed to create the live chart scheduler", "error", err)
		_ = conn.Close()
		return
	}

	s.addSession(session)
	defer s.removeSession(session.id)

	subscriptionID, err := s.inventory.Subscribe(func(targets []common.Target) {
		session.scheduler.UpdateTargets(targets)
	})
	if err != nil {
		log.Warn("live chart view will not follow inventory changes", "session", session.id, "error", err)
	}
	defer s.inventory.Unsubscribe(subscriptionID)

	log.Debug("live chart view connected", "session", session.id, "chart", kind, "span", span,
		"remote", c.Request.RemoteAddr)

	session.scheduler.Start(common.ChartRequest{
		Chart:   kind,
		Targets: s.inventory.Targets(),
		Span:    span,
	})
	defer session.scheduler.Stop()

	done := make(chan struct{})
	go session.readLoop(done)

	session.writeLoop(ctx, done)
	_ = conn.Close()

	log.Debug("live chart view disconnected", "session", session.id)
}

func (s *server) addSession(session *liveSession) {
	s.sessionsWG.Add(1)

	s.mutSessions.Lock()
	s.sessions[session.id] = session
	s.mutSessions.Unlock()
}

func (s *server) removeSession(id string) {
	s.mutSessions.Lock()
	delete(s.sessions, id)
	s.mutSessions.Unlock()

	s.sessionsWG.Done()
}

// push is the scheduler sink. It runs under the scheduler lock so it never blocks: when the client is slow
// the oldest pending bundle is dropped.
func (ls *liveSession) push(bundle chart.Bundle) {
	for {
		select {
		case ls.outbox <- bundle:
			return
		default:
		}

		select {
		case <-ls.outbox:
			log.Debug("slow live chart client, dropped a bundle", "session", ls.id)
		default:
		}
	}
}

func (ls *liveSession) readLoop(done chan struct{}) {
	defer close(done)

	ls.conn.SetReadLimit(liveReadLimit)
	for {
		_, data, err := ls.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug("live chart read error", "session", ls.id, "error", err)
			}
			return
		}

		span, err := parseLiveMessage(data)
		if err != nil {
			ls.pushError(err)
			continue
		}

		ls.scheduler.UpdateSpan(span)
	}
}

// parseLiveMessage extracts the requested span of a client message
func parseLiveMessage(data []byte) (timespan.Span, error) {
	if !gjson.ValidBytes(data) {
		return "", errMalformedLiveMessage
	}

	span := gjson.GetBytes(data, liveSpanPath)
	if span.Type != gjson.String {
		return "", fmt.Errorf("%w: missing %q", errMalformedLiveMessage, liveSpanPath)
	}

	return timespan.Parse(span.String())
}

func (ls *liveSession) pushError(err error) {
	select {
	case ls.errors <- liveError{Error: err.Error()}:
	default:
	}
}

func (ls *liveSession) writeLoop(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case bundle := <-ls.outbox:
			if err := ls.write(bundle); err != nil {
				return
			}
		case msg := <-ls.errors:
			if err := ls.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			err := ls.conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(liveWriteTimeout))
			if err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			_ = ls.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(liveWriteTimeout))
			return
		}
	}
}

func (ls *liveSession) write(payload interface{}) error {
	_ = ls.conn.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
	return ls.conn.WriteJSON(payload)
}
