package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/voltroute/internal/adapters/nats"
	"github.com/samirrijal/voltroute/internal/core/domain"
	"github.com/samirrijal/voltroute/internal/core/usecases"
	"github.com/samirrijal/voltroute/internal/pkg/metrics"
)

const (
	wsWriteWait    = 5 * time.Second
	wsPingInterval = 30 * time.Second
)

var errConnClosed = errors.New("websocket closed")

// wsConn serializes writes to one WebSocket connection.
type wsConn struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	closed atomic.Bool
}

func (w *wsConn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return w.write(websocket.TextMessage, data)
}

func (w *wsConn) write(messageType int, data []byte) error {
	if w.closed.Load() {
		return errConnClosed
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	if err := w.conn.WriteMessage(messageType, data); err != nil {
		w.closed.Store(true)
		return err
	}
	return nil
}

// keepAlive pings until done is closed or a write fails.
func (w *wsConn) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := w.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// mapTarget is the browser map container behind a WebSocket. It implements
// ports.RenderTarget.
type mapTarget struct {
	id string
	ws *wsConn
}

func (t *mapTarget) ID() string     { return t.id }
func (t *mapTarget) Attached() bool { return !t.ws.closed.Load() }

func (t *mapTarget) Send(cmd domain.RenderCommand) error {
	return t.ws.writeJSON(cmd)
}

// MapSocketHandler mounts the shared map surface in the connecting browser and
// feeds renderer events back into it. Only one browser holds the surface; a
// second connection is told the surface is busy and closed.
// Clients send domain.InteractionEvent JSON, starting with {"type":"ready"}
// once their map has loaded.
func MapSocketHandler(view *usecases.MapView) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		ws := &wsConn{conn: c}
		target := &mapTarget{id: "ws-" + uuid.NewString(), ws: ws}
		log := slog.Default().With("container", target.id, "remote", c.RemoteAddr().String())

		h, err := view.Attach(target)
		if err != nil {
			log.Warn("map attach refused", "error", err)
			_ = ws.writeJSON(map[string]string{"error": err.Error()})
			return
		}
		log.Info("map container attached", "surface", h)

		done := make(chan struct{})
		go ws.keepAlive(done)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}
			var ev domain.InteractionEvent
			if err := json.Unmarshal(msg, &ev); err != nil || ev.Type == "" {
				_ = ws.writeJSON(map[string]string{"error": "invalid event"})
				continue
			}
			view.Dispatch(h, ev)
		}

		close(done)
		ws.closed.Store(true)
		view.Detach(h)
		log.Info("map container detached", "surface", h)
	}
}

// eventsMessage is sent from client to subscribe/unsubscribe to channels.
type eventsMessage struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Channel string `json:"channel"` // "route" | "notifications" | "reachability" | "all"
}

func channelSubject(channel string) (string, bool) {
	switch channel {
	case "", "all":
		return natsadapter.SubjectAll, true
	case "route":
		return natsadapter.SubjectRouteUpdated, true
	case "notifications":
		return natsadapter.SubjectNotificationsPrefix + ">", true
	case "reachability":
		return natsadapter.SubjectReachabilityResolved, true
	default:
		return "", false
	}
}

// EventsSocketHandler relays domain events from NATS to connected clients.
// Every client starts subscribed to all events and may narrow with
// {"action":"unsubscribe","channel":"all"} followed by specific subscribes.
func EventsSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()
		ws := &wsConn{conn: c}

		if nc == nil {
			_ = ws.writeJSON(map[string]string{"error": "event stream not configured"})
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		subs := make(map[string]*nats.Subscription)
		relay := func(msg *nats.Msg) {
			_ = ws.writeJSON(map[string]any{
				"subject": msg.Subject,
				"data":    json.RawMessage(msg.Data),
			})
		}

		sub, err := nc.Subscribe(natsadapter.SubjectAll, relay)
		if err != nil {
			slog.Error("ws events subscribe", "error", err)
			return
		}
		subs[natsadapter.SubjectAll] = sub

		done := make(chan struct{})
		go ws.keepAlive(done)

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m eventsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = ws.writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}
			subject, ok := channelSubject(m.Channel)
			if !ok {
				_ = ws.writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = ws.writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				s, err := nc.Subscribe(subject, relay)
				if err != nil {
					_ = ws.writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				subs[subject] = s
				_ = ws.writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				s, exists := subs[subject]
				if !exists {
					_ = ws.writeJSON(map[string]string{"error": "not subscribed to " + subject})
					continue
				}
				_ = s.Unsubscribe()
				delete(subs, subject)
				_ = ws.writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})

			default:
				_ = ws.writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		ws.closed.Store(true)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
	}
}
