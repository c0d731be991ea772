package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/middleware"
	"github.com/smart-disease-client/internal/presenter"
	"github.com/smart-disease-client/internal/session"
)

const (
	eventsWriteWait = 10 * time.Second
	eventsPongWait  = 60 * time.Second
	eventsPingEvery = (eventsPongWait * 9) / 10
)

// sessionEvent is pushed to the socket after every session transition.
type sessionEvent struct {
	Type     string                 `json:"type"`
	Snapshot session.Snapshot       `json:"snapshot"`
	Render   *presenter.RenderModel `json:"render,omitempty"`
}

func newSessionEvent(snap session.Snapshot) sessionEvent {
	evt := sessionEvent{Type: "state", Snapshot: snap}
	if snap.Status == domain.StatusSucceeded {
		model := presenter.Present(snap.Result)
		evt.Render = &model
	}
	return evt
}

// handleSessionEvents streams the session's state over a websocket until the
// client goes away or the session is closed. Inbound messages are ignored.
func (s *Server) handleSessionEvents(c *gin.Context) {
	ctrl := s.controller(c)
	log := s.logger.WithField("session_id", ctrl.ID())

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	if err := conn.SetReadDeadline(time.Now().Add(eventsPongWait)); err != nil {
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	})

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		// Unblocks the read loop when the writer stops first.
		defer conn.Close()
		ticker := time.NewTicker(eventsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-updates:
				if !ok {
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
						time.Now().Add(eventsWriteWait))
					return
				}
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(newSessionEvent(snap)); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(eventsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	log.WithField("correlation_id", c.GetString(middleware.CorrelationIDKey)).Debug("Session event stream opened")

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			cancel()
			<-writerDone
			log.WithFields(logrus.Fields{"reason": err.Error()}).Debug("Session event stream closed")
			return
		}
	}
}

func newUpgrader(allowed []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     allowOrigin(allowed),
	}
}

// allowOrigin accepts same-host upgrades and the configured CORS origins.
func allowOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || o == origin {
				return true
			}
		}
		return origin == "http://"+r.Host || origin == "https://"+r.Host
	}
}
