package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const wsPushInterval = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Dashboard connects from localhost tooling; origin checks stay with
	// the auth gate.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsHandler streams usage summaries to the ops dashboard over a websocket
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	decision, ok := s.authorize(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("ops feed connected", "caller", decision.CallerID)

	// Reader drains control frames and signals close.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPushInterval)
	defer ticker.Stop()

	push := func() error {
		summary := s.ledger.Summary(r.Context(), 1, decision.CallerID)
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(summary)
	}

	if err := push(); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := push(); err != nil {
				s.logger.Debug("ops feed write failed, closing", "error", err)
				return
			}
		}
	}
}
