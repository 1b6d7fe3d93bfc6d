package adminserver

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var statsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// statsStreamInterval is how often a connected client receives a fresh
// metrics snapshot.
const statsStreamInterval = 2 * time.Second

// handleStatsStream upgrades the request to a websocket connection and
// pushes a JSON metrics snapshot on a fixed interval until the client
// disconnects, mirroring the teacher's change-stream websocket
// handler (pkg/server/handlers/websocket.go) with a ticker push in
// place of an oplog tail.
func (s *Server) handleStatsStream(w http.ResponseWriter, r *http.Request) {
	conn, err := statsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("adminserver: websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(statsStreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			snap := s.collector.Snapshot()
			payload, err := json.Marshal(snap)
			if err != nil {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-r.Context().Done():
			return
		}
	}
}
