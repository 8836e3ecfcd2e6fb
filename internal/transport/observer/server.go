// Package observer serves the local inspector feed: a bootstrap summary over
// plain HTTP and a live audit-event stream over websocket. Loopback only.
package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"idprop.dev/internal/idprop"
	"idprop.dev/internal/inspectproto"
	"idprop.dev/internal/scene"
)

type Server struct {
	doc        *scene.Document
	documentID string
	log        *log.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64

	mu      sync.Mutex
	clients map[uint64]chan idprop.Event
}

func NewServer(doc *scene.Document, documentID string, logger *log.Logger) *Server {
	return &Server{
		doc:        doc,
		documentID: documentID,
		log:        logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback-gated below
		},
		clients: make(map[uint64]chan idprop.Event),
	}
}

// WriteEvent implements idprop.EventSink: events fan out to every connected
// client, dropping per-client when a reader falls behind.
func (s *Server) WriteEvent(ev idprop.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.clients {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		resp := inspectproto.BootstrapResponse{
			ProtocolVersion: inspectproto.Version,
			DocumentID:      s.documentID,
			Counts:          s.doc.Counts(),
			Counters:        s.counterValues(),
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) FeedHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		id := s.nextID.Add(1)
		ch := make(chan idprop.Event, 256)
		s.mu.Lock()
		s.clients[id] = ch
		s.mu.Unlock()
		s.log.Printf("inspector %d connected from %s", id, r.RemoteAddr)

		defer func() {
			s.mu.Lock()
			delete(s.clients, id)
			s.mu.Unlock()
			_ = conn.Close()
			s.log.Printf("inspector %d disconnected", id)
		}()

		// An optional SUBSCRIBE greeting; tolerate clients that skip it.
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var sub inspectproto.SubscribeMsg
		_ = conn.ReadJSON(&sub)
		_ = conn.SetReadDeadline(time.Time{})

		// Drain further client frames so pings/closes are processed.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		for ev := range ch {
			msg := inspectproto.EventMsg{
				Type:            inspectproto.TypeEvent,
				ProtocolVersion: inspectproto.Version,
				Event:           ev,
			}
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		}
	}
}

// counterValues reads each kind's highest counter copy, without minting.
func (s *Server) counterValues() map[string]int64 {
	out := make(map[string]int64, len(scene.Kinds))
	for _, kind := range scene.Kinds {
		key := idprop.CounterKey(kind)
		var max int64
		for _, sc := range s.doc.Scenes() {
			if v := sc.PropInt(key); v > max {
				max = v
			}
		}
		out[string(kind)] = max
	}
	return out
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	host = strings.Trim(host, "[]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
