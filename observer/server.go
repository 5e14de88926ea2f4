// Package observer streams world snapshots to websocket clients.
package observer

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	sendQueue    = 16
	writeTimeout = 5 * time.Second
	readTimeout  = 60 * time.Second
)

type Options struct {
	// AllowRemote accepts non-loopback clients.
	AllowRemote bool
	Log         *zap.Logger
}

type client struct {
	id   string
	conn *websocket.Conn
	out  chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.out) })
}

// Server fans out broadcast frames to every connected client. Clients that
// fall behind lose frames instead of slowing the broadcaster.
type Server struct {
	opts     Options
	log      *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	last    []byte
	closed  bool

	nextID  atomic.Uint64
	dropped atomic.Uint64
}

func NewServer(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		opts: opts,
		log:  log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Dropped counts frames skipped because a client queue was full.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

// Broadcast marshals v once and queues it for every client. The most recent
// frame is replayed to clients that connect later.
func (s *Server) Broadcast(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("observer: marshal: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.last = b
	for _, c := range s.clients {
		select {
		case c.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.opts.AllowRemote && !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			s.log.Debug("websocket upgrade failed", zap.Error(err))
			return
		}
		defer conn.Close()

		c := &client{
			id:   fmt.Sprintf("O%d", s.nextID.Add(1)),
			conn: conn,
			out:  make(chan []byte, sendQueue),
		}
		if !s.register(c) {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
			return
		}
		s.log.Info("observer connected", zap.String("client", c.id), zap.String("remote", r.RemoteAddr))
		defer s.unregister(c)

		writeDone := make(chan struct{})
		go func() {
			defer close(writeDone)
			for b := range c.out {
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					return
				}
			}
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
		}()

		// Inbound messages are ignored; reading keeps control frames flowing.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		s.unregister(c)
		select {
		case <-writeDone:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (s *Server) register(c *client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.clients[c.id] = c
	if s.last != nil {
		c.out <- s.last
	}
	return true
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	_, ok := s.clients[c.id]
	delete(s.clients, c.id)
	s.mu.Unlock()
	if ok {
		s.log.Info("observer disconnected", zap.String("client", c.id))
	}
	c.close()
}

// Close disconnects every client and rejects new ones.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	clients := s.clients
	s.clients = make(map[string]*client)
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
