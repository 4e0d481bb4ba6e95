// Package broadcast tails the snapshot CSV the book engine writes and
// republishes each completed row as a JSON object over a WebSocket: another
// reader of the same file, promised nothing beyond the writer's periodic
// flushes and never shown a mid-write partial line.
package broadcast

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// pollInterval is how often the tailer checks the CSV file for new
// complete lines.
const pollInterval = 200 * time.Millisecond

// Row is one snapshot line, decoded from CSV into a JSON-friendly shape
// keyed by the header's own column names.
type Row map[string]string

// Server tails path and fans each newly completed CSV row out, as JSON, to
// every connected WebSocket client.
type Server struct {
	path   string
	log    zerolog.Logger
	header []string

	upgrader websocket.Upgrader

	mu      sync.Mutex
	nextID  uint64
	clients map[uint64]chan []byte
}

// NewServer creates a Server that will tail the CSV file at path once
// Run is started.
func NewServer(path string, log zerolog.Logger) *Server {
	return &Server{
		path:    path,
		log:     log.With().Str("component", "broadcast").Logger(),
		clients: make(map[uint64]chan []byte),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and registers it as a broadcast
// recipient until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	id, send := s.register()
	s.log.Info().Int("clients", len(s.clients)).Msg("client connected")

	go s.writePump(conn, send)
	go s.readPump(conn, id)
}

// register allocates a new client id and send channel, recorded so
// broadcast can reach it and unregister can tear it down.
func (s *Server) register() (uint64, chan []byte) {
	send := make(chan []byte, 256)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.clients[id] = send
	return id, send
}

// readPump drains (and discards) client frames so the connection's close
// and ping/pong control messages are handled; this server never expects
// application messages from a client.
func (s *Server) readPump(conn *websocket.Conn, id uint64) {
	defer s.unregister(id)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, send chan []byte) {
	defer conn.Close()
	for msg := range send {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (s *Server) unregister(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if send, ok := s.clients[id]; ok {
		delete(s.clients, id)
		close(send)
	}
	s.log.Info().Int("clients", len(s.clients)).Msg("client disconnected")
}

func (s *Server) broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, send := range s.clients {
		select {
		case send <- data:
		default:
			s.log.Warn().Msg("client send buffer full, dropping it")
			delete(s.clients, id)
			close(send)
		}
	}
}

// Run polls path for newly appended, newline-terminated rows until ctx is
// cancelled, parsing the header once and every subsequent complete line
// into a Row that is marshaled to JSON and broadcast to all clients. It
// blocks; call it in its own goroutine.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var offset int64
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.poll(&offset); err != nil && !os.IsNotExist(err) {
				s.log.Error().Err(err).Msg("polling snapshot CSV failed")
			}
		}
	}
}

// poll reads every complete line appended to the file since offset,
// advancing offset only up to the last '\n' seen so a line still being
// written is never read as a partial row.
func (s *Server) poll(offset *int64) error {
	f, err := os.Open(s.path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() <= *offset {
		return nil
	}

	if _, err := f.Seek(*offset, 0); err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	consumed := *offset
	for {
		line, err := reader.ReadString('\n')
		if line == "" && err != nil {
			break
		}
		if !strings.HasSuffix(line, "\n") {
			// Partial tail line; stop without advancing past it.
			break
		}
		consumed += int64(len(line))
		s.handleLine(strings.TrimRight(line, "\n"))
		if err != nil {
			break
		}
	}
	*offset = consumed
	return nil
}

func (s *Server) handleLine(line string) {
	fields := strings.Split(line, ",")
	if s.header == nil {
		s.header = fields
		return
	}
	if len(fields) != len(s.header) {
		s.log.Warn().Int("want", len(s.header)).Int("got", len(fields)).Msg("row column count mismatch, dropping")
		return
	}

	row := make(Row, len(fields))
	for i, col := range s.header {
		row[col] = fields[i]
	}

	data, err := json.Marshal(row)
	if err != nil {
		s.log.Error().Err(err).Msg("marshaling row to JSON failed")
		return
	}
	s.broadcast(data)
}
