package tcp

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"sync"
	"time"

	"github.com/example/homecare/backend/internal/service"
)

// ServerConfig bounds the server's resource use.
type ServerConfig struct {
	Addr            string
	MaxConnections  int
	MaxPayloadBytes int
	IdleTimeout     time.Duration
}

// Server owns the listening socket and wires the connection manager, framer
// and dispatcher together for every accepted connection. Each connection gets
// one goroutine, so frames on a single connection are processed and answered
// strictly in arrival order; connections are independent of each other.
type Server struct {
	cfg        ServerConfig
	manager    *ConnManager
	dispatcher *Dispatcher

	listener net.Listener
	wg       sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewServer constructs a server. Call Listen before Serve.
func NewServer(cfg ServerConfig, manager *ConnManager, dispatcher *Dispatcher) *Server {
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = 1 << 20
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 30 * time.Second
	}
	return &Server{cfg: cfg, manager: manager, dispatcher: dispatcher}
}

// Listen binds the TCP socket. Use ":0" for a random port in tests.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	return nil
}

// Address returns the bound address in "host:port" format.
func (s *Server) Address() string {
	return s.listener.Addr().String()
}

// Serve accepts connections until ctx is cancelled or Close is called. At
// capacity, new connections are closed immediately without a response.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.Close()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed || ctx.Err() != nil {
				s.wg.Wait()
				return nil
			}
			return err
		}

		id, ok := s.manager.Admit(conn)
		if !ok {
			log.Printf("connection from %s refused: at capacity", conn.RemoteAddr())
			conn.Close()
			continue
		}

		s.wg.Add(1)
		go s.handleConnection(ctx, id, conn)
	}
}

// Close stops the listener and force-closes every live connection.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.manager.CloseAll()
	return err
}

func (s *Server) handleConnection(ctx context.Context, id string, conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.manager.Release(id)
		conn.Close()
	}()

	framer := NewFramer(s.cfg.MaxPayloadBytes)
	buf := make([]byte, 4096)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
			return
		}
		n, err := conn.Read(buf)
		if n > 0 {
			for _, frame := range framer.Push(buf[:n]) {
				response := s.handleFrame(ctx, frame)
				if writeErr := s.writeResponse(conn, response); writeErr != nil {
					log.Printf("write response to %s: %v", conn.RemoteAddr(), writeErr)
					return
				}
			}
		}
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				log.Printf("connection from %s idle for %s, closing", conn.RemoteAddr(), s.cfg.IdleTimeout)
			}
			return
		}
	}
}

// handleFrame turns one frame into one response envelope. Transport-level
// failures (oversize frame, malformed JSON) produce an error envelope but
// leave the connection open for subsequent requests.
func (s *Server) handleFrame(ctx context.Context, frame Frame) any {
	if frame.Oversize {
		s.manager.CountError()
		return NewErrorResponse(
			service.NewError(service.CodePayloadTooLarge, 413, "request payload exceeds the maximum frame size"),
		)
	}

	var request Request
	if err := json.Unmarshal(frame.Data, &request); err != nil {
		s.manager.CountError()
		return NewErrorResponse(
			service.NewError(service.CodeInvalidJSON, 400, "request frame is not valid JSON"),
		)
	}

	s.manager.CountRequest()
	response, ok := s.dispatcher.Dispatch(ctx, request)
	if !ok {
		s.manager.CountError()
	}
	return response
}

func (s *Server) writeResponse(conn net.Conn, response any) error {
	if err := conn.SetWriteDeadline(time.Now().Add(s.cfg.IdleTimeout)); err != nil {
		return err
	}
	// Encode appends the '\n' frame delimiter; JSON escaping guarantees the
	// payload itself contains no raw newline.
	return json.NewEncoder(conn).Encode(response)
}
