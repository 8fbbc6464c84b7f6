package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"agentgate/internal/domain"
)

// ErrInvalidPort is returned when gateway port is not in 0..65535.
var ErrInvalidPort = errors.New("gateway port must be 0-65535")

// maxToolBodyBytes caps the accepted size of a tool invocation body.
const maxToolBodyBytes = 1 << 20

// Server is the HTTP surface of the agent: health, identity, tool
// invocation and the WebSocket chat endpoint. Optionally enforces
// Bearer token auth on all routes.
type Server struct {
	cfg         *domain.GatewayConfig
	identity    *domain.AgentIdentity
	server      *http.Server
	addr        string
	addrMu      sync.RWMutex
	listenErr   error
	listenErrMu sync.Mutex
	listener    net.Listener
}

// ToolGateway is what the HTTP layer needs from the dispatcher: schema-checked
// invocation and the list of exposed definitions.
type ToolGateway interface {
	domain.ToolInvoker
	Definitions() []domain.ToolDefinition
}

// NewServer builds a gateway server. Port 0 means pick a random port.
// identity backs /agent-info; tools backs /tools and /tools/{name}; brain,
// when non-nil, backs chat on /ws. Returns ErrInvalidPort if port is not
// in 0..65535.
func NewServer(cfg *domain.GatewayConfig, identity *domain.AgentIdentity, tools ToolGateway, brain ChatBrain) (*Server, error) {
	if cfg == nil {
		cfg = &domain.GatewayConfig{Port: 4000, Auth: domain.AuthConfig{}}
	}
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, ErrInvalidPort
	}
	s := &Server{cfg: cfg, identity: identity}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /agent-info", s.handleAgentInfo)
	mux.HandleFunc("GET /tools", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"tools": definitionsOrEmpty(tools)})
	})
	mux.HandleFunc("POST /tools/{name}", func(w http.ResponseWriter, r *http.Request) {
		s.handleToolCall(w, r, tools)
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		HandleWS(w, r, brain, s.identity)
	})
	handler := BearerAuth(cfg.Auth.AuthToken)(mux)

	s.server = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleAgentInfo(w http.ResponseWriter, r *http.Request) {
	if s.identity == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no agent configured"})
		return
	}
	writeJSON(w, http.StatusOK, s.identity)
}

// handleToolCall invokes the named tool with the request body as arguments.
// The response is always a result envelope with HTTP 200; tool failures are
// reported inside the envelope, not as HTTP errors.
func (s *Server) handleToolCall(w http.ResponseWriter, r *http.Request, tools ToolGateway) {
	if tools == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no tools configured"})
		return
	}
	name := r.PathValue("name")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxToolBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusOK, domain.Failure("reading request body: "+err.Error()))
		return
	}
	result := tools.HandleToolCall(r.Context(), name, body)
	writeJSON(w, http.StatusOK, result)
}

func definitionsOrEmpty(tools ToolGateway) []domain.ToolDefinition {
	if tools == nil {
		return []domain.ToolDefinition{}
	}
	defs := tools.Definitions()
	if defs == nil {
		return []domain.ToolDefinition{}
	}
	return defs
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// Addr returns the bound address (e.g. "127.0.0.1:4000") after Run has started. Empty before Run.
func (s *Server) Addr() string {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.addr
}

// ListenErr returns the error from the initial Listen in Run(), if any. Used when Addr() is still empty after Run() has been started.
func (s *Server) ListenErr() error {
	s.listenErrMu.Lock()
	defer s.listenErrMu.Unlock()
	return s.listenErr
}

// Handler returns the HTTP handler used by the server (BearerAuth + routes). For testing without binding.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// netListen is the function used to listen; tests may replace it to force Listen errors.
var netListen = func(network, address string) (net.Listener, error) {
	return net.Listen(network, address)
}

// Run listens on the configured port and serves until shutdown is closed. Returns nil when shutdown.
func (s *Server) Run(shutdown <-chan struct{}) error {
	addr := ":" + strconv.Itoa(s.cfg.Port)
	ln, err := netListen("tcp", addr)
	if err != nil {
		s.listenErrMu.Lock()
		s.listenErr = err
		s.listenErrMu.Unlock()
		return err
	}
	s.addrMu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.addrMu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.server.Serve(ln)
	}()

	<-shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = serverShutdown(s.server, ctx)
	if err != nil {
		return err
	}
	<-done
	return nil
}

// serverShutdown is the function used to shut down the server; tests may replace it.
var serverShutdown = func(srv *http.Server, ctx context.Context) error {
	return srv.Shutdown(ctx)
}
