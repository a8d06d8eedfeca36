package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/docbind/internal/auth"
	"github.com/nerrad567/docbind/internal/database"
	"github.com/nerrad567/docbind/internal/infrastructure/config"
	"github.com/nerrad567/docbind/internal/infrastructure/logging"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Store is the part of a database exposed over the API.
// *database.Database satisfies it.
type Store interface {
	ID() string
	Name() string
	Target() string
	State() database.State
	Connect(ctx context.Context) (database.Handle, error)
	Disconnect(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Schema(ctx context.Context) (database.SchemaStatus, bool, error)
	Models() []database.Model
	Plugins() []database.Plugin
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	Security config.SecurityConfig
	Logger   *logging.Logger
	Database Store
	Version  string

	// Hub carries database state changes to WebSocket clients and must be
	// registered as an observer before the Database is created. When nil
	// the server makes its own, which never receives events.
	Hub *Hub
}

// Server is the admin HTTP API server.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	secCfg   config.SecurityConfig
	logger   *logging.Logger
	db       Store
	accounts *auth.Authenticator
	version  string
	server   *http.Server
	hub      *Hub
	cancel   context.CancelFunc // cancels background goroutines on Close()

	addrMu sync.RWMutex
	addr   string // bound address once listening
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
//
// Returns:
//   - *Server: Configured server ready to start
//   - error: If required dependencies are missing or an account is invalid
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Database == nil {
		return nil, fmt.Errorf("database is required")
	}

	accounts, err := auth.NewAuthenticator(toAccounts(deps.Security.Users))
	if err != nil {
		return nil, fmt.Errorf("loading API accounts: %w", err)
	}

	s := &Server{
		cfg:      deps.Config,
		wsCfg:    deps.WS,
		secCfg:   deps.Security,
		logger:   deps.Logger.With("component", "api"),
		db:       deps.Database,
		accounts: accounts,
		version:  deps.Version,
	}

	s.hub = deps.Hub

	return s, nil
}

// Start begins listening for HTTP connections.
//
// It starts the WebSocket hub, binds the listener synchronously (so a
// port conflict is reported here), and serves in a background goroutine.
// The server can be stopped with Close().
//
// Parameters:
//   - ctx: Parent context for background goroutines
//
// Returns:
//   - error: If the listener cannot be bound
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("binding API listener: %w", err)
	}

	s.addrMu.Lock()
	s.addr = ln.Addr().String()
	s.addrMu.Unlock()

	s.logger.Info("API server starting", "address", s.Addr())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the address the server is listening on, or "" before Start.
func (s *Server) Addr() string {
	s.addrMu.RLock()
	defer s.addrMu.RUnlock()
	return s.addr
}

// Hub returns the WebSocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// toAccounts converts configured users to auth accounts.
func toAccounts(users []config.UserConfig) []auth.Account {
	accounts := make([]auth.Account, 0, len(users))
	for _, u := range users {
		accounts = append(accounts, auth.Account{
			Username:     u.Username,
			PasswordHash: u.PasswordHash,
			Role:         auth.Role(u.Role),
		})
	}
	return accounts
}
