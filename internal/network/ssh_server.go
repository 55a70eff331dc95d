// Package network serves the trace inspector to remote terminals over SSH.
package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/activeterm"
	bm "github.com/charmbracelet/wish/bubbletea"
	gossh "golang.org/x/crypto/ssh"

	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/trace"
	"github.com/bnema/wayseat/internal/ui"
)

var ErrTooManySessions = errors.New("inspector already has the maximum number of sessions")

// InspectorServer serves a read-only trace browser over SSH. Every session
// gets its own model over the same event snapshot.
type InspectorServer struct {
	cfg    config.InspectorConfig
	title  string
	events []trace.Event

	sshServer *ssh.Server
	listener  net.Listener

	mu       sync.Mutex
	sessions int

	// Lifecycle
	stopOnce sync.Once
	wg       sync.WaitGroup

	// OnAuthRequest is asked about keys that are not whitelisted when
	// whitelist-only mode is on. Approved keys are added to the whitelist.
	OnAuthRequest func(addr, fingerprint string) bool
}

func NewInspectorServer(cfg config.InspectorConfig, title string, events []trace.Event) *InspectorServer {
	return &InspectorServer{
		cfg:    cfg,
		title:  title,
		events: events,
	}
}

// Start begins listening for SSH connections. The server stops when ctx is
// cancelled or Stop is called.
func (s *InspectorServer) Start(ctx context.Context) error {
	server, err := wish.NewServer(
		wish.WithHostKeyPath(s.cfg.HostKeyPath),
		wish.WithPublicKeyAuth(s.publicKeyAuth),
		wish.WithMiddleware(
			bm.Middleware(s.teaHandler),
			activeterm.Middleware(),
			s.sessionLimitMiddleware(),
			s.loggingMiddleware(),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create SSH server: %w", err)
	}

	addr := net.JoinHostPort(s.cfg.BindAddress, strconv.Itoa(s.cfg.SSHPort))
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.sshServer = server
	s.listener = l

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		logger.Info("Inspector listening", "addr", l.Addr().String())
		if err := server.Serve(l); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			logger.Error("SSH server error", "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Addr returns the listening address once started.
func (s *InspectorServer) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts down the SSH server
func (s *InspectorServer) Stop() {
	s.stopOnce.Do(func() {
		if s.sshServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.sshServer.Shutdown(ctx)
		}
		s.wg.Wait()
	})
}

// publicKeyAuth handles SSH public key authentication
func (s *InspectorServer) publicKeyAuth(ctx ssh.Context, key ssh.PublicKey) bool {
	fingerprint := gossh.FingerprintSHA256(key)
	return s.authorize(ctx.RemoteAddr().String(), fingerprint)
}

func (s *InspectorServer) authorize(addr, fingerprint string) bool {
	logger.Debug("SSH authentication attempt", "addr", addr, "key", fingerprint)

	if config.IsInspectorKeyWhitelisted(fingerprint) {
		return true
	}
	if !s.cfg.WhitelistOnly {
		logger.Info("Accepting SSH key (whitelist-only mode disabled)", "key", fingerprint)
		return true
	}

	if s.OnAuthRequest == nil {
		logger.Info("SSH key denied", "key", fingerprint, "addr", addr)
		return false
	}
	if !s.OnAuthRequest(addr, fingerprint) {
		logger.Info("SSH key denied", "key", fingerprint, "addr", addr)
		return false
	}
	if err := config.AddInspectorKey(fingerprint); err != nil {
		logger.Error("Failed to add key to whitelist", "err", err)
	}
	logger.Info("SSH key approved and added to whitelist", "key", fingerprint, "addr", addr)
	return true
}

// acquire reserves a session slot; release frees it.
func (s *InspectorServer) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cfg.MaxClients > 0 && s.sessions >= s.cfg.MaxClients {
		return ErrTooManySessions
	}
	s.sessions++
	return nil
}

func (s *InspectorServer) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions--
}

// Sessions returns the number of open sessions.
func (s *InspectorServer) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions
}

func (s *InspectorServer) sessionLimitMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			if err := s.acquire(); err != nil {
				logger.Info("Rejecting session", "addr", sess.RemoteAddr().String(), "reason", err)
				wish.Fatalln(sess, err)
				return
			}
			defer s.release()
			h(sess)
		}
	}
}

// loggingMiddleware provides custom logging using our internal logger
func (s *InspectorServer) loggingMiddleware() wish.Middleware {
	return func(h ssh.Handler) ssh.Handler {
		return func(sess ssh.Session) {
			start := time.Now()
			logger.Debug("SSH session started", "user", sess.User(), "addr", sess.RemoteAddr())
			h(sess)
			logger.Debug("SSH session ended", "addr", sess.RemoteAddr(), "duration", time.Since(start))
		}
	}
}

func (s *InspectorServer) teaHandler(sess ssh.Session) (tea.Model, []tea.ProgramOption) {
	model := ui.NewInspectorModel(s.title, s.events)
	return model, []tea.ProgramOption{tea.WithAltScreen()}
}
