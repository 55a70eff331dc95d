// Package server assembles a compositor, its seat and the event recorder
// from configuration.
package server

import (
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/wayseat/internal/compositor"
	"github.com/bnema/wayseat/internal/config"
	"github.com/bnema/wayseat/internal/logger"
	"github.com/bnema/wayseat/internal/seat"
	"github.com/bnema/wayseat/internal/trace"
	"github.com/bnema/wayseat/internal/wire"
)

// Server owns one compositor session.
type Server struct {
	config     *config.Config
	compositor *compositor.Compositor
	seat       *seat.Seat
	recorder   *trace.Recorder
	dump       *wire.StreamSink
	outputs    map[string]*compositor.Output
}

// New creates a server instance
func New(cfg *config.Config, opts ...compositor.Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	comp := compositor.New(opts...)
	s := &Server{
		config:     cfg,
		compositor: comp,
		seat:       seat.New(comp, SeatOptions(cfg)),
		recorder:   trace.NewRecorder(cfg.Trace.MaxEvents),
		outputs:    make(map[string]*compositor.Output),
	}
	logger.Info("Seat ready", "name", s.seat.Name(), "capabilities", cfg.Seat.Capabilities)
	return s, nil
}

// SeatOptions converts the seat-related configuration sections.
func SeatOptions(cfg *config.Config) seat.Options {
	opts := seat.Options{
		Name:                 cfg.Seat.Name,
		EdgeEpsilon:          cfg.Pointer.EdgeEpsilon,
		ValidateCursorSerial: cfg.Pointer.ValidateCursorSerial,
		RepeatRate:           cfg.Keyboard.RepeatRate,
		RepeatDelay:          cfg.Keyboard.RepeatDelay,
	}
	if cfg.Seat.HasCapability("pointer") {
		opts.Capabilities |= seat.CapabilityPointer
	}
	if cfg.Seat.HasCapability("keyboard") {
		opts.Capabilities |= seat.CapabilityKeyboard
	}
	if cfg.Seat.HasCapability("touch") {
		opts.Capabilities |= seat.CapabilityTouch
	}
	return opts
}

// SetWireDump copies every event sent to clients connected afterwards to w,
// encoded as wire messages.
func (s *Server) SetWireDump(w io.Writer) {
	delay := time.Duration(s.config.Trace.FlushDelayMs) * time.Millisecond
	s.dump = wire.NewStreamSink(w, delay, s.config.Trace.BufferSize)
}

// ConnectClient registers a client whose events are recorded.
func (s *Server) ConnectClient(name string) *compositor.Client {
	client := s.compositor.CreateClient(name, nil)
	var next wire.Sink
	if s.dump != nil {
		next = s.dump
	}
	client.SetSink(s.recorder.Sink(client.ID(), name, next))
	logger.Debug("Client connected", "name", name, "id", client.ID())
	return client
}

// BindSeat binds wl_seat for client, capped at the configured version.
func (s *Server) BindSeat(client *compositor.Client, id, version uint32) (*compositor.Resource, error) {
	if version > s.config.Seat.Version {
		version = s.config.Seat.Version
	}
	return s.seat.Bind(client, id, version)
}

// Output returns the named output, creating it on first use.
func (s *Server) Output(name string) *compositor.Output {
	out, ok := s.outputs[name]
	if !ok {
		out = &compositor.Output{Name: name}
		s.outputs[name] = out
	}
	return out
}

func (s *Server) Compositor() *compositor.Compositor {
	return s.compositor
}

func (s *Server) Seat() *seat.Seat {
	return s.seat
}

func (s *Server) Recorder() *trace.Recorder {
	return s.recorder
}

// Close disconnects every client and flushes the wire dump.
func (s *Server) Close() error {
	for _, client := range s.compositor.Clients() {
		client.Destroy()
	}
	if s.dump == nil {
		return nil
	}
	if err := s.dump.Close(); err != nil {
		return fmt.Errorf("failed to flush wire dump: %w", err)
	}
	return nil
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		// When running with sudo, use the actual user's home directory
		if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
			u, err := user.Lookup(sudoUser)
			if err == nil {
				return filepath.Join(u.HomeDir, path[2:])
			}
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
