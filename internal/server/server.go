// Package server implements the conferencing service's acceptor and
// per-connection handler, grounded on the teacher's HandleWebSocket
// handshake sequence (generalized from HTTP upgrade to raw-TCP LOGIN)
// and the Client.ReadPump / Hub.Run dispatch-loop shape (generalized
// from a channel-fed hub to a directly-locked registry, per the
// single-global-lock concurrency model).
package server

import (
	"context"
	"fmt"
	"net"

	"github.com/tanmaysharma2001/textconf/internal/auth"
	"github.com/tanmaysharma2001/textconf/internal/registry"
	"github.com/tanmaysharma2001/textconf/internal/wire"
	"github.com/tanmaysharma2001/textconf/pkg/logger"
)

// Server owns the shared registries and authenticator and runs the
// accept loop.
type Server struct {
	regs *registry.Registries
	auth *auth.Authenticator
}

func New(regs *registry.Registries, authn *auth.Authenticator) *Server {
	return &Server{regs: regs, auth: authn}
}

// Serve accepts connections on ln until ctx is cancelled or ln.Accept
// fails. Each accepted connection is handled in its own goroutine
// after the login handshake succeeds.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		go s.onAccept(ctx, conn)
	}
}

// onAccept performs the login handshake (acceptor L, spec §4.5) and,
// on success, hands the connection off to the per-client handler (H).
func (s *Server) onAccept(ctx context.Context, conn net.Conn) {
	f, err := wire.Recv(conn)
	if err != nil {
		_ = conn.Close()
		return
	}
	if f.Type != wire.Login {
		_ = conn.Close()
		return
	}

	s.regs.Lock()
	_, dup := s.regs.FindByID(f.Source)
	if dup {
		s.regs.Unlock()
		_ = wire.Send(conn, wire.NewFrame(wire.LoNak, "", "", "Client ID already in use"))
		_ = conn.Close()
		return
	}
	s.regs.Unlock()

	if !s.auth.Authenticate(f.Source, f.Data) {
		_ = wire.Send(conn, wire.NewFrame(wire.LoNak, "", "", "Invalid username/password"))
		_ = conn.Close()
		return
	}

	s.regs.Lock()
	client, err := s.regs.Register(conn, f.Source, conn.RemoteAddr().String())
	s.regs.Unlock()
	if err != nil {
		_ = wire.Send(conn, wire.NewFrame(wire.LoNak, "", "", "Server full"))
		_ = conn.Close()
		return
	}

	if err := wire.Send(conn, wire.NewFrame(wire.LoAck, "", "", "Login successful")); err != nil {
		s.cleanupClient(client.ID)
		return
	}

	logger.With(map[string]interface{}{"client": client.ID}).Info("server: client logged in")
	h := &handler{s: s, clientID: client.ID, conn: conn}
	h.run(ctx)
}

// cleanupClient performs the abrupt-disconnect cleanup shared by EXIT,
// read errors, and failed post-login sends: remove from every joined
// session, clear joined list (implicit in RemoveClientFromAllSessions),
// deactivate, close handle.
func (s *Server) cleanupClient(cid string) {
	s.regs.Lock()
	defer s.regs.Unlock()
	if _, ok := s.regs.FindByID(cid); !ok {
		return
	}
	s.regs.RemoveClientFromAllSessions(cid)
	s.regs.Deactivate(cid)
}
