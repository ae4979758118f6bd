package server

import (
	"context"
	"fmt"
	"net"

	"github.com/tanmaysharma2001/textconf/internal/wire"
	"github.com/tanmaysharma2001/textconf/pkg/logger"
)

// handler is the per-client dispatch loop (H). One handler owns
// exactly one connection; messages from that connection are processed
// strictly in receive order.
type handler struct {
	s        *Server
	clientID string
	conn     net.Conn
}

func (h *handler) run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		_ = h.conn.Close()
	}()

	for {
		f, err := wire.Recv(h.conn)
		if err != nil {
			h.s.cleanupClient(h.clientID)
			return
		}

		h.s.regs.Lock()
		h.s.regs.Touch(h.clientID)
		h.s.regs.Unlock()

		if h.dispatch(f) {
			return
		}
	}
}

// dispatch handles one frame and reports whether the handler loop
// should terminate (true on EXIT).
func (h *handler) dispatch(f wire.Frame) (terminate bool) {
	switch f.Type {
	case wire.Exit:
		h.s.cleanupClient(h.clientID)
		return true

	case wire.Join:
		h.handleJoin(f)

	case wire.LeaveSess:
		h.handleLeave(f)

	case wire.NewSess:
		h.handleNewSess(f)

	case wire.Message:
		h.handleMessage(f)

	case wire.Query:
		h.handleQuery()

	default:
		logger.With(map[string]interface{}{"client": h.clientID, "type": f.Type}).
			Error("server: unknown frame type")
	}
	return false
}

func (h *handler) handleJoin(f wire.Frame) {
	sid := f.Data
	h.s.regs.Lock()
	defer h.s.regs.Unlock()

	if _, ok := h.s.regs.Find(sid); !ok {
		h.send(wire.NewFrame(wire.JnNak, "", "", fmt.Sprintf("%s: session not found", sid)))
		return
	}

	if err := h.s.regs.AddMember(sid, h.clientID); err != nil {
		h.send(wire.NewFrame(wire.JnNak, "", "", "Session is full or error adding"))
		return
	}
	h.send(wire.NewFrame(wire.JnAck, "", "", sid))
}

func (h *handler) handleLeave(f wire.Frame) {
	sid := f.Session
	h.s.regs.Lock()
	defer h.s.regs.Unlock()
	h.s.regs.RemoveMember(sid, h.clientID)
}

func (h *handler) handleNewSess(f wire.Frame) {
	sid := f.Data
	h.s.regs.Lock()
	defer h.s.regs.Unlock()

	if _, err := h.s.regs.Create(sid); err != nil {
		h.send(wire.NewFrame(wire.JnNak, "", "", fmt.Sprintf("Failed to create session %s", sid)))
		return
	}
	if err := h.s.regs.AddMember(sid, h.clientID); err != nil {
		h.send(wire.NewFrame(wire.JnNak, "", "", fmt.Sprintf("Failed to create session %s", sid)))
		return
	}
	h.send(wire.NewFrame(wire.NsAck, "", "", sid))
}

func (h *handler) handleMessage(f wire.Frame) {
	out := wire.NewFrame(wire.Message, h.clientID, f.Session, f.Data)
	h.s.regs.Lock()
	failures := h.s.regs.Broadcast(f.Session, out)
	h.s.regs.Unlock()
	for cid, err := range failures {
		logger.With(map[string]interface{}{"client": cid, "session": f.Session}).
			Errorf("server: broadcast send failed: %v", err)
	}
}

func (h *handler) handleQuery() {
	h.s.regs.Lock()
	list := h.s.regs.ListAll()
	h.s.regs.Unlock()
	h.send(wire.NewFrame(wire.QuAck, "", "", list))
}

// send writes a reply frame, logging (but not acting on) any failure;
// a broken connection will surface on the handler's next Recv.
func (h *handler) send(f wire.Frame) {
	if err := wire.Send(h.conn, f); err != nil {
		logger.With(map[string]interface{}{"client": h.clientID}).
			Errorf("server: reply send failed: %v", err)
	}
}
