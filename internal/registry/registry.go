// Package registry holds the in-memory session and client catalogs
// shared by every connection handler. A single mutex guards both
// catalogs, following the global-lock model: correctness over
// broadcast throughput, acceptable given small frame sizes and member
// counts.
package registry

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tanmaysharma2001/textconf/internal/wire"
)

var (
	ErrExists    = errors.New("registry: already exists")
	ErrNotFound  = errors.New("registry: not found")
	ErrCapacity  = errors.New("registry: capacity exceeded")
	ErrSlotsFull = errors.New("registry: no free client slot")
)

// Session is the in-memory record for one conference: an ID and an
// ordered, duplicate-free member list.
type Session struct {
	ID      string
	Members []string
}

// Client is the in-memory record for one authenticated connection.
type Client struct {
	Conn         net.Conn
	ID           string
	RemoteAddr   string
	Joined       []string
	Active       bool
	LastActivity time.Time
}

// Registries bundles the session catalog and the client catalog under
// one lock, mirroring the teacher's Manager struct (one mutex guarding
// one map of child structures) generalized from "one hub per room" to
// "every session and every client".
type Registries struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	clients     map[string]*Client
	maxClients  int
	maxSessions int
}

func New(maxClients, maxSessions int) *Registries {
	return &Registries{
		sessions:    make(map[string]*Session),
		clients:     make(map[string]*Client),
		maxClients:  maxClients,
		maxSessions: maxSessions,
	}
}

// Lock/Unlock expose the shared mutex directly so a connection handler
// can perform a find-then-act sequence (e.g. "look up session, then
// mutate it") as one atomic critical section, matching spec's
// requirement that every read-then-mutate step hold the lock.
func (r *Registries) Lock()   { r.mu.Lock() }
func (r *Registries) Unlock() { r.mu.Unlock() }

// --- client registry (R) ---

// FindByID returns the active client with the given principal ID.
// Callers must hold the lock.
func (r *Registries) FindByID(cid string) (*Client, bool) {
	c, ok := r.clients[cid]
	if !ok || !c.Active {
		return nil, false
	}
	return c, true
}

// Register inserts a new active client. Callers must hold the lock.
func (r *Registries) Register(conn net.Conn, cid, addr string) (*Client, error) {
	if _, exists := r.clients[cid]; exists {
		return nil, ErrExists
	}
	if r.activeClientCount() >= r.maxClients {
		return nil, ErrSlotsFull
	}
	c := &Client{
		Conn:         conn,
		ID:           cid,
		RemoteAddr:   addr,
		Active:       true,
		LastActivity: time.Now(),
	}
	r.clients[cid] = c
	return c, nil
}

func (r *Registries) activeClientCount() int {
	n := 0
	for _, c := range r.clients {
		if c.Active {
			n++
		}
	}
	return n
}

// Deactivate marks a client inactive and closes its handle. The
// caller is responsible for prior session cleanup (RemoveMember on
// every joined session). Callers must hold the lock.
func (r *Registries) Deactivate(cid string) {
	c, ok := r.clients[cid]
	if !ok {
		return
	}
	c.Active = false
	_ = c.Conn.Close()
	delete(r.clients, cid)
}

// Touch refreshes a client's last-activity timestamp. Callers must
// hold the lock.
func (r *Registries) Touch(cid string) {
	if c, ok := r.clients[cid]; ok {
		c.LastActivity = time.Now()
	}
}

// ActiveClientIDs returns a sorted snapshot of currently active client
// IDs, so the idle reaper can evict clients while iterating without
// mutating the map it ranges over. Callers must hold the lock.
func (r *Registries) ActiveClientIDs() []string {
	ids := make([]string, 0, len(r.clients))
	for id, c := range r.clients {
		if c.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// --- session registry (S) ---

// Find returns the session with the given ID. Callers must hold the
// lock.
func (r *Registries) Find(sid string) (*Session, bool) {
	s, ok := r.sessions[sid]
	return s, ok
}

// Create adds a new, empty-then-immediately-joined-by-caller session.
// Callers must hold the lock and are expected to call AddMember
// themselves right after a successful Create (NEW_SESS semantics).
func (r *Registries) Create(sid string) (*Session, error) {
	if _, exists := r.sessions[sid]; exists {
		return nil, ErrExists
	}
	if len(r.sessions) >= r.maxSessions {
		return nil, ErrCapacity
	}
	s := &Session{ID: sid}
	r.sessions[sid] = s
	return s, nil
}

// AddMember adds cid to session sid's member list and to the client's
// joined list. Idempotent: already being a member is not an error and
// does not duplicate state. Callers must hold the lock.
func (r *Registries) AddMember(sid, cid string) error {
	s, ok := r.sessions[sid]
	if !ok {
		return ErrNotFound
	}
	c, ok := r.clients[cid]
	if !ok {
		return ErrNotFound
	}
	if containsStr(s.Members, cid) {
		return nil
	}
	if len(s.Members) >= r.maxClients {
		return ErrCapacity
	}
	if len(c.Joined) >= r.maxSessions {
		return ErrCapacity
	}
	s.Members = append(s.Members, cid)
	c.Joined = append(c.Joined, sid)
	return nil
}

// RemoveMember removes cid from session sid's member list and from
// the client's joined list. If the session becomes empty it is
// deleted entirely (I4). Callers must hold the lock.
func (r *Registries) RemoveMember(sid, cid string) {
	s, ok := r.sessions[sid]
	if !ok {
		return
	}
	s.Members = removeStr(s.Members, cid)
	if c, ok := r.clients[cid]; ok {
		c.Joined = removeStr(c.Joined, sid)
	}
	if len(s.Members) == 0 {
		delete(r.sessions, sid)
	}
}

// RemoveClientFromAllSessions is used during EXIT, abrupt disconnect,
// and reaper eviction to tear down every membership a client holds
// before the client record itself is deactivated.
func (r *Registries) RemoveClientFromAllSessions(cid string) {
	c, ok := r.clients[cid]
	if !ok {
		return
	}
	joined := append([]string(nil), c.Joined...)
	for _, sid := range joined {
		r.RemoveMember(sid, cid)
	}
}

// Broadcast sends frame f to every member of session sid. A send
// failure on one recipient is logged by the caller and does not abort
// delivery to the rest; Broadcast itself just reports which sends
// failed so the handler can log them. Callers must hold the lock —
// per spec §5 this trades throughput for simplicity.
func (r *Registries) Broadcast(sid string, f wire.Frame) map[string]error {
	s, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	failures := make(map[string]error)
	for _, cid := range s.Members {
		c, ok := r.clients[cid]
		if !ok || !c.Active {
			continue
		}
		if err := wire.Send(c.Conn, f); err != nil {
			failures[cid] = err
		}
	}
	return failures
}

// ListAll renders the human-readable users+sessions summary used by
// QUERY, capped at 1024 bytes to fit the frame's data field (spec's
// preserved open question: QUERY replies are lossy under heavy load
// rather than extending the frame).
func (r *Registries) ListAll() string {
	var b strings.Builder
	b.WriteString("Users:\n")
	ids := make([]string, 0, len(r.clients))
	for id, c := range r.clients {
		if c.Active {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "  %s\n", id)
	}
	b.WriteString("Sessions:\n")
	sids := make([]string, 0, len(r.sessions))
	for sid := range r.sessions {
		sids = append(sids, sid)
	}
	sort.Strings(sids)
	for _, sid := range sids {
		fmt.Fprintf(&b, "  %s (%d members)\n", sid, len(r.sessions[sid].Members))
	}
	out := b.String()
	if len(out) > 1024 {
		out = out[:1024]
	}
	return out
}

func containsStr(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func removeStr(ss []string, s string) []string {
	out := ss[:0]
	for _, v := range ss {
		if v != s {
			out = append(out, v)
		}
	}
	return out
}
