// Command confclient is the interactive REPL client for the text
// conferencing service. It supports joining and switching between
// multiple sessions concurrently, per the multi-session redesign this
// client implements over the original single-session design.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/tanmaysharma2001/textconf/internal/wire"
)

type client struct {
	conn   net.Conn
	id     string
	mu     sync.Mutex
	joined map[string]bool
	active string
}

func main() {
	c := &client{joined: make(map[string]bool)}
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("textconf client ready. Type /login <id> <pw> <ip> <port> to begin.")

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, "/") {
			c.sendText(line)
			continue
		}
		if c.handleCommand(line) {
			return
		}
	}
}

// handleCommand processes one slash command and reports whether the
// REPL should exit.
func (c *client) handleCommand(line string) (quit bool) {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "/login":
		if len(fields) != 5 {
			fmt.Println("usage: /login <clientID> <password> <server-IP> <server-port>")
			return false
		}
		c.login(fields[1], fields[2], fields[3], fields[4])

	case "/logout":
		c.send(wire.NewFrame(wire.Exit, c.id, "", ""))
		c.close()

	case "/joinsession":
		if len(fields) != 2 {
			fmt.Println("usage: /joinsession <sessionID>")
			return false
		}
		c.send(wire.NewFrame(wire.Join, c.id, "", fields[1]))

	case "/leavesession":
		c.mu.Lock()
		sid := c.active
		c.mu.Unlock()
		if sid == "" {
			fmt.Println("no active session")
			return false
		}
		c.send(wire.NewFrame(wire.LeaveSess, c.id, sid, ""))
		c.mu.Lock()
		delete(c.joined, sid)
		c.active = ""
		c.mu.Unlock()

	case "/createsession":
		if len(fields) != 2 {
			fmt.Println("usage: /createsession <sessionID>")
			return false
		}
		c.send(wire.NewFrame(wire.NewSess, c.id, "", fields[1]))

	case "/switchsession":
		if len(fields) != 2 {
			fmt.Println("usage: /switchsession <sessionID>")
			return false
		}
		c.mu.Lock()
		if !c.joined[fields[1]] {
			c.mu.Unlock()
			fmt.Printf("not a member of %s\n", fields[1])
			return false
		}
		c.active = fields[1]
		c.mu.Unlock()
		fmt.Printf("active session is now %s\n", fields[1])

	case "/list":
		c.send(wire.NewFrame(wire.Query, c.id, "", ""))

	case "/quit":
		c.send(wire.NewFrame(wire.Exit, c.id, "", ""))
		c.close()
		return true

	default:
		fmt.Printf("unknown command: %s\n", cmd)
	}
	return false
}

func (c *client) sendText(text string) {
	c.mu.Lock()
	sid := c.active
	c.mu.Unlock()
	if sid == "" {
		fmt.Println("no active session; use /joinsession or /createsession first")
		return
	}
	c.send(wire.NewFrame(wire.Message, c.id, sid, text))
}

func (c *client) login(id, pw, ip, port string) {
	conn, err := net.Dial("tcp", net.JoinHostPort(ip, port))
	if err != nil {
		fmt.Printf("connection failed: %v\n", err)
		return
	}
	c.conn = conn
	c.id = id

	if err := wire.Send(conn, wire.NewFrame(wire.Login, id, "", pw)); err != nil {
		fmt.Printf("login send failed: %v\n", err)
		return
	}
	reply, err := wire.Recv(conn)
	if err != nil {
		fmt.Printf("login failed: %v\n", err)
		return
	}
	switch reply.Type {
	case wire.LoAck:
		fmt.Println("Login successful.")
		go c.readLoop()
	case wire.LoNak:
		fmt.Printf("Login failed: %s\n", reply.Data)
		c.conn.Close()
		c.conn = nil
	default:
		fmt.Printf("Received unknown message type: %d\n", reply.Type)
	}
}

func (c *client) readLoop() {
	for {
		f, err := wire.Recv(c.conn)
		if err != nil {
			fmt.Println("disconnected from server")
			return
		}
		c.handleIncoming(f)
	}
}

func (c *client) handleIncoming(f wire.Frame) {
	switch f.Type {
	case wire.JnAck:
		fmt.Printf("Joined session: %s\n", f.Data)
		c.mu.Lock()
		c.joined[f.Data] = true
		if c.active == "" {
			c.active = f.Data
		}
		c.mu.Unlock()
	case wire.JnNak:
		fmt.Printf("Failed to join session: %s\n", f.Data)
	case wire.NsAck:
		fmt.Printf("Created and joined new session: %s\n", f.Data)
		c.mu.Lock()
		c.joined[f.Data] = true
		c.active = f.Data
		c.mu.Unlock()
	case wire.QuAck:
		fmt.Printf("List of users and sessions:\n%s\n", f.Data)
	case wire.Message:
		fmt.Printf("[%s] %s: %s\n", f.Session, f.Source, f.Data)
	default:
		fmt.Printf("Received unknown message type: %d\n", f.Type)
	}
}

func (c *client) send(f wire.Frame) {
	if c.conn == nil {
		fmt.Println("not logged in")
		return
	}
	if err := wire.Send(c.conn, f); err != nil {
		fmt.Printf("send failed: %v\n", err)
	}
}

func (c *client) close() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}
