package transport

import (
	"bufio"
	"net"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// maxFrameSize bounds one inbound frame (spec.md §4.6): a client that
// exceeds it is protocol-violating, same as a malformed frame.
const maxFrameSize = 2 << 20 // 2 MiB

// frameDelim terminates every JSON frame on the wire, request or
// notification alike.
const frameDelim = "\r\n\r\n"

// clientState is the three-state machine spec.md §4.6 describes for
// one connected control client.
type clientState int

const (
	stateGreeted clientState = iota
	stateReady
	stateClosing
)

// client is one connected transport socket: its own read buffer, a
// write mutex enforcing FIFO ordering between command responses and
// pushed event notifications, and the auth/watch flags the command
// registry's Session interface mutates.
type client struct {
	conn         net.Conn
	reader       *bufio.Reader
	authRequired bool
	passwordHash []byte

	writeMu sync.Mutex

	mu            sync.Mutex
	state         clientState
	authenticated bool
	watching      bool
}

func newClient(conn net.Conn, authRequired bool, passwordHash []byte) *client {
	return &client{
		conn:         conn,
		reader:       bufio.NewReaderSize(conn, 4096),
		state:        stateGreeted,
		authRequired: authRequired,
		passwordHash: passwordHash,
	}
}

// RequiresAuth/Authenticated/CheckPassword/Authenticate/Watch
// implement command.Session.

func (c *client) RequiresAuth() bool {
	return c.authRequired
}

func (c *client) Authenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// CheckPassword compares password against the bcrypt hash of the
// configured transport password, never the plaintext itself. If
// authentication isn't required it always succeeds; if it's required
// but the hash is unset (bcrypt failed at startup, see
// transport.New), it always fails rather than accepting anything.
func (c *client) CheckPassword(password string) bool {
	if !c.authRequired {
		return true
	}
	if len(c.passwordHash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password)) == nil
}

func (c *client) Authenticate() {
	c.mu.Lock()
	c.authenticated = true
	c.mu.Unlock()
}

func (c *client) Watch() {
	c.mu.Lock()
	c.watching = true
	c.mu.Unlock()
}

func (c *client) isWatching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watching
}

func (c *client) close() {
	c.mu.Lock()
	c.state = stateClosing
	c.mu.Unlock()
	c.conn.Close()
}

func (c *client) closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateClosing
}

// write sends one already-framed-and-terminated payload, serialized
// against concurrent notification pushes so responses and broadcasts
// never interleave mid-frame.
func (c *client) write(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_, err := c.conn.Write(payload)
	return err
}
