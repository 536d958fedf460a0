package transport

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// SerialChannel is a wired console. It counts as connected while open.
type SerialChannel struct {
	name string
	port Port

	mu     sync.Mutex
	closed bool
}

// NewSerialChannel wraps an open port.
func NewSerialChannel(name string, port Port) *SerialChannel {
	return &SerialChannel{name: name, port: port}
}

// Name returns the channel name.
func (c *SerialChannel) Name() string { return c.name }

// Send writes msg followed by CRLF.
func (c *SerialChannel) Send(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if _, err := c.port.Write([]byte(msg + "\r\n")); err != nil {
		return fmt.Errorf("%s: write: %w", c.name, err)
	}
	return nil
}

// IsConnected reports whether the port is still open.
func (c *SerialChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

// Run reads command lines into out until ctx is done or the port fails.
func (c *SerialChannel) Run(ctx context.Context, out chan<- Request) error {
	return readRequests(ctx, c.port, c, out, nil)
}

// Close closes the port.
func (c *SerialChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.port.Close()
}

// DefaultBluetoothTimeout is how long the link counts as connected after the
// last activity.
const DefaultBluetoothTimeout = 60 * time.Second

// BluetoothChannel is a serial link to a Bluetooth SPP peer (an RFCOMM tty).
// The tty stays open whether or not a peer is paired, so the link counts as
// connected only while there has been recent activity. Every response is
// mirrored to the log.
type BluetoothChannel struct {
	port    Port
	timeout time.Duration
	now     func() time.Time

	mu           sync.Mutex
	lastActivity time.Time
	active       bool
	closed       bool
}

// NewBluetoothChannel wraps an open RFCOMM port.
func NewBluetoothChannel(port Port, timeout time.Duration) *BluetoothChannel {
	if timeout <= 0 {
		timeout = DefaultBluetoothTimeout
	}
	return &BluetoothChannel{port: port, timeout: timeout, now: time.Now}
}

// Name returns "Bluetooth".
func (c *BluetoothChannel) Name() string { return "Bluetooth" }

func (c *BluetoothChannel) touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = true
	c.lastActivity = c.now()
}

// IsConnected reports whether there has been activity within the timeout.
func (c *BluetoothChannel) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connectedLocked()
}

func (c *BluetoothChannel) connectedLocked() bool {
	return !c.closed && c.active && c.now().Sub(c.lastActivity) < c.timeout
}

// Send logs msg with a "[BT]" prefix and writes it to the peer if connected.
// A successful write counts as activity.
func (c *BluetoothChannel) Send(msg string) error {
	log.Printf("[BT] %s", msg)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.connectedLocked() {
		return nil
	}
	if _, err := c.port.Write([]byte(msg + "\r\n")); err != nil {
		return fmt.Errorf("bluetooth: write: %w", err)
	}
	c.lastActivity = c.now()
	return nil
}

// Run reads command lines into out until ctx is done or the port fails.
func (c *BluetoothChannel) Run(ctx context.Context, out chan<- Request) error {
	return readRequests(ctx, c.port, c, out, c.touch)
}

// Close closes the port.
func (c *BluetoothChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.port.Close()
}
