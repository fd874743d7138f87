package push

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConn records delivered messages and can be set to fail sends.
type fakeConn struct {
	messages []any
	fail     bool
	closed   bool
}

func (c *fakeConn) Send(message any) error {
	if c.fail {
		return errors.New("send failed")
	}
	c.messages = append(c.messages, message)
	return nil
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

func TestRegistrySendToUser(t *testing.T) {
	r := NewRegistry()
	a := &fakeConn{}
	b := &fakeConn{}
	other := &fakeConn{}

	r.Connect(a, "user-1")
	r.Connect(b, "user-1")
	r.Connect(other, "user-2")
	assert.Equal(t, 2, r.ConnectionCount("user-1"))

	r.SendToUser("hello", "user-1")

	assert.Equal(t, []any{"hello"}, a.messages)
	assert.Equal(t, []any{"hello"}, b.messages)
	assert.Empty(t, other.messages)
}

func TestRegistrySendToUserNoConnectionsIsNoop(t *testing.T) {
	r := NewRegistry()
	r.SendToUser("hello", "nobody")
	assert.Equal(t, 0, r.ConnectionCount("nobody"))
}

func TestRegistryPrunesOnlyFailedConnection(t *testing.T) {
	r := NewRegistry()
	healthy := &fakeConn{}
	dead := &fakeConn{fail: true}

	r.Connect(healthy, "user-1")
	r.Connect(dead, "user-1")

	r.SendToUser("first", "user-1")

	// The healthy connection was delivered to and survives; the failed one
	// is swept from the registry.
	require.Equal(t, []any{"first"}, healthy.messages)
	assert.Equal(t, 1, r.ConnectionCount("user-1"))

	r.SendToUser("second", "user-1")
	assert.Equal(t, []any{"first", "second"}, healthy.messages)
}

func TestRegistryDisconnectRemovesAllUserConnections(t *testing.T) {
	r := NewRegistry()
	a := &fakeConn{}
	b := &fakeConn{}
	other := &fakeConn{}

	r.Connect(a, "user-1")
	r.Connect(b, "user-1")
	r.Connect(other, "user-2")

	r.Disconnect("user-1")

	assert.Equal(t, 0, r.ConnectionCount("user-1"))
	assert.Equal(t, 1, r.ConnectionCount("user-2"))

	r.SendToUser("hello", "user-1")
	assert.Empty(t, a.messages)
	assert.Empty(t, b.messages)
}

func TestRegistryBroadcast(t *testing.T) {
	r := NewRegistry()
	a := &fakeConn{}
	b := &fakeConn{}
	dead := &fakeConn{fail: true}

	r.Connect(a, "user-1")
	r.Connect(b, "user-2")
	r.Connect(dead, "user-3")

	r.Broadcast("announcement")

	assert.Equal(t, []any{"announcement"}, a.messages)
	assert.Equal(t, []any{"announcement"}, b.messages)
	assert.Equal(t, 0, r.ConnectionCount("user-3"))
}
