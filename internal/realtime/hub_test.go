package realtime

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingClient struct {
	mu     sync.Mutex
	fail   bool
	closed bool
	msgs   [][]byte
}

func (c *recordingClient) Send(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return false
	}
	c.msgs = append(c.msgs, message)
	return true
}

func (c *recordingClient) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func TestBroadcast_DeliversToAllClients(t *testing.T) {
	h := NewHub()
	a, b := &recordingClient{}, &recordingClient{}
	h.Register(a)
	h.Register(b)

	sent := h.Broadcast(Event{Type: TaskCreated, TaskID: "t1"})
	assert.Equal(t, 2, sent)

	require.Len(t, a.msgs, 1)
	var evt Event
	require.NoError(t, json.Unmarshal(a.msgs[0], &evt))
	assert.Equal(t, Event{Type: TaskCreated, TaskID: "t1"}, evt)
	assert.Len(t, b.msgs, 1)
}

func TestBroadcast_DropsFailingClients(t *testing.T) {
	h := NewHub()
	ok, bad := &recordingClient{}, &recordingClient{fail: true}
	h.Register(ok)
	h.Register(bad)

	assert.Equal(t, 1, h.Broadcast(Event{Type: TaskDeleted, TaskID: "t1"}))
	assert.Equal(t, 1, h.Len())
	assert.True(t, bad.closed)
	assert.False(t, ok.closed)
}

func TestUnregister(t *testing.T) {
	h := NewHub()
	c := &recordingClient{}
	h.Register(c)
	h.Unregister(c)
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, 0, h.Broadcast(Event{Type: TasksImported, Count: 3}))
}
