package watch

import (
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dictamed/scriba/internal/pkg/api"
	"github.com/dictamed/scriba/internal/pkg/batch"
	"github.com/dictamed/scriba/internal/pkg/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConn struct {
	lock   sync.Mutex
	wrote  []interface{}
	closed bool
}

func (c *testConn) ReadMessage() (int, []byte, error) { select {} }

func (c *testConn) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.closed = true
	return nil
}

func (c *testConn) WriteJSON(v interface{}) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.wrote = append(c.wrote, v)
	return nil
}

type testItems struct {
	items map[string]batch.Item
}

func (ti *testItems) Get(id string) (batch.Item, bool) {
	it, ok := ti.items[id]
	return it, ok
}

func TestHandle_Pushes(t *testing.T) {
	kp := NewKeeper()
	conn := &testConn{}
	kp.saveConnection(conn, "i1")
	items := &testItems{items: map[string]batch.Item{
		"i1": {ID: "i1", FileName: "memo.wav", Status: status.Transcribing, Progress: 40}}}
	h := NewEventHandler(kp, items)
	h.Handle(batch.Event{ID: "i1", Status: status.Transcribing, Progress: 40})
	require.Equal(t, 1, len(conn.wrote))
	view, ok := conn.wrote[0].(*api.ItemView)
	require.True(t, ok)
	assert.Equal(t, "TRANSCRIBING", view.Status)
	assert.Equal(t, 40, view.Progress)
}

func TestHandle_Removed(t *testing.T) {
	kp := NewKeeper()
	conn := &testConn{}
	kp.saveConnection(conn, "i1")
	h := NewEventHandler(kp, &testItems{items: map[string]batch.Item{}})
	h.Handle(batch.Event{ID: "i1", Removed: true})
	require.Equal(t, 1, len(conn.wrote))
	view, ok := conn.wrote[0].(removedView)
	require.True(t, ok)
	assert.True(t, view.Removed)
}

func TestHandle_NoWatcher(t *testing.T) {
	kp := NewKeeper()
	h := NewEventHandler(kp, &testItems{items: map[string]batch.Item{}})
	h.Handle(batch.Event{ID: "i1"})
}

// delayedConn delivers one subscription, then a second message
// only after the handler's timeout has already fired
type delayedConn struct {
	testConn
	calls int32
}

func (c *delayedConn) ReadMessage() (int, []byte, error) {
	switch atomic.AddInt32(&c.calls, 1) {
	case 1:
		return 1, []byte("i1"), nil
	case 2:
		time.Sleep(time.Millisecond * 60)
		return 1, []byte("i2"), nil
	}
	select {}
}

func TestKeeper_ReaderStopsAfterTimeout(t *testing.T) {
	kp := NewKeeper()
	kp.timeOut = time.Millisecond * 20
	before := runtime.NumGoroutine()
	conn := &delayedConn{}
	require.NoError(t, kp.HandleConnection(conn))
	conn.lock.Lock()
	closed := conn.closed
	conn.lock.Unlock()
	assert.True(t, closed)
	// the read routine must not stay parked on the undelivered message
	for i := 0; i < 100 && runtime.NumGoroutine() > before; i++ {
		time.Sleep(time.Millisecond * 10)
	}
	assert.LessOrEqual(t, runtime.NumGoroutine(), before)
}

func TestKeeper_SaveDelete(t *testing.T) {
	kp := NewKeeper()
	conn := &testConn{}
	kp.saveConnection(conn, "i1")
	conns, found := kp.GetConnections("i1")
	require.True(t, found)
	assert.Equal(t, 1, len(conns))
	// resubscribe moves the connection
	kp.saveConnection(conn, "i2")
	_, found = kp.GetConnections("i1")
	assert.False(t, found)
	_, found = kp.GetConnections("i2")
	assert.True(t, found)
	kp.deleteConnection(conn)
	_, found = kp.GetConnections("i2")
	assert.False(t, found)
}
