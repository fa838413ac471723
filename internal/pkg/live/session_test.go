package live

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	lock   sync.Mutex
	writes [][]byte
	inCh   chan []byte
	closed bool
}

func newFakeConn() *fakeConn {
	return &fakeConn{inCh: make(chan []byte, 10)}
}

func (c *fakeConn) WriteMessage(mt int, data []byte) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return fmt.Errorf("conn closed")
	}
	b := make([]byte, len(data))
	copy(b, data)
	c.writes = append(c.writes, b)
	return nil
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	b, ok := <-c.inCh
	if !ok {
		return 0, nil, fmt.Errorf("conn closed")
	}
	return 1, b, nil
}

func (c *fakeConn) Close() error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.closed {
		c.closed = true
		close(c.inCh)
	}
	return nil
}

func (c *fakeConn) written() [][]byte {
	c.lock.Lock()
	defer c.lock.Unlock()
	res := make([][]byte, len(c.writes))
	copy(res, c.writes)
	return res
}

type fakeSource struct {
	ch chan []float32
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan []float32, 10)}
}

func (s *fakeSource) Read(ctx context.Context) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case b, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return b, nil
	}
}

func (s *fakeSource) SampleRate() int { return StreamSampleRate }

func (s *fakeSource) Close() error { return nil }

type testSession struct {
	s    *Session
	conn *fakeConn
	src  *fakeSource
	frCh chan Fragment
}

func initSession(t *testing.T) *testSession {
	t.Helper()
	res := &testSession{conn: newFakeConn(), src: newFakeSource(), frCh: make(chan Fragment, 100)}
	s, err := NewSession(&ServiceData{URL: "ws://local/live", Source: res.src,
		DialF: func(ctx context.Context, url string) (wsConn, error) {
			return res.conn, nil
		},
		OnFragment: func(fr Fragment) { res.frCh <- fr }})
	require.Nil(t, err)
	res.s = s
	t.Cleanup(func() { s.Disconnect() })
	return res
}

func TestNewSession_Fails(t *testing.T) {
	_, err := NewSession(&ServiceData{Source: newFakeSource()})
	assert.NotNil(t, err)
	_, err = NewSession(&ServiceData{URL: "ws://local/live"})
	assert.NotNil(t, err)
}

func TestConnect_SendsSetup(t *testing.T) {
	ts := initSession(t)
	require.Nil(t, ts.s.Connect(context.Background()))
	assert.Equal(t, Streaming, ts.s.State())
	writes := ts.conn.written()
	require.NotEmpty(t, writes)
	var setup setupMsg
	require.Nil(t, json.Unmarshal(writes[0], &setup))
	assert.Equal(t, "setup", setup.Type)
	assert.Equal(t, StreamSampleRate, setup.SampleRate)
	assert.Equal(t, "pcm16", setup.Encoding)
	assert.Contains(t, setup.Instruction, "passive transcription listener")
}

func TestConnect_Twice_Fails(t *testing.T) {
	ts := initSession(t)
	require.Nil(t, ts.s.Connect(context.Background()))
	assert.NotNil(t, ts.s.Connect(context.Background()))
}

func TestConnect_DialFails(t *testing.T) {
	src := newFakeSource()
	s, err := NewSession(&ServiceData{URL: "ws://local/live", Source: src,
		DialF: func(ctx context.Context, url string) (wsConn, error) {
			return nil, fmt.Errorf("olia")
		}})
	require.Nil(t, err)
	assert.NotNil(t, s.Connect(context.Background()))
	assert.Equal(t, Failed, s.State())
	s.Disconnect()
	assert.Equal(t, Idle, s.State())
}

func TestStream_SendsAudio(t *testing.T) {
	ts := initSession(t)
	require.Nil(t, ts.s.Connect(context.Background()))
	ts.src.ch <- []float32{0.1, -0.1, 0.5}
	require.Eventually(t, func() bool {
		for _, w := range ts.conn.written() {
			var msg audioMsg
			if json.Unmarshal(w, &msg) == nil && msg.Type == "audio" && msg.Data != "" {
				return true
			}
		}
		return false
	}, time.Second*5, time.Millisecond*10)
}

func TestStream_Fragments(t *testing.T) {
	ts := initSession(t)
	require.Nil(t, ts.s.Connect(context.Background()))
	ts.conn.inCh <- []byte(`{"type":"fragment","text":"it's fine period","turnComplete":false}`)
	ts.conn.inCh <- []byte(`{"type":"fragment","text":"all done period","turnComplete":true}`)

	fr := waitFragment(t, ts)
	assert.Equal(t, "it is fine.", fr.Text)
	assert.False(t, fr.Final)
	fr = waitFragment(t, ts)
	assert.Equal(t, "all done.", fr.Text)
	assert.True(t, fr.Final)
	assert.Equal(t, "all done.", ts.s.Transcript())
}

func waitFragment(t *testing.T, ts *testSession) Fragment {
	t.Helper()
	select {
	case fr := <-ts.frCh:
		return fr
	case <-time.After(time.Second * 5):
		t.Fatal("timeout waiting for fragment")
	}
	return Fragment{}
}

func TestDisconnect_Idempotent(t *testing.T) {
	ts := initSession(t)
	// safe before connect
	ts.s.Disconnect()
	assert.Equal(t, Idle, ts.s.State())
	require.Nil(t, ts.s.Connect(context.Background()))
	ts.s.Disconnect()
	ts.s.Disconnect()
	assert.Equal(t, Idle, ts.s.State())
}

func TestDisconnect_AllowsReconnect(t *testing.T) {
	ts := initSession(t)
	require.Nil(t, ts.s.Connect(context.Background()))
	ts.s.Disconnect()
	ts.conn = newFakeConn()
	require.Nil(t, ts.s.Connect(context.Background()))
	assert.Equal(t, Streaming, ts.s.State())
}
