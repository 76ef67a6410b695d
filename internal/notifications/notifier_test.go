package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"warbler/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "feed:user:1", FeedChannel(1))
	assert.Equal(t, "feed:user:100", FeedChannel(100))
}

func TestNotifier_NilRedisIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.False(t, n.Enabled())
	assert.NoError(t, n.PublishMessage(context.Background(), &models.Message{ID: 1}, []uint{2}))
	assert.NoError(t, n.SubscribeFeed(context.Background(), 2, func(string) {}))

	var nilNotifier *Notifier
	assert.False(t, nilNotifier.Enabled())
}

func TestNotifier_PublishReachesFollowersOnly(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	follower := make(chan string, 1)
	stranger := make(chan string, 1)
	require.NoError(t, n.SubscribeFeed(ctx, 2, func(p string) { follower <- p }))
	require.NoError(t, n.SubscribeFeed(ctx, 3, func(p string) { stranger <- p }))

	msg := &models.Message{ID: 10, UserID: 1, Text: "hello followers", User: &models.User{Username: "author"}}
	require.NoError(t, n.PublishMessage(context.Background(), msg, []uint{2}))

	select {
	case payload := <-follower:
		var event FeedEvent
		require.NoError(t, json.Unmarshal([]byte(payload), &event))
		assert.Equal(t, EventNewMessage, event.Type)
		assert.Equal(t, uint(10), event.MessageID)
		assert.Equal(t, "author", event.Username)
		assert.Equal(t, "hello followers", event.Text)
	case <-time.After(time.Second):
		t.Fatal("follower did not receive the event")
	}

	select {
	case <-stranger:
		t.Fatal("non-follower received the event")
	case <-time.After(50 * time.Millisecond):
	}
}

type fakeConn struct {
	mu      sync.Mutex
	written [][]byte
	types   []int
	closed  bool
	reads   chan error
	failOn  int
}

func newFakeConn() *fakeConn {
	return &fakeConn{reads: make(chan error, 1)}
}

func (f *fakeConn) SetReadLimit(int64)                {}
func (f *fakeConn) SetReadDeadline(time.Time) error   { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetPongHandler(func(string) error) {}
func (f *fakeConn) ReadMessage() (int, []byte, error) { return 0, nil, <-f.reads }
func (f *fakeConn) Close() error                      { f.mu.Lock(); f.closed = true; f.mu.Unlock(); return nil }
func (f *fakeConn) WriteMessage(mt int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOn > 0 && len(f.written)+1 == f.failOn {
		return errors.New("broken pipe")
	}
	f.written = append(f.written, data)
	f.types = append(f.types, mt)
	return nil
}

func (f *fakeConn) snapshot() ([][]byte, []int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.written...), append([]int(nil), f.types...), f.closed
}

func TestFeedClient_WritePump(t *testing.T) {
	conn := newFakeConn()
	client := NewFeedClient(conn, 7)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		client.WritePump(ctx)
		close(done)
	}()

	assert.True(t, client.TrySend([]byte(`{"type":"new_message"}`)))
	assert.Eventually(t, func() bool {
		written, _, _ := conn.snapshot()
		return len(written) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	written, types, closed := conn.snapshot()
	require.Len(t, written, 2)
	assert.Equal(t, websocket.TextMessage, types[0])
	assert.Equal(t, websocket.CloseMessage, types[1])
	assert.True(t, closed)
}

func TestFeedClient_WritePumpStopsOnWriteError(t *testing.T) {
	conn := newFakeConn()
	conn.failOn = 1
	client := NewFeedClient(conn, 7)

	done := make(chan struct{})
	go func() {
		client.WritePump(context.Background())
		close(done)
	}()
	client.TrySend([]byte("x"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WritePump did not stop after a failed write")
	}
	_, _, closed := conn.snapshot()
	assert.True(t, closed)
}

func TestFeedClient_TrySendDropsWhenFull(t *testing.T) {
	client := NewFeedClient(newFakeConn(), 1)
	for i := 0; i < cap(client.Send); i++ {
		require.True(t, client.TrySend([]byte("m")))
	}
	assert.False(t, client.TrySend([]byte("overflow")))
}

func TestFeedClient_ReadPumpReturnsOnClose(t *testing.T) {
	conn := newFakeConn()
	client := NewFeedClient(conn, 1)

	done := make(chan struct{})
	go func() {
		client.ReadPump()
		close(done)
	}()
	conn.reads <- errors.New("closed")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("ReadPump did not return")
	}
}
