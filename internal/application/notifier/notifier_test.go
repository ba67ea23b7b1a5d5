package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/notifeed/internal/application/history"
	eventsmemory "github.com/aescanero/notifeed/pkg/adapters/events/memory"
	"github.com/aescanero/notifeed/pkg/adapters/render"
	"github.com/aescanero/notifeed/pkg/adapters/storage/memory"
	"github.com/aescanero/notifeed/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// recordingRenderer keeps every rendered snapshot
type recordingRenderer struct {
	calls [][]string
}

func (r *recordingRenderer) Render(h []string) {
	r.calls = append(r.calls, append([]string(nil), h...))
}

func (r *recordingRenderer) last() []string {
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

// fakeMetrics counts calls by name
type fakeMetrics struct {
	mu     sync.Mutex
	counts map[string]int
	up     bool
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{counts: make(map[string]int)}
}

func (m *fakeMetrics) inc(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[name]++
}

func (m *fakeMetrics) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[name]
}

func (m *fakeMetrics) IncNotificationsReceived()          { m.inc("received") }
func (m *fakeMetrics) RecordAppend(status string)         { m.inc("append_" + status) }
func (m *fakeMetrics) RecordLoad(status string)           { m.inc("load_" + status) }
func (m *fakeMetrics) IncRenders()                        { m.inc("renders") }
func (m *fakeMetrics) SetConnectionUp(up bool)            { m.up = up }
func (m *fakeMetrics) SetLiveClients(int)                 {}
func (m *fakeMetrics) RecordEventPublished(status string) { m.inc("published_" + status) }

// readOnlyStore rejects writes
type readOnlyStore struct {
	*memory.KVStore
}

func (s readOnlyStore) Set(ctx context.Context, key, value string) error {
	return errors.New("quota exceeded")
}

// failingBus rejects every publish
type failingBus struct {
	ports.EventBus
}

func (failingBus) Publish(context.Context, ports.Event) error {
	return errors.New("bus down")
}

func TestOnOpen_RendersStoredHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()
	require.NoError(t, store.Set(ctx, history.DefaultKey, `["b","a"]`))
	renderer := &recordingRenderer{}
	metrics := newFakeMetrics()

	n := New(history.New(store, "", 0), renderer, metrics, zap.NewNop())
	n.OnOpen(ctx)

	require.Len(t, renderer.calls, 1)
	assert.Equal(t, []string{"b", "a"}, renderer.last())
	assert.True(t, metrics.up)
	assert.Equal(t, 1, metrics.count("load_loaded"))

	raw, _, err := store.Get(ctx, history.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `["b","a"]`, raw)
}

func TestOnOpen_MalformedHistoryRendersEmpty(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()
	require.NoError(t, store.Set(ctx, history.DefaultKey, "{broken"))
	renderer := &recordingRenderer{}
	metrics := newFakeMetrics()

	New(history.New(store, "", 0), renderer, metrics, zap.NewNop()).OnOpen(ctx)

	require.Len(t, renderer.calls, 1)
	assert.Empty(t, renderer.last())
	assert.Equal(t, 1, metrics.count("load_decode_failed"))
}

func TestOnMessage_PrefixesAndRenders(t *testing.T) {
	ctx := context.Background()
	renderer := &recordingRenderer{}
	metrics := newFakeMetrics()
	h := history.New(memory.NewKVStore(), "", 0)

	n := New(h, renderer, metrics, zap.NewNop())
	n.OnMessage(ctx, "hello")

	assert.Equal(t, []string{"Новое уведомление: hello"}, renderer.last())

	res, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Новое уведомление: hello"}, res.Entries)
	assert.Equal(t, 1, metrics.count("received"))
	assert.Equal(t, 1, metrics.count("append_success"))
}

func TestOnMessage_KeepsNewestFive(t *testing.T) {
	ctx := context.Background()
	renderer := &recordingRenderer{}
	n := New(history.New(memory.NewKVStore(), "", 0), renderer, newFakeMetrics(), zap.NewNop(), WithLabel(""))

	for i := 1; i <= 7; i++ {
		n.OnMessage(ctx, fmt.Sprintf("e%d", i))
	}

	assert.Equal(t, []string{"e7", "e6", "e5", "e4", "e3"}, renderer.last())
	assert.Len(t, renderer.calls, 7)
}

func TestOnMessage_WriteFailureRendersStoredHistory(t *testing.T) {
	ctx := context.Background()
	base := memory.NewKVStore()
	require.NoError(t, base.Set(ctx, history.DefaultKey, `["old"]`))
	renderer := &recordingRenderer{}
	metrics := newFakeMetrics()

	n := New(history.New(readOnlyStore{base}, "", 0), renderer, metrics, zap.NewNop())
	n.OnMessage(ctx, "new")

	assert.Equal(t, []string{"old"}, renderer.last())
	assert.Equal(t, 1, metrics.count("append_failed"))
}

func TestOnMessage_PublishesFragment(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := eventsmemory.NewBus(4, zap.NewNop())
	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)

	doc := render.NewDocument(render.Config{})
	metrics := newFakeMetrics()
	n := New(history.New(memory.NewKVStore(), "", 0), doc, metrics, zap.NewNop(), WithEventBus(bus), WithLabel("> "))

	n.OnMessage(ctx, "ping")

	select {
	case ev := <-events:
		assert.Equal(t, ports.EventTypeHistoryUpdated, ev.Type)
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, []string{"> ping"}, ev.Entries)
		assert.Equal(t, `<div class="notification">&gt; ping</div>`, ev.Fragment)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
	assert.Equal(t, []string{"> ping"}, doc.Entries())
	assert.Equal(t, 1, metrics.count("published_success"))
}

func TestOnMessage_PublishFailureIsCounted(t *testing.T) {
	metrics := newFakeMetrics()
	renderer := &recordingRenderer{}
	n := New(history.New(memory.NewKVStore(), "", 0), renderer, metrics, zap.NewNop(), WithEventBus(failingBus{}))

	n.OnMessage(context.Background(), "x")

	assert.Equal(t, 1, metrics.count("published_failed"))
	assert.Len(t, renderer.calls, 1)
}

func TestOnClose_DoesNotTouchHistory(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()
	require.NoError(t, store.Set(ctx, history.DefaultKey, `["a"]`))
	renderer := &recordingRenderer{}
	metrics := newFakeMetrics()
	metrics.up = true

	New(history.New(store, "", 0), renderer, metrics, zap.NewNop()).OnClose(ctx, errors.New("eof"))

	assert.Empty(t, renderer.calls)
	assert.False(t, metrics.up)
	raw, _, err := store.Get(ctx, history.DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, raw)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	store := memory.NewKVStore()
	require.NoError(t, store.Set(ctx, history.DefaultKey, `["x","y"]`))
	renderer := &recordingRenderer{}

	got := New(history.New(store, "", 0), renderer, newFakeMetrics(), zap.NewNop()).Refresh(ctx)

	assert.Equal(t, []string{"x", "y"}, got)
	assert.Equal(t, got, renderer.last())
}

func TestRenderMatchesLoadAfterAppends(t *testing.T) {
	ctx := context.Background()
	h := history.New(memory.NewKVStore(), "", 0)
	doc := render.NewDocument(render.Config{})
	n := New(h, doc, newFakeMetrics(), zap.NewNop())

	for i := 0; i < 9; i++ {
		n.OnMessage(ctx, fmt.Sprintf("m%d", i))

		res, err := h.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, res.Entries, doc.Entries())
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "Новое уведомление: hello", Format(DefaultLabel, "hello"))
	assert.Equal(t, "Новое уведомление: ", Format(DefaultLabel, ""))
}

var _ ports.LifecycleHandler = (*Notifier)(nil)

// slowStore delays reads and reports when one starts
type slowStore struct {
	*memory.KVStore
	started chan struct{}
	delay   time.Duration
}

func (s *slowStore) Get(ctx context.Context, key string) (string, bool, error) {
	select {
	case s.started <- struct{}{}:
	default:
	}
	time.Sleep(s.delay)
	return s.KVStore.Get(ctx, key)
}

func TestOnMessage_BinaryFrameRendersStoredText(t *testing.T) {
	ctx := context.Background()
	h := history.New(memory.NewKVStore(), "", 0)
	doc := render.NewDocument(render.Config{})
	n := New(h, doc, newFakeMetrics(), zap.NewNop(), WithLabel(""))

	n.OnMessage(ctx, "bin\xff")

	res, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bin\uFFFD"}, res.Entries)
	assert.Equal(t, res.Entries, doc.Entries())
}

func TestClear(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewKVStore()
	require.NoError(t, store.Set(ctx, history.DefaultKey, `["a"]`))
	bus := eventsmemory.NewBus(4, zap.NewNop())
	events, err := bus.Subscribe(ctx)
	require.NoError(t, err)
	doc := render.NewDocument(render.Config{})
	doc.Render([]string{"a"})

	n := New(history.New(store, "", 0), doc, newFakeMetrics(), zap.NewNop(), WithEventBus(bus))
	got, err := n.Clear(ctx)
	require.NoError(t, err)

	assert.Empty(t, got)
	assert.Empty(t, doc.Entries())
	select {
	case ev := <-events:
		assert.Empty(t, ev.Entries)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestClear_WriteFailure(t *testing.T) {
	ctx := context.Background()
	base := memory.NewKVStore()
	require.NoError(t, base.Set(ctx, history.DefaultKey, `["a"]`))
	renderer := &recordingRenderer{}

	_, err := New(history.New(readOnlyStore{base}, "", 0), renderer, newFakeMetrics(), zap.NewNop()).Clear(ctx)

	assert.ErrorIs(t, err, history.ErrWriteFailed)
	assert.Empty(t, renderer.calls)
}

func TestClear_DuringAppendIsNotUndone(t *testing.T) {
	ctx := context.Background()
	base := memory.NewKVStore()
	require.NoError(t, base.Set(ctx, history.DefaultKey, `["old1","old2"]`))
	store := &slowStore{KVStore: base, started: make(chan struct{}, 1), delay: 50 * time.Millisecond}
	h := history.New(store, "", 0)
	doc := render.NewDocument(render.Config{})
	n := New(h, doc, newFakeMetrics(), zap.NewNop(), WithLabel(""))

	done := make(chan struct{})
	go func() {
		defer close(done)
		n.OnMessage(ctx, "new")
	}()

	select {
	case <-store.started:
	case <-time.After(time.Second):
		t.Fatal("append never read the store")
	}

	got, err := n.Clear(ctx)
	require.NoError(t, err)
	<-done

	assert.Empty(t, got)
	res, err := h.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, res.Entries)
	assert.Empty(t, doc.Entries())
}
