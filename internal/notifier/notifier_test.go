package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"macrotrack/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestFormatNotes(t *testing.T) {
	tests := []struct {
		name  string
		food  string
		notes string
		want  string
	}{
		{name: "joined", food: "Oatmeal", notes: "1 cup with berries", want: "Oatmeal - 1 cup with berries"},
		{name: "notes mention name", food: "Oatmeal", notes: "A bowl of oatmeal", want: "A bowl of oatmeal"},
		{name: "case insensitive", food: "BANANA", notes: "one banana, medium", want: "one banana, medium"},
		{name: "empty notes", food: "Apple", notes: "  ", want: "Apple"},
		{name: "empty name", food: "", notes: "something", want: "something"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatNotes(tc.food, tc.notes))
		})
	}
}

func sampleEntry() model.FoodEntry {
	return model.FoodEntry{
		ID:     "e1",
		UserID: "u1",
		Name:   "Chicken salad",
		Notes:  "large bowl",
		Macros: model.Macros{Calories: 450, Protein: 35, Carbs: 12, Fat: 28},
	}
}

func TestForEntry(t *testing.T) {
	n := ForEntry("https://hook.example/in", sampleEntry())
	assert.Equal(t, "https://hook.example/in", n.TargetURL)
	assert.Equal(t, "e1", n.EntryID)
	assert.Equal(t, Payload{UID: "u1", Calories: 450, Protein: 35, Carbs: 12, Fat: 28, Notes: "Chicken salad - large bowl"}, n.Payload)
}

func TestHTTPNotifierPostsPayload(t *testing.T) {
	got := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		var m map[string]any
		assert.NoError(t, json.Unmarshal(body, &m))
		got <- m
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	h := &HTTPNotifier{client: srv.Client()}
	require.NoError(t, h.Notify(context.Background(), ForEntry(srv.URL, sampleEntry())))

	body := <-got
	assert.Equal(t, "u1", body["uid"])
	assert.Equal(t, 450.0, body["calories"])
	assert.Equal(t, "Chicken salad - large bowl", body["notes"])
	assert.NotContains(t, body, "target_url")
}

func TestHTTPNotifierStatusError(t *testing.T) {
	code := http.StatusServiceUnavailable
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}))
	defer srv.Close()
	h := &HTTPNotifier{client: srv.Client()}

	err := h.Notify(context.Background(), ForEntry(srv.URL, sampleEntry()))
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Retryable())

	code = http.StatusBadRequest
	err = h.Notify(context.Background(), ForEntry(srv.URL, sampleEntry()))
	require.ErrorAs(t, err, &se)
	assert.False(t, se.Retryable())
}

func TestNotifiersRequireTarget(t *testing.T) {
	n := ForEntry("", sampleEntry())
	assert.ErrorIs(t, NewHTTPNotifier(time.Second).Notify(context.Background(), n), ErrNoTarget)
	assert.ErrorIs(t, NewQueueNotifier(&fakeSender{}, "q").Notify(context.Background(), n), ErrNoTarget)
	assert.ErrorIs(t, NewPubSubNotifier(&fakePublisher{}, "t").Notify(context.Background(), n), ErrNoTarget)
}

type fakeSender struct {
	queue string
	data  []byte
}

func (f *fakeSender) Send(_ context.Context, queue string, payload []byte) error {
	f.queue = queue
	f.data = payload
	return nil
}

type fakePublisher struct {
	topic string
	data  []byte
	attrs map[string]string
}

func (f *fakePublisher) Publish(_ context.Context, topic string, payload []byte, attrs map[string]string) (string, error) {
	f.topic, f.data, f.attrs = topic, payload, attrs
	return "msg-1", nil
}

func TestQueueNotifierEnqueuesEnvelope(t *testing.T) {
	s := &fakeSender{}
	require.NoError(t, NewQueueNotifier(s, "webhook_queue").Notify(context.Background(), ForEntry("https://hook.example", sampleEntry())))

	assert.Equal(t, "webhook_queue", s.queue)
	var n Notification
	require.NoError(t, json.Unmarshal(s.data, &n))
	assert.Equal(t, ForEntry("https://hook.example", sampleEntry()), n)
}

func TestPubSubNotifierPublishesEnvelope(t *testing.T) {
	p := &fakePublisher{}
	require.NoError(t, NewPubSubNotifier(p, "entry-saved").Notify(context.Background(), ForEntry("https://hook.example", sampleEntry())))

	assert.Equal(t, "entry-saved", p.topic)
	assert.Equal(t, map[string]string{"entry_id": "e1", "uid": "u1"}, p.attrs)
	var n Notification
	require.NoError(t, json.Unmarshal(p.data, &n))
	assert.Equal(t, "https://hook.example", n.TargetURL)
}

type recordingNotifier struct {
	mu    sync.Mutex
	seen  []string
	err   error
	delay time.Duration
}

func (r *recordingNotifier) Notify(ctx context.Context, n Notification) error {
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, n.EntryID)
	return r.err
}

func TestAsyncCloseWaitsForInFlight(t *testing.T) {
	rec := &recordingNotifier{delay: 20 * time.Millisecond}
	a := NewAsync(rec, BackendHTTP, time.Second, nil, zerolog.Nop())

	for _, id := range []string{"a", "b", "c"} {
		n := ForEntry("https://hook.example", sampleEntry())
		n.EntryID = id
		require.NoError(t, a.Notify(context.Background(), n))
	}
	a.Close()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.ElementsMatch(t, []string{"a", "b", "c"}, rec.seen)
}

func TestAsyncSwallowsFailures(t *testing.T) {
	rec := &recordingNotifier{err: errors.New("boom")}
	a := NewAsync(rec, BackendQueue, time.Second, nil, zerolog.Nop())
	assert.NoError(t, a.Notify(context.Background(), ForEntry("https://hook.example", sampleEntry())))
	a.Close()
	assert.Len(t, rec.seen, 1)
}

func TestAsyncIgnoresNotifyAfterClose(t *testing.T) {
	rec := &recordingNotifier{}
	a := NewAsync(rec, BackendHTTP, time.Second, nil, zerolog.Nop())
	a.Close()
	assert.NoError(t, a.Notify(context.Background(), ForEntry("https://hook.example", sampleEntry())))
	assert.Empty(t, rec.seen)
}

func TestAsyncOutlivesRequestContext(t *testing.T) {
	rec := &recordingNotifier{delay: 10 * time.Millisecond}
	a := NewAsync(rec, BackendHTTP, time.Second, nil, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, a.Notify(ctx, ForEntry("https://hook.example", sampleEntry())))
	cancel()
	a.Close()
	assert.Equal(t, []string{"e1"}, rec.seen)
}
