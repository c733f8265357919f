package relay_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/vendor-relay/relay"
	"github.com/marcelsud/vendor-relay/relay/mocks"
	"github.com/marcelsud/vendor-relay/targets"
	"github.com/marcelsud/vendor-relay/webhook"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const rawBody = `{"object":"whatsapp_business_account","entry":[{"id":"1","changes":[{"value":{"messages":[{"id":"wamid.XYZ","type":"text"}]}}]}]}`

type received struct {
	Headers http.Header
	Body    []byte
}

type captureServer struct {
	*httptest.Server
	mu    sync.Mutex
	calls []received
}

func newCaptureServer(t *testing.T, status int) *captureServer {
	t.Helper()
	cs := &captureServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		cs.mu.Lock()
		cs.calls = append(cs.calls, received{Headers: r.Header.Clone(), Body: body})
		cs.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *captureServer) Calls() []received {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	return append([]received(nil), cs.calls...)
}

func testEvent() webhook.Event {
	return webhook.Event{
		MessageID:  "wamid.XYZ",
		Kind:       "message.text",
		RawBody:    []byte(rawBody),
		ReceivedAt: time.Now(),
	}
}

func newLoader(t *testing.T, list ...*targets.Target) *targets.Loader {
	t.Helper()
	loader := targets.NewLoader()
	for _, target := range list {
		require.NoError(t, loader.Add(target))
	}
	return loader
}

func TestForward(t *testing.T) {
	ctx := context.Background()

	t.Run("success - body verbatim and relay headers", func(t *testing.T) {
		crm := newCaptureServer(t, http.StatusOK)
		analytics := newCaptureServer(t, http.StatusAccepted)
		loader := newLoader(t,
			&targets.Target{Label: "crm", URL: crm.URL},
			&targets.Target{Label: "analytics", URL: analytics.URL},
		)
		f := relay.NewForwarder(loader, "relay-secret", time.Second, zerolog.Nop())

		summary := f.Forward(ctx, testEvent(), loader.List())

		assert.Equal(t, "wamid.XYZ", summary.MessageID)
		assert.Equal(t, 2, summary.Delivered)
		assert.Equal(t, 0, summary.Failed)
		for _, cs := range []*captureServer{crm, analytics} {
			calls := cs.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, []byte(rawBody), calls[0].Body)
			assert.Equal(t, "relay-secret", calls[0].Headers.Get(relay.HeaderSecret))
			assert.Equal(t, "wamid.XYZ", calls[0].Headers.Get(relay.HeaderMessageID))
			assert.Equal(t, "application/json", calls[0].Headers.Get("Content-Type"))
		}
	})

	t.Run("isolation - dead and slow targets do not block a healthy one", func(t *testing.T) {
		healthy := newCaptureServer(t, http.StatusOK)

		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()

		release := make(chan struct{})
		slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(slow.Close)
		t.Cleanup(func() { close(release) })

		list := []*targets.Target{
			{Label: "dead", URL: deadURL},
			{Label: "healthy", URL: healthy.URL},
			{Label: "slow", URL: slow.URL, Timeout: 200 * time.Millisecond},
		}
		f := relay.NewForwarder(newLoader(t, list...), "s", 5*time.Second, zerolog.Nop())

		start := time.Now()
		summary := f.Forward(ctx, testEvent(), list)
		elapsed := time.Since(start)

		assert.Equal(t, 1, summary.Delivered)
		assert.Equal(t, 2, summary.Failed)
		assert.Less(t, elapsed, 2*time.Second)
		require.Len(t, healthy.Calls(), 1)

		byTarget := map[string]relay.Outcome{}
		for _, o := range summary.Outcomes {
			byTarget[o.Target] = o
		}
		assert.Equal(t, relay.Failed, byTarget["dead"].Result)
		assert.Error(t, byTarget["dead"].Err)
		assert.Equal(t, relay.Failed, byTarget["slow"].Result)
		assert.ErrorIs(t, byTarget["slow"].Err, context.DeadlineExceeded)
		assert.Equal(t, relay.Delivered, byTarget["healthy"].Result)
	})

	t.Run("failure - non-2xx status", func(t *testing.T) {
		broken := newCaptureServer(t, http.StatusInternalServerError)
		list := []*targets.Target{{Label: "broken", URL: broken.URL}}
		f := relay.NewForwarder(newLoader(t, list...), "s", time.Second, zerolog.Nop())

		summary := f.Forward(ctx, testEvent(), list)

		require.Len(t, summary.Outcomes, 1)
		assert.Equal(t, relay.Failed, summary.Outcomes[0].Result)
		assert.Equal(t, http.StatusInternalServerError, summary.Outcomes[0].StatusCode)
		assert.Contains(t, summary.Outcomes[0].Err.Error(), "responded with status: 500")
		require.Len(t, broken.Calls(), 1, "no retries")
	})

	t.Run("filter - targets not subscribed to the kind are skipped", func(t *testing.T) {
		statuses := newCaptureServer(t, http.StatusOK)
		all := newCaptureServer(t, http.StatusOK)
		list := []*targets.Target{
			{Label: "statuses", URL: statuses.URL, Events: []string{"status.*"}},
			{Label: "all", URL: all.URL},
		}
		recorder := mocks.NewRecorder(t)
		recorder.On("RelayOutcome", mock.Anything, "statuses", "skipped").Return()
		recorder.On("RelayOutcome", mock.Anything, "all", "delivered").Return()

		f := relay.NewForwarder(newLoader(t, list...), "s", time.Second, zerolog.Nop())
		f.Recorder = recorder

		summary := f.Forward(ctx, testEvent(), list)

		assert.Equal(t, 1, summary.Skipped)
		assert.Equal(t, 1, summary.Delivered)
		assert.Empty(t, statuses.Calls())
		assert.Len(t, all.Calls(), 1)
	})

	t.Run("no targets", func(t *testing.T) {
		f := relay.NewForwarder(targets.NewLoader(), "s", time.Second, zerolog.Nop())
		summary := f.Forward(ctx, testEvent(), nil)
		assert.Empty(t, summary.Outcomes)
	})
}

func TestGo(t *testing.T) {
	t.Run("fan-out survives cancellation of the request context", func(t *testing.T) {
		target := newCaptureServer(t, http.StatusOK)
		f := relay.NewForwarder(newLoader(t, &targets.Target{Label: "crm", URL: target.URL}), "s", time.Second, zerolog.Nop())

		reqCtx, cancel := context.WithCancel(context.Background())
		f.Go(reqCtx, testEvent())
		cancel()

		waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer waitCancel()
		require.NoError(t, f.Wait(waitCtx))

		require.Len(t, target.Calls(), 1)
	})

	t.Run("wait gives up when its context expires", func(t *testing.T) {
		release := make(chan struct{})
		blocked := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		t.Cleanup(blocked.Close)

		f := relay.NewForwarder(newLoader(t, &targets.Target{Label: "blocked", URL: blocked.URL}), "s", 10*time.Second, zerolog.Nop())
		f.Go(context.Background(), testEvent())

		waitCtx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := f.Wait(waitCtx)
		require.ErrorIs(t, err, context.DeadlineExceeded)

		close(release)
		require.NoError(t, f.Wait(context.Background()))
	})
}

func TestForward_LogsFailures(t *testing.T) {
	broken := newCaptureServer(t, http.StatusBadGateway)
	list := []*targets.Target{{Label: "broken", URL: broken.URL}}

	var buf bytes.Buffer
	f := relay.NewForwarder(newLoader(t, list...), "s", time.Second, zerolog.New(&buf))
	f.Forward(context.Background(), testEvent(), list)

	assert.Contains(t, buf.String(), `"target":"broken"`)
	assert.Contains(t, buf.String(), "relay delivery failed")
	assert.Contains(t, buf.String(), `"failed":1`)
}
