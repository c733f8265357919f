package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/marcelsud/vendor-relay/dispatch"
	"github.com/marcelsud/vendor-relay/dispatch/memory"
	"github.com/marcelsud/vendor-relay/dispatch/mocks"
	"github.com/marcelsud/vendor-relay/idempotency"
	idemmocks "github.com/marcelsud/vendor-relay/idempotency/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testRules = dispatch.DefaultRules(15*time.Minute, "shop_opening_soon", "shop_open_now")

func testVendor() dispatch.Vendor {
	return dispatch.Vendor{ID: "v1", Name: "Chai Point", Phone: "919800000001", OpenTime: "10:00", Timezone: "Asia/Kolkata"}
}

// 10:00 in Asia/Kolkata: the open slot is due, preOpen is not
var openTick = time.Date(2024, 5, 18, 4, 30, 0, 0, time.UTC)

func resultFor(t *testing.T, report dispatch.Report, vendorID string, slot dispatch.Slot) dispatch.Result {
	t.Helper()
	for _, r := range report.Results {
		if r.VendorID == vendorID && r.Slot == slot.String() {
			return r
		}
	}
	t.Fatalf("no result for %s/%s", vendorID, slot)
	return dispatch.Result{}
}

func TestScheduler_Tick(t *testing.T) {
	ctx := context.Background()
	openKey := idempotency.DispatchKey("v1", "2024-05-18", "open")

	t.Run("success - due slot is claimed, sent and logged", func(t *testing.T) {
		directory := mocks.NewDirectory(t)
		logs := mocks.NewLogRepository(t)
		ledger := idemmocks.NewStore(t)
		sender := mocks.NewSender(t)
		recorder := mocks.NewRecorder(t)
		s := dispatch.NewScheduler(directory, logs, ledger, sender, testRules, zerolog.Nop())
		s.Recorder = recorder
		s.Now = func() time.Time { return openTick.Add(2 * time.Second) }

		directory.On("ListVendorsWithContactNumber", ctx).Return([]dispatch.Vendor{testVendor()}, nil)
		logs.On("Exists", ctx, "v1", "2024-05-18", dispatch.Open).Return(false, nil)
		ledger.On("CheckAndMark", ctx, openKey, time.Duration(0)).Return(false, nil)
		sender.On("SendTemplate", mock.Anything, "919800000001", "shop_open_now").Return("wamid.OUT1", nil)
		logs.On("Record", mock.Anything, mock.MatchedBy(func(e dispatch.LogEntry) bool {
			return e.VendorID == "v1" &&
				e.Date == "2024-05-18" &&
				e.Slot == dispatch.Open &&
				e.MessageID == "wamid.OUT1" &&
				e.Success &&
				e.Error == "" &&
				e.ID != "" &&
				e.SentAt.Equal(openTick.Add(2*time.Second))
		})).Return(nil)
		recorder.On("DispatchDecision", ctx, "preOpen", "SKIP").Return()
		recorder.On("DispatchDecision", ctx, "open", "SENT").Return()

		report, err := s.Tick(ctx, openTick)

		require.NoError(t, err)
		assert.Equal(t, openTick, report.At)
		assert.Equal(t, 1, report.Counts[dispatch.Sent])
		assert.Equal(t, 1, report.Counts[dispatch.Skip])
		sent := resultFor(t, report, "v1", dispatch.Open)
		assert.Equal(t, dispatch.Sent, sent.Decision)
		assert.Equal(t, "wamid.OUT1", sent.MessageID)
		assert.Equal(t, "2024-05-18", sent.Date)
	})

	t.Run("already sent - dispatch log has the slot", func(t *testing.T) {
		directory := mocks.NewDirectory(t)
		logs := mocks.NewLogRepository(t)
		ledger := idemmocks.NewStore(t)
		s := dispatch.NewScheduler(directory, logs, ledger, mocks.NewSender(t), testRules, zerolog.Nop())

		directory.On("ListVendorsWithContactNumber", ctx).Return([]dispatch.Vendor{testVendor()}, nil)
		logs.On("Exists", ctx, "v1", "2024-05-18", dispatch.Open).Return(true, nil)

		report, err := s.Tick(ctx, openTick)

		require.NoError(t, err)
		assert.Equal(t, dispatch.AlreadySent, resultFor(t, report, "v1", dispatch.Open).Decision)
		ledger.AssertNotCalled(t, "CheckAndMark", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("already sent - ledger claim lost to another caller", func(t *testing.T) {
		directory := mocks.NewDirectory(t)
		logs := mocks.NewLogRepository(t)
		ledger := idemmocks.NewStore(t)
		sender := mocks.NewSender(t)
		s := dispatch.NewScheduler(directory, logs, ledger, sender, testRules, zerolog.Nop())

		directory.On("ListVendorsWithContactNumber", ctx).Return([]dispatch.Vendor{testVendor()}, nil)
		logs.On("Exists", ctx, "v1", "2024-05-18", dispatch.Open).Return(false, nil)
		ledger.On("CheckAndMark", ctx, openKey, time.Duration(0)).Return(true, nil)

		report, err := s.Tick(ctx, openTick)

		require.NoError(t, err)
		assert.Equal(t, dispatch.AlreadySent, resultFor(t, report, "v1", dispatch.Open).Decision)
		sender.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("failed - send error is logged and not retried", func(t *testing.T) {
		directory := mocks.NewDirectory(t)
		logs := mocks.NewLogRepository(t)
		ledger := idemmocks.NewStore(t)
		sender := mocks.NewSender(t)
		s := dispatch.NewScheduler(directory, logs, ledger, sender, testRules, zerolog.Nop())

		directory.On("ListVendorsWithContactNumber", ctx).Return([]dispatch.Vendor{testVendor()}, nil)
		logs.On("Exists", ctx, "v1", "2024-05-18", dispatch.Open).Return(false, nil)
		ledger.On("CheckAndMark", ctx, openKey, time.Duration(0)).Return(false, nil)
		sender.On("SendTemplate", mock.Anything, "919800000001", "shop_open_now").Return("", errors.New("template paused")).Once()
		logs.On("Record", mock.Anything, mock.MatchedBy(func(e dispatch.LogEntry) bool {
			return !e.Success && e.Error == "template paused" && e.MessageID == ""
		})).Return(nil)

		report, err := s.Tick(ctx, openTick)

		require.NoError(t, err)
		failed := resultFor(t, report, "v1", dispatch.Open)
		assert.Equal(t, dispatch.Failed, failed.Decision)
		assert.Contains(t, failed.Error, "template paused")
	})

	t.Run("error - fail-closed ledger blocks the send", func(t *testing.T) {
		directory := mocks.NewDirectory(t)
		logs := mocks.NewLogRepository(t)
		backend := idemmocks.NewStore(t)
		sender := mocks.NewSender(t)
		guard := idempotency.NewGuard(backend, false, zerolog.Nop())
		s := dispatch.NewScheduler(directory, logs, guard, sender, testRules, zerolog.Nop())

		directory.On("ListVendorsWithContactNumber", ctx).Return([]dispatch.Vendor{testVendor()}, nil)
		logs.On("Exists", ctx, "v1", "2024-05-18", dispatch.Open).Return(false, nil)
		backend.On("CheckAndMark", ctx, openKey, time.Duration(0)).Return(false, errors.New("i/o timeout"))

		report, err := s.Tick(ctx, openTick)

		require.NoError(t, err)
		result := resultFor(t, report, "v1", dispatch.Open)
		assert.Equal(t, dispatch.Error, result.Decision)
		assert.Contains(t, result.Error, "claiming dispatch")
		sender.AssertNotCalled(t, "SendTemplate", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("log failures never abort the tick", func(t *testing.T) {
		directory := mocks.NewDirectory(t)
		logs := mocks.NewLogRepository(t)
		ledger := idemmocks.NewStore(t)
		sender := mocks.NewSender(t)
		s := dispatch.NewScheduler(directory, logs, ledger, sender, testRules, zerolog.Nop())

		directory.On("ListVendorsWithContactNumber", ctx).Return([]dispatch.Vendor{testVendor()}, nil)
		logs.On("Exists", ctx, "v1", "2024-05-18", dispatch.Open).Return(false, errors.New("connection reset"))
		ledger.On("CheckAndMark", ctx, openKey, time.Duration(0)).Return(false, nil)
		sender.On("SendTemplate", mock.Anything, "919800000001", "shop_open_now").Return("wamid.OUT2", nil)
		logs.On("Record", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

		report, err := s.Tick(ctx, openTick)

		require.NoError(t, err)
		assert.Equal(t, dispatch.Sent, resultFor(t, report, "v1", dispatch.Open).Decision)
	})

	t.Run("error - invalid vendor does not affect the others", func(t *testing.T) {
		directory := mocks.NewDirectory(t)
		logs := mocks.NewLogRepository(t)
		ledger := idemmocks.NewStore(t)
		sender := mocks.NewSender(t)
		s := dispatch.NewScheduler(directory, logs, ledger, sender, testRules, zerolog.Nop())

		broken := dispatch.Vendor{ID: "v0", Phone: "1", OpenTime: "ten"}
		directory.On("ListVendorsWithContactNumber", ctx).Return([]dispatch.Vendor{broken, testVendor()}, nil)
		logs.On("Exists", ctx, "v1", "2024-05-18", dispatch.Open).Return(false, nil)
		ledger.On("CheckAndMark", ctx, openKey, time.Duration(0)).Return(false, nil)
		sender.On("SendTemplate", mock.Anything, "919800000001", "shop_open_now").Return("wamid.OUT3", nil)
		logs.On("Record", mock.Anything, mock.Anything).Return(nil)

		report, err := s.Tick(ctx, openTick)

		require.NoError(t, err)
		assert.Equal(t, dispatch.Error, resultFor(t, report, "v0", dispatch.Open).Decision)
		assert.Equal(t, dispatch.Sent, resultFor(t, report, "v1", dispatch.Open).Decision)
		assert.Equal(t, 2, report.Counts[dispatch.Error])
	})

	t.Run("error - directory unavailable", func(t *testing.T) {
		directory := mocks.NewDirectory(t)
		s := dispatch.NewScheduler(directory, mocks.NewLogRepository(t), idemmocks.NewStore(t), mocks.NewSender(t), testRules, zerolog.Nop())

		directory.On("ListVendorsWithContactNumber", ctx).Return(nil, errors.New("no such table"))

		_, err := s.Tick(ctx, openTick)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "listing vendors")
	})

	t.Run("default location applies to vendors without a zone", func(t *testing.T) {
		directory := mocks.NewDirectory(t)
		s := dispatch.NewScheduler(directory, mocks.NewLogRepository(t), idemmocks.NewStore(t), mocks.NewSender(t), testRules, zerolog.Nop())

		v := testVendor()
		v.Timezone = ""
		directory.On("ListVendorsWithContactNumber", ctx).Return([]dispatch.Vendor{v}, nil)

		// 04:30 UTC is not 10:00 in UTC
		report, err := s.Tick(ctx, openTick)

		require.NoError(t, err)
		assert.Equal(t, 2, report.Counts[dispatch.Skip])
	})
}

type countingSender struct {
	mu    sync.Mutex
	sends map[string]int
	total atomic.Int32
}

func (c *countingSender) SendTemplate(_ context.Context, phone, template string) (string, error) {
	n := c.total.Add(1)
	c.mu.Lock()
	c.sends[phone+"/"+template]++
	c.mu.Unlock()
	return fmt.Sprintf("wamid.OUT%d", n), nil
}

type staticDirectory []dispatch.Vendor

func (d staticDirectory) ListVendorsWithContactNumber(context.Context) ([]dispatch.Vendor, error) {
	return d, nil
}

// TestScheduler_ConcurrentTicks runs a primary and backup callers against the
// same ledger at the same instant; every (vendor, slot) is sent exactly once.
func TestScheduler_ConcurrentTicks(t *testing.T) {
	ctx := context.Background()
	ledger := idempotency.NewMemory()
	logs := memory.NewLogRepository()
	sender := &countingSender{sends: map[string]int{}}

	vendors := staticDirectory{
		{ID: "v1", Phone: "911", OpenTime: "10:00", Timezone: "Asia/Kolkata"},
		{ID: "v2", Phone: "912", OpenTime: "10:00", Timezone: "Asia/Kolkata"},
		{ID: "v3", Phone: "913", OpenTime: "10:15", Timezone: "Asia/Kolkata"}, // preOpen due at 10:00
		{ID: "v4", Phone: "914", OpenTime: "11:00", Timezone: "Asia/Kolkata"}, // nothing due
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := dispatch.NewScheduler(vendors, logs, ledger, sender, testRules, zerolog.Nop())
			_, err := s.Tick(ctx, openTick)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(3), sender.total.Load())
	assert.Equal(t, 1, sender.sends["911/shop_open_now"])
	assert.Equal(t, 1, sender.sends["912/shop_open_now"])
	assert.Equal(t, 1, sender.sends["913/shop_opening_soon"])

	entries, err := logs.ListByDate(ctx, "2024-05-18")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.True(t, e.Success)
	}

	// a later tick inside the same minute finds everything already sent
	s := dispatch.NewScheduler(vendors, logs, ledger, sender, testRules, zerolog.Nop())
	report, err := s.Tick(ctx, openTick.Add(30*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3, report.Counts[dispatch.AlreadySent])
	assert.Equal(t, int32(3), sender.total.Load())
}

// slowSender answers after delay unless its own context ends first
type slowSender struct {
	delay time.Duration
	calls atomic.Int32
}

func (s *slowSender) SendTemplate(ctx context.Context, _, _ string) (string, error) {
	s.calls.Add(1)
	select {
	case <-time.After(s.delay):
		return "wamid.SLOW", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func TestScheduler_CallerGoesAway(t *testing.T) {
	vendors := staticDirectory{testVendor()}

	t.Run("claimed send completes after the tick context ends", func(t *testing.T) {
		ledger := idempotency.NewMemory()
		logs := memory.NewLogRepository()
		sender := &slowSender{delay: 150 * time.Millisecond}
		s := dispatch.NewScheduler(vendors, logs, ledger, sender, testRules, zerolog.Nop())

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		report, err := s.Tick(ctx, openTick)

		require.NoError(t, err)
		open := resultFor(t, report, "v1", dispatch.Open)
		assert.Equal(t, dispatch.Sent, open.Decision)
		assert.Equal(t, "wamid.SLOW", open.MessageID)

		entries, err := logs.ListByDate(context.Background(), "2024-05-18")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.True(t, entries[0].Success)
	})

	t.Run("send is still bounded by SendTimeout", func(t *testing.T) {
		ledger := idempotency.NewMemory()
		logs := memory.NewLogRepository()
		sender := &slowSender{delay: time.Second}
		s := dispatch.NewScheduler(vendors, logs, ledger, sender, testRules, zerolog.Nop())
		s.SendTimeout = 20 * time.Millisecond

		report, err := s.Tick(context.Background(), openTick)

		require.NoError(t, err)
		open := resultFor(t, report, "v1", dispatch.Open)
		assert.Equal(t, dispatch.Failed, open.Decision)
		assert.Contains(t, open.Error, "deadline exceeded")
	})

	t.Run("cancelled before claim leaves the slot for the next tick", func(t *testing.T) {
		ledger := idempotency.NewMemory()
		logs := memory.NewLogRepository()
		sender := &slowSender{}
		s := dispatch.NewScheduler(vendors, logs, ledger, sender, testRules, zerolog.Nop())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		report, err := s.Tick(ctx, openTick)

		require.NoError(t, err)
		assert.Equal(t, dispatch.Error, resultFor(t, report, "v1", dispatch.Open).Decision)
		assert.Equal(t, int32(0), sender.calls.Load())

		report, err = s.Tick(context.Background(), openTick)

		require.NoError(t, err)
		assert.Equal(t, dispatch.Sent, resultFor(t, report, "v1", dispatch.Open).Decision)
		assert.Equal(t, int32(1), sender.calls.Load())
	})
}
