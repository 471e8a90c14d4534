package service

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/archive"
	"github.com/shopforge/invoicepress/internal/clock"
	"github.com/shopforge/invoicepress/internal/config"
	invoicedomain "github.com/shopforge/invoicepress/internal/invoice/domain"
	"github.com/shopforge/invoicepress/internal/metrics"
	"github.com/shopforge/invoicepress/internal/printjob/domain"
	"github.com/shopforge/invoicepress/internal/printjob/queue"
	"github.com/shopforge/invoicepress/internal/storage"
)

// fakeGenerator saves a real artifact per successful order so the
// bundler reads genuine bytes back out of storage.
type fakeGenerator struct {
	mu      sync.Mutex
	gateway storage.Gateway
	fail    map[string]error
	calls   []string
	onDone  func(call int)
	seq     int
}

func (g *fakeGenerator) GenerateOne(ctx context.Context, shop, orderID string, _ invoicedomain.GenerateOptions) (*invoicedomain.GenerateResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, orderID)

	defer func() {
		if g.onDone != nil {
			g.onDone(len(g.calls))
		}
	}()

	if err, ok := g.fail[orderID]; ok {
		return nil, err
	}

	g.seq++
	number := fmt.Sprintf("INV-%d", 1000+g.seq)
	artifact, err := g.gateway.Save(ctx, shop, number+".pdf", []byte("%PDF-stub-"+orderID))
	if err != nil {
		return nil, err
	}
	return &invoicedomain.GenerateResult{
		InvoiceNumber: number,
		ArtifactKey:   artifact.Key,
		Size:          artifact.Size,
	}, nil
}

// memoryLocker mirrors the redis lock's token semantics in-process so
// lock lifecycle is testable without a server.
type memoryLocker struct {
	mu   sync.Mutex
	seq  int
	held map[string]string
}

func newMemoryLocker() *memoryLocker {
	return &memoryLocker{held: map[string]string{}}
}

func (l *memoryLocker) Acquire(_ context.Context, key string, _ time.Duration) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[key]; taken {
		return "", false
	}
	l.seq++
	token := fmt.Sprintf("token-%d", l.seq)
	l.held[key] = token
	return token, true
}

func (l *memoryLocker) Release(_ context.Context, key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
	}
}

func (l *memoryLocker) holds(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, taken := l.held[key]
	return taken
}

// failingQueue rejects every enqueue.
type failingQueue struct {
	queue.Queue
}

func (failingQueue) Enqueue(context.Context, snowflake.ID, string) error {
	return fmt.Errorf("queue unavailable")
}

type testHarness struct {
	svc     domain.Service
	db      *gorm.DB
	gen     *fakeGenerator
	gateway storage.Gateway
	queue   *queue.MemoryQueue
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	return newHarnessWith(t, nil, nil)
}

func newHarnessWith(t *testing.T, locker ShopLocker, q queue.Queue) *testHarness {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, gdb.AutoMigrate(&domain.PrintJob{}))

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	cfg := config.Config{StorageRoot: t.TempDir()}
	cfg.Worker.ItemTimeout = 5 * time.Second
	cfg.Worker.MaxJobRetries = 2
	cfg.Worker.RetryBackoff = time.Millisecond

	gateway, err := storage.NewGateway(cfg, clk, log)
	require.NoError(t, err)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	gen := &fakeGenerator{gateway: gateway, fail: map[string]error{}}
	memQueue := queue.NewMemoryQueue()
	if q == nil {
		q = memQueue
	}

	svc := NewService(Params{
		Cfg:       cfg,
		Log:       log,
		DB:        gdb,
		GenID:     node,
		Clock:     clk,
		Generator: gen,
		Queue:     q,
		Bundler:   archive.NewBundler(gateway, log),
		Storage:   gateway,
		Metrics:   metrics.New(),
		Locker:    locker,
	})

	return &testHarness{svc: svc, db: gdb, gen: gen, gateway: gateway, queue: memQueue}
}

func TestBulk_PartialFailureCompletesWithCounts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	orders := []string{"101", "102", "103", "104", "105"}
	h.gen.fail["103"] = fmt.Errorf("%w: order 103", apperr.ErrNotFound)

	job, err := h.svc.CreateBulk(ctx, "acme.example.com", orders, "classic")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusQueued, job.Status)

	require.NoError(t, h.svc.Process(ctx, job.ID))

	got, err := h.svc.Get(ctx, "acme.example.com", job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Equal(t, 4, got.CompletedCount)
	assert.Equal(t, 1, got.FailedCount)
	assert.Equal(t, 100, got.Progress)
	assert.Contains(t, got.Error, "103")
	require.NotEmpty(t, got.ArtifactKey)
	assert.Equal(t, "/api/artifacts/"+got.ArtifactKey, DownloadURL(got))

	// The archive holds exactly the four successful invoices.
	data, err := h.gateway.Get(ctx, "acme.example.com", got.ArtifactKey)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 4)
	for _, f := range zr.File {
		assert.Regexp(t, `^INV-\d+\.pdf$`, f.Name)
	}
}

func TestBulk_AllOrdersFailedIsFailed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	orders := []string{"201", "202"}
	for _, id := range orders {
		h.gen.fail[id] = fmt.Errorf("%w: order %s", apperr.ErrNotFound, id)
	}

	job, err := h.svc.CreateBulk(ctx, "acme.example.com", orders, "")
	require.NoError(t, err)
	require.NoError(t, h.svc.Process(ctx, job.ID))

	got, err := h.svc.Get(ctx, "acme.example.com", job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.Equal(t, 0, got.CompletedCount)
	assert.Equal(t, 2, got.FailedCount)
	assert.Equal(t, 100, got.Progress)
	assert.Empty(t, got.ArtifactKey)
}

func TestBulk_ResourceOutageRetriesThenFails(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	orders := []string{"301", "302", "303"}
	for _, id := range orders {
		h.gen.fail[id] = apperr.NewResource("render", fmt.Errorf("engine down"))
	}

	job, err := h.svc.CreateBulk(ctx, "acme.example.com", orders, "")
	require.NoError(t, err)

	err = h.svc.Process(ctx, job.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsResource(err))

	got, getErr := h.svc.Get(ctx, "acme.example.com", job.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	// Initial run plus two retries.
	assert.Equal(t, 3, got.Attempts)
	// Each run aborts after the resource threshold, three calls per run.
	assert.Len(t, h.gen.calls, 9)
}

func TestBulk_CancelBetweenItems(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.svc.CreateBulk(ctx, "acme.example.com", []string{"401", "402", "403", "404"}, "")
	require.NoError(t, err)

	h.gen.onDone = func(call int) {
		if call == 2 {
			require.NoError(t, h.svc.Cancel(ctx, "acme.example.com", job.ID))
		}
	}

	require.NoError(t, h.svc.Process(ctx, job.ID))

	got, err := h.svc.Get(ctx, "acme.example.com", job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCancelled, got.Status)
	assert.Equal(t, 2, got.CompletedCount)
	assert.Equal(t, 0, got.FailedCount)
	// Progress keeps the value reached before cancellation.
	assert.Equal(t, 50, got.Progress)
	assert.Len(t, h.gen.calls, 2)
}

func TestGenerateSingle_Success(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, result, err := h.svc.GenerateSingle(ctx, "acme.example.com", "42", invoicedomain.GenerateOptions{Layout: "modern"})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "INV-1001", result.InvoiceNumber)

	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.CompletedCount)
	assert.Equal(t, result.ArtifactKey, job.ArtifactKey)
}

func TestGenerateSingle_FailsFast(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.gen.fail["42"] = fmt.Errorf("%w: order 42", apperr.ErrNotFound)

	job, result, err := h.svc.GenerateSingle(ctx, "acme.example.com", "42", invoicedomain.GenerateOptions{})
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
	assert.Nil(t, result)

	require.NotNil(t, job)
	assert.Equal(t, domain.JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.FailedCount)
}

func TestCreateBulk_ValidationAccumulates(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.CreateBulk(ctx, "  ", []string{"1", ""}, "")
	require.Error(t, err)
	require.True(t, apperr.IsValidation(err))

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Violations, 2)
}

func TestCreateBulk_EmptyOrderList(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.CreateBulk(context.Background(), "acme.example.com", nil, "")
	require.Error(t, err)
	assert.True(t, apperr.IsValidation(err))
}

func TestGet_ScopedToShop(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.svc.CreateBulk(ctx, "acme.example.com", []string{"1"}, "")
	require.NoError(t, err)

	_, err = h.svc.Get(ctx, "other.example.com", job.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsNotFound(err))
}

func TestCancel_TerminalJobIsConflict(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	job, err := h.svc.CreateBulk(ctx, "acme.example.com", []string{"1"}, "")
	require.NoError(t, err)
	require.NoError(t, h.svc.Process(ctx, job.ID))

	err = h.svc.Cancel(ctx, "acme.example.com", job.ID)
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))
}

func TestCreateBulk_LockHeldUntilJobTerminates(t *testing.T) {
	locker := newMemoryLocker()
	h := newHarnessWith(t, locker, nil)
	ctx := context.Background()

	job, err := h.svc.CreateBulk(ctx, "acme.example.com", []string{"101", "102"}, "classic")
	require.NoError(t, err)
	assert.True(t, locker.holds("bulk:acme.example.com"))

	_, err = h.svc.CreateBulk(ctx, "acme.example.com", []string{"103"}, "classic")
	require.Error(t, err)
	assert.True(t, apperr.IsConflict(err))

	// Other shops are serialized independently.
	_, err = h.svc.CreateBulk(ctx, "other.example.com", []string{"104"}, "classic")
	require.NoError(t, err)

	require.NoError(t, h.svc.Process(ctx, job.ID))

	got, err := h.svc.Get(ctx, "acme.example.com", job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, got.Status)
	assert.Empty(t, got.LockToken)
	assert.False(t, locker.holds("bulk:acme.example.com"))

	_, err = h.svc.CreateBulk(ctx, "acme.example.com", []string{"105"}, "classic")
	require.NoError(t, err)
}

func TestCreateBulk_FailedJobReleasesLock(t *testing.T) {
	locker := newMemoryLocker()
	h := newHarnessWith(t, locker, nil)
	ctx := context.Background()

	h.gen.fail["201"] = fmt.Errorf("%w: order 201", apperr.ErrNotFound)

	job, err := h.svc.CreateBulk(ctx, "acme.example.com", []string{"201"}, "classic")
	require.NoError(t, err)
	require.NoError(t, h.svc.Process(ctx, job.ID))

	got, err := h.svc.Get(ctx, "acme.example.com", job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, got.Status)
	assert.False(t, locker.holds("bulk:acme.example.com"))
}

func TestCreateBulk_EnqueueFailureReleasesLock(t *testing.T) {
	locker := newMemoryLocker()
	h := newHarnessWith(t, locker, failingQueue{})
	ctx := context.Background()

	_, err := h.svc.CreateBulk(ctx, "acme.example.com", []string{"101"}, "classic")
	require.Error(t, err)
	assert.False(t, apperr.IsConflict(err))
	assert.False(t, locker.holds("bulk:acme.example.com"))

	// The slot is immediately reusable.
	_, ok := locker.Acquire(ctx, "bulk:acme.example.com", time.Minute)
	assert.True(t, ok)
}
