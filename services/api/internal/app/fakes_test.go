package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/estatehub/marketplace/services/api/internal/domain"
)

// fakeStatusRepo is an in-memory store whose WithTx serializes transactions
// and rolls back every change made inside a failed one.
type fakeStatusRepo struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	listings map[string]domain.Listing
	history  []domain.StatusHistoryRecord

	casErr     map[string]error
	insertErr  error
	getErr     error
	dueErr     error
	onGet      func()
	onDue      func()
	afterList  func()
	casCalls   int
	insertRuns int
}

func newFakeStatusRepo(listings ...domain.Listing) *fakeStatusRepo {
	f := &fakeStatusRepo{
		listings: make(map[string]domain.Listing),
		casErr:   make(map[string]error),
	}
	for _, l := range listings {
		f.listings[l.ID] = l
	}
	return f
}

func (f *fakeStatusRepo) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	f.mu.Lock()
	listings := make(map[string]domain.Listing, len(f.listings))
	for k, v := range f.listings {
		listings[k] = v
	}
	historyLen := len(f.history)
	f.mu.Unlock()

	if err := fn(ctx); err != nil {
		f.mu.Lock()
		f.listings = listings
		f.history = f.history[:historyLen]
		f.mu.Unlock()
		return err
	}
	return nil
}

func (f *fakeStatusRepo) GetListing(_ context.Context, id string) (domain.Listing, error) {
	if f.onGet != nil {
		f.onGet()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return domain.Listing{}, f.getErr
	}
	l, ok := f.listings[id]
	if !ok {
		return domain.Listing{}, domain.ErrListingNotFound
	}
	return l, nil
}

func (f *fakeStatusRepo) CompareAndSetStatus(_ context.Context, id string, expected domain.ListingStatus, update domain.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.casCalls++
	if err := f.casErr[id]; err != nil {
		return err
	}
	l, ok := f.listings[id]
	if !ok {
		return domain.ErrListingNotFound
	}
	if l.Status != expected {
		return domain.ErrConflict
	}
	update.Apply(&l)
	f.listings[id] = l
	return nil
}

func (f *fakeStatusRepo) InsertHistory(_ context.Context, rec domain.StatusHistoryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insertRuns++
	if f.insertErr != nil {
		return f.insertErr
	}
	f.history = append(f.history, rec)
	return nil
}

func (f *fakeStatusRepo) ListHistory(_ context.Context, listingID string) ([]domain.StatusHistoryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.StatusHistoryRecord
	for i := len(f.history) - 1; i >= 0; i-- {
		if f.history[i].ListingID == listingID {
			out = append(out, f.history[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].OccurredAt.After(out[j].OccurredAt)
	})
	return out, nil
}

func (f *fakeStatusRepo) ListExpiryDue(_ context.Context, now time.Time) ([]string, error) {
	if f.onDue != nil {
		f.onDue()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dueErr != nil {
		return nil, f.dueErr
	}
	var ids []string
	for id, l := range f.listings {
		if l.ExpiryDue(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeStatusRepo) CreateListing(_ context.Context, l domain.Listing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings[l.ID] = l
	return nil
}

func (f *fakeStatusRepo) ListByStatus(_ context.Context, status domain.ListingStatus) ([]domain.Listing, error) {
	f.mu.Lock()
	var out []domain.Listing
	for _, l := range f.listings {
		if l.Status == status {
			out = append(out, l)
		}
	}
	f.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.afterList != nil {
		f.afterList()
	}
	return out, nil
}

func (f *fakeStatusRepo) historyFor(listingID string) []domain.StatusHistoryRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.StatusHistoryRecord
	for _, r := range f.history {
		if r.ListingID == listingID {
			out = append(out, r)
		}
	}
	return out
}

type fakeRoles struct {
	reviewers map[string]bool
	err       error
}

func (f fakeRoles) IsReviewer(_ context.Context, actorID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.reviewers[actorID], nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []StatusChangedEvent
	err    error
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, event StatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

type fakeActiveCache struct {
	mu          sync.Mutex
	listings    []domain.Listing
	present     bool
	generation  int64
	storedGen   int64
	invalidated int
	sets        int
}

func (c *fakeActiveCache) GetActive(context.Context) ([]domain.Listing, int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listings, c.generation, c.present && c.storedGen == c.generation, nil
}

func (c *fakeActiveCache) SetActive(_ context.Context, generation int64, listings []domain.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings = listings
	c.present = true
	c.storedGen = generation
	c.sets++
	return nil
}

func (c *fakeActiveCache) InvalidateActive(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.invalidated++
	return nil
}

type recordingMetrics struct {
	mu       sync.Mutex
	outcomes []string
	runs     int
	took     []time.Duration
}

func (m *recordingMetrics) ObserveTransition(_, _ domain.ListingStatus, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, outcome)
}

func (m *recordingMetrics) ObserveExpiryRun(_, _ int, took time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs++
	m.took = append(m.took, took)
}
