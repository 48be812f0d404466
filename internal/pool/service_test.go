package pool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"server/internal/domain"
)

type fakeStore struct {
	pools    map[string]*domain.Pool
	projects map[string]bool
	links    map[string]bool
}

func newFakeStore(pools ...domain.Pool) *fakeStore {
	s := &fakeStore{pools: map[string]*domain.Pool{}, projects: map[string]bool{}, links: map[string]bool{}}
	for i := range pools {
		p := pools[i]
		s.pools[p.ID] = &p
	}
	return s
}

func (s *fakeStore) Insert(ctx context.Context, p *domain.Pool) error {
	p.ID = "pool-new"
	p.CreatedAt = time.Now()
	s.pools[p.ID] = p
	return nil
}

func (s *fakeStore) UpdateTx(ctx context.Context, poolID string, fn func(pool domain.Pool, tx Tx) error) error {
	p, ok := s.pools[poolID]
	if !ok {
		return domain.ErrNotFound
	}
	return fn(*p, &fakeTx{store: s, pool: p})
}

type fakeTx struct {
	store *fakeStore
	pool  *domain.Pool
}

func (t *fakeTx) Fund(ctx context.Context, amount int64) (int64, error) {
	t.pool.TotalFunds += amount
	return t.pool.TotalFunds, nil
}

func (t *fakeTx) EndEarly(ctx context.Context) error {
	t.pool.EndedEarly = true
	return nil
}

func (t *fakeTx) ProjectExists(ctx context.Context, projectID string) (bool, error) {
	return t.store.projects[projectID], nil
}

func (t *fakeTx) Register(ctx context.Context, projectID string) error {
	t.store.links[t.pool.ID+"|"+projectID] = true
	return nil
}

func basePool() domain.Pool {
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return domain.Pool{
		ID:         "pool-1",
		Name:       "spring round",
		SponsorID:  "sponsor-1",
		TotalFunds: 50_000,
		StartTime:  start,
		EndTime:    start.AddDate(0, 1, 0),
	}
}

func newTestService(store Store, now time.Time) *Service {
	s := NewService(store, zerolog.Nop())
	s.now = func() time.Time { return now }
	return s
}

func sponsor() domain.User {
	return domain.User{ID: "sponsor-1", Role: domain.RoleOwner}
}

func TestStatusDerivation(t *testing.T) {
	p := basePool()
	cases := []struct {
		name string
		mod  func(*domain.Pool)
		now  time.Time
		want domain.PoolStatus
	}{
		{"before window", func(*domain.Pool) {}, p.StartTime.Add(-time.Minute), domain.PoolScheduled},
		{"at start", func(*domain.Pool) {}, p.StartTime, domain.PoolActive},
		{"mid window", func(*domain.Pool) {}, p.StartTime.AddDate(0, 0, 10), domain.PoolActive},
		{"at end", func(*domain.Pool) {}, p.EndTime, domain.PoolEnded},
		{"after end", func(*domain.Pool) {}, p.EndTime.Add(time.Hour), domain.PoolEnded},
		{"ended early mid window", func(p *domain.Pool) { p.EndedEarly = true }, p.StartTime.AddDate(0, 0, 10), domain.PoolEnded},
		{"distributed", func(p *domain.Pool) { p.Distributed = true }, p.EndTime.Add(time.Hour), domain.PoolDistributed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pool := basePool()
			tc.mod(&pool)
			if got := pool.StatusAt(tc.now); got != tc.want {
				t.Fatalf("StatusAt = %s, want %s", got, tc.want)
			}
		})
	}
}

func TestCreatePool(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)

	p, err := svc.Create(context.Background(), sponsor(), "  summer round ", 10_000, now.AddDate(0, 0, 7), now.AddDate(0, 1, 0))
	if err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if p.ID == "" {
		t.Fatal("pool id not assigned")
	}
	if p.Name != "summer round" {
		t.Fatalf("name = %q, want trimmed", p.Name)
	}
	if p.SponsorID != "sponsor-1" {
		t.Fatalf("sponsor = %q", p.SponsorID)
	}
}

func TestCreatePoolValidation(t *testing.T) {
	store := newFakeStore()
	now := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	svc := newTestService(store, now)
	start := now.AddDate(0, 0, 7)

	cases := []struct {
		name  string
		pname string
		funds int64
		start time.Time
		end   time.Time
	}{
		{"empty name", "  ", 100, start, start.AddDate(0, 1, 0)},
		{"negative funds", "x", -1, start, start.AddDate(0, 1, 0)},
		{"inverted window", "x", 100, start, start.Add(-time.Hour)},
		{"window in the past", "x", 100, now.AddDate(0, -2, 0), now.AddDate(0, -1, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), sponsor(), tc.pname, tc.funds, tc.start, tc.end)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want validation error", err)
			}
		})
	}
}

func TestCreatePoolRejectsDonorRole(t *testing.T) {
	svc := newTestService(newFakeStore(), time.Now())
	donor := domain.User{ID: "d", Role: domain.RoleDonor}
	if _, err := svc.Create(context.Background(), donor, "x", 1, time.Now(), time.Now().Add(time.Hour)); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestFundPool(t *testing.T) {
	store := newFakeStore(basePool())
	svc := newTestService(store, basePool().StartTime.Add(time.Hour))

	total, err := svc.Fund(context.Background(), sponsor(), "pool-1", 25_000)
	if err != nil {
		t.Fatalf("Fund error: %v", err)
	}
	if total != 75_000 {
		t.Fatalf("total = %d, want 75000", total)
	}
}

func TestFundPoolWhileScheduled(t *testing.T) {
	store := newFakeStore(basePool())
	svc := newTestService(store, basePool().StartTime.Add(-time.Hour))

	if _, err := svc.Fund(context.Background(), sponsor(), "pool-1", 1); err != nil {
		t.Fatalf("scheduled pool should accept funding: %v", err)
	}
}

func TestFundPoolAfterEnd(t *testing.T) {
	store := newFakeStore(basePool())
	svc := newTestService(store, basePool().EndTime.Add(time.Hour))

	_, err := svc.Fund(context.Background(), sponsor(), "pool-1", 1)
	if !errors.Is(err, domain.ErrState) {
		t.Fatalf("err = %v, want state error", err)
	}
	if store.pools["pool-1"].TotalFunds != 50_000 {
		t.Fatal("ended pool funds must not change")
	}
}

func TestFundPoolUnauthorized(t *testing.T) {
	store := newFakeStore(basePool())
	svc := newTestService(store, basePool().StartTime.Add(time.Hour))

	other := domain.User{ID: "other", Role: domain.RoleOwner}
	if _, err := svc.Fund(context.Background(), other, "pool-1", 1); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("err = %v, want unauthorized", err)
	}
}

func TestRegisterProject(t *testing.T) {
	store := newFakeStore(basePool())
	store.projects["proj-a"] = true
	svc := newTestService(store, basePool().StartTime.Add(time.Hour))

	if err := svc.RegisterProject(context.Background(), sponsor(), "pool-1", "proj-a"); err != nil {
		t.Fatalf("RegisterProject error: %v", err)
	}
	if !store.links["pool-1|proj-a"] {
		t.Fatal("registration not persisted")
	}
	// idempotent
	if err := svc.RegisterProject(context.Background(), sponsor(), "pool-1", "proj-a"); err != nil {
		t.Fatalf("repeat registration error: %v", err)
	}
}

func TestRegisterUnknownProject(t *testing.T) {
	store := newFakeStore(basePool())
	svc := newTestService(store, basePool().StartTime.Add(time.Hour))

	err := svc.RegisterProject(context.Background(), sponsor(), "pool-1", "proj-x")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestRegisterAfterEnd(t *testing.T) {
	store := newFakeStore(basePool())
	store.projects["proj-a"] = true
	svc := newTestService(store, basePool().EndTime.Add(time.Hour))

	err := svc.RegisterProject(context.Background(), sponsor(), "pool-1", "proj-a")
	if !errors.Is(err, domain.ErrState) {
		t.Fatalf("err = %v, want state error", err)
	}
}

func TestEndEarly(t *testing.T) {
	store := newFakeStore(basePool())
	svc := newTestService(store, basePool().StartTime.Add(time.Hour))

	if err := svc.EndEarly(context.Background(), sponsor(), "pool-1"); err != nil {
		t.Fatalf("EndEarly error: %v", err)
	}
	if !store.pools["pool-1"].EndedEarly {
		t.Fatal("pool not marked ended early")
	}
}

func TestEndEarlyOnlyWhileActive(t *testing.T) {
	for _, tc := range []struct {
		name string
		now  time.Time
	}{
		{"scheduled", basePool().StartTime.Add(-time.Hour)},
		{"already ended", basePool().EndTime.Add(time.Hour)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeStore(basePool())
			svc := newTestService(store, tc.now)
			if err := svc.EndEarly(context.Background(), sponsor(), "pool-1"); !errors.Is(err, domain.ErrState) {
				t.Fatalf("err = %v, want state error", err)
			}
		})
	}
}
