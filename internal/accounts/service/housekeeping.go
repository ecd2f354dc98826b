package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/canopysaas/canopy/internal/accounts/store"
)

// HousekeepingService periodically sweeps expired refresh tokens out of
// every active tenant schema so the stores do not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the sweeper. A non-positive interval
// defaults to one hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to
// shut it down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep
// finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.Sweep(context.Background())

	for {
		select {
		case <-ticker.C:
			s.Sweep(context.Background())
		case <-s.stopCh:
			return
		}
	}
}

// Sweep deletes expired refresh tokens in every active tenant. One
// tenant failing does not stop the others.
func (s *HousekeepingService) Sweep(ctx context.Context) {
	tenants, err := s.Store.Tenants().ListTenants(ctx)
	if err != nil {
		s.Logger.Error("housekeeping: list tenants", "err", err)
		return
	}

	for _, tenant := range tenants {
		if !tenant.IsActive {
			continue
		}
		ts, err := s.Store.OpenTenant(ctx, tenant)
		if err != nil {
			s.Logger.Error("housekeeping: open tenant", "tenant", tenant.Name, "err", err)
			continue
		}
		if err := ts.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
			s.Logger.Error("housekeeping: sweep refresh tokens", "tenant", tenant.Name, "err", err)
		}
	}
}
