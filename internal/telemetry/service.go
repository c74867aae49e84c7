package telemetry

import (
	"context"
	"log/slog"
	"sync"
)

// Reader is the subset of the telemetry client the aggregator needs.
// Split out as an interface so tests can substitute failing reads.
type Reader interface {
	TodayStatus(ctx context.Context) (*TodayStatus, error)
	History(ctx context.Context) ([]Reading, error)
}

// Service aggregates telemetry reads for the dashboard.
type Service struct {
	reader Reader
}

// NewService creates a telemetry aggregation service over the given reader.
func NewService(reader Reader) *Service {
	return &Service{reader: reader}
}

// FetchDashboardData issues the today-status and history reads concurrently
// and merges them into a snapshot. Each read is independently guarded: a
// failure (network error, timeout, non-success response) leaves that part
// of the snapshot at its empty value and is logged, never propagated. The
// call always returns a complete snapshot -- dashboard rendering degrades
// gracefully instead of blocking on a flaky dependency.
//
// The two reads have no ordering dependency and may complete in either
// order; the snapshot is returned once both have resolved.
func (s *Service) FetchDashboardData(ctx context.Context) Snapshot {
	snapshot := Snapshot{HistoryData: []Reading{}}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		today, err := s.reader.TodayStatus(ctx)
		if err != nil {
			slog.Warn("telemetry today-status read failed", slog.Any("error", err))
			return
		}
		snapshot.TodayData = today
	}()

	go func() {
		defer wg.Done()
		history, err := s.reader.History(ctx)
		if err != nil {
			slog.Warn("telemetry history read failed", slog.Any("error", err))
			return
		}
		if history != nil {
			snapshot.HistoryData = history
		}
	}()

	wg.Wait()
	return snapshot
}
