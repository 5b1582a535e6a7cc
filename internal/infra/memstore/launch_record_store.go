// internal/infra/memstore/launch_record_store.go
package memstore

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/gigagfun/launchium-token-creator/internal/domain/launch"
)

// LaunchRecordStore keeps launch records in process memory. It is the
// default when no database is configured.
type LaunchRecordStore struct {
	mu     sync.RWMutex
	byMint map[string]launch.Record
}

var _ launch.RecordRepository = (*LaunchRecordStore)(nil)

func NewLaunchRecordStore() *LaunchRecordStore {
	return &LaunchRecordStore{byMint: map[string]launch.Record{}}
}

func (s *LaunchRecordStore) Save(_ context.Context, r launch.Record) error {
	key := strings.TrimSpace(r.MintAddress)
	if key == "" {
		return launch.NewValidationError("mintAddress", "is required")
	}

	// copy the map so callers cannot mutate stored state
	if r.Signatures != nil {
		sigs := make(map[launch.Step]string, len(r.Signatures))
		for k, v := range r.Signatures {
			sigs[k] = v
		}
		r.Signatures = sigs
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.byMint[key]; ok && !prev.CreatedAt.IsZero() {
		r.CreatedAt = prev.CreatedAt
	}
	s.byMint[key] = r
	return nil
}

func (s *LaunchRecordStore) GetByMint(_ context.Context, mint string) (launch.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byMint[strings.TrimSpace(mint)]
	if !ok {
		return launch.Record{}, launch.ErrRecordNotFound
	}
	return r, nil
}

func (s *LaunchRecordStore) Stats(context.Context) (launch.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := launch.Stats{ByMode: map[launch.Mode]int{}, FeesCharged: decimal.Zero}
	for _, r := range s.byMint {
		st.Add(r)
	}
	return st, nil
}
