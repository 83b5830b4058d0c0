package memory

import (
	"context"
	"log"
	"math"
	"time"
)

// maxAccessBoost caps how much accumulated access history can pull decay
// back per sweep.
const maxAccessBoost = 0.5

// SweepDecay applies one decay pass to every record and returns how many
// records changed. For each record:
//
//	ageHours    = hours since last access
//	decayRate   = baseDecayRate * (1 - wisdom*wisdomProtection)
//	accessBoost = min(accessCount*accessBonus, 0.5)
//	decay       = clamp(decay + decayRate*ageHours - accessBoost, 0, maxDecay)
//
// Frequently accessed, high-wisdom records resist decay; never-accessed
// low-wisdom records decay fastest.
func (s *Store) SweepDecay(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := 0
	for _, rec := range s.records {
		ageHours := now.Sub(rec.LastAccessedAt).Hours()
		if ageHours < 0 {
			ageHours = 0
		}

		decayRate := s.cfg.BaseDecayRate * (1 - rec.WisdomGain*s.cfg.WisdomProtection)
		accessBoost := math.Min(float64(rec.AccessCount)*s.cfg.AccessBonus, maxAccessBoost)

		newDecay := clamp(rec.Decay+decayRate*ageHours-accessBoost, 0, s.cfg.MaxDecay)
		if newDecay != rec.Decay {
			rec.Decay = newDecay
			changed++
		}
	}
	return changed
}

// DecaySweeper runs the periodic background decay pass with an explicit
// start/stop lifecycle tied to its context.
type DecaySweeper struct {
	store    *Store
	interval time.Duration
	done     chan struct{}
}

// NewDecaySweeper creates a sweeper over the given store. A non-positive
// interval falls back to 24 hours.
func NewDecaySweeper(store *Store, interval time.Duration) *DecaySweeper {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &DecaySweeper{
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is cancelled or Stop is
// called. It blocks; run it in a goroutine.
func (d *DecaySweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case now := <-ticker.C:
			if changed := d.store.SweepDecay(now); changed > 0 {
				log.Printf("decay sweep updated %d records", changed)
			}
		}
	}
}

// Stop terminates the sweep loop. Safe to call once.
func (d *DecaySweeper) Stop() {
	close(d.done)
}
