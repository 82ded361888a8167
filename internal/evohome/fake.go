package evohome

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweeney/evohome-monitor/internal/logic"
)

// Fake replays scripted snapshots for tests. Each FetchSnapshot call consumes
// the next queued snapshot; the last one repeats once the queue is drained.
type Fake struct {
	mu        sync.Mutex
	snapshots []logic.SystemSnapshot
	index     int
	schedules map[string]logic.WeeklySchedule

	// FetchError, if set, is returned by FetchSnapshot.
	FetchError error

	// FetchCount counts FetchSnapshot calls, including failed ones.
	FetchCount int
}

// NewFake creates a fake source with the given snapshot script.
func NewFake(snapshots ...logic.SystemSnapshot) *Fake {
	return &Fake{
		snapshots: snapshots,
		schedules: make(map[string]logic.WeeklySchedule),
	}
}

// Enqueue appends snapshots to the script.
func (f *Fake) Enqueue(snapshots ...logic.SystemSnapshot) {
	f.mu.Lock()
	f.snapshots = append(f.snapshots, snapshots...)
	f.mu.Unlock()
}

// SetSchedule registers a zone schedule returned by FetchSchedule.
func (f *Fake) SetSchedule(zoneID string, schedule logic.WeeklySchedule) {
	f.mu.Lock()
	f.schedules[zoneID] = schedule
	f.mu.Unlock()
}

// FetchSnapshot returns the next scripted snapshot.
func (f *Fake) FetchSnapshot(_ context.Context) (logic.SystemSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.FetchCount++
	if f.FetchError != nil {
		return logic.SystemSnapshot{}, f.FetchError
	}
	if len(f.snapshots) == 0 {
		return logic.SystemSnapshot{}, fmt.Errorf("fake source: no snapshots scripted")
	}
	snap := f.snapshots[f.index]
	if f.index < len(f.snapshots)-1 {
		f.index++
	}
	return snap, nil
}

// FetchSchedule returns the registered schedule, or an empty one.
func (f *Fake) FetchSchedule(_ context.Context, zoneID string) (logic.WeeklySchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schedules[zoneID], nil
}
