package syncx

import (
	"fmt"
	"slices"
	"sync"
)

// Rank places a lock in the global acquisition order; lower ranks first.
type Rank int

const (
	// RankAlarms is the alarm store mutex.
	RankAlarms Rank = iota + 1
	// RankGroups is the group registry lock.
	RankGroups
)

// String returns the lock domain name.
func (r Rank) String() string {
	switch r {
	case RankAlarms:
		return "alarms"
	case RankGroups:
		return "groups"
	default:
		return fmt.Sprintf("rank(%d)", int(r))
	}
}

// Ranked is a lock tagged with its rank.
type Ranked struct {
	sync.Locker

	// Rank is the lock's position in the global order.
	Rank Rank
}

// Acquire locks every ranked lock in ascending rank, whatever the argument
// order, and returns a function releasing them in reverse. Two locks of the
// same rank are a programming error and panic before anything is locked.
func Acquire(locks ...Ranked) (release func()) {
	ordered := slices.Clone(locks)
	slices.SortStableFunc(ordered, func(a, b Ranked) int {
		return int(a.Rank) - int(b.Rank)
	})

	for i := 1; i < len(ordered); i++ {
		if ordered[i].Rank == ordered[i-1].Rank {
			panic(fmt.Sprintf("syncx: two locks share rank %s", ordered[i].Rank))
		}
	}

	for _, l := range ordered {
		l.Lock()
	}

	return func() {
		for i := len(ordered) - 1; i >= 0; i-- {
			ordered[i].Unlock()
		}
	}
}
