// simload_test.go — synthetic traffic bounds and determinism.

package simload

import (
	"testing"

	"main/constants"
	"main/sched"
)

func TestNextTrapBounds(t *testing.T) {
	g := New(1, 2.0, 128)
	for i := 0; i < 10000; i++ {
		ev := g.NextTrap(1)
		if ev.Num >= 128 {
			t.Fatalf("trap %d: num %d outside [0,128)", i, ev.Num)
		}
		if ev.Tid != 1 {
			t.Fatalf("trap %d: tid %d, want 1", i, ev.Tid)
		}
	}
}

func TestZipfSkew(t *testing.T) {
	g := New(7, 2.0, 128)
	var counts [128]int
	const total = 50000
	for i := 0; i < total; i++ {
		counts[g.NextTrap(1).Num]++
	}
	// Zipf: syscall 0 must dominate the tail by a wide margin.
	if counts[0] < counts[100]*2 {
		t.Fatalf("distribution not skewed: counts[0]=%d counts[100]=%d", counts[0], counts[100])
	}
	if counts[0] < total/10 {
		t.Fatalf("head syscall only %d/%d hits", counts[0], total)
	}
}

func TestArrivalsNonNegative(t *testing.T) {
	g := New(3, 1.5, 64)
	sum := 0
	for i := 0; i < 1000; i++ {
		n := g.NextArrivals()
		if n < 0 {
			t.Fatalf("negative arrival count %d", n)
		}
		sum += n
	}
	if sum == 0 {
		t.Fatal("Poisson source produced no arrivals in 1000 ticks")
	}
}

func TestSpawnThreadRegisters(t *testing.T) {
	s := sched.NewUnifiedScheduler(2)
	g := New(11, 1.0, 64)

	seen := make(map[sched.Tid]bool)
	for i := 0; i < 200; i++ {
		tid := g.SpawnThread(s)
		if uint32(tid) >= constants.IdleTidBase {
			t.Fatalf("spawned tid %d collides with the idle range", tid)
		}
		seen[tid] = true

		info, err := s.GetThreadInfo(tid)
		if err != nil {
			t.Fatalf("spawned thread unknown to scheduler: %v", err)
		}
		if info.State != sched.StateRunnable {
			t.Fatalf("spawned thread state = %v", info.State)
		}
	}
	if len(seen) != 200 {
		t.Fatalf("tids not unique: %d distinct of 200", len(seen))
	}
}
