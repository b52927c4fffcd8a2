package window

import (
	"testing"

	"github.com/relabs-tech/serve_sense/internal/imu"
)

func TestAppendDropsWhenFull(t *testing.T) {
	w := New(3)
	for i := 0; i < 3; i++ {
		if !w.Append(imu.Sample{Ax: float32(i + 1)}) {
			t.Fatalf("append %d rejected before capacity", i)
		}
	}
	if w.Append(imu.Sample{Ax: 99}) {
		t.Error("append accepted past capacity")
	}
	if w.Len() != 3 {
		t.Errorf("Len() = %d, want 3", w.Len())
	}

	snap := w.Snapshot()
	if snap[2].Ax != 3 {
		t.Errorf("last stored sample = %v, want 3 (overflow must not overwrite)", snap[2].Ax)
	}
}

func TestResetKeepsCapacity(t *testing.T) {
	w := New(160)
	for i := 0; i < 10; i++ {
		w.Append(imu.Sample{Ax: 1})
	}
	w.Reset()
	if w.Len() != 0 {
		t.Errorf("Len() after Reset = %d, want 0", w.Len())
	}
	if w.Cap() != 160 {
		t.Errorf("Cap() after Reset = %d, want 160", w.Cap())
	}
}

// Snapshot entries past the count must read zero on all channels even if a
// previous session wrote real data there.
func TestSnapshotZeroPadsStaleEntries(t *testing.T) {
	w := New(4)
	for i := 0; i < 4; i++ {
		w.Append(imu.Sample{Ax: 1, Gy: -2})
	}
	w.Reset()
	w.Append(imu.Sample{Ax: 5})

	snap := w.Snapshot()
	if len(snap) != 4 {
		t.Fatalf("snapshot length = %d, want capacity 4", len(snap))
	}
	if snap[0].Ax != 5 {
		t.Errorf("snap[0].Ax = %v, want 5", snap[0].Ax)
	}
	for i := 1; i < 4; i++ {
		if snap[i] != (imu.Sample{}) {
			t.Errorf("snap[%d] = %+v, want zero value", i, snap[i])
		}
	}
}
