package marketfeed

import "testing"

func TestKlineRing_AppendAndReplace(t *testing.T) {
	r := NewKlineRing()
	r.Put(Kline{OpenTime: 1000, Close: 10, Closed: true})
	r.Put(Kline{OpenTime: 2000, Close: 11, Closed: true})

	if r.Len() != 2 {
		t.Fatalf("expected 2 klines, got %d", r.Len())
	}

	// same open_time replaces the last entry in place
	r.Put(Kline{OpenTime: 2000, Close: 12, Closed: true})
	if r.Len() != 2 {
		t.Fatalf("expected replace, not append: got %d", r.Len())
	}

	recent := r.Recent(2)
	if recent[1].Close != 12 {
		t.Fatalf("expected replaced close 12, got %v", recent[1].Close)
	}
}

func TestKlineRing_EvictsOldestAtCapacity(t *testing.T) {
	r := NewKlineRing()
	for i := 0; i < RingCapacity+10; i++ {
		r.Put(Kline{OpenTime: int64(i) * 1000, Close: float64(i), Closed: true})
	}

	if r.Len() != RingCapacity {
		t.Fatalf("expected capped at %d, got %d", RingCapacity, r.Len())
	}

	recent := r.Recent(1)
	if recent[0].OpenTime != int64(RingCapacity+9)*1000 {
		t.Fatalf("expected newest kline retained, got open_time %d", recent[0].OpenTime)
	}
}

func TestKlineRing_RecentReturnsCopy(t *testing.T) {
	r := NewKlineRing()
	r.Put(Kline{OpenTime: 1, Close: 1, Closed: true})

	out := r.Recent(1)
	out[0].Close = 999

	out2 := r.Recent(1)
	if out2[0].Close == 999 {
		t.Fatalf("Recent must return a copy, not an alias")
	}
}
