package signal

import "testing"

func TestDetectorEdgeTriggered(t *testing.T) {
	d := NewDetector()

	ev, fired := d.Update(Long, 4500, 3.2)
	if !fired || ev.Direction != Long || ev.Price != 4500 || ev.WATR != 3.2 {
		t.Fatalf("first long edge must fire: %+v fired=%v", ev, fired)
	}

	// 同方向重复评估：不触发
	if _, fired := d.Update(Long, 4501, 3.3); fired {
		t.Fatalf("repeated long must not fire")
	}

	// 反向边沿：触发
	ev, fired = d.Update(Short, 4498, 3.4)
	if !fired || ev.Direction != Short {
		t.Fatalf("short edge must fire: %+v fired=%v", ev, fired)
	}
	if d.Current() != Short {
		t.Fatalf("current direction must track last edge")
	}
}

func TestDetectorIgnoresNone(t *testing.T) {
	d := NewDetector()
	if _, fired := d.Update(None, 4500, 1); fired {
		t.Fatalf("none must never fire")
	}

	d.Update(Long, 4500, 1)
	if _, fired := d.Update(None, 4500, 1); fired {
		t.Fatalf("none must never fire")
	}
	if d.Current() != Long {
		t.Fatalf("none must not clear the last direction")
	}
}

func TestDetectorReset(t *testing.T) {
	d := NewDetector()
	d.Update(Long, 4500, 1)
	d.Reset()
	if _, fired := d.Update(Long, 4500, 1); !fired {
		t.Fatalf("after reset the same direction must fire again")
	}
}
