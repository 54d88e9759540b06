package gpu

import "testing"

func TestRetireQueueCollect(t *testing.T) {
	var q retireQueue
	var released []string
	add := func(name string) { q.add(func() { released = append(released, name) }) }

	add("a")
	add("b")
	q.seal(1)
	add("c")
	q.seal(3)
	add("d") // pending, not sealed

	if q.len() != 4 {
		t.Fatalf("len() = %d, want 4", q.len())
	}
	if n := q.collect(0); n != 0 {
		t.Errorf("collect(0) released %d", n)
	}
	if n := q.collect(2); n != 2 {
		t.Errorf("collect(2) released %d, want 2", n)
	}
	if len(released) != 2 || released[0] != "a" || released[1] != "b" {
		t.Errorf("released = %v, want [a b]", released)
	}
	if n := q.collect(10); n != 1 {
		t.Errorf("collect(10) released %d, want 1", n)
	}
	if q.len() != 1 {
		t.Errorf("pending release must survive collect, len() = %d", q.len())
	}
}

func TestRetireQueueSealEmpty(t *testing.T) {
	var q retireQueue
	q.seal(5)
	if len(q.inflight) != 0 {
		t.Error("sealing nothing should not create an in-flight entry")
	}
}

func TestRetireQueueDrain(t *testing.T) {
	var q retireQueue
	count := 0
	for range 3 {
		q.add(func() { count++ })
	}
	q.seal(7)
	q.add(func() { count++ })

	if n := q.drain(); n != 4 || count != 4 {
		t.Errorf("drain() = %d, ran %d, want 4", n, count)
	}
	if q.len() != 0 {
		t.Errorf("len() after drain = %d", q.len())
	}
	if n := q.drain(); n != 0 {
		t.Errorf("second drain() = %d", n)
	}
}
