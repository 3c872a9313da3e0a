package schedule

import (
	"errors"
	"testing"
)

func TestRecordPoolCapacity(t *testing.T) {
	p := newRecordPool(3)

	var got []*record
	for range 3 {
		r, err := p.get()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, r)
	}

	if _, err := p.get(); !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("expected ErrOutOfMemory, got %v", err)
	}
	if p.outstanding() != 3 || p.available() != 0 {
		t.Errorf("expected 3 outstanding and 0 available, got %d and %d", p.outstanding(), p.available())
	}

	p.put(got[1])
	r, err := p.get()
	if err != nil {
		t.Fatalf("expected a returned record to be reusable, got %v", err)
	}
	if r != got[1] {
		t.Errorf("expected the returned record to be handed out again")
	}
}

func TestRecordPoolGrowsInChunks(t *testing.T) {
	p := newRecordPool(40)
	if p.allocated != initialChunk {
		t.Fatalf("expected warm pool of %d, got %d", initialChunk, p.allocated)
	}

	seen := make(map[*record]bool)
	for range 40 {
		r, err := p.get()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if seen[r] {
			t.Fatalf("record %p handed out twice", r)
		}
		seen[r] = true
	}
	if p.allocated != 40 {
		t.Errorf("expected allocation to stop at capacity, got %d", p.allocated)
	}
}

func TestRecordPoolPutClearsRecord(t *testing.T) {
	p := newRecordPool(1)
	r, _ := p.get()
	task := NewTask("t", func(any) {})
	r.key = Key{Task: task, Arg: "ctx"}
	r.index = 4

	p.put(r)

	if r.key != (Key{}) {
		t.Errorf("expected key to be cleared, got %+v", r.key)
	}
	if r.index != -1 {
		t.Errorf("expected index -1, got %d", r.index)
	}
}

func TestRecordPoolRelease(t *testing.T) {
	p := newRecordPool(2)
	r, _ := p.get()

	if err := p.release(); err == nil {
		t.Fatal("expected release to fail with a record in use")
	}
	p.put(r)
	if err := p.release(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.outstanding() != 0 {
		t.Errorf("expected 0 outstanding, got %d", p.outstanding())
	}
}
