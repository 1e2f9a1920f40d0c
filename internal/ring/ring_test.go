// SPDX-License-Identifier: MIT
package ring

import (
	"sync"
	"testing"
)

func TestCapacityRoundsToPowerOfTwo(t *testing.T) {
	b := New(3000)
	if b.Capacity() != 4096 {
		t.Errorf("expected capacity 4096, got %d", b.Capacity())
	}
}

func TestWriteRead_Ordering(t *testing.T) {
	b := New(8)
	b.Write([]float32{1, 2, 3})
	b.Write([]float32{4, 5})

	dst := make([]float32, 8)
	n := b.Read(dst)
	if n != 5 {
		t.Fatalf("expected 5 samples, got %d", n)
	}
	for i, want := range []float32{1, 2, 3, 4, 5} {
		if dst[i] != want {
			t.Errorf("sample %d = %v, want %v", i, dst[i], want)
		}
	}
	if b.Buffered() != 0 {
		t.Errorf("expected empty buffer after read, got %d", b.Buffered())
	}
}

func TestOverflow_DropsOldestKeepsNewest(t *testing.T) {
	b := New(4)

	// 8 samples into a 4-slot buffer: the first 4 must be gone.
	b.Write([]float32{1, 2, 3, 4})
	b.Write([]float32{5, 6, 7, 8})

	if b.Overruns() == 0 {
		t.Error("expected overrun to be counted")
	}
	if got := b.Buffered(); got != 4 {
		t.Errorf("buffered should be capped at capacity, got %d", got)
	}

	dst := make([]float32, 4)
	n := b.Read(dst)
	if n != 4 {
		t.Fatalf("expected 4 samples, got %d", n)
	}
	for i, want := range []float32{5, 6, 7, 8} {
		if dst[i] != want {
			t.Errorf("sample %d = %v, want %v (oldest data should be dropped)", i, dst[i], want)
		}
	}
}

func TestWrite_LargerThanCapacity(t *testing.T) {
	b := New(4)
	b.Write([]float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	dst := make([]float32, 4)
	if n := b.Read(dst); n != 4 {
		t.Fatalf("expected 4 samples, got %d", n)
	}
	for i, want := range []float32{7, 8, 9, 10} {
		if dst[i] != want {
			t.Errorf("sample %d = %v, want %v", i, dst[i], want)
		}
	}
}

func TestWrite_NeverGrowsNeverBlocks(t *testing.T) {
	b := New(64)
	block := make([]float32, 48)

	// Sustained producer with no consumer: capacity stays fixed and every
	// call returns.
	for i := 0; i < 10000; i++ {
		b.Write(block)
	}
	if b.Capacity() != 64 {
		t.Errorf("capacity changed under load: %d", b.Capacity())
	}
	if b.Buffered() > b.Capacity() {
		t.Errorf("buffered %d exceeds capacity %d", b.Buffered(), b.Capacity())
	}
}

func TestWriteHotPath_ZeroAllocs(t *testing.T) {
	b := New(4096)
	block := make([]float32, 512)

	allocs := testing.AllocsPerRun(100, func() {
		b.Write(block)
	})
	if allocs > 0 {
		t.Errorf("expected zero allocations on the write path, got %.1f", allocs)
	}
}

func TestConcurrent_ProducerConsumer(t *testing.T) {
	b := New(1024)
	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		block := make([]float32, 256)
		for i := 0; i < 5000; i++ {
			for j := range block {
				block[j] = float32(i)
			}
			b.Write(block)
		}
		close(done)
	}()

	dst := make([]float32, 512)
	for {
		select {
		case <-done:
			wg.Wait()
			return
		default:
			n := b.Read(dst)
			if n > len(dst) {
				t.Fatalf("read returned %d > len(dst)", n)
			}
		}
	}
}

func BenchmarkWrite(b *testing.B) {
	buf := New(4096)
	block := make([]float32, 512)
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		buf.Write(block)
	}
}
