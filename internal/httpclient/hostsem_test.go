package httpclient

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestHostSemaphoreCapsConcurrency(t *testing.T) {
	sem := NewHostSemaphore(2)

	var inFlight, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := sem.Acquire("http://panel.example.com:8080/live/1.ts")
			defer release()
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			inFlight.Add(-1)
		}()
	}
	wg.Wait()

	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestHostSemaphoreNormalisesToHost(t *testing.T) {
	sem := NewHostSemaphore(1)
	a := sem.semFor("http://example.com/a.m3u8")
	b := sem.semFor("http://example.com/b.m3u8")
	if a != b {
		t.Error("paths on the same host should share one semaphore")
	}
	c := sem.semFor("http://other.com/a.m3u8")
	if a == c {
		t.Error("different hosts should not share a semaphore")
	}
}
