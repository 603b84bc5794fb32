package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// Benchmark the client under different in-flight concurrency caps to
// quantify the cost of the gate.
func BenchmarkClientConcurrencyGate(b *testing.B) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><head><title>ok</title></head><body><main><p>hello</p></main></body></html>"))
	}))
	defer ts.Close()

	run := func(name string, maxConc int) {
		b.Run(name, func(b *testing.B) {
			cli := &Client{
				HTTPClient:        ts.Client(),
				PerRequestTimeout: 2 * time.Second,
				MaxConcurrent:     maxConc,
			}
			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					_, _, err := cli.Get(ctx, ts.URL+"/page")
					cancel()
					if err != nil {
						b.Fatalf("fetch failed: %v", err)
					}
				}
			})
		})
	}

	run("unlimited", 0)
	run("conc=2", 2)
	run("conc=8", 8)
}
