package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"msgboard/relay/internal/types"
)

type CheckResult struct {
	Name    string        `json:"name"`
	OK      bool          `json:"ok"`
	Latency time.Duration `json:"latency_ms"`
	Error   string        `json:"error,omitempty"`
}

type HealthStatus struct {
	OK        bool          `json:"ok"`
	Checks    []CheckResult `json:"checks"`
	CheckedAt time.Time     `json:"checked_at"`
}

func (h HealthStatus) String() string {
	status := "OK"
	if !h.OK {
		status = "FAIL"
	}
	s := fmt.Sprintf("Health: %s\n", status)
	for _, c := range h.Checks {
		mark := "✓"
		if !c.OK {
			mark = "✗"
		}
		s += fmt.Sprintf("  %s %s (%dms)", mark, c.Name, c.Latency.Milliseconds())
		if c.Error != "" {
			s += fmt.Sprintf(" - %s", c.Error)
		}
		s += "\n"
	}
	return s
}

// Check is one named readiness probe.
type Check func(ctx context.Context) CheckResult

// CheckAll runs all health checks and returns combined status
func CheckAll(ctx context.Context, checks ...Check) HealthStatus {
	results := make([]CheckResult, 0, len(checks))
	allOK := true
	for _, c := range checks {
		r := c(ctx)
		if !r.OK {
			allOK = false
		}
		results = append(results, r)
	}
	return HealthStatus{
		OK:        allOK,
		Checks:    results,
		CheckedAt: time.Now().UTC(),
	}
}

// DocumentReader is the read side of the message store.
type DocumentReader interface {
	ReadAll() (types.Document, bool)
	Path() string
}

// CheckStorage reports whether the store document parses and its
// directory accepts new files. A corrupt document is not ready: the next
// append would discard it.
func CheckStorage(st DocumentReader) Check {
	return storageCheck(st, true)
}

// CheckStorageReadable only parses the document. Processes that never
// append use it so probing does not touch the storage directory.
func CheckStorageReadable(st DocumentReader) Check {
	return storageCheck(st, false)
}

func storageCheck(st DocumentReader, writable bool) Check {
	return func(ctx context.Context) CheckResult {
		start := time.Now()
		result := CheckResult{Name: "storage"}

		if _, ok := st.ReadAll(); !ok {
			result.Error = fmt.Sprintf("%s missing or not a JSON object", st.Path())
			result.Latency = time.Since(start)
			return result
		}
		if !writable {
			result.Latency = time.Since(start)
			result.OK = true
			return result
		}
		f, err := os.CreateTemp(filepath.Dir(st.Path()), ".probe-*")
		if err != nil {
			result.Error = fmt.Sprintf("storage dir not writable: %v", err)
			result.Latency = time.Since(start)
			return result
		}
		f.Close()
		os.Remove(f.Name())

		result.Latency = time.Since(start)
		result.OK = true
		return result
	}
}

// Flag is a readiness bit flipped by the component that owns it.
type Flag struct {
	name string
	v    atomic.Bool
}

func NewFlag(name string) *Flag { return &Flag{name: name} }

func (f *Flag) Set(ok bool) { f.v.Store(ok) }

func (f *Flag) Check(ctx context.Context) CheckResult {
	r := CheckResult{Name: f.name, OK: f.v.Load()}
	if !r.OK {
		r.Error = "not running"
	}
	return r
}

// NewProbeMux serves /healthz, /readyz and /metrics.
func NewProbeMux(checks ...Check) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte("ok\n")) })
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		st := CheckAll(ctx, checks...)
		w.Header().Set("Content-Type", "application/json")
		if !st.OK {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(st)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}
