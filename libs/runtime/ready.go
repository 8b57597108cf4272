package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

const probeTimeout = 2 * time.Second

// ReadyCheck probes one dependency for /readyz. A nil Check always passes.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

func (c ReadyCheck) run(ctx context.Context) error {
	if c.Check == nil {
		return nil
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return c.Check(probeCtx)
}

// NewBaseMuxWithReady returns a mux preloaded with liveness and readiness
// endpoints. /healthz always answers 200; /readyz probes every registered
// dependency and answers 503 listing the failing ones.
func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", alive)
	mux.HandleFunc("/readyz", readiness(checks))
	return mux
}

func alive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func readiness(checks []ReadyCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthy := true
		for _, c := range checks {
			err := c.run(r.Context())
			if err == nil {
				continue
			}
			if healthy {
				healthy = false
				w.WriteHeader(http.StatusServiceUnavailable)
			}
			name := c.Name
			if name == "" {
				name = "dependency"
			}
			fmt.Fprintf(w, "%s: %v\n", name, err)
		}
		if healthy {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}
	}
}
