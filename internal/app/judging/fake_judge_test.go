package judging

import (
	"context"
	"sync"
	"sync/atomic"

	"codeduel/internal/platform/judge0"
)

// fakeJudge answers by stdin. Entries in errs take precedence over outputs.
type fakeJudge struct {
	outputs map[string]string
	status  map[string]judge0.Status
	errs    map[string]error

	mu       sync.Mutex
	calls    []string
	inFlight int32
	maxSeen  int32
	block    chan struct{}
}

func (f *fakeJudge) Execute(ctx context.Context, req judge0.Request) (*judge0.Result, error) {
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		m := atomic.LoadInt32(&f.maxSeen)
		if n <= m || atomic.CompareAndSwapInt32(&f.maxSeen, m, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, req.Stdin)
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err, ok := f.errs[req.Stdin]; ok {
		return nil, err
	}
	out := f.outputs[req.Stdin]
	st, ok := f.status[req.Stdin]
	if !ok {
		st = judge0.Status{ID: judge0.StatusAccepted, Description: "Accepted"}
	}
	t := "0.01"
	mem := 1024
	return &judge0.Result{Stdout: &out, Time: &t, Memory: &mem, Status: st}, nil
}

func (f *fakeJudge) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
