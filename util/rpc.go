package util

import (
	"context"
	"reflect"
	"runtime"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type Retry struct {
	Attempts int           // total attempts, at least one is made
	Timeout  time.Duration // per attempt, none if zero
	Backoff  time.Duration // wait before the first retry, doubled after each
	// status codes worth another attempt, nothing is retried if empty
	Codes []codes.Code
}

// DefaultRetry retries transport failures. Unavailable can also arrive after
// the server ran the call, so it only suits idempotent calls.
var DefaultRetry = Retry{
	Attempts: 5,
	Backoff:  100 * time.Millisecond,
	Codes:    []codes.Code{codes.Unavailable, codes.ResourceExhausted},
}

func (r Retry) retryable(err error) bool {
	return slices.Contains(r.Codes, status.Code(err))
}

// MakeRPC calls fn until it succeeds, fails with a non transport error, runs
// out of attempts or ctx is done.
func MakeRPC[T any, S any](ctx context.Context, req T, fn func(context.Context, T, ...grpc.CallOption) (S, error), retry Retry) (S, error) {
	name := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	wf := retry.Backoff

	var r S
	var err error
	for attempt := 1; ; attempt++ {
		r, err = call(ctx, req, fn, retry.Timeout)
		if err == nil {
			log.WithFields(log.Fields{
				"rpc name": name,
				"attempt":  attempt,
			}).Debug("rpc call")
			return r, nil
		}
		if !retry.retryable(err) || attempt >= retry.Attempts {
			return r, err
		}

		log.WithFields(log.Fields{
			"rpc name": name,
			"attempt":  attempt,
			"error":    err,
		}).Warn("cannot make rpc call")

		select {
		case <-ctx.Done():
			return r, ctx.Err()
		case <-time.After(wf):
		}
		wf *= 2
	}
}

func call[T any, S any](ctx context.Context, req T, fn func(context.Context, T, ...grpc.CallOption) (S, error), timeout time.Duration) (S, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx, req)
}
