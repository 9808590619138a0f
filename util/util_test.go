package util

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type flaky struct {
	failures int
	code     codes.Code
	calls    int
}

func (f *flaky) Echo(ctx context.Context, in string, _ ...grpc.CallOption) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", status.Error(f.code, "try again")
	}
	return in, nil
}

var fastRetry = Retry{
	Attempts: 4,
	Backoff:  time.Millisecond,
	Codes:    DefaultRetry.Codes,
}

func TestMakeRPCRetriesUnavailable(t *testing.T) {
	f := &flaky{failures: 2, code: codes.Unavailable}
	out, err := MakeRPC(context.Background(), "hi", f.Echo, fastRetry)
	require.NoError(t, err)
	require.Equal(t, "hi", out)
	require.Equal(t, 3, f.calls)
}

func TestMakeRPCGivesUp(t *testing.T) {
	f := &flaky{failures: 10, code: codes.Unavailable}
	_, err := MakeRPC(context.Background(), "hi", f.Echo, fastRetry)
	require.Equal(t, codes.Unavailable, status.Code(err))
	require.Equal(t, 4, f.calls)
}

func TestMakeRPCDoesNotRetryHandlerErrors(t *testing.T) {
	f := &flaky{failures: 1, code: codes.InvalidArgument}
	_, err := MakeRPC(context.Background(), "hi", f.Echo, fastRetry)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.Equal(t, 1, f.calls)
}

func TestMakeRPCWithoutCodesCallsOnce(t *testing.T) {
	f := &flaky{failures: 1, code: codes.Unavailable}
	_, err := MakeRPC(context.Background(), "hi", f.Echo, Retry{Attempts: 4, Backoff: time.Millisecond})
	require.Equal(t, codes.Unavailable, status.Code(err))
	require.Equal(t, 1, f.calls)
}

func TestMakeRPCStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := &flaky{failures: 10, code: codes.Unavailable}
	_, err := MakeRPC(ctx, "hi", f.Echo, Retry{Attempts: 10, Backoff: time.Hour, Codes: DefaultRetry.Codes})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, f.calls)
}

func TestStartTrace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace", "launcher.out")
	stop, err := StartTrace(path)
	require.NoError(t, err)
	stop()

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Positive(t, info.Size())
}

func TestStartDisabled(t *testing.T) {
	stop, err := StartCPUProfile("")
	require.NoError(t, err)
	stop()
}
