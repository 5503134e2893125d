package health

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"msgboard/relay/internal/types"
)

type fakeReader struct {
	path string
	ok   bool
}

func (f fakeReader) ReadAll() (types.Document, bool) { return types.Document{}, f.ok }
func (f fakeReader) Path() string                    { return f.path }

func TestCheckAllCombines(t *testing.T) {
	up := NewFlag("listener")
	up.Set(true)
	down := NewFlag("web")

	st := CheckAll(context.Background(), up.Check, down.Check)
	assert.False(t, st.OK)
	require.Len(t, st.Checks, 2)
	assert.True(t, st.Checks[0].OK)
	assert.Equal(t, "not running", st.Checks[1].Error)
	assert.Contains(t, st.String(), "✗ web")

	down.Set(true)
	assert.True(t, CheckAll(context.Background(), up.Check, down.Check).OK)
}

func TestCheckStorage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")

	r := CheckStorage(fakeReader{path: path, ok: true})(context.Background())
	assert.True(t, r.OK, r.Error)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe file must be removed")

	r = CheckStorage(fakeReader{path: path, ok: false})(context.Background())
	assert.False(t, r.OK)
	assert.Contains(t, r.Error, "data.json")
}

func TestCheckStorageReadableLeavesDirectoryAlone(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o555))
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })
	path := filepath.Join(dir, "data.json")

	r := CheckStorageReadable(fakeReader{path: path, ok: true})(context.Background())
	assert.True(t, r.OK, r.Error)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	r = CheckStorageReadable(fakeReader{path: path, ok: false})(context.Background())
	assert.False(t, r.OK)
}

func TestCheckStorageNeedsWritableDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone", "data.json")

	assert.False(t, CheckStorage(fakeReader{path: path, ok: true})(context.Background()).OK)
	assert.True(t, CheckStorageReadable(fakeReader{path: path, ok: true})(context.Background()).OK)
}

func TestProbeMuxReadyz(t *testing.T) {
	flag := NewFlag("listener")
	srv := httptest.NewServer(NewProbeMux(flag.Check))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	resp.Body.Close()

	flag.Set(true)
	resp, err = http.Get(srv.URL + "/readyz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var st HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&st))
	assert.True(t, st.OK)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
}

func TestGRPCHealth(t *testing.T) {
	s, hs := NewGRPCServer()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go s.Serve(l)
	defer s.Stop()

	conn, err := grpc.NewClient(l.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := healthpb.NewHealthClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: IngestService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())

	MarkServing(hs)
	resp, err = client.Check(ctx, &healthpb.HealthCheckRequest{Service: IngestService})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}
