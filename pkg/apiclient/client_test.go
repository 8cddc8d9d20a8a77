package apiclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/royalty-monitor/pkg/logger"
	"github.com/0xmhha/royalty-monitor/pkg/logsheet"
)

const sheetsJSON = `[
  {"id": 1, "createdDate": "2024-01-01T10:00:00Z", "company": {"companyName": "Acme"},
   "selectedMusic": [{"id": "4", "title": "Song", "user": {"id": 7}}]}
]`

func newTestClient(t *testing.T, handler http.HandlerFunc, mutate ...func(*Config)) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:           srv.URL + "/",
		Token:             "secret",
		RequestsPerSecond: 1000,
		Burst:             100,
		RetryDelay:        time.Millisecond,
	}
	for _, m := range mutate {
		m(&cfg)
	}

	client, err := New(cfg, logger.Noop())
	require.NoError(t, err)
	return client
}

// pathRecorder collects request paths from handler goroutines.
type pathRecorder struct {
	mu    sync.Mutex
	paths []string
}

func (p *pathRecorder) add(path string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paths = append(p.paths, path)
}

func (p *pathRecorder) get() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.paths...)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{}, logger.Noop())
	assert.ErrorIs(t, err, ErrNoBaseURL)

	_, err = New(Config{BaseURL: "ftp://example.org"}, logger.Noop())
	assert.Error(t, err)

	_, err = New(Config{BaseURL: "https://example.org"}, logger.Noop())
	assert.NoError(t, err)
}

func TestAllLogSheets(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, PathAdminLogSheets, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(sheetsJSON))
	})

	sheets, err := client.AllLogSheets(context.Background())
	require.NoError(t, err)
	require.Len(t, sheets, 1)
	assert.Equal(t, "Acme", sheets[0].CompanyName())
	assert.Equal(t, int64(7), sheets[0].SelectedMusic[0].OwnerID())
}

func TestEndpoints(t *testing.T) {
	var rec pathRecorder
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(r.URL.Path)
		if r.URL.Path == PathAdminLogSheets+"/12" {
			_, _ = w.Write([]byte(`{"id": 12, "createdDate": "2024-01-01", "selectedMusic": []}`))
			return
		}
		_, _ = w.Write([]byte(`null`))
	})

	ctx := context.Background()

	sheet, err := client.LogSheet(ctx, 12)
	require.NoError(t, err)
	assert.EqualValues(t, 12, sheet.ID)

	sheets, err := client.CompanyLogSheets(ctx)
	require.NoError(t, err)
	assert.NotNil(t, sheets)
	assert.Empty(t, sheets)

	works, err := client.MyMusic(ctx)
	require.NoError(t, err)
	assert.NotNil(t, works)

	_, err = client.AllMusic(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{
		PathAdminLogSheets + "/12",
		PathCompanyLogSheets,
		PathArtistMusic,
		PathAdminMusic,
	}, rec.get())
}

func TestNoTokenNoAuthorizationHeader(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`[]`))
	}, func(c *Config) { c.Token = "" })

	_, err := client.AllMusic(context.Background())
	require.NoError(t, err)
}

func TestStatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, want: ErrUnauthorized},
		{name: "forbidden", status: http.StatusForbidden, want: ErrUnauthorized},
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			})

			_, err := client.AllLogSheets(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, int32(1), calls.Load(), "4xx must not be retried")
		})
	}
}

func TestBadRequestCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "missing company"}`))
	})

	_, err := client.CompanyLogSheets(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	assert.Equal(t, "missing company", statusErr.Message)
	assert.False(t, statusErr.Temporary())
}

func TestRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(sheetsJSON))
		}
	})

	sheets, err := client.AllLogSheets(context.Background())
	require.NoError(t, err)
	assert.Len(t, sheets, 1)
	assert.Equal(t, int32(3), calls.Load())
}

func TestRetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, func(c *Config) { c.MaxRetries = 2 })

	_, err := client.AllLogSheets(context.Background())

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": 1, "title": `))
	})

	_, err := client.AllMusic(context.Background())
	assert.Error(t, err)
}

func TestNonNumericIDDecodesToZero(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id": "abc", "title": "Bad"}, {"id": 2, "title": "Good"}]`))
	})

	works, err := client.AllMusic(context.Background())
	require.NoError(t, err)
	require.Len(t, works, 2)
	assert.Equal(t, logsheet.ID(0), works[0].ID)
	assert.Equal(t, logsheet.ID(2), works[1].ID)
}

func TestContextCancelled(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, func(c *Config) { c.RetryDelay = time.Hour })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.AllLogSheets(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}, func(c *Config) {
		c.RequestsPerSecond = 20
		c.Burst = 1
	})

	started := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.AllMusic(context.Background())
		require.NoError(t, err)
	}

	// Two waits of ~50ms after the initial burst token.
	assert.GreaterOrEqual(t, time.Since(started), 80*time.Millisecond)
}
