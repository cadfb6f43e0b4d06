package holiday

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrasilAPIFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/feriados/v1/2024", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"date":"2024-01-01","name":"Confraternização mundial","type":"national"},
			{"date":"2024-11-20","name":"Dia da consciência negra","type":"national"}
		]`))
	}))
	defer srv.Close()

	dates, err := NewBrasilAPI(srv.URL+"/", time.Second).Fetch(context.Background(), 2024)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-01-01", "2024-11-20"}, dates)
}

func TestBrasilAPIRejectsNonList(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"object", http.StatusOK, `{"message":"Ano fora do intervalo suportado."}`},
		{"empty", http.StatusOK, ``},
		{"not found", http.StatusNotFound, `{"name":"NotFoundError"}`},
		{"list of garbage", http.StatusOK, `[1, 2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewBrasilAPI(srv.URL, time.Second).Fetch(context.Background(), 1800)
			assert.ErrorIs(t, err, ErrUnexpectedResponse)
		})
	}
}

func TestCacheOverBrasilAPI(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[{"date":"2024-01-01","name":"Confraternização mundial","type":"national"}]`))
	}))
	defer srv.Close()

	c := NewCache(NewBrasilAPI(srv.URL, time.Second), zerolog.Nop())
	for _, d := range []time.Time{
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC),
	} {
		_, err := c.IsHoliday(context.Background(), d)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, hits.Load())
}

func TestNewBrasilAPIDefaults(t *testing.T) {
	b := NewBrasilAPI("", 0)
	assert.Equal(t, DefaultBaseURL, b.baseURL)
	assert.Equal(t, DefaultTimeout, b.httpClient.Timeout)
}
