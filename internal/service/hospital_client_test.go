package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mediroute-data/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHospitalClient_Forward(t *testing.T) {
	var got domain.Patient
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accepted":true,"reference":"INT-7"}`))
	}))
	defer srv.Close()

	c := NewHospitalClient(srv.URL+"/intake", time.Second, zap.NewNop())
	err := c.Forward(context.Background(), &domain.Patient{ID: "p-1", PatientName: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", got.PatientName)
}

func TestHospitalClient_RetriesServerErrors(t *testing.T) {
	var (
		calls int32
		mu    sync.Mutex
		keys  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		mu.Lock()
		keys = append(keys, r.Header.Get(IdempotencyKeyHeader))
		mu.Unlock()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewHospitalClient(srv.URL, time.Second, zap.NewNop())
	err := c.Forward(context.Background(), &domain.Patient{ID: "p-1"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	// 重试必须带同一个 key，接收端才能去重
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"p-1", "p-1", "p-1"}, keys)
}

func TestHospitalClient_Refused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accepted":false,"message":"diverting"}`))
	}))
	defer srv.Close()

	c := NewHospitalClient(srv.URL, time.Second, zap.NewNop())
	err := c.Forward(context.Background(), &domain.Patient{ID: "p-1"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
	assert.Contains(t, err.Error(), "diverting")
}
