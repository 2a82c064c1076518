package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ferryhq/ferrytask/internal/model"
)

func TestClientPostBatch(t *testing.T) {
	var received model.BatchRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/sync/batch", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		resp := model.BatchResponse{
			ProcessedItems: []model.ProcessedItem{
				{ClientID: received.Items[0].ID, ServerID: "s1", Status: model.ItemSuccess},
			},
			ServerTimestamp:  time.Now().UTC(),
			ChecksumVerified: true,
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/api")

	req := model.BatchRequest{
		Items: []model.SyncIntent{{
			ID:        "q1",
			TaskID:    "t1",
			Operation: model.OpCreate,
			Data:      json.RawMessage(`{"id":"t1","title":"x"}`),
			CreatedAt: time.Now().UTC(),
		}},
		ClientTimestamp: time.Now().UTC(),
	}
	req.Checksum = BatchChecksum(req.Items)

	resp, err := client.PostBatch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.Checksum, received.Checksum)
	require.Len(t, resp.ProcessedItems, 1)
	assert.Equal(t, "q1", resp.ProcessedItems[0].ClientID)
	assert.Equal(t, "s1", resp.ProcessedItems[0].ServerID)
	assert.True(t, resp.ChecksumVerified)
}

func TestClientPostBatchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database on fire", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/api")

	_, err := client.PostBatch(context.Background(), model.BatchRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database on fire")
}

func TestClientCheckConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/sync/health", r.URL.Path)
		w.WriteHeader(http.StatusNoContent) // any 2xx counts
	}))
	defer srv.Close()

	client := NewClient(srv.URL + "/api")
	assert.True(t, client.CheckConnectivity(context.Background()))
}

func TestClientCheckConnectivityDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	client := NewClient(srv.URL + "/api")
	assert.False(t, client.CheckConnectivity(context.Background()))

	srv.Close()
	assert.False(t, client.CheckConnectivity(context.Background()))
}
