package platform

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/tradefetch/internal/domain"
)

func TestCheckStatus(t *testing.T) {
	codes := map[string]int{"/ok": 200, "/limited": 429, "/denied": 401, "/boom": 500}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(codes[r.URL.Path])
		_, _ = w.Write([]byte("body"))
	}))
	defer srv.Close()

	client := NewRESTClient(srv.URL+"/", 0)

	resp, err := client.R().Get("/ok")
	require.NoError(t, err)
	assert.NoError(t, CheckStatus("venue", resp))

	resp, err = client.R().Get("/limited")
	require.NoError(t, err)
	assert.ErrorIs(t, CheckStatus("venue", resp), domain.ErrRateLimited)

	resp, err = client.R().Get("/denied")
	require.NoError(t, err)
	assert.ErrorIs(t, CheckStatus("venue", resp), domain.ErrUnauthorized)

	resp, err = client.R().Get("/boom")
	require.NoError(t, err)
	err = CheckStatus("venue", resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue: HTTP 500: body")
}
