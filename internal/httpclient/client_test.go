package httpclient

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTransportDefaults(t *testing.T) {
	t.Parallel()

	tr := NewTransport(Config{ReadTimeout: 5 * time.Second})
	require.Equal(t, 5*time.Second, tr.ResponseHeaderTimeout)
	require.Equal(t, 3*time.Second, tr.TLSHandshakeTimeout)
	require.Equal(t, 20, tr.MaxIdleConnsPerHost)
	require.Nil(t, tr.TLSClientConfig)
}

func TestNewTransportInsecureIsOptIn(t *testing.T) {
	t.Parallel()

	tr := NewTransport(Config{InsecureSkipVerify: true})
	require.NotNil(t, tr.TLSClientConfig)
	require.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestNewClientTimesOut(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(NewTransport(DefaultConfig()), 50*time.Millisecond)
	resp, err := client.Get(srv.URL)
	if resp != nil {
		_ = resp.Body.Close()
	}
	require.Error(t, err)
}
