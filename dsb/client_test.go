package dsb

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodedEnvelope(t *testing.T, result string) []byte {
	t.Helper()
	d, err := Encode([]byte(result))
	require.NoError(t, err)
	body, err := json.Marshal(map[string]string{"d": d})
	require.NoError(t, err)
	return body
}

func newTestClient(url string) *Client {
	return NewClient(Options{
		Endpoint:       url,
		Username:       "123456",
		Password:       "secret",
		ConnectTimeout: time.Second,
		ReadTimeout:    time.Second,
		Now:            func() time.Time { return time.Date(2026, 10, 17, 7, 30, 0, 0, time.UTC) },
	})
}

func TestClient_GetTimeTables(t *testing.T) {
	body := encodedEnvelope(t, sampleResult)
	var args requestArgs
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		raw, _ := io.ReadAll(r.Body)
		var req request
		assert.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, 1, req.Req.DataType)
		payload, err := Decode(req.Req.Data)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(payload, &args))

		_, _ = w.Write(body)
	}))
	defer srv.Close()

	tables, err := newTestClient(srv.URL).GetTimeTables(context.Background())
	require.NoError(t, err)
	assert.Len(t, tables, 3)

	assert.Equal(t, "123456", args.UserID)
	assert.Equal(t, "secret", args.UserPw)
	assert.Equal(t, DefaultAppVersion, args.AppVersion)
	assert.Equal(t, DefaultBundleID, args.BundleID)
	assert.Equal(t, "2026-10-17T07:30:00.000+0000", args.Date)
	assert.Equal(t, args.Date, args.LastUpdate)
	_, err = uuid.Parse(args.AppID)
	assert.NoError(t, err)
}

func TestClient_GetNews(t *testing.T) {
	body := encodedEnvelope(t, sampleResult)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	news, err := newTestClient(srv.URL).GetNews(context.Background())
	require.NoError(t, err)
	assert.Len(t, news, 2)
}

func TestClient_NonZeroResultCode(t *testing.T) {
	body := encodedEnvelope(t, `{"Resultcode":1,"ResultStatusInfo":"Login fehlgeschlagen"}`)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetTimeTables(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProtocol))
	assert.Contains(t, err.Error(), "Login fehlgeschlagen")
}

func TestClient_HTTPErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL).GetTimeTables(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.False(t, errors.Is(err, ErrProtocol))
}

func TestClient_MalformedEnvelope(t *testing.T) {
	for name, body := range map[string]string{
		"not json":   "<html>",
		"missing d":  `{"x":"y"}`,
		"bad base64": `{"d":"@@@@"}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			_, err := newTestClient(srv.URL).Pull(context.Background())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrProtocol))
		})
	}
}

func TestClient_ContextCancelled(t *testing.T) {
	body := encodedEnvelope(t, sampleResult)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newTestClient(srv.URL).Pull(ctx)
	assert.True(t, errors.Is(err, ErrTransport))
	assert.True(t, errors.Is(err, context.Canceled))
}
