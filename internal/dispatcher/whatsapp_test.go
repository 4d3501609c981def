package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWhatsAppOpts(baseURL string) WhatsAppOpts {
	return WhatsAppOpts{
		BaseURL:    baseURL,
		APIVersion: "v18.0",
		Credentials: Credentials{
			PhoneNumberID:     "1055",
			AccessToken:       "tok-123",
			BusinessAccountID: "waba-1",
		},
		TimeoutMs:     2000,
		FailThreshold: 2,
		OpenForMs:     60000,
	}
}

func TestWhatsAppSenderSendSuccess(t *testing.T) {
	var got waMessageRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v18.0/1055/messages", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.abc"}]}`))
	}))
	defer server.Close()

	s, err := NewWhatsAppSender(testWhatsAppOpts(server.URL))
	require.NoError(t, err)
	assert.Equal(t, ChannelBusinessAPI, s.Kind())

	require.NoError(t, s.Send(context.Background(), "0812-3456-789", "halo"))

	assert.Equal(t, "whatsapp", got.MessagingProduct)
	assert.Equal(t, "628123456789", got.To)
	assert.Equal(t, "text", got.Type)
	assert.Equal(t, "halo", got.Text.Body)
}

func TestWhatsAppSenderAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	}))
	defer server.Close()

	s, err := NewWhatsAppSender(testWhatsAppOpts(server.URL))
	require.NoError(t, err)

	err = s.Send(context.Background(), "0811", "halo")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, 190, apiErr.Code)
	assert.Contains(t, err.Error(), "Invalid OAuth access token.")
}

func TestWhatsAppSenderOpensBreakerWithoutRetrying(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	s, err := NewWhatsAppSender(testWhatsAppOpts(server.URL))
	require.NoError(t, err)

	require.Error(t, s.Send(context.Background(), "0811", "a"))
	require.Error(t, s.Send(context.Background(), "0811", "b"))
	assert.Equal(t, int32(2), hits.Load(), "one request per send")

	err = s.Send(context.Background(), "0811", "c")
	require.ErrorIs(t, err, ErrBreakerOpen)
	assert.Equal(t, int32(2), hits.Load())
	assert.True(t, s.BreakerOpen())
}

func TestRouterHealthReportsBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	opts := testWhatsAppOpts(server.URL)
	s, err := NewWhatsAppSender(opts)
	require.NoError(t, err)

	r := NewRouter(RouterConfig{
		Settings:    &stubSettings{},
		BusinessAPI: s,
		APIEnabled:  true,
		Credentials: opts.Credentials,
	})
	assert.Equal(t, Health{Channel: "business_api"}, r.Health())

	for i := 0; i < 2; i++ {
		_ = s.Send(context.Background(), "0811", "x")
	}
	assert.Equal(t, Health{Channel: "business_api", BreakerOpen: true}, r.Health())

	sim := NewRouter(RouterConfig{Settings: &stubSettings{}})
	assert.Equal(t, Health{Channel: "simulated"}, sim.Health())
}

func TestNewWhatsAppSenderValidates(t *testing.T) {
	opts := testWhatsAppOpts("https://graph.facebook.com")
	opts.Credentials.AccessToken = ""
	_, err := NewWhatsAppSender(opts)
	assert.Error(t, err)

	opts = testWhatsAppOpts("")
	_, err = NewWhatsAppSender(opts)
	assert.Error(t, err)
}
