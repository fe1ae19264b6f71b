package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{"0241234567", "+233241234567", false},
		{"024 123 4567", "+233241234567", false},
		{"233241234567", "+233241234567", false},
		{"+233241234567", "+233241234567", false},
		{"+233 24-123-4567", "+233241234567", false},
		{"241234567", "+233241234567", false},
		{"02412345", "", true},
		{"024123456a", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizePhone(tt.in)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChannel(t *testing.T) {
	for provider, want := range map[string]string{"MTN": "13", "Vodafone": "6", "Airtel": "7"} {
		got, ok := Channel(provider)
		assert.True(t, ok)
		assert.Equal(t, want, got)
	}
	_, ok := Channel("Tigo")
	assert.False(t, ok)
}

func validRequest() Request {
	return Request{
		Phone:       "0241234567",
		Amount:      decimal.RequireFromString("47.30"),
		Provider:    "MTN",
		ExternalRef: "ORD-1767225600000-042",
	}
}

func testConfig(url string) Config {
	return Config{BaseURL: url, Username: "chopbox", PublicKey: "pk_test", AccountNumber: "10001"}
}

func TestInitiate_Success(t *testing.T) {
	var got gatewayRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, paymentPath, r.URL.Path)
		headers = r.Header.Clone()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":1,"message":"Prompt sent","data":{"reference":"abc"}}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), srv.Client(), nil)
	data, err := c.Initiate(context.Background(), validRequest())
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":1,"message":"Prompt sent","data":{"reference":"abc"}}`, string(data))

	assert.Equal(t, "chopbox", headers.Get("X-API-USER"))
	assert.Equal(t, "pk_test", headers.Get("X-API-PUBKEY"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))

	assert.Equal(t, gatewayRequest{
		Type:          1,
		Channel:       "13",
		Currency:      "GHS",
		Payer:         "233241234567",
		Amount:        "47.3",
		ExternalRef:   "ORD-1767225600000-042",
		AccountNumber: "10001",
	}, got)
}

func TestInitiate_GatewayError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"status":0,"message":"Invalid payer"}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), srv.Client(), nil)
	_, err := c.Initiate(context.Background(), validRequest())

	var gerr *GatewayError
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, http.StatusUnprocessableEntity, gerr.Status)
	assert.Equal(t, "Invalid payer", gerr.Message)
}

func TestInitiate_ValidationBeforeNetwork(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	defer srv.Close()
	c := NewClient(testConfig(srv.URL), srv.Client(), nil)

	tests := []struct {
		name   string
		mutate func(*Request)
		want   error
	}{
		{"bad phone", func(r *Request) { r.Phone = "123" }, ErrInvalidPhone},
		{"zero amount", func(r *Request) { r.Amount = decimal.Zero }, ErrInvalidAmount},
		{"negative amount", func(r *Request) { r.Amount = decimal.NewFromInt(-5) }, ErrInvalidAmount},
		{"unknown provider", func(r *Request) { r.Provider = "Tigo" }, ErrInvalidProvider},
		{"missing ref", func(r *Request) { r.ExternalRef = "" }, ErrMissingRef},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := c.Initiate(context.Background(), req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, calls)
}

func TestInitiate_NotConfigured(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://127.0.0.1:1"}, nil, nil)
	_, err := c.Initiate(context.Background(), validRequest())
	assert.ErrorIs(t, err, ErrNotConfigured)
}
