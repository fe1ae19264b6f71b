// Package payment initiates mobile-money collections through the Moolre
// open API.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/logger"
)

var (
	ErrNotConfigured   = errors.New("payment service configuration error")
	ErrInvalidProvider = errors.New("valid service provider is required")
	ErrInvalidAmount   = errors.New("valid amount is required")
	ErrMissingRef      = errors.New("external reference is required")
)

const (
	DefaultBaseURL = "https://api.moolre.com"
	paymentPath    = "/open/transact/payment"
	currency       = "GHS"
)

var providerChannels = map[string]string{
	"MTN":      "13",
	"Vodafone": "6",
	"Airtel":   "7",
}

// Channel maps a service provider name to the gateway channel code.
func Channel(provider string) (string, bool) {
	c, ok := providerChannels[provider]
	return c, ok
}

// Config holds the gateway credentials.
type Config struct {
	BaseURL       string
	Username      string
	PublicKey     string
	AccountNumber string
}

func (c Config) configured() bool {
	return c.Username != "" && c.PublicKey != "" && c.AccountNumber != ""
}

// Request is a payment prompt sent to the customer's phone.
type Request struct {
	Phone       string
	Amount      decimal.Decimal
	Provider    string
	ExternalRef string
}

type gatewayRequest struct {
	Type          int    `json:"type"`
	Channel       string `json:"channel"`
	Currency      string `json:"currency"`
	Payer         string `json:"payer"`
	Amount        string `json:"amount"`
	ExternalRef   string `json:"externalref"`
	AccountNumber string `json:"accountnumber"`
}

// GatewayError is a non-2xx response from the gateway. Body is the raw
// response, relayed to the caller as-is.
type GatewayError struct {
	Status  int
	Message string
	Body    json.RawMessage
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payment gateway returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("payment gateway returned %d", e.Status)
}

// Client talks to the payment gateway.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

func NewClient(cfg Config, httpClient *http.Client, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{cfg: cfg, http: httpClient, log: logger.OrNop(log)}
}

// Validate checks a request without contacting the gateway and returns the
// normalized phone number.
func Validate(req Request) (string, error) {
	phone, err := NormalizePhone(req.Phone)
	if err != nil {
		return "", err
	}
	if !req.Amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	if _, ok := Channel(req.Provider); !ok {
		return "", ErrInvalidProvider
	}
	if req.ExternalRef == "" {
		return "", ErrMissingRef
	}
	return phone, nil
}

// Initiate asks the gateway to prompt the payer. The decoded success body
// is returned unchanged.
func (c *Client) Initiate(ctx context.Context, req Request) (json.RawMessage, error) {
	phone, err := Validate(req)
	if err != nil {
		return nil, err
	}
	if !c.cfg.configured() {
		return nil, ErrNotConfigured
	}
	channel, _ := Channel(req.Provider)

	body, err := json.Marshal(gatewayRequest{
		Type:          1,
		Channel:       channel,
		Currency:      currency,
		Payer:         payer(phone),
		Amount:        req.Amount.String(),
		ExternalRef:   req.ExternalRef,
		AccountNumber: c.cfg.AccountNumber,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+paymentPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build payment request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-API-USER", c.cfg.Username)
	httpReq.Header.Set("X-API-PUBKEY", c.cfg.PublicKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("call payment gateway: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read payment response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gerr := &GatewayError{Status: resp.StatusCode}
		if json.Valid(raw) {
			gerr.Body = raw
			var msg struct {
				Message string `json:"message"`
			}
			if json.Unmarshal(raw, &msg) == nil {
				gerr.Message = msg.Message
			}
		}
		c.log.Warn("payment gateway error",
			zap.Int("status", resp.StatusCode),
			zap.String("external_ref", req.ExternalRef),
			zap.String("message", gerr.Message))
		return nil, gerr
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("payment gateway returned invalid JSON")
	}
	c.log.Info("payment initiated",
		zap.String("external_ref", req.ExternalRef),
		zap.String("channel", channel))
	return raw, nil
}
