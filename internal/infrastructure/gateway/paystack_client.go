package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"chama-ledger.backend/internal/domain/entities"
	domainerrors "chama-ledger.backend/internal/domain/errors"
)

const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

// PaystackClient talks to the Paystack transaction API
type PaystackClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewPaystackClient creates a client for baseURL authenticated with secretKey
func NewPaystackClient(secretKey, baseURL string, timeout time.Duration) *PaystackClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PaystackClient{
		secretKey:  secretKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeBody struct {
	Email       string            `json:"email"`
	Amount      string            `json:"amount"`
	Reference   string            `json:"reference"`
	Currency    string            `json:"currency,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type transactionData struct {
	Status          string     `json:"status"`
	Reference       string     `json:"reference"`
	Amount          int64      `json:"amount"`
	Currency        string     `json:"currency"`
	GatewayResponse string     `json:"gateway_response"`
	PaidAt          *time.Time `json:"paid_at"`
}

func (d transactionData) toResult() entities.GatewayResult {
	return entities.GatewayResult{
		Reference:       d.Reference,
		Status:          normalizeStatus(d.Status),
		Amount:          entities.Money(d.Amount),
		Currency:        d.Currency,
		GatewayResponse: d.GatewayResponse,
		PaidAt:          d.PaidAt,
	}
}

// Initialize opens a checkout session for req.Reference
func (c *PaystackClient) Initialize(ctx context.Context, req entities.GatewayChargeRequest) (*entities.GatewayInitialization, error) {
	body := initializeBody{
		Email:       req.Email,
		Amount:      req.Amount.MinorString(),
		Reference:   req.Reference,
		Currency:    req.Currency,
		CallbackURL: req.CallbackURL,
		Metadata:    req.Metadata,
	}

	var data initializeData
	if err := c.do(ctx, http.MethodPost, "/transaction/initialize", body, &data); err != nil {
		return nil, err
	}
	if data.AuthorizationURL == "" {
		return nil, fmt.Errorf("%w: missing authorization url", domainerrors.ErrGatewayUnavailable)
	}

	return &entities.GatewayInitialization{
		Reference:        data.Reference,
		AuthorizationURL: data.AuthorizationURL,
		AccessCode:       data.AccessCode,
	}, nil
}

// Verify asks the gateway for the current state of reference
func (c *PaystackClient) Verify(ctx context.Context, reference string) (*entities.GatewayResult, error) {
	var data transactionData
	if err := c.do(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &data); err != nil {
		return nil, err
	}
	result := data.toResult()
	if result.Reference == "" {
		result.Reference = reference
	}
	return &result, nil
}

// VerifySignature checks the x-paystack-signature header against the raw body
func (c *PaystackClient) VerifySignature(payload []byte, signature string) bool {
	if c.secretKey == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(c.secretKey))
	mac.Write(payload)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// ParseWebhook decodes a callback body
func (c *PaystackClient) ParseWebhook(payload []byte) (*entities.WebhookEvent, error) {
	var raw struct {
		Event string          `json:"event"`
		Data  transactionData `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: malformed webhook payload", domainerrors.ErrBadRequest)
	}
	if raw.Event == "" || raw.Data.Reference == "" {
		return nil, fmt.Errorf("%w: webhook missing event or reference", domainerrors.ErrBadRequest)
	}
	return &entities.WebhookEvent{Event: raw.Event, Result: raw.Data.toResult()}, nil
}

func (c *PaystackClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domainerrors.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domainerrors.ErrGatewayUnavailable, err)
	}

	var envelope paystackEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("%w: status %d, undecodable body", domainerrors.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest || !envelope.Status {
		return fmt.Errorf("%w: status %d: %s", domainerrors.ErrGatewayUnavailable, resp.StatusCode, envelope.Message)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%w: decode data: %v", domainerrors.ErrGatewayUnavailable, err)
		}
	}
	return nil
}

func normalizeStatus(status string) entities.GatewayStatus {
	switch strings.ToLower(status) {
	case "success":
		return entities.GatewayStatusSuccess
	case "failed", "reversed":
		return entities.GatewayStatusFailed
	default:
		// "abandoned" and "ongoing" can still complete, so they stay pending
		return entities.GatewayStatusPending
	}
}
