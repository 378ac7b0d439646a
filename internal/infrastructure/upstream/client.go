// Package upstream implements the client for the external gift-card
// issuer. The issuer splits its API across two servers: balance checks and
// the health probe live on one base URL with basic auth, redeem/refund on
// another with a bearer token. Amounts cross this boundary in decimal
// dollars.
package upstream

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/config"
	"github.com/velstore/giftcard-connector/internal/infrastructure/metrics"
)

const (
	balancePath = "/api/giftcard/balance"
	redeemPath  = "/ct/payment/capture"
	refundPath  = "/api/giftcard/return"

	defaultReason  = "purchase"
	defaultProgram = "bold"
)

type Client struct {
	balanceBaseURL     string
	transactionBaseURL string
	username           string
	password           string
	bearerToken        string
	cardCurrency       string
	httpClient         *http.Client
	healthTimeout      time.Duration
	logger             *slog.Logger
}

func NewClient(cfg config.UpstreamConfig, logger *slog.Logger) *Client {
	return &Client{
		balanceBaseURL:     normalizeURL(cfg.BalanceURL),
		transactionBaseURL: normalizeURL(cfg.TransactionURL),
		username:           cfg.Username,
		password:           cfg.Password,
		bearerToken:        base64.StdEncoding.EncodeToString([]byte(cfg.APIKey)),
		cardCurrency:       cfg.CardCurrency,
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		healthTimeout: cfg.HealthTimeout,
		logger:        logger,
	}
}

// normalizeURL ensures the configured base URL carries a scheme.
func normalizeURL(url string) string {
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return "https://" + url
	}
	return strings.TrimSuffix(url, "/")
}

// MaskPAN reduces a card number to its last 4 digits for log output.
func MaskPAN(pan string) string {
	if len(pan) <= 4 {
		return "****"
	}
	return "****" + pan[len(pan)-4:]
}

func (c *Client) CardCurrency() string {
	return c.cardCurrency
}

// Healthcheck probes the balance server with a short timeout so a slow or
// unreachable issuer cannot stall readiness probes. It never returns an
// error.
func (c *Client) Healthcheck(ctx context.Context) *application.HealthcheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.balanceBaseURL+"/", nil)
	if err != nil {
		return &application.HealthcheckResult{Status: "DOWN", Details: map[string]any{"error": err.Error()}}
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstreamCall("healthcheck", time.Since(start), false)
		c.logger.Error("upstream healthcheck failed", "error", err)
		return &application.HealthcheckResult{Status: "DOWN", Details: map[string]any{"error": err.Error()}}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	metrics.ObserveUpstreamCall("healthcheck", time.Since(start), resp.StatusCode == http.StatusOK)

	if resp.StatusCode == http.StatusOK {
		return &application.HealthcheckResult{
			Status:  "UP",
			Details: map[string]any{"responseCode": resp.StatusCode},
		}
	}
	return &application.HealthcheckResult{
		Status: "DOWN",
		Details: map[string]any{
			"message":      "unexpected response",
			"responseCode": resp.StatusCode,
			"body":         string(body),
		},
	}
}

func (c *Client) Balance(ctx context.Context, req application.UpstreamBalanceRequest) (*application.UpstreamBalanceResponse, error) {
	payload := map[string]any{
		"pan": strings.TrimSpace(req.PAN),
		"pin": strings.TrimSpace(req.PIN),
	}
	c.logger.Info("upstream balance request", "pan", MaskPAN(req.PAN))
	return send[application.UpstreamBalanceResponse](c, ctx, "balance", c.balanceBaseURL+balancePath, payload)
}

func (c *Client) Redeem(ctx context.Context, req application.UpstreamRedeemRequest) (*application.UpstreamRedeemResponse, error) {
	reason := req.Reason
	if reason == "" {
		reason = defaultReason
	}
	payload := map[string]any{
		"pan":          strings.TrimSpace(req.PAN),
		"pin":          strings.TrimSpace(req.PIN),
		"amount":       req.Amount,
		"reference_id": req.ReferenceID,
		"reason":       reason,
		"orderId":      req.OrderID,
	}
	c.logger.Info("upstream redeem request",
		"pan", MaskPAN(req.PAN),
		"amount", req.Amount,
		"reference_id", req.ReferenceID,
	)
	return send[application.UpstreamRedeemResponse](c, ctx, "redeem", c.transactionBaseURL+redeemPath, payload)
}

func (c *Client) Refund(ctx context.Context, req application.UpstreamRefundRequest) (*application.UpstreamRefundResponse, error) {
	program := req.Program
	if program == "" {
		program = defaultProgram
	}
	currency := req.Currency
	if currency == "" {
		currency = c.cardCurrency
	}
	payload := map[string]any{
		"pan":          req.PAN,
		"pin":          req.PIN,
		"amount":       req.Amount,
		"currency":     currency,
		"reference_id": req.ReferenceID,
		"program":      program,
		"orderId":      req.OrderID,
	}
	c.logger.Info("upstream refund request",
		"pan", MaskPAN(req.PAN),
		"amount", req.Amount,
		"reference_id", req.ReferenceID,
	)
	return send[application.UpstreamRefundResponse](c, ctx, "refund", c.transactionBaseURL+refundPath, payload)
}

func send[Resp any](c *Client, ctx context.Context, endpoint, url string, payload map[string]any) (*Resp, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshalling json: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.authorize(httpReq, endpoint)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		metrics.ObserveUpstreamCall(endpoint, time.Since(start), false)
		return nil, fmt.Errorf("error making %s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		metrics.ObserveUpstreamCall(endpoint, time.Since(start), false)
		c.logger.Error("upstream request failed",
			"endpoint", endpoint,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return nil, &Error{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var decoded Resp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		metrics.ObserveUpstreamCall(endpoint, time.Since(start), false)
		return nil, fmt.Errorf("error decoding %s response: %w", endpoint, err)
	}
	metrics.ObserveUpstreamCall(endpoint, time.Since(start), true)
	c.logger.Info("upstream request succeeded", "endpoint", endpoint, "status", resp.StatusCode)
	return &decoded, nil
}

// authorize applies the endpoint's auth scheme: basic auth on the balance
// server, bearer token on the transaction server.
func (c *Client) authorize(req *http.Request, endpoint string) {
	if endpoint == "balance" {
		req.SetBasicAuth(c.username, c.password)
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.bearerToken)
}
