// Package commerce implements the client for the commerce platform that
// owns the cart/payment/order aggregate. The platform enforces optimistic
// concurrency: every mutation carries the resource version, and a stale
// version comes back as a 409 surfaced here as application.ErrVersionConflict.
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/velstore/giftcard-connector/internal/application"
	"github.com/velstore/giftcard-connector/internal/config"
	"github.com/velstore/giftcard-connector/internal/domain"
)

type Client struct {
	apiURL     string
	sessionURL string
	projectKey string
	tokens     *tokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg config.CommerceConfig, logger *slog.Logger) *Client {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	return &Client{
		apiURL:     strings.TrimSuffix(cfg.APIURL, "/"),
		sessionURL: strings.TrimSuffix(cfg.SessionURL, "/"),
		projectKey: cfg.ProjectKey,
		tokens:     newTokenSource(cfg.AuthURL, cfg.ClientID, cfg.ClientSecret, cfg.ProjectKey, httpClient),
		httpClient: httpClient,
		logger:     logger,
	}
}

// GetCartIDFromSession resolves a checkout session to its active cart.
func (c *Client) GetCartIDFromSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", application.NewUnauthorizedError()
	}

	endpoint := fmt.Sprintf("%s/%s/sessions/%s", c.sessionURL, c.projectKey, url.PathEscape(sessionID))
	session, err := doRequest[sessionResource](c, ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("resolving session: %w", err)
	}
	if session.ActiveCart == nil || session.ActiveCart.CartRef.ID == "" {
		return "", fmt.Errorf("session %s has no active cart", sessionID)
	}
	return session.ActiveCart.CartRef.ID, nil
}

func (c *Client) GetCart(ctx context.Context, cartID string) (*domain.Cart, error) {
	endpoint := fmt.Sprintf("%s/%s/carts/%s", c.apiURL, c.projectKey, url.PathEscape(cartID))
	cart, err := doRequest[cartResource](c, ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return cart.toDomain(), nil
}

func (c *Client) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	endpoint := fmt.Sprintf("%s/%s/payments/%s", c.apiURL, c.projectKey, url.PathEscape(paymentID))
	payment, err := doRequest[paymentResource](c, ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return payment.toDomain(), nil
}

func (c *Client) CreatePayment(ctx context.Context, draft domain.PaymentDraft) (*domain.Payment, error) {
	body := map[string]any{
		"amountPlanned": toMoneyResource(draft.AmountPlanned),
		"paymentMethodInfo": paymentMethodInfoResource{
			PaymentInterface: draft.PaymentInterface,
			Method:           draft.Method,
		},
	}
	if len(draft.CustomFields) > 0 {
		body["custom"] = map[string]any{
			"type":   map[string]string{"typeId": "type", "key": "customPaymentFields"},
			"fields": draft.CustomFields,
		}
	}
	if len(draft.Transactions) > 0 {
		txs := make([]map[string]any, 0, len(draft.Transactions))
		for _, tx := range draft.Transactions {
			txs = append(txs, transactionDraftBody(tx))
		}
		body["transactions"] = txs
	}

	endpoint := fmt.Sprintf("%s/%s/payments", c.apiURL, c.projectKey)
	payment, err := doRequest[paymentResource](c, ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	c.logger.Info("payment created", "payment_id", payment.ID)
	return payment.toDomain(), nil
}

func (c *Client) AddPayment(ctx context.Context, cartID string, cartVersion int64, paymentID string) error {
	body := updateRequest{
		Version: cartVersion,
		Actions: []updateAction{
			{"action": "addPayment", "payment": reference{ID: paymentID}},
		},
	}
	endpoint := fmt.Sprintf("%s/%s/carts/%s", c.apiURL, c.projectKey, url.PathEscape(cartID))
	_, err := doRequest[cartResource](c, ctx, http.MethodPost, endpoint, body)
	return err
}

func (c *Client) UpdatePayment(ctx context.Context, paymentID string, update application.PaymentUpdate) (*domain.Payment, error) {
	actions := buildPaymentActions(update)
	if len(actions) == 0 {
		return c.GetPayment(ctx, paymentID)
	}

	body := updateRequest{Version: update.Version, Actions: actions}
	endpoint := fmt.Sprintf("%s/%s/payments/%s", c.apiURL, c.projectKey, url.PathEscape(paymentID))
	payment, err := doRequest[paymentResource](c, ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	return payment.toDomain(), nil
}

func (c *Client) GetOrderByPaymentID(ctx context.Context, paymentID string) (*domain.Order, error) {
	where := fmt.Sprintf(`paymentInfo(payments(id="%s"))`, paymentID)
	endpoint := fmt.Sprintf("%s/%s/orders?where=%s&limit=1", c.apiURL, c.projectKey, url.QueryEscape(where))
	page, err := doRequest[pagedResult[orderResource]](c, ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if page.Count == 0 {
		return nil, application.NewNotFoundError("order for payment", paymentID)
	}
	return &domain.Order{ID: page.Results[0].ID, OrderNumber: page.Results[0].OrderNumber}, nil
}

// Ping fetches a token and reads the project root, verifying credentials
// and connectivity for the status endpoint.
func (c *Client) Ping(ctx context.Context) error {
	endpoint := fmt.Sprintf("%s/%s", c.apiURL, c.projectKey)
	_, err := doRequest[map[string]any](c, ctx, http.MethodGet, endpoint, nil)
	return err
}

func buildPaymentActions(update application.PaymentUpdate) []updateAction {
	var actions []updateAction

	if update.ChangeAmountPlanned != nil {
		actions = append(actions, updateAction{
			"action": "changeAmountPlanned",
			"amount": toMoneyResource(*update.ChangeAmountPlanned),
		})
	}
	if update.SetInterfaceID != "" {
		actions = append(actions, updateAction{
			"action":      "setInterfaceId",
			"interfaceId": update.SetInterfaceID,
		})
	}
	for _, tx := range update.AddTransactions {
		actions = append(actions, updateAction{
			"action":      "addTransaction",
			"transaction": transactionDraftBody(tx),
		})
	}
	if ch := update.ChangeTransaction; ch != nil {
		if ch.State != "" {
			actions = append(actions, updateAction{
				"action":        "changeTransactionState",
				"transactionId": ch.TransactionID,
				"state":         string(ch.State),
			})
		}
		if ch.Amount != nil {
			actions = append(actions, updateAction{
				"action":        "changeTransactionAmount",
				"transactionId": ch.TransactionID,
				"amount":        toMoneyResource(*ch.Amount),
			})
		}
		if ch.InteractionID != "" {
			actions = append(actions, updateAction{
				"action":        "changeTransactionInteractionId",
				"transactionId": ch.TransactionID,
				"interactionId": ch.InteractionID,
			})
		}
	}
	for name, value := range update.SetCustomFields {
		actions = append(actions, updateAction{
			"action": "setCustomField",
			"name":   name,
			"value":  value,
		})
	}
	return actions
}

func transactionDraftBody(tx domain.TransactionDraft) map[string]any {
	body := map[string]any{
		"type":   string(tx.Type),
		"state":  string(tx.State),
		"amount": toMoneyResource(tx.Amount),
	}
	if tx.InteractionID != "" {
		body["interactionId"] = tx.InteractionID
	}
	return body
}

func doRequest[Resp any](c *Client, ctx context.Context, method, endpoint string, reqBody any) (*Resp, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("error marshalling json: %w", err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	if reqBody != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: %s", application.ErrVersionConflict, string(body))
	case resp.StatusCode == http.StatusUnauthorized:
		// Token may have been revoked; drop the cache so the next call
		// re-authenticates.
		c.tokens.Invalidate()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("commerce API returned status 401: %s", string(body))
	case resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("commerce API returned status %d: %s", resp.StatusCode, string(body))
	}

	var decoded Resp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("error decoding response: %w", err)
	}
	return &decoded, nil
}
