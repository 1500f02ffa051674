package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"housetally-backend/internal/config"
)

// ErrMissingCredentials is returned by NewPaypalClient when the provider
// client id or secret is absent from configuration.
var ErrMissingCredentials = errors.New("paypal client id/secret not configured")

// ErrOrderNotFound: the provider does not know the order id at all.
var ErrOrderNotFound = errors.New("order not found on provider")

// ProviderError is a transport-level or unexpected non-2xx failure from the
// provider. The raw response body is kept for forensic reconciliation.
type ProviderError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("paypal %s failed: status=%d body=%s", e.Op, e.StatusCode, e.Body)
}

type CaptureOutcome string

const (
	// CaptureCompleted: the provider captured the order in this call.
	CaptureCompleted CaptureOutcome = "COMPLETED"
	// CaptureAlreadyCaptured: the provider's own idempotency reports this
	// exact order was captured before. The caller must reconcile against
	// local records before declaring success.
	CaptureAlreadyCaptured CaptureOutcome = "ALREADY_CAPTURED"
	// CaptureNotCompleted: the capture call went through but the provider
	// reports a non-terminal or failed status.
	CaptureNotCompleted CaptureOutcome = "NOT_COMPLETED"
)

type CaptureResult struct {
	Outcome        CaptureOutcome
	TransactionID  string
	ProviderStatus string
	Raw            json.RawMessage
}

type CreateOrderInput struct {
	Amount      int32 // minor currency units
	Currency    string
	Description string
	CustomID    string // correlation payload: user id + product reference
	ReturnURL   string
	CancelURL   string
}

type CreateOrderResponse struct {
	OrderID    string
	ApproveURL string
}

type PaypalClient interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResponse, error)
	CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error)
}

type paypalClientImpl struct {
	httpClient         *http.Client
	baseApiURL         string
	paypalClientID     string
	paypalClientSecret string
}

// NewPaypalClient fails fast when credentials are missing so a
// misconfiguration is a startup error, not a runtime surprise.
func NewPaypalClient(paypalCfg *config.Paypal) (PaypalClient, error) {
	if paypalCfg.ClientID == "" || paypalCfg.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if paypalCfg.BaseApiURL == "" {
		return nil, fmt.Errorf("paypal base api url not configured")
	}

	return &paypalClientImpl{
		httpClient: &http.Client{
			Timeout: 8 * time.Second,
		},
		baseApiURL:         paypalCfg.BaseApiURL,
		paypalClientID:     paypalCfg.ClientID,
		paypalClientSecret: paypalCfg.ClientSecret,
	}, nil
}

func (c *paypalClientImpl) getAccessToken(ctx context.Context) (string, error) {
	auth := base64.StdEncoding.EncodeToString(
		[]byte(c.paypalClientID + ":" + c.paypalClientSecret),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v1/oauth2/token",
		bytes.NewBufferString("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("http new request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &ProviderError{Op: "oauth token", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var res struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if res.AccessToken == "" {
		return "", &ProviderError{Op: "oauth token", StatusCode: resp.StatusCode, Body: string(body)}
	}

	return res.AccessToken, nil
}

type paypalLink struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type paypalCreateOrderResult struct {
	ID     string       `json:"id"`
	Links  []paypalLink `json:"links"`
	Status string       `json:"status"`
}

func (c *paypalClientImpl) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreateOrderResponse, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get paypal access token: %w", err)
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": in.Currency,
					"value":         formatAmount(in.Amount),
				},
				"description": in.Description,
				"custom_id":   in.CustomID,
			},
		},
		"application_context": map[string]string{
			"return_url": in.ReturnURL,
			"cancel_url": in.CancelURL,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal req payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseApiURL+"/v2/checkout/orders",
		bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("http new request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal create order request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return nil, &ProviderError{Op: "create order", StatusCode: resp.StatusCode, Body: string(b)}
	}

	var result paypalCreateOrderResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode paypal response: %w", err)
	}

	return &CreateOrderResponse{
		OrderID:    result.ID,
		ApproveURL: extractApproveURL(result.Links),
	}, nil
}

type paypalCaptureOrderResult struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

type paypalErrorBody struct {
	Name    string `json:"name"`
	Details []struct {
		Issue string `json:"issue"`
	} `json:"details"`
}

func (c *paypalClientImpl) CaptureOrder(ctx context.Context, orderID string) (*CaptureResult, error) {
	accessToken, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get paypal access token: %w", err)
	}

	url := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", c.baseApiURL, orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create capture request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paypal capture request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read capture response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var result paypalCaptureOrderResult
		if err := json.Unmarshal(body, &result); err != nil {
			return nil, fmt.Errorf("decode capture response: %w", err)
		}

		if result.Status == "COMPLETED" {
			return &CaptureResult{
				Outcome:        CaptureCompleted,
				TransactionID:  extractTransactionID(&result),
				ProviderStatus: result.Status,
				Raw:            body,
			}, nil
		}
		return &CaptureResult{
			Outcome:        CaptureNotCompleted,
			ProviderStatus: result.Status,
			Raw:            body,
		}, nil
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("order %s: %w", orderID, ErrOrderNotFound)
	}

	// PayPal reports a repeated capture of the same order as a 422 with an
	// ORDER_ALREADY_CAPTURED issue.
	if resp.StatusCode == http.StatusUnprocessableEntity {
		var errBody paypalErrorBody
		if err := json.Unmarshal(body, &errBody); err == nil {
			for _, d := range errBody.Details {
				if d.Issue == "ORDER_ALREADY_CAPTURED" {
					return &CaptureResult{
						Outcome:        CaptureAlreadyCaptured,
						ProviderStatus: errBody.Name,
						Raw:            body,
					}, nil
				}
			}
		}
	}

	return nil, &ProviderError{Op: "capture order", StatusCode: resp.StatusCode, Body: string(body)}
}

func extractTransactionID(result *paypalCaptureOrderResult) string {
	for _, unit := range result.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			if capture.ID != "" {
				return capture.ID
			}
		}
	}
	return ""
}

func extractApproveURL(links []paypalLink) string {
	for _, link := range links {
		if link.Rel == "approve" {
			return link.Href
		}
	}
	return ""
}

// formatAmount renders minor currency units the way the provider expects,
// e.g. 499 -> "4.99".
func formatAmount(minorUnits int32) string {
	return decimal.New(int64(minorUnits), -2).StringFixed(2)
}
