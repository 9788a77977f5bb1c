package chapa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/cinepass/booking-core/internal/domain"
	"github.com/cinepass/booking-core/internal/observability"
	"github.com/cinepass/booking-core/internal/service"
)

// Gateway talks to a Chapa-compatible checkout API. Amounts cross the
// wire as decimal strings in major units; everything internal stays in
// minor units.
type Gateway struct {
	baseURL string
	secret  string
	client  *http.Client
	logger  observability.Logger
}

func New(baseURL, secret string, client *http.Client, logger observability.Logger) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		client:  client,
		logger:  logger,
	}
}

type initializeRequest struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	TxRef         string        `json:"tx_ref"`
	CallbackURL   string        `json:"callback_url"`
	ReturnURL     string        `json:"return_url"`
	Customization customization `json:"customization"`
}

type customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type initializeResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
	} `json:"data"`
}

type verifyResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Status    string      `json:"status"`
		Reference string      `json:"reference"`
		Amount    json.Number `json:"amount"`
		Currency  string      `json:"currency"`
	} `json:"data"`
}

func (g *Gateway) Initialize(ctx context.Context, req service.GatewayInit) (*service.GatewayCheckout, error) {
	body, err := json.Marshal(initializeRequest{
		Amount:      FormatMinor(req.Amount),
		Currency:    req.Currency,
		Email:       req.Email,
		TxRef:       req.TxRef,
		CallbackURL: req.CallbackURL,
		ReturnURL:   req.ReturnURL,
		Customization: customization{
			Title:       req.Title,
			Description: req.Description,
		},
	})
	if err != nil {
		return nil, err
	}

	var out initializeResponse
	if err := g.do(ctx, http.MethodPost, "/transaction/initialize", bytes.NewReader(body), &out); err != nil {
		observability.GatewayRequestsTotal.WithLabelValues("initialize", "error").Inc()
		return nil, err
	}
	if out.Status != "success" || out.Data.CheckoutURL == "" {
		observability.GatewayRequestsTotal.WithLabelValues("initialize", "rejected").Inc()
		return nil, errors.Mark(errors.Newf("initialize rejected: %s", out.Message), domain.ErrGatewayRejected)
	}
	observability.GatewayRequestsTotal.WithLabelValues("initialize", "ok").Inc()
	return &service.GatewayCheckout{CheckoutURL: out.Data.CheckoutURL}, nil
}

func (g *Gateway) Verify(ctx context.Context, txRef string) (*service.GatewayVerification, error) {
	var out verifyResponse
	if err := g.do(ctx, http.MethodGet, "/transaction/verify/"+txRef, nil, &out); err != nil {
		observability.GatewayRequestsTotal.WithLabelValues("verify", "error").Inc()
		return nil, err
	}
	if out.Status != "success" {
		observability.GatewayRequestsTotal.WithLabelValues("verify", "rejected").Inc()
		return nil, errors.Mark(errors.Newf("verify rejected: %s", out.Message), domain.ErrGatewayRejected)
	}

	var status service.GatewayStatus
	switch out.Data.Status {
	case "success":
		status = service.GatewaySuccess
	case "failed":
		status = service.GatewayFailed
	default:
		status = service.GatewayPending
	}

	amount, err := ParseMinor(out.Data.Amount)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "bad amount in verify response"), domain.ErrGatewayRejected)
	}

	observability.GatewayRequestsTotal.WithLabelValues("verify", "ok").Inc()
	return &service.GatewayVerification{
		Status:    status,
		Reference: out.Data.Reference,
		Amount:    amount,
		Currency:  out.Data.Currency,
	}, nil
}

func (g *Gateway) do(ctx context.Context, method, path string, body *bytes.Reader, out interface{}) error {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, g.baseURL+path, nil)
	}
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		// Network failures and timeouts are retryable; nothing reached
		// the gateway, or we cannot know what did.
		return errors.Mark(err, domain.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return errors.Mark(errors.Newf("gateway returned %d", resp.StatusCode), domain.ErrGatewayUnavailable)
	}
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return errors.Mark(errors.Newf("gateway returned %d", resp.StatusCode), domain.ErrGatewayRejected)
	}
	if resp.StatusCode == http.StatusNotFound {
		return errors.Mark(errors.New("transaction not found at gateway"), domain.ErrNotFound)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Mark(errors.Wrap(err, "bad gateway response"), domain.ErrGatewayUnavailable)
	}
	return nil
}

// FormatMinor renders minor units as a two-decimal major-unit string,
// e.g. 20050 -> "200.50".
func FormatMinor(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

// ParseMinor converts a gateway decimal amount back to minor units.
// Gateways report "200", "200.5" or "200.50"; all parse to 20000/20050.
func ParseMinor(n json.Number) (int64, error) {
	s := n.String()
	if s == "" {
		return 0, nil
	}
	whole, frac, _ := strings.Cut(s, ".")
	major, err := parseDigits(whole)
	if err != nil {
		return 0, err
	}
	switch len(frac) {
	case 0:
		return major * 100, nil
	case 1:
		frac += "0"
	case 2:
	default:
		frac = frac[:2]
	}
	minor, err := parseDigits(frac)
	if err != nil {
		return 0, err
	}
	return major*100 + minor, nil
}

func parseDigits(s string) (int64, error) {
	var v int64
	if s == "" {
		return 0, nil
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount %q", s)
		}
		v = v*10 + int64(r-'0')
	}
	return v, nil
}
