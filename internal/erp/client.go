package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/optimizer"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	inventoryParamsLatestPath = "/get_inventory_params_development_latest"
	distributionRoutingPath   = "/distribution_routing_data"
	tenantHeader              = "X-Tenant-ID"
	defaultTimeout            = 15 * time.Second
)

var (
	// ErrNoData is returned when the ERP answers without a data payload.
	ErrNoData = errors.New("erp returned no data")
	// ErrInferenceUnavailable is returned when no inference endpoint is configured.
	ErrInferenceUnavailable = errors.New("erp inference endpoint not configured")
)

// envelope is the ERP response wrapper: {"user_id": ..., "data": ...}.
type envelope struct {
	UserID int64           `json:"user_id"`
	Data   json.RawMessage `json:"data"`
}

// Client talks to a tenant's ERP API. Requests carry an OAuth2 token from the
// client-credentials flow when a token URL is configured.
type Client struct {
	baseURL      string
	inferenceURL string
	http         *http.Client
}

func NewClient(ctx context.Context, cfg config.ERPConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("erp base url must be provided")
	}

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}

	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		tokenCtx := context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: timeout})
		httpClient = cc.Client(tokenCtx)
		httpClient.Timeout = timeout
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		inferenceURL: cfg.InferenceURL,
		http:         httpClient,
	}, nil
}

// LatestInventoryParams fetches the newest ERP cost parameters for a SKU.
func (c *Client) LatestInventoryParams(ctx context.Context, tenantID, skuNumber int64) (*domain.InventoryParamsRecord, error) {
	var record domain.InventoryParamsRecord
	payload := map[string]int64{"sku_number": skuNumber}
	if err := c.do(ctx, http.MethodPost, c.baseURL+inventoryParamsLatestPath, tenantID, payload, &record); err != nil {
		return nil, fmt.Errorf("fetch inventory params for sku %d: %w", skuNumber, err)
	}
	if record.SKUNumber == 0 {
		record.SKUNumber = skuNumber
	}
	return &record, nil
}

// RoutingDataModel fetches a routing model the ERP has already assembled
// from its location, route and vehicle tables.
func (c *Client) RoutingDataModel(ctx context.Context, tenantID int64) (*optimizer.RoutingDataModel, error) {
	var model optimizer.RoutingDataModel
	if err := c.do(ctx, http.MethodGet, c.baseURL+distributionRoutingPath, tenantID, nil, &model); err != nil {
		return nil, fmt.Errorf("fetch distribution routing data: %w", err)
	}
	return &model, nil
}

// Forecast asks the inference endpoint for a fresh point forecast.
func (c *Client) Forecast(ctx context.Context, tenantID, skuNumber int64) (*domain.Prediction, error) {
	if c.inferenceURL == "" {
		return nil, ErrInferenceUnavailable
	}

	var prediction domain.Prediction
	payload := map[string]int64{"sku_number": skuNumber}
	if err := c.do(ctx, http.MethodPost, c.inferenceURL, tenantID, payload, &prediction); err != nil {
		return nil, fmt.Errorf("run inference for sku %d: %w", skuNumber, err)
	}
	prediction.TenantID = tenantID
	prediction.SKUNumber = skuNumber
	return &prediction, nil
}

func (c *Client) do(ctx context.Context, method, url string, tenantID int64, body any, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(tenantHeader, strconv.FormatInt(tenantID, 10))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log.Debug().Str("method", method).Str("url", url).Int64("tenant_id", tenantID).Msg("erp: sending request")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		log.Warn().Str("url", url).Msg("erp: response carried no data")
		return ErrNoData
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
