// Package carrier submits paid orders to the shipping carrier's HTTP API.
package carrier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dejobratic/orderflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// ErrRejected is returned when the carrier answers with a non-2xx status.
var ErrRejected = errors.New("carrier rejected shipment")

const defaultTimeout = 5 * time.Second

type submitRequest struct {
	OrderID string `json:"order_id"`
}

// Client posts shipments to {baseURL}/shipments.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *Client) SubmitOrder(ctx context.Context, orderID string) (err error) {
	ctx, span := telemetry.StartClientSpan(ctx, "Carrier.SubmitOrder")
	defer span.End()
	telemetry.AddSpanAttributes(span, attribute.String("order.id", orderID))
	defer func() {
		if err != nil {
			telemetry.RecordSpanError(span, err)
			return
		}
		telemetry.SetSpanSuccess(span)
	}()

	body, err := json.Marshal(submitRequest{OrderID: orderID})
	if err != nil {
		return fmt.Errorf("marshal shipment: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/shipments", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build shipment request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	telemetry.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post shipment: %w", err)
	}
	defer resp.Body.Close()

	telemetry.AddSpanAttributes(span, attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// LoggingClient records submissions without calling a carrier. Used when no carrier URL is configured.
type LoggingClient struct {
	logger *slog.Logger
}

func NewLoggingClient(logger *slog.Logger) *LoggingClient {
	return &LoggingClient{logger: logger.With("component", "logging_carrier")}
}

func (c *LoggingClient) SubmitOrder(ctx context.Context, orderID string) error {
	c.logger.InfoContext(ctx, "carrier::submit_order", "order_id", orderID)
	return nil
}
