// Package client implements the commerce-platform order provider over
// its REST admin API.
package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/shopforge/invoicepress/internal/apperr"
	"github.com/shopforge/invoicepress/internal/config"
	ordersdomain "github.com/shopforge/invoicepress/internal/orders/domain"
	"go.uber.org/zap"
)

type restProvider struct {
	http *resty.Client
	log  *zap.Logger
}

func New(cfg config.Config, log *zap.Logger) ordersdomain.Provider {
	httpClient := resty.New().
		SetBaseURL(cfg.Commerce.BaseURL).
		SetTimeout(cfg.Commerce.Timeout).
		SetHeader("X-Access-Token", cfg.Commerce.AccessToken).
		SetRetryCount(2)

	return &restProvider{
		http: httpClient,
		log:  log.Named("orders.client"),
	}
}

type orderEnvelope struct {
	Order ordersdomain.RawOrder `json:"order"`
}

func (p *restProvider) GetOrder(ctx context.Context, shop, orderID string) (*ordersdomain.OrderSnapshot, error) {
	var envelope orderEnvelope
	resp, err := p.http.R().
		SetContext(ctx).
		SetHeader("X-Shop-Domain", shop).
		SetResult(&envelope).
		Get(fmt.Sprintf("/orders/%s.json", orderID))
	if err != nil {
		return nil, apperr.NewResource("fetch order", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	default:
		return nil, apperr.NewResource("fetch order", fmt.Errorf("unexpected status %d", resp.StatusCode()))
	}

	snapshot, err := ordersdomain.ParseOrder(envelope.Order)
	if err != nil {
		p.log.Warn("rejected malformed order payload",
			zap.String("shop", shop),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		return nil, err
	}
	return snapshot, nil
}
