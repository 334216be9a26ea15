package ports

import "context"

// CarrierClient submits paid orders to the shipping carrier.
type CarrierClient interface {
	SubmitOrder(ctx context.Context, orderID string) error
}
