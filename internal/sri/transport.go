package sri

import "context"

// Transport performs the two SRI web service calls.
type Transport interface {
	// Submit sends a signed comprobante to the reception service
	Submit(ctx context.Context, endpoint string, signed []byte) (Reply, error)

	// CheckAuthorization asks the authorization service about an access key
	CheckAuthorization(ctx context.Context, endpoint string, accessKey string) (Reply, error)
}
