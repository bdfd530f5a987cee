package payments

import (
	"errors"
	"fmt"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

// Gateway abstracts the hosted-checkout provider so the bridge can be
// exercised without the network.
type Gateway interface {
	// CreateOrder registers a remote order for the given amount in the
	// currency's smallest unit (paise for INR) and returns its id.
	CreateOrder(amount int, currency, receipt string, notes map[string]interface{}) (string, error)
	// VerifyPayment checks the signature the checkout widget hands to the
	// browser after payment.
	VerifyPayment(gatewayOrderID, paymentID, signature string) bool
	// VerifyWebhook checks the signature header of a webhook delivery
	// against the raw body.
	VerifyWebhook(body []byte, signature string) bool
	KeyID() string
}

type RazorpayGateway struct {
	client        *razorpay.Client
	keyID         string
	keySecret     string
	webhookSecret string
}

func NewRazorpayGateway(keyID, keySecret, webhookSecret string) *RazorpayGateway {
	if keyID == "" || keySecret == "" {
		return nil
	}
	return &RazorpayGateway{
		client:        razorpay.NewClient(keyID, keySecret),
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
	}
}

func (g *RazorpayGateway) CreateOrder(amount int, currency, receipt string, notes map[string]interface{}) (string, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		data["notes"] = notes
	}

	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		return "", err
	}

	id, ok := body["id"].(string)
	if !ok || id == "" {
		return "", fmt.Errorf("gateway order response missing id: %v", body)
	}
	return id, nil
}

func (g *RazorpayGateway) VerifyPayment(gatewayOrderID, paymentID, signature string) bool {
	params := map[string]interface{}{
		"razorpay_order_id":   gatewayOrderID,
		"razorpay_payment_id": paymentID,
	}
	return utils.VerifyPaymentSignature(params, signature, g.keySecret)
}

func (g *RazorpayGateway) VerifyWebhook(body []byte, signature string) bool {
	if g.webhookSecret == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, g.webhookSecret)
}

func (g *RazorpayGateway) KeyID() string {
	return g.keyID
}

var _ Gateway = (*RazorpayGateway)(nil)

var ErrGatewayUnavailable = errors.New("payment gateway unavailable")
