package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/certificate"
	"github.com/sideshow/apns2/payload"
)

// APNSPusher delivers notifications through Apple Push Notification service.
type APNSPusher struct {
	client *apns2.Client
	topic  string
}

// NewAPNSPusher creates a pusher from a .p12 certificate file.
func NewAPNSPusher(certPath, certPassword, topic string, production bool) (*APNSPusher, error) {
	cert, err := certificate.FromP12File(certPath, certPassword)
	if err != nil {
		return nil, fmt.Errorf("failed to load APNs certificate: %w", err)
	}

	client := apns2.NewClient(cert)
	if production {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &APNSPusher{client: client, topic: topic}, nil
}

// Push sends one alert notification to a device token.
func (p *APNSPusher) Push(ctx context.Context, token, title, body string) error {
	notification := &apns2.Notification{
		DeviceToken: token,
		Topic:       p.topic,
		Payload: payload.NewPayload().
			AlertTitle(title).
			AlertBody(body).
			Sound("default"),
	}

	res, err := p.client.PushWithContext(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	if res.StatusCode != http.StatusOK {
		return fmt.Errorf("apns rejected notification: %s", res.Reason)
	}
	return nil
}
