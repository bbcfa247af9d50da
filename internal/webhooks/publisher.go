package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"antroute/internal/store"
)

// Publisher enqueues run callbacks. Delivery happens in Worker.
type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Envelope is the JSON body POSTed to callback URLs.
type Envelope struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	RunID string `json:"runId"`
	TS    string `json:"ts"`
	Data  any    `json:"data"`
}

// Emit queues one delivery of eventType for runID to url. Empty url is a no-op.
func (p *Publisher) Emit(ctx context.Context, runID, eventType, url, secret string, data any) (string, error) {
	if url == "" {
		return "", nil
	}
	body, err := json.Marshal(Envelope{
		ID:    "evt_" + uuid.New().String(),
		Type:  eventType,
		RunID: runID,
		TS:    time.Now().UTC().Format(time.RFC3339),
		Data:  data,
	})
	if err != nil {
		return "", err
	}
	return p.Store.EnqueueWebhook(ctx, runID, eventType, url, secret, body)
}
