package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/svchost/internal/adapters/channel"
	"github.com/bft-labs/svchost/internal/ports"
	"github.com/bft-labs/svchost/pkg/lifecycle"
	"github.com/bft-labs/svchost/pkg/log"
)

// DefaultTimeout bounds a single webhook request.
const DefaultTimeout = 5 * time.Second

// Envelope is the JSON body of a webhook request.
type Envelope struct {
	ID      string    `json:"id"`
	Service string    `json:"service"`
	Kind    string    `json:"kind"`
	Error   string    `json:"error,omitempty"`
	Time    time.Time `json:"time"`
}

// NewEnvelope wraps msg for delivery.
func NewEnvelope(msg lifecycle.Message, now time.Time) Envelope {
	env := Envelope{
		ID:      uuid.NewString(),
		Service: msg.ServiceName(),
		Kind:    msg.Kind().String(),
		Time:    now.UTC(),
	}
	if f, ok := msg.(lifecycle.ServiceFault); ok && f.Err != nil {
		env.Error = f.Err.Error()
	}
	return env
}

// Webhook implements lifecycle.Channel by POSTing every notification to a
// URL. Send only queues the message; a single worker delivers the queue in
// order. Failures are logged, never retried.
type Webhook struct {
	url     string
	client  ports.HTTPClient
	logger  log.Logger
	timeout time.Duration
	buffer  int
	now     func() time.Time

	queue *channel.Buffered
	done  chan struct{}
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) WebhookOption {
	return func(w *Webhook) {
		if d > 0 {
			w.timeout = d
		}
	}
}

// WithLogger sets the logger for delivery failures.
func WithLogger(logger log.Logger) WebhookOption {
	return func(w *Webhook) {
		w.logger = logger
	}
}

// WithBufferSize sets how many notifications may wait for delivery before
// new ones are dropped.
func WithBufferSize(n int) WebhookOption {
	return func(w *Webhook) {
		w.buffer = n
	}
}

// NewWebhook creates a webhook sink and starts its delivery worker. A nil
// client uses http.DefaultClient. Call Close to flush and stop the worker.
func NewWebhook(url string, client ports.HTTPClient, opts ...WebhookOption) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	w := &Webhook{
		url:     url,
		client:  client,
		logger:  log.NewNoopLogger(),
		timeout: DefaultTimeout,
		buffer:  channel.DefaultBufferSize,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.queue = channel.NewBuffered(w.buffer, w.logger)

	go w.loop()
	return w
}

func (w *Webhook) Send(msg lifecycle.Message) {
	w.queue.Send(stamped{Message: msg, at: w.now()})
}

// Close delivers what is queued and stops the worker.
func (w *Webhook) Close() {
	w.queue.Close()
	<-w.done
}

func (w *Webhook) loop() {
	defer close(w.done)

	for msg := range w.queue.Messages() {
		s := msg.(stamped)
		env := NewEnvelope(s.Message, s.at)

		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.post(ctx, env)
		cancel()

		if err != nil {
			w.logger.Warn("webhook delivery failed",
				log.String("service", env.Service),
				log.String("kind", env.Kind),
				log.String("id", env.ID),
				log.Err(err),
			)
		}
	}
}

// stamped records when a message was sent.
type stamped struct {
	lifecycle.Message
	at time.Time
}

func (w *Webhook) post(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Svchost-Event-Id", env.ID)
	req.Header.Set("X-Svchost-OSArch", runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

var _ lifecycle.Channel = (*Webhook)(nil)
