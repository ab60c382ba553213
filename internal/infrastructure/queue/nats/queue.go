package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/civil-registry-forms/internal/core/domain"
	"github.com/kirillkom/civil-registry-forms/internal/infrastructure/resilience"
)

const defaultQueueGroup = "rescore-workers"

type Queue struct {
	conn       *nats.Conn
	subject    string
	queueGroup string
	executor   *resilience.Executor
	logger     *slog.Logger
	now        func() time.Time
}

func New(url, subject string) (*Queue, error) {
	return NewWithOptions(url, subject, Options{})
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	QueueGroup           string
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func NewWithOptions(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	group := strings.TrimSpace(options.QueueGroup)
	if group == "" {
		group = defaultQueueGroup
	}

	conn, err := nats.Connect(
		url,
		nats.Name("civil-registry-forms"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:       conn,
		subject:    subject,
		queueGroup: group,
		executor:   options.ResilienceExecutor,
		logger:     logger,
		now:        time.Now,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishRescore(ctx context.Context, templateID string) error {
	payload, err := encodeRescoreRequest(domain.RescoreRequest{
		TemplateID:  templateID,
		RequestedAt: q.now().UTC(),
	})
	if err != nil {
		return err
	}

	call := func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}

	if q.executor != nil {
		err = q.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	} else {
		err = call(ctx)
	}
	return resilience.WrapTemporary("nats publish", err, classifyNATSError)
}

// SubscribeRescore blocks until ctx is done, then drains the subscription.
func (q *Queue) SubscribeRescore(ctx context.Context, handler func(context.Context, domain.RescoreRequest) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, q.queueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		req, err := decodeRescoreRequest(msg.Data)
		if err != nil {
			q.logger.Warn("rescore_message_invalid", "error", err)
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, req); err != nil {
			q.logger.Error("rescore_handler_failed", "template_id", req.TemplateID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeRescoreRequest(req domain.RescoreRequest) ([]byte, error) {
	if strings.TrimSpace(req.TemplateID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode rescore request", errors.New("empty template id"))
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal rescore request: %w", err)
	}
	return payload, nil
}

// decodeRescoreRequest also accepts a bare template id so messages published
// by hand with `nats pub` are honored.
func decodeRescoreRequest(data []byte) (domain.RescoreRequest, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return domain.RescoreRequest{}, errors.New("empty rescore message")
	}
	if !strings.HasPrefix(raw, "{") {
		return domain.RescoreRequest{TemplateID: raw}, nil
	}
	var req domain.RescoreRequest
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return domain.RescoreRequest{}, fmt.Errorf("decode rescore message: %w", err)
	}
	if strings.TrimSpace(req.TemplateID) == "" {
		return domain.RescoreRequest{}, errors.New("rescore message without template_id")
	}
	return req, nil
}
