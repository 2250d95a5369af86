package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"

	"github.com/jalasoft/jalanews/internal/models"
	"github.com/jalasoft/jalanews/pkg/config"
)

// NATSPublisher publishes events on a NATS connection, carrying the trace
// context in message headers.
type NATSPublisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// Connect dials NATS and returns a publisher.
func Connect(cfg *config.NATSConfig, logger *zap.Logger) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("jalanews"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	logger.Info("NATS connection established", zap.String("url", nc.ConnectedUrl()))
	return NewNATSPublisher(nc, logger), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(nc *nats.Conn, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{nc: nc, logger: logger}
}

// PostCreated publishes SubjectPostCreated.
func (p *NATSPublisher) PostCreated(ctx context.Context, post *models.Post, recipients int) error {
	return p.publish(ctx, SubjectPostCreated, newPostCreated(post, recipients))
}

// PostDeleted publishes SubjectPostDeleted.
func (p *NATSPublisher) PostDeleted(ctx context.Context, post *models.Post) error {
	return p.publish(ctx, SubjectPostDeleted, PostDeletedEvent{ID: post.ID, AuthorID: post.AuthorID})
}

func (p *NATSPublisher) publish(ctx context.Context, subject string, event interface{}) error {
	msg, err := newMessage(ctx, subject, event)
	if err != nil {
		return err
	}
	p.logger.Debug("Publishing event", zap.String("subject", subject))
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

func newMessage(ctx context.Context, subject string, event interface{}) (*nats.Msg, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", subject, err)
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
		Header:  nats.Header{},
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(msg.Header))
	return msg, nil
}

// Close drains pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil {
		return nil
	}
	return p.nc.Drain()
}
