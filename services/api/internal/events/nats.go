package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/estatehub/marketplace/services/api/internal/app"
)

const (
	connectWait   = 5 * time.Second
	reconnectWait = 2 * time.Second
	maxReconnects = -1
)

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	logger  *zap.Logger
}

func NewNATSPublisher(url, subject, name string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if subject == "" {
		subject = DefaultSubject
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(connectWait),
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			logger.Info("nats connection closed")
		}),
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	logger.Info("connected to nats", zap.String("url", nc.ConnectedUrl()), zap.String("subject", subject))
	return &NATSPublisher{nc: nc, subject: subject, logger: logger}, nil
}

func (p *NATSPublisher) PublishStatusChanged(_ context.Context, event app.StatusChangedEvent) error {
	payload, err := encodeStatusChanged(event)
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, payload); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	p.logger.Debug("published status change",
		zap.String("subject", p.subject),
		zap.String("listing_id", event.ListingID),
	)
	return nil
}

// Close drains buffered messages before closing the connection.
func (p *NATSPublisher) Close() error {
	if p.nc == nil || p.nc.IsClosed() {
		return nil
	}
	if err := p.nc.Drain(); err != nil {
		p.nc.Close()
		return fmt.Errorf("drain nats: %w", err)
	}
	return nil
}
