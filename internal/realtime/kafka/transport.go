package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/IBM/sarama"

	"courier-driver-agent/internal/apperr"
	"courier-driver-agent/internal/logx"
	"courier-driver-agent/internal/realtime"
)

// Config stores the orders topic settings.
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

func (c Config) valid() bool {
	return len(c.Brokers) > 0 &&
		strings.TrimSpace(c.Topic) != "" &&
		strings.TrimSpace(c.GroupID) != ""
}

// Transport is a realtime.Transport backed by a Sarama consumer group.
// Initialize builds a fresh group each time, so a failed channel can be
// handed back to the coordinator's retry loop and recreated.
type Transport struct {
	cfg    Config
	logger logx.Logger

	mu    sync.Mutex
	group sarama.ConsumerGroup
}

// NewTransport creates an unconnected transport.
func NewTransport(cfg Config, logger logx.Logger) *Transport {
	return &Transport{cfg: cfg, logger: logger}
}

// Initialize performs the handshake: it closes any previous group and
// joins the orders topic anew.
func (t *Transport) Initialize(ctx context.Context) error {
	if !t.cfg.valid() {
		return fmt.Errorf("kafka transport: brokers, topic and group id are required")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.group != nil {
		if err := t.group.Close(); err != nil {
			t.logger.Warn("kafka: stale group close", logx.Err(err))
		}
		t.group = nil
	}

	cfg := sarama.NewConfig()
	// the driver only cares about orders pushed from now on
	cfg.Consumer.Offsets.Initial = sarama.OffsetNewest

	group, err := sarama.NewConsumerGroup(t.cfg.Brokers, t.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("kafka transport: join group: %w: %v", apperr.ErrRealtime, err)
	}
	t.group = group
	return nil
}

// Run consumes the orders topic, dispatching events to the handler,
// until the context is done or the group session breaks.
func (t *Transport) Run(ctx context.Context, h realtime.Handler) error {
	t.mu.Lock()
	group := t.group
	t.mu.Unlock()
	if group == nil {
		return fmt.Errorf("kafka transport: not initialized")
	}

	gh := &groupHandler{handler: h, logger: t.logger}
	for {
		if err := group.Consume(ctx, []string{t.cfg.Topic}, gh); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("kafka transport: consume: %w: %v", apperr.ErrRealtime, err)
		}
		// nil means a rebalance; re-enter unless we are shutting down
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Close releases the consumer group.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.group == nil {
		return nil
	}
	err := t.group.Close()
	t.group = nil
	return err
}

var _ realtime.Transport = (*Transport)(nil)

type groupHandler struct {
	handler realtime.Handler
	logger  logx.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		// push events are fire-and-forget: always mark, never redeliver
		h.dispatch(sess.Context(), msg.Value)
		sess.MarkMessage(msg, "")
	}
	return nil
}

func (h *groupHandler) dispatch(ctx context.Context, raw []byte) {
	var ev eventDTO
	if err := json.Unmarshal(raw, &ev); err != nil {
		h.logger.Warn("kafka: bad json", logx.Err(err))
		h.handler.HandleError(ctx, "malformed order event")
		return
	}
	if strings.TrimSpace(ev.Order.ID) == "" {
		h.logger.Warn("kafka: empty order id", logx.String("type", ev.Type))
		return
	}

	switch ev.Type {
	case eventNewOrder:
		h.handler.HandleNewOrder(ctx, mapOrder(ev.Order))
	case eventOrderUpdate:
		h.handler.HandleOrderUpdate(ctx, mapOrder(ev.Order))
	default:
		h.logger.Debug("kafka: unknown event type", logx.String("type", ev.Type))
	}
}
