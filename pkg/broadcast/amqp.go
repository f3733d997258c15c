package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Bridge extends the in-process Hub across server instances through a topic
// exchange. Every local publish is mirrored to the broker tagged with this
// instance's id; deliveries from other instances are replayed into the local
// Hub only. The Hub contract is unchanged, the bridge is optional wiring.
type Bridge struct {
	conn       *amqp091.Connection
	exchange   string
	instanceID string
	hub        *Hub
	cancel     context.CancelFunc
}

type bridgeEnvelope struct {
	Instance    string `json:"instance"`
	WorkspaceID uint   `json:"workspaceId"`
	Event       string `json:"event"`
	Update      Update `json:"update"`
}

const dialAttempts = 5

// NewBridge connects to the broker (with exponential backoff), declares the
// exchange, and wires the hub's relay.
func NewBridge(ctx context.Context, url, exchange string, hub *Hub) (*Bridge, error) {
	conn, err := dialWithRetry(ctx, url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	b := &Bridge{
		conn:       conn,
		exchange:   exchange,
		instanceID: uuid.NewString(),
		hub:        hub,
		cancel:     cancel,
	}

	hub.setRelay(b.publish)
	if err := b.startConsumer(runCtx); err != nil {
		cancel()
		conn.Close()
		return nil, err
	}

	logrus.Infof("[BRIDGE] live-update bridge active on exchange %q", exchange)
	return b, nil
}

func dialWithRetry(ctx context.Context, url string) (*amqp091.Connection, error) {
	var lastErr error
	for i := 1; i <= dialAttempts; i++ {
		conn, err := amqp091.Dial(url)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		sleep := time.Second * time.Duration(math.Pow(2, float64(i-1)))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logrus.Warnf("[BRIDGE] broker dial failed (attempt %d): %v", i, err)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, errors.New("broadcast: broker unreachable: " + lastErr.Error())
}

func (b *Bridge) publish(workspaceID uint, event string, update Update) {
	ch, err := b.conn.Channel()
	if err != nil {
		logrus.Errorf("[BRIDGE] channel error: %v", err)
		return
	}
	defer ch.Close()

	body, err := json.Marshal(bridgeEnvelope{
		Instance:    b.instanceID,
		WorkspaceID: workspaceID,
		Event:       event,
		Update:      update,
	})
	if err != nil {
		return
	}

	key := routingKey(workspaceID)
	err = ch.PublishWithContext(context.Background(), b.exchange, key, false, false, amqp091.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Timestamp:   time.Now(),
		Body:        body,
	})
	if err != nil {
		logrus.Errorf("[BRIDGE] publish failed: %v", err)
	}
}

func (b *Bridge) startConsumer(ctx context.Context) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return err
	}

	// Exclusive auto-delete queue per instance; every instance sees every
	// workspace update.
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return err
	}
	if err := ch.QueueBind(q.Name, "workspace.*", b.exchange, false, nil); err != nil {
		ch.Close()
		return err
	}

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return err
	}

	go func() {
		defer ch.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				var env bridgeEnvelope
				if err := json.Unmarshal(d.Body, &env); err != nil {
					continue
				}
				// Skip our own publishes; locals already got them.
				if env.Instance == b.instanceID {
					continue
				}
				b.hub.deliver(env.WorkspaceID, env.Event, env.Update)
			}
		}
	}()
	return nil
}

func (b *Bridge) Close() error {
	b.cancel()
	return b.conn.Close()
}

func routingKey(workspaceID uint) string {
	return "workspace." + strconv.FormatUint(uint64(workspaceID), 10)
}
