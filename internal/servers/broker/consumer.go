package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"emrSocket/configs"
	"emrSocket/internal/errs"
	"emrSocket/internal/logger"
)

const (
	maxBackoff     = 60 * time.Second
	handlerTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// HandlerFunc processes one delivery. Errors wrapping errs.ErrPoisonMessage
// are parked without retry; any other error is retried after RetryTTL until
// MaxAttempts is reached.
type HandlerFunc func(ctx context.Context, routingKey string, body []byte) error

type ConsumerOptions struct {
	URL        string
	Exchange   string
	Queue      string
	BindingKey string
	Prefetch   int
	// RetryDelay is the base of the reconnect backoff.
	RetryDelay time.Duration
	// RetryTTL is how long a failed delivery waits in the retry queue.
	RetryTTL    time.Duration
	MaxAttempts int
}

func ConsumerOptionsFromConfig(config *configs.Config) ConsumerOptions {
	return ConsumerOptions{
		URL:         config.Viper.GetString("amqp.url"),
		Exchange:    config.Viper.GetString("amqp.exchange"),
		Queue:       config.Viper.GetString("amqp.queue"),
		BindingKey:  config.Viper.GetString("amqp.binding_key"),
		Prefetch:    config.Viper.GetInt("amqp.prefetch"),
		RetryDelay:  time.Second,
		RetryTTL:    config.Viper.GetDuration("amqp.retry_ttl"),
		MaxAttempts: config.Viper.GetInt("amqp.max_attempts"),
	}
}

// RetryExchange receives rejected deliveries and feeds the retry queue.
func (o ConsumerOptions) RetryExchange() string { return o.Queue + ".retry" }

// RetryQueue holds rejected deliveries for RetryTTL.
func (o ConsumerOptions) RetryQueue() string { return o.Queue + ".retry" }

// RequeueExchange routes expired retries back to the main queue only,
// keeping their original routing key.
func (o ConsumerOptions) RequeueExchange() string { return o.Queue + ".requeue" }

// FinalExchange and FinalQueue park poison and exhausted deliveries.
func (o ConsumerOptions) FinalExchange() string { return o.Queue + ".final" }

func (o ConsumerOptions) FinalQueue() string { return o.Queue + ".final" }

// Consumer reads domain events from a topic exchange and keeps reconnecting
// until its context is cancelled.
type Consumer struct {
	options ConsumerOptions
	handler HandlerFunc
	log     *logger.Logger
}

func NewConsumer(options ConsumerOptions, handler HandlerFunc, log *logger.Logger) *Consumer {
	if options.Prefetch <= 0 {
		options.Prefetch = 32
	}
	if options.RetryDelay <= 0 {
		options.RetryDelay = time.Second
	}
	if options.BindingKey == "" {
		options.BindingKey = "#"
	}
	if options.RetryTTL <= 0 {
		options.RetryTTL = 5 * time.Second
	}
	if options.MaxAttempts <= 0 {
		options.MaxAttempts = 5
	}
	return &Consumer{
		options: options,
		handler: handler,
		log:     log.With("component", "DomainEventConsumer", "queue", options.Queue),
	}
}

func (c *Consumer) Run(ctx context.Context) error {
	attempt := 0
	for {
		err := c.consume(ctx, func() { attempt = 0 })
		if ctx.Err() != nil {
			return nil
		}

		attempt++
		sleep := backoff(c.options.RetryDelay, attempt)
		c.log.Warn("consumer stopped; reconnecting", "attempt", attempt, "sleep", sleep, "error", err)

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func backoff(base time.Duration, attempt int) time.Duration {
	sleep := base
	for i := 1; i < attempt && sleep < maxBackoff; i++ {
		sleep *= 2
	}
	if sleep > maxBackoff {
		sleep = maxBackoff
	}
	return sleep
}

// declareTopology sets up the main queue, its TTL retry loop and the final
// parking queue.
func (c *Consumer) declareTopology(ch *amqp091.Channel) error {
	o := c.options
	if err := ch.ExchangeDeclare(o.Exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	for _, name := range []string{o.RetryExchange(), o.RequeueExchange(), o.FinalExchange()} {
		if err := ch.ExchangeDeclare(name, "fanout", true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}

	if _, err := ch.QueueDeclare(o.Queue, true, false, false, false, amqp091.Table{
		"x-dead-letter-exchange": o.RetryExchange(),
	}); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(o.Queue, o.BindingKey, o.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	if err := ch.QueueBind(o.Queue, "", o.RequeueExchange(), false, nil); err != nil {
		return fmt.Errorf("bind requeue: %w", err)
	}

	if _, err := ch.QueueDeclare(o.RetryQueue(), true, false, false, false, amqp091.Table{
		"x-message-ttl":          o.RetryTTL.Milliseconds(),
		"x-dead-letter-exchange": o.RequeueExchange(),
	}); err != nil {
		return fmt.Errorf("declare retry queue: %w", err)
	}
	if err := ch.QueueBind(o.RetryQueue(), "", o.RetryExchange(), false, nil); err != nil {
		return fmt.Errorf("bind retry queue: %w", err)
	}

	if _, err := ch.QueueDeclare(o.FinalQueue(), true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare final queue: %w", err)
	}
	if err := ch.QueueBind(o.FinalQueue(), "", o.FinalExchange(), false, nil); err != nil {
		return fmt.Errorf("bind final queue: %w", err)
	}
	return nil
}

func (c *Consumer) consume(ctx context.Context, connected func()) error {
	conn, err := amqp091.Dial(c.options.URL)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	defer ch.Close()

	if err := c.declareTopology(ch); err != nil {
		return err
	}
	if err := ch.Qos(c.options.Prefetch, 0, false); err != nil {
		return fmt.Errorf("qos: %w", err)
	}
	deliveries, err := ch.Consume(c.options.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	connected()
	c.log.Info("consumer started",
		"exchange", c.options.Exchange,
		"binding", c.options.BindingKey,
		"maxAttempts", c.options.MaxAttempts,
		"retryTTL", c.options.RetryTTL,
	)

	closed := conn.NotifyClose(make(chan *amqp091.Error, 1))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("connection closed")
			}
			return amqpErr
		case delivery, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, message{
				routingKey:  delivery.RoutingKey,
				body:        delivery.Body,
				contentType: delivery.ContentType,
				headers:     delivery.Headers,
				ack:         &delivery,
			}, ch)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// publisher is the subset of *amqp091.Channel used to park messages.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

type message struct {
	routingKey  string
	body        []byte
	contentType string
	headers     amqp091.Table
	ack         acknowledger
}

func (c *Consumer) handle(ctx context.Context, msg message, pub publisher) {
	handlerCtx, cancel := context.WithTimeout(ctx, handlerTimeout)
	err := c.handler(handlerCtx, msg.routingKey, msg.body)
	cancel()

	switch {
	case err == nil:
		_ = msg.ack.Ack(false)

	case errors.Is(err, errs.ErrPoisonMessage):
		c.log.Warn("parking poison message", "routingKey", msg.routingKey, "error", err)
		c.park(ctx, msg, pub)

	default:
		attempt := deathCount(msg.headers, c.options.Queue) + 1
		if attempt >= c.options.MaxAttempts {
			c.log.Error("handler failed; retries exhausted", "routingKey", msg.routingKey, "attempt", attempt, "error", err)
			c.park(ctx, msg, pub)
			return
		}
		c.log.Warn("handler failed; scheduling retry", "routingKey", msg.routingKey, "attempt", attempt, "retryIn", c.options.RetryTTL, "error", err)
		// dead-letters into the retry queue
		_ = msg.ack.Nack(false, false)
	}
}

// park copies the message to the final queue and acks it. If the copy fails
// the message goes back through the retry queue instead of being lost.
func (c *Consumer) park(ctx context.Context, msg message, pub publisher) {
	contentType := msg.contentType
	if contentType == "" {
		contentType = "application/json"
	}
	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err := pub.PublishWithContext(publishCtx, c.options.FinalExchange(), msg.routingKey, false, false, amqp091.Publishing{
		ContentType:  contentType,
		DeliveryMode: amqp091.Persistent,
		Headers:      msg.headers,
		Body:         msg.body,
	})
	if err != nil {
		c.log.Error("failed to park message", "routingKey", msg.routingKey, "error", err)
		_ = msg.ack.Nack(false, false)
		return
	}
	_ = msg.ack.Ack(false)
}

// deathCount reports how many times the broker dead-lettered the message out
// of queue, read from the x-death header.
func deathCount(headers amqp091.Table, queue string) int {
	entries, ok := headers["x-death"].([]interface{})
	if !ok {
		return 0
	}
	for _, entry := range entries {
		death, ok := entry.(amqp091.Table)
		if !ok {
			continue
		}
		if name, _ := death["queue"].(string); name != queue {
			continue
		}
		switch n := death["count"].(type) {
		case int64:
			return int(n)
		case int32:
			return int(n)
		case int:
			return n
		}
	}
	return 0
}
