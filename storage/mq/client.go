package mq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"

	"aegira/config"
	mqotel "aegira/pkg/mq"
)

var conn *amqp.Connection

// NotificationExchange 通知意图发布的 topic exchange
const NotificationExchange = "notification.topic"

func Init() error {
	var err error
	url := config.Cfg.GetRabbitMQURL()
	conn, err = amqp.Dial(url)

	if err != nil {
		return err
	}

	if config.Cfg.TracingEnabled {
		if err := mqotel.InitMQMetrics(otel.Meter("aegira-mq")); err != nil {
			return err
		}
	}

	// 声明 exchange，消费侧（送达服务）自行绑定队列
	ch, err := conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	return ch.ExchangeDeclare(
		NotificationExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
