package infra

import (
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/auroramedia/gramflow/config"
)

type RabbitMQClient struct {
	Connection *amqp.Connection
	Channel    *amqp.Channel
}

func InitRabbitMQClient(cfg *config.EnvConfig) *RabbitMQClient {
	uri := fmt.Sprintf("amqp://%s:%s@%s:%s/",
		cfg.RabbitMQ.Username,
		cfg.RabbitMQ.Password,
		cfg.RabbitMQ.Host,
		cfg.RabbitMQ.Port,
	)

	conn, err := amqp.Dial(uri)
	if err != nil {
		log.Fatalf("RabbitMQ connection failed: %v", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		log.Fatalf("RabbitMQ channel failed: %v", err)
	}

	log.Println("Connected to RabbitMQ:", cfg.RabbitMQ.Host+":"+cfg.RabbitMQ.Port)

	return &RabbitMQClient{
		Connection: conn,
		Channel:    channel,
	}
}

func (r *RabbitMQClient) Close() {
	if r.Channel != nil {
		_ = r.Channel.Close()
	}
	if r.Connection != nil {
		_ = r.Connection.Close()
	}
}
