package rabbitmq

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// RabbitMQConfig describes the MQTT endpoint (RabbitMQ MQTT plugin or Mosquitto).
type RabbitMQConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
	Kind     string // exchange type (topic, fanout, etc.)

	ConnectRetries int           // attempts before giving up, default 5
	ConnectTimeout time.Duration // per attempt, default 10s
	MaxElapsedTime time.Duration // whole retry budget, default 30s
}

func (cfg *RabbitMQConfig) withDefaults() RabbitMQConfig {
	c := *cfg
	if c.Port == 0 {
		c.Port = 1883
	}
	if c.ConnectRetries <= 0 {
		c.ConnectRetries = 5
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.MaxElapsedTime <= 0 {
		c.MaxElapsedTime = 30 * time.Second
	}
	return c
}

// BrokerURL returns the tcp:// address of the broker.
func (cfg *RabbitMQConfig) BrokerURL() string {
	port := cfg.Port
	if port == 0 {
		port = 1883
	}
	return fmt.Sprintf("tcp://%s:%d", cfg.Host, port)
}

// NewRabbitMQConn connects to the broker, retrying with exponential backoff.
// The connection is closed when ctx is cancelled. The session is clean, so
// the returned client records its subscriptions and restores them after
// every automatic reconnect.
func NewRabbitMQConn(cfg *RabbitMQConfig, ctx context.Context) (mqtt.Client, error) {
	c := cfg.withDefaults()
	connAddr := c.BrokerURL()
	conn := newConn()

	opts := mqtt.NewClientOptions()
	opts.AddBroker(connAddr)
	opts.SetUsername(c.User)
	opts.SetPassword(c.Password)
	opts.SetClientID(c.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(conn.resubscribe)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("MQTT connection lost (%s): %v", c.ClientID, err)
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = c.MaxElapsedTime

	err := backoff.Retry(func() error {
		client := mqtt.NewClient(opts)
		token := client.Connect()
		if !token.WaitTimeout(c.ConnectTimeout) {
			log.Printf("Failed to connect to MQTT broker %s: timeout", connAddr)
			return fmt.Errorf("connect timeout after %s", c.ConnectTimeout)
		}
		if err := token.Error(); err != nil {
			log.Printf("Failed to connect to MQTT broker %s: %v", connAddr, err)
			return err
		}
		conn.Client = client
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.ConnectRetries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	log.Printf("Connected to MQTT broker at %s", connAddr)

	go func() {
		<-ctx.Done()
		CloseRabbitMQConn(conn)
	}()

	return conn, nil
}

func CloseRabbitMQConn(client mqtt.Client) {
	if c, ok := client.(*Conn); ok && c.Client == nil {
		return
	}
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
		log.Println("MQTT connection successfully closed.")
	}
}
