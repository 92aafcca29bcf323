package rabbitmq

import (
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type subscription struct {
	qos      byte
	callback mqtt.MessageHandler
}

// Conn is an MQTT client that remembers its subscriptions. With a clean
// session the broker forgets them on disconnect, so they are sent again
// from the on-connect handler.
type Conn struct {
	mqtt.Client

	mu   sync.Mutex
	subs map[string]subscription
}

func newConn() *Conn {
	return &Conn{subs: make(map[string]subscription)}
}

func (c *Conn) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, callback: callback}
	c.mu.Unlock()
	return c.Client.Subscribe(topic, qos, callback)
}

func (c *Conn) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	for _, t := range topics {
		delete(c.subs, t)
	}
	c.mu.Unlock()
	return c.Client.Unsubscribe(topics...)
}

// Topics returns the subscriptions restored on reconnect.
func (c *Conn) Topics() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.subs))
	for t := range c.subs {
		out = append(out, t)
	}
	return out
}

// resubscribe runs on every (re)connect; paho calls it in its own goroutine.
func (c *Conn) resubscribe(client mqtt.Client) {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for t, s := range c.subs {
		subs[t] = s
	}
	c.mu.Unlock()

	for topic, s := range subs {
		token := client.Subscribe(topic, s.qos, s.callback)
		token.Wait()
		if err := token.Error(); err != nil {
			log.Printf("Error restoring subscription to %s: %v", topic, err)
			continue
		}
		log.Printf("Restored subscription to topic %s", topic)
	}
}
