package linklayer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"power_windows/internal/config"
	"power_windows/internal/logger"
	"power_windows/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	qos            = 1
	connectTimeout = 5 * time.Second
	missedAnnounce = 3
)

// Announcement is the presence message a door node publishes.
type Announcement struct {
	MAC    string    `json:"mac"`
	IP     string    `json:"ip"`
	SentAt time.Time `json:"sent_at"`
}

// Connect opens a paho client to cfg.Broker.
func Connect(cfg config.MQTT, log *logger.Logger) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(connectTimeout).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warnw("mqtt_connection_lost", "broker", cfg.Broker, "error", err)
		}).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Infow("mqtt_connected", "broker", cfg.Broker)
		})

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect mqtt %s: %w", cfg.Broker, token.Error())
	}
	return c, nil
}

type subscriber interface {
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type sighting struct {
	client models.LinkClient
	seenAt time.Time
}

// Presence is a client list fed by door announcements on an MQTT topic.
// A station that has not announced within its TTL is no longer listed.
type Presence struct {
	client subscriber
	topic  string
	ttl    time.Duration
	now    func() time.Time
	log    *logger.Logger

	mu   sync.Mutex
	seen map[string]sighting
}

// NewPresence listens on topic; interval is the doors' announce cadence.
func NewPresence(client subscriber, topic string, interval time.Duration, log *logger.Logger) *Presence {
	if log == nil {
		log = logger.NewNop()
	}
	return &Presence{
		client: client,
		topic:  topic,
		ttl:    missedAnnounce * interval,
		now:    time.Now,
		log:    log,
		seen:   make(map[string]sighting),
	}
}

func (p *Presence) Start() error {
	token := p.client.Subscribe(p.topic, qos, p.handle)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", p.topic, token.Error())
	}
	p.log.Infow("presence_subscribed", "topic", p.topic, "ttl", p.ttl)
	return nil
}

func (p *Presence) Stop() {
	p.client.Unsubscribe(p.topic).Wait()
}

func (p *Presence) handle(_ mqtt.Client, msg mqtt.Message) {
	var a Announcement
	if err := json.Unmarshal(msg.Payload(), &a); err != nil {
		p.log.Warnw("presence_decode_failed", "topic", msg.Topic(), "error", err)
		return
	}
	c, err := parseClient(a.MAC, a.IP)
	if err != nil {
		p.log.Warnw("presence_invalid", "mac", a.MAC, "ip", a.IP, "error", err)
		return
	}

	p.mu.Lock()
	p.seen[c.MAC.String()] = sighting{client: c, seenAt: p.now()}
	p.mu.Unlock()
}

// Clients lists stations seen within the TTL, ordered by MAC.
func (p *Presence) Clients(ctx context.Context) ([]models.LinkClient, error) {
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]models.LinkClient, 0, len(p.seen))
	for mac, s := range p.seen {
		if now.Sub(s.seenAt) > p.ttl {
			delete(p.seen, mac)
			continue
		}
		out = append(out, s.client)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MAC.String() < out[j].MAC.String() })
	return out, nil
}

// Announcer publishes a door node's address so the hub can find it.
type Announcer struct {
	client   publisher
	topic    string
	msg      Announcement
	interval time.Duration
	now      func() time.Time
	log      *logger.Logger
}

func NewAnnouncer(client publisher, topic, mac, ip string, interval time.Duration, log *logger.Logger) *Announcer {
	if log == nil {
		log = logger.NewNop()
	}
	return &Announcer{
		client:   client,
		topic:    topic,
		msg:      Announcement{MAC: mac, IP: ip},
		interval: interval,
		now:      time.Now,
		log:      log,
	}
}

func (a *Announcer) Announce() error {
	msg := a.msg
	msg.SentAt = a.now().UTC()
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode announcement: %w", err)
	}
	token := a.client.Publish(a.topic, qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish announcement: %w", err)
	}
	return nil
}

// Run announces immediately and then every interval until ctx ends.
func (a *Announcer) Run(ctx context.Context) {
	t := time.NewTicker(a.interval)
	defer t.Stop()
	for {
		if err := a.Announce(); err != nil {
			a.log.Warnw("presence_announce_failed", "topic", a.topic, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
