package linklayer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"power_windows/internal/config"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type fakeToken struct {
	err  error
	done chan struct{}
}

func newToken(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return qos }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeBroker loops published payloads back to the subscribed handler.
type fakeBroker struct {
	mu         sync.Mutex
	handler    mqtt.MessageHandler
	published  [][]byte
	publishErr error
}

func (b *fakeBroker) Subscribe(topic string, _ byte, cb mqtt.MessageHandler) mqtt.Token {
	b.mu.Lock()
	b.handler = cb
	b.mu.Unlock()
	return newToken(nil)
}

func (b *fakeBroker) Unsubscribe(...string) mqtt.Token { return newToken(nil) }

func (b *fakeBroker) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	if b.publishErr != nil {
		return newToken(b.publishErr)
	}
	raw := payload.([]byte)
	b.mu.Lock()
	b.published = append(b.published, raw)
	h := b.handler
	b.mu.Unlock()
	if h != nil {
		h(nil, fakeMessage{topic: topic, payload: raw})
	}
	return newToken(nil)
}

func (b *fakeBroker) Published() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.published)
}

func TestStatic_ParsesEntries(t *testing.T) {
	s, err := NewStatic([]config.StaticClient{
		{MAC: "40:4c:ca:43:8a:63", IP: "192.168.4.2"},
		{MAC: "40:4C:CA:43:8B:30", IP: "192.168.4.3"},
	})
	if err != nil {
		t.Fatalf("NewStatic: %v", err)
	}
	got, _ := s.Clients(context.Background())
	if len(got) != 2 || got[1].MAC.String() != "40:4c:ca:43:8b:30" || got[0].IP.String() != "192.168.4.2" {
		t.Fatalf("clients = %v", got)
	}
}

func TestStatic_RejectsBadEntries(t *testing.T) {
	if _, err := NewStatic([]config.StaticClient{{MAC: "nope", IP: "192.168.4.2"}}); err == nil {
		t.Fatal("expected mac error")
	}
	if _, err := NewStatic([]config.StaticClient{{MAC: "40:4c:ca:43:8a:63", IP: "999.1.1.1"}}); err == nil {
		t.Fatal("expected ip error")
	}
}

func TestPresence_AnnouncementsAndExpiry(t *testing.T) {
	broker := &fakeBroker{}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPresence(broker, "presence", time.Second, nil)
	p.now = func() time.Time { return now }
	if err := p.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	a := NewAnnouncer(broker, "presence", "40:4c:ca:43:8a:63", "192.168.4.2", time.Second, nil)
	if err := a.Announce(); err != nil {
		t.Fatalf("Announce: %v", err)
	}

	got, _ := p.Clients(context.Background())
	if len(got) != 1 || got[0].IP.String() != "192.168.4.2" {
		t.Fatalf("clients = %v", got)
	}

	now = now.Add(3 * time.Second)
	if got, _ := p.Clients(context.Background()); len(got) != 1 {
		t.Fatalf("expired too early: %v", got)
	}
	now = now.Add(time.Millisecond)
	if got, _ := p.Clients(context.Background()); len(got) != 0 {
		t.Fatalf("expected expiry, got %v", got)
	}
}

func TestPresence_IgnoresMalformed(t *testing.T) {
	p := NewPresence(&fakeBroker{}, "presence", time.Second, nil)
	p.handle(nil, fakeMessage{topic: "presence", payload: []byte("{")})
	bad, _ := json.Marshal(Announcement{MAC: "zz", IP: "192.168.4.2"})
	p.handle(nil, fakeMessage{topic: "presence", payload: bad})

	if got, _ := p.Clients(context.Background()); len(got) != 0 {
		t.Fatalf("clients = %v", got)
	}
}

func TestAnnouncer_PublishError(t *testing.T) {
	broker := &fakeBroker{publishErr: errors.New("not connected")}
	a := NewAnnouncer(broker, "presence", "40:4c:ca:43:8a:63", "192.168.4.2", time.Second, nil)
	if err := a.Announce(); err == nil {
		t.Fatal("expected error")
	}
}

func TestAnnouncer_RunAnnouncesImmediately(t *testing.T) {
	broker := &fakeBroker{}
	a := NewAnnouncer(broker, "presence", "40:4c:ca:43:8a:63", "192.168.4.2", time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for broker.Published() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	cancel()
	<-done
	if broker.Published() != 1 {
		t.Fatalf("published = %d", broker.Published())
	}
}
