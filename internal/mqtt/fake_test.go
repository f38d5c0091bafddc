package mqtt

import (
	"sync"
	"time"
)

// fakeClient records publishes and can replay them to subscribed handlers.
type fakeClient struct {
	mu           sync.Mutex
	published    []fakeMessage
	handlers     map[string]MessageHandler
	publishErr   error
	disconnected bool
}

type fakeMessage struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

func newFakeClient() *fakeClient {
	return &fakeClient{handlers: make(map[string]MessageHandler)}
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, fakeMessage{topic: topic, qos: qos, retained: retained, payload: payload})
	return nil
}

func (f *fakeClient) Subscribe(topic string, _ byte, handler MessageHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[topic] = handler
	return nil
}

func (f *fakeClient) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.disconnected
}

func (f *fakeClient) Disconnect(time.Duration) {}

func (f *fakeClient) messages() []fakeMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeMessage, len(f.published))
	copy(out, f.published)
	return out
}

func (f *fakeClient) messagesOn(topic string) []fakeMessage {
	var out []fakeMessage
	for _, m := range f.messages() {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}

// deliver simulates an inbound broker message on the command filter.
func (f *fakeClient) deliver(topic string, payload []byte) {
	f.mu.Lock()
	handler := f.handlers["twickenham_events/cmd/#"]
	f.mu.Unlock()
	if handler != nil {
		handler(topic, payload)
	}
}
