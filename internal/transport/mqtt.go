package transport

import (
	"log"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/serve_sense/internal/capture"
)

// Topics names the MQTT topics backing the logical channels.
type Topics struct {
	Ctrl   string // 1-byte commands, written by remotes
	State  string // 1-byte recording state, notified on every transition
	Result string // ASCII classification results
	Stream string // 36-byte sample packets
}

// MQTTTransport is the production Transport over a paho client.
type MQTTTransport struct {
	client mqtt.Client
	topics Topics
}

// NewMQTT connects to the broker and returns the transport.
func NewMQTT(broker, clientID string, topics Topics) (*MQTTTransport, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	log.Printf("transport: connected to MQTT broker at %s", broker)

	return &MQTTTransport{client: client, topics: topics}, nil
}

// PublishState sends one byte on the state topic: 1=recording, 0=idle.
// Retained so late subscribers see the current state.
func (t *MQTTTransport) PublishState(recording bool) error {
	b := []byte{0}
	if recording {
		b[0] = 1
	}
	token := t.client.Publish(t.topics.State, 0, true, b)
	token.Wait()
	return token.Error()
}

// PublishResult sends a classification result message as raw bytes.
func (t *MQTTTransport) PublishResult(msg string) error {
	token := t.client.Publish(t.topics.Result, 0, true, []byte(msg))
	token.Wait()
	return token.Error()
}

// PublishSample sends one encoded wire packet. Not retained and not waited
// on: the stream is lossy by design and must not stall the sampling loop.
func (t *MQTTTransport) PublishSample(pkt []byte) error {
	t.client.Publish(t.topics.Stream, 0, false, pkt)
	return nil
}

// SubscribeCommands parses each control write and hands valid commands to
// the handler. Unknown bytes and empty writes are logged and ignored.
func (t *MQTTTransport) SubscribeCommands(h CommandHandler) error {
	token := t.client.Subscribe(t.topics.Ctrl, 0, func(_ mqtt.Client, msg mqtt.Message) {
		payload := msg.Payload()
		if len(payload) == 0 {
			return
		}
		cmd, err := capture.ParseCommand(payload[0])
		if err != nil {
			log.Printf("transport: %v", err)
			return
		}
		h(cmd)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("transport: subscribed to %s", t.topics.Ctrl)
	return nil
}

// Connected reports whether the broker connection is currently open.
func (t *MQTTTransport) Connected() bool {
	return t.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (t *MQTTTransport) Close() {
	t.client.Disconnect(250)
}
