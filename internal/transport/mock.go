package transport

import (
	"sync"

	"github.com/relabs-tech/serve_sense/internal/capture"
)

// Mock is an in-memory Transport for tests and for running the agents
// without a broker. It records everything published and lets the test
// inject remote commands.
type Mock struct {
	mu       sync.Mutex
	States   []bool
	Results  []string
	Samples  [][]byte
	Attached bool
	handler  CommandHandler
}

// NewMock returns a mock transport with a receiver attached.
func NewMock() *Mock {
	return &Mock{Attached: true}
}

func (m *Mock) PublishState(recording bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.States = append(m.States, recording)
	return nil
}

func (m *Mock) PublishResult(msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results = append(m.Results, msg)
	return nil
}

func (m *Mock) PublishSample(pkt []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(pkt))
	copy(cp, pkt)
	m.Samples = append(m.Samples, cp)
	return nil
}

func (m *Mock) SubscribeCommands(h CommandHandler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handler = h
	return nil
}

// Inject delivers a raw command as if a remote had written it.
func (m *Mock) Inject(b byte) {
	m.mu.Lock()
	h := m.handler
	m.mu.Unlock()
	if h == nil {
		return
	}
	if cmd, err := capture.ParseCommand(b); err == nil {
		h(cmd)
	}
}

func (m *Mock) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Attached
}

func (m *Mock) Close() {}
