package versioning

import (
	"sync"

	"github.com/bitcoin-writer/go-document-chain/pkg/types"
)

// Subscribe registers a listener for sealing progress and failures. Listeners
// are called synchronously from the sealing goroutine and must not block. The
// returned func detaches the listener; calling it more than once is harmless.
func (m *Manager) Subscribe(listener func(types.ProgressEvent)) (unsubscribe func()) {
	if listener == nil {
		return func() {}
	}
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = listener
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

func (m *Manager) emit(event types.ProgressEvent) {
	if event.At.IsZero() {
		event.At = m.now()
	}
	m.subMu.RLock()
	listeners := make([]func(types.ProgressEvent), 0, len(m.subs))
	for _, l := range m.subs {
		listeners = append(listeners, l)
	}
	m.subMu.RUnlock()

	for _, l := range listeners {
		l(event)
	}
}
