package api

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hbrandt/coincast/internal/remote"
)

// subscriber is one websocket viewer of a simulation. Frames are queued so a
// slow reader never blocks the broadcaster; overflow disconnects it.
type subscriber struct {
	conn *websocket.Conn
	out  chan remote.Event
	once sync.Once
	done chan struct{}
}

func (s *subscriber) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

func (s *subscriber) writeLoop() {
	for {
		select {
		case ev := <-s.out:
			if err := s.conn.WriteJSON(ev); err != nil {
				s.close()
				return
			}
		case <-s.done:
			return
		}
	}
}

// hub fans simulation events out to websocket subscribers, keyed by
// simulation id.
type hub struct {
	mu     sync.Mutex
	subs   map[string]map[*subscriber]struct{}
	buffer int
	log    *zap.Logger
}

func newHub(buffer int, log *zap.Logger) *hub {
	return &hub{
		subs:   make(map[string]map[*subscriber]struct{}),
		buffer: buffer,
		log:    log,
	}
}

func (h *hub) add(simID string, conn *websocket.Conn) *subscriber {
	sub := &subscriber{
		conn: conn,
		out:  make(chan remote.Event, h.buffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	set, ok := h.subs[simID]
	if !ok {
		set = make(map[*subscriber]struct{})
		h.subs[simID] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	go sub.writeLoop()
	return sub
}

func (h *hub) remove(simID string, sub *subscriber) {
	h.mu.Lock()
	if set, ok := h.subs[simID]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, simID)
		}
	}
	h.mu.Unlock()
	sub.close()
}

func (h *hub) broadcast(simID string, ev remote.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subs[simID] {
		select {
		case sub.out <- ev:
		default:
			h.log.Warn("dropping slow subscriber", zap.String("simulation", simID))
			delete(h.subs[simID], sub)
			sub.close()
		}
	}
}
