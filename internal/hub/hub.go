package hub

import (
	"encoding/json"
	"sync"
	"time"

	"fieldrelay/internal/logger"
	"fieldrelay/internal/metrics"
	"fieldrelay/internal/model"
)

// sendBuffer is the per-subscriber outbound queue. A subscriber whose
// queue stays full past sendGrace is pruned rather than allowed to
// stall the others.
const (
	sendBuffer = 64
	sendGrace  = 100 * time.Millisecond
)

// pingPeriod spaces the keepalive pings sent by each writer. Var so
// tests can shorten it. Must stay under the 60s read deadline the view
// handler arms against the pong replies.
var pingPeriod = 54 * time.Second

// Conn is the subset of a websocket connection the hub writes to.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Subscriber is one open push channel to an operator console. It owns a
// buffered send queue drained by its own writer goroutine, so delivery
// to one subscriber never blocks delivery to the rest.
type Subscriber struct {
	conn Conn
	send chan []byte
	once sync.Once
}

func (s *Subscriber) close() {
	s.once.Do(func() {
		close(s.send)
	})
}

// writePump drains the send queue onto the connection and sends
// keepalive pings between messages. It exits when the queue is closed
// or a write fails.
func (s *Subscriber) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer s.conn.Close()

	for {
		select {
		case message, ok := <-s.send:
			if !ok {
				return
			}
			if err := s.conn.WriteMessage(textMessage, message); err != nil {
				h.logger.Warning("Subscriber write failed: %v", err)
				h.Unsubscribe(s)
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteMessage(pingMessage, nil); err != nil {
				h.logger.Warning("Subscriber ping failed: %v", err)
				h.Unsubscribe(s)
				return
			}
		}
	}
}

// textMessage and pingMessage mirror websocket.TextMessage and
// websocket.PingMessage without importing the websocket package here;
// handlers pass real connections in.
const (
	textMessage = 1
	pingMessage = 9
)

// Hub maintains the set of live subscribers and fans messages out to all
// of them. The subscriber set is owned exclusively by the Run loop;
// membership changes only via Subscribe/Unsubscribe, and publish prunes
// dead entries as a side effect of a full queue.
type Hub struct {
	subscribers map[*Subscriber]bool
	broadcast   chan []byte
	register    chan *Subscriber
	unregister  chan *Subscriber
	quit        chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

// New creates a Hub. Call Run in its own goroutine before using it.
func New(log *logger.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		subscribers: make(map[*Subscriber]bool),
		broadcast:   make(chan []byte, 16),
		register:    make(chan *Subscriber),
		unregister:  make(chan *Subscriber),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		logger:      log,
		metrics:     m,
	}
}

// Run owns the subscriber set until Close is called.
func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case sub := <-h.register:
			h.subscribers[sub] = true
			h.metrics.Subscribers.Set(float64(len(h.subscribers)))
			h.logger.Info("Subscriber connected. Total: %d", len(h.subscribers))

		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				sub.close()
			}
			h.metrics.Subscribers.Set(float64(len(h.subscribers)))
			h.logger.Info("Subscriber disconnected. Total: %d", len(h.subscribers))

		case message := <-h.broadcast:
			for sub := range h.subscribers {
				select {
				case sub.send <- message:
					continue
				default:
				}
				// Queue full. A burst from this loop can outpace a
				// healthy writer, so give it sendGrace to drain;
				// only a writer still stuck after that is pruned.
				select {
				case sub.send <- message:
				case <-time.After(sendGrace):
					delete(h.subscribers, sub)
					sub.close()
					h.logger.Warning("Dropped stalled subscriber. Total: %d", len(h.subscribers))
				}
			}
			h.metrics.Subscribers.Set(float64(len(h.subscribers)))

		case <-h.quit:
			for sub := range h.subscribers {
				delete(h.subscribers, sub)
				sub.close()
			}
			h.metrics.Subscribers.Set(0)
			return
		}
	}
}

// Subscribe registers conn and starts its writer goroutine. The returned
// handle is passed back to Unsubscribe when the console disconnects.
func (h *Hub) Subscribe(conn Conn) *Subscriber {
	sub := &Subscriber{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	go sub.writePump(h)

	select {
	case h.register <- sub:
	case <-h.done:
		sub.close()
	}
	return sub
}

// Unsubscribe removes sub from the set and closes its queue.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	select {
	case h.unregister <- sub:
	case <-h.done:
	}
}

// Publish fans a pre-encoded message out to every current subscriber.
// Delivery is fire-and-forget; failures prune the subscriber only.
func (h *Hub) Publish(message []byte) {
	select {
	case h.broadcast <- message:
	case <-h.done:
	}
}

// PublishSensorData broadcasts a SENSOR_DATA envelope.
func (h *Hub) PublishSensorData(data model.SensorData) {
	h.publishEnvelope(model.Envelope{Type: model.MessageSensorData, Data: data})
}

// PublishProcessedData broadcasts a PROCESSED_DATA envelope.
func (h *Hub) PublishProcessedData(result model.AnalysisResult) {
	h.publishEnvelope(model.Envelope{Type: model.MessageProcessedData, Data: result})
}

func (h *Hub) publishEnvelope(env model.Envelope) {
	message, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("Failed to encode %s message: %v", env.Type, err)
		return
	}
	h.Publish(message)
}

// Close shuts the hub down and closes every subscriber channel.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.quit)
	})
	<-h.done
}
