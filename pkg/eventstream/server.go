package eventstream

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds a single event write to a watcher.
const writeTimeout = 5 * time.Second

// A watcher is one websocket client.  Events are queued on its outbox;
// a watcher whose outbox is full is evicted rather than slowing down
// the loops that publish.
type watcher struct {
	outbox  chan []byte
	evicted chan struct{}
	once    sync.Once
}

func (w *watcher) evict() {
	w.once.Do(func() { close(w.evicted) })
}

// Handler upgrades the request to a websocket and streams every event
// published from then on as a JSON text message.
func (es *EventStream) Handler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		es.l.Warn("Rejected stream client", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer c.CloseNow()

	wt := es.watch()
	defer es.unwatch(wt)
	es.l.Debug("Stream client attached", "remote", r.RemoteAddr)

	err = es.pump(c.CloseRead(r.Context()), c, wt)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
	case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
	default:
		es.l.Warn("Stream client dropped", "remote", r.RemoteAddr, "error", err)
	}
}

// pump copies the watcher's outbox onto the connection until the
// client goes away or the watcher is evicted.
func (es *EventStream) pump(ctx context.Context, c *websocket.Conn, wt *watcher) error {
	for {
		select {
		case msg := <-wt.outbox:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return err
			}
		case <-wt.evicted:
			return c.Close(websocket.StatusPolicyViolation, "event backlog exceeded")
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (es *EventStream) watch() *watcher {
	wt := &watcher{
		outbox:  make(chan []byte, es.backlog),
		evicted: make(chan struct{}),
	}
	es.mu.Lock()
	es.watchers[wt] = struct{}{}
	es.mu.Unlock()
	return wt
}

func (es *EventStream) unwatch(wt *watcher) {
	es.mu.Lock()
	delete(es.watchers, wt)
	es.mu.Unlock()
}

// broadcast queues msg for every watcher without blocking.
func (es *EventStream) broadcast(msg []byte) {
	es.mu.Lock()
	defer es.mu.Unlock()
	for wt := range es.watchers {
		select {
		case wt.outbox <- msg:
		default:
			delete(es.watchers, wt)
			wt.evict()
		}
	}
}

// Subscribers returns the number of attached stream clients.
func (es *EventStream) Subscribers() int {
	es.mu.Lock()
	defer es.mu.Unlock()
	return len(es.watchers)
}
