package httpapi

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/henzzito/pugbot/internal/middleware"
)

// LiveFeed mirrors every announcer line to connected admin websockets so the
// dashboard can watch matches without reading Twitch chat.
type LiveFeed struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

func NewLiveFeed() *LiveFeed {
	return &LiveFeed{subs: make(map[chan string]struct{})}
}

// Say fans text out to every subscriber. Slow consumers are skipped rather
// than blocking the announcer path.
func (f *LiveFeed) Say(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- text:
		default:
		}
	}
}

func (f *LiveFeed) subscribe() chan string {
	ch := make(chan string, 32)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *LiveFeed) unsubscribe(ch chan string) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

// liveHandler upgrades to a websocket and streams announcer lines until the
// client disconnects.
func (s *Server) liveHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Adjust in production
	})
	if err != nil {
		s.Log.Warnf("websocket accept error: %v", err)
		return
	}
	middleware.LogWebSocketConnect(s.Log, r.RemoteAddr, r.URL.Path)
	defer c.Close(websocket.StatusInternalError, "handler finished")

	ch := s.Feed.subscribe()
	defer s.Feed.unsubscribe(ch)

	ctx := r.Context()

	// drain reads so pings and the close handshake are processed
	go func() {
		for {
			if _, _, err := c.Read(ctx); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, r.URL.Path, ctx.Err())
			c.Close(websocket.StatusNormalClosure, "bye")
			return
		case line := <-ch:
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := c.Write(writeCtx, websocket.MessageText, []byte(line))
			cancel()
			if err != nil {
				middleware.LogWebSocketDisconnect(s.Log, r.RemoteAddr, r.URL.Path, err)
				return
			}
		}
	}
}
