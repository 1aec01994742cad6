package feed

import (
	"context"
	"log"

	"github.com/npezzotti/go-classroom/internal/notify"
	"github.com/npezzotti/go-classroom/internal/stats"
)

// Feed fans surfaced notifications out to every connected websocket
// client. All client bookkeeping happens on the Run goroutine.
type Feed struct {
	log        *log.Logger
	stats      stats.StatsProvider
	clients    map[*Client]struct{}
	register   chan *Client
	deregister chan *Client
	broadcast  chan *Event
	stop       chan struct{}
	done       chan struct{}
}

func NewFeed(logger *log.Logger, statsProvider stats.StatsProvider) *Feed {
	return &Feed{
		log:        logger,
		stats:      statsProvider,
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		deregister: make(chan *Client),
		broadcast:  make(chan *Event, 256),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

func (f *Feed) Run() {
	defer close(f.done)

	for {
		select {
		case c := <-f.register:
			f.clients[c] = struct{}{}
			f.stats.Incr(stats.ActiveFeeds)
			c.queueEvent(HelloEvent())
		case c := <-f.deregister:
			if _, ok := f.clients[c]; ok {
				delete(f.clients, c)
				close(c.send)
				f.stats.Decr(stats.ActiveFeeds)
			}
		case evt := <-f.broadcast:
			for c := range f.clients {
				c.queueEvent(evt)
			}
		case <-f.stop:
			f.log.Printf("closing %d feed clients", len(f.clients))
			for c := range f.clients {
				close(c.stop)
				delete(f.clients, c)
				f.stats.Decr(stats.ActiveFeeds)
			}
			return
		}
	}
}

// Subscribe starts streaming events to a websocket connection.
func (f *Feed) Subscribe(c conn) {
	client := newClient(c, f, f.log)
	select {
	case f.register <- client:
	case <-f.done:
		c.Close()
		return
	}

	go client.Write()
	go client.Read()
}

func (f *Feed) unsubscribe(c *Client) {
	select {
	case f.deregister <- c:
	case <-f.done:
	}
}

// Broadcast never blocks the notifier. Events are dropped when the feed
// is backed up.
func (f *Feed) Broadcast(n notify.Notification) {
	select {
	case f.broadcast <- NotificationEvent(n):
	default:
		f.log.Println("feed broadcast channel full, dropping notification", n.Id)
	}
}

func (f *Feed) Shutdown(ctx context.Context) error {
	f.log.Println("shutting down notification feed")
	select {
	case <-f.done:
		return nil
	default:
	}
	close(f.stop)

	select {
	case <-f.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
