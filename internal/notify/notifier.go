package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/npezzotti/go-classroom/internal/stats"
	"github.com/npezzotti/go-classroom/internal/types"
	"github.com/teris-io/shortid"
)

const (
	DefaultSpacing = 2 * time.Second

	PromptTitle = "Permessi Richiesti"
	PromptBody  = "Attiva le notifiche nelle impostazioni per ricevere aggiornamenti."
)

var (
	ErrPermissionRequired = errors.New("notification permission not granted")
	ErrClosed             = errors.New("notifier closed")
)

type Permission int

const (
	PermissionUnrequested Permission = iota
	PermissionRequesting
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionUnrequested:
		return "unrequested"
	case PermissionRequesting:
		return "requesting"
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	}
	return fmt.Sprintf("permission(%d)", int(p))
}

func (p Permission) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type Notification struct {
	Id        string        `json:"id"`
	Title     string        `json:"title"`
	Body      string        `json:"body"`
	Channel   types.Channel `json:"channel,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// Requester asks the platform for permission to show notifications.
type Requester func(ctx context.Context) (bool, error)

// AlwaysGrant is the default requester. There is no platform to ask.
func AlwaysGrant(context.Context) (bool, error) {
	return true, nil
}

type Options struct {
	Requester Requester
	// Spacing separates the notifications of one simulated burst.
	Spacing time.Duration
	// OnNotify receives every surfaced notification.
	OnNotify func(Notification)
	// OnPrompt asks the user to enable notifications.
	OnPrompt func(title, body string)
}

type Notifier struct {
	log   *log.Logger
	stats stats.StatsProvider
	opts  Options

	mu         sync.Mutex
	permission Permission
	history    []Notification
	pending    map[*Handle]struct{}
	closed     bool
}

func NewNotifier(logger *log.Logger, statsProvider stats.StatsProvider, opts Options) *Notifier {
	if opts.Requester == nil {
		opts.Requester = AlwaysGrant
	}
	if opts.Spacing <= 0 {
		opts.Spacing = DefaultSpacing
	}

	return &Notifier{
		log:     logger,
		stats:   statsProvider,
		opts:    opts,
		pending: make(map[*Handle]struct{}),
	}
}

// Activate requests permission. A failed request counts as a denial.
func (n *Notifier) Activate(ctx context.Context) Permission {
	n.mu.Lock()
	if n.permission == PermissionRequesting {
		n.mu.Unlock()
		return PermissionRequesting
	}
	n.permission = PermissionRequesting
	n.mu.Unlock()

	granted, err := n.opts.Requester(ctx)
	if err != nil {
		n.log.Printf("warn: permission request failed: %v", err)
		granted = false
	}

	result := PermissionDenied
	if granted {
		result = PermissionGranted
	}

	n.mu.Lock()
	n.permission = result
	n.mu.Unlock()

	n.log.Printf("notification permission %s", result)
	return result
}

func (n *Notifier) Permission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.permission
}

// Schedule shows a notification after delay without blocking the caller.
// Without permission nothing is queued and the user is prompted instead.
func (n *Notifier) Schedule(title, body string, channel types.Channel, delay time.Duration) (*Handle, error) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil, ErrClosed
	}
	if n.permission != PermissionGranted {
		n.mu.Unlock()
		if n.opts.OnPrompt != nil {
			n.opts.OnPrompt(PromptTitle, PromptBody)
		}
		return nil, ErrPermissionRequired
	}

	notif := Notification{
		Id:      newNotificationId(),
		Title:   title,
		Body:    body,
		Channel: channel,
	}

	h := &Handle{n: n, fired: make(chan struct{})}
	if delay <= 0 {
		n.mu.Unlock()
		close(h.fired)
		n.surface(notif)
		return h, nil
	}

	n.pending[h] = struct{}{}
	h.timer = time.AfterFunc(delay, func() {
		if !n.release(h) {
			return
		}
		close(h.fired)
		n.surface(notif)
	})
	n.mu.Unlock()

	return h, nil
}

// SimulateSchoolNotifications schedules one sample notification per
// channel, spaced so they do not all arrive at once.
func (n *Notifier) SimulateSchoolNotifications() ([]*Handle, error) {
	samples := []struct {
		title   string
		body    string
		channel types.Channel
	}{
		{"📢 Comunicazione Scuola", "Nuova comunicazione dalla segreteria disponibile", types.ChannelOfficial},
		{"💬 Nuovo Messaggio", "Hai ricevuto un nuovo messaggio nella chat genitori", types.ChannelParents},
		{"🚨 Comunicazione Urgente", "Attenzione: cambio orario per domani", types.ChannelUrgent},
		{"📅 Promemoria", "Ricorda di giustificare l'assenza di ieri", types.ChannelAbsences},
	}

	handles := make([]*Handle, 0, len(samples))
	for i, s := range samples {
		h, err := n.Schedule(s.title, s.body, s.channel, time.Duration(i)*n.opts.Spacing)
		if err != nil {
			return handles, err
		}
		handles = append(handles, h)
	}

	return handles, nil
}

// Notifications returns the history, most recent first.
func (n *Notifier) Notifications() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	out := make([]Notification, len(n.history))
	copy(out, n.history)
	return out
}

func (n *Notifier) Clear() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.history = nil
}

// Close cancels every notification that has not fired yet.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.closed = true
	for h := range n.pending {
		h.timer.Stop()
		delete(n.pending, h)
	}
}

func (n *Notifier) surface(notif Notification) {
	notif.Timestamp = types.Now()

	n.mu.Lock()
	n.history = append([]Notification{notif}, n.history...)
	n.mu.Unlock()

	n.log.Printf("notification %s: %s", notif.Id, notif.Title)
	if n.stats != nil {
		n.stats.Incr(stats.NotificationsSurfaced)
	}
	if n.opts.OnNotify != nil {
		n.opts.OnNotify(notif)
	}
}

// release removes h from the pending set and reports whether it was still
// pending.
func (n *Notifier) release(h *Handle) bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.pending[h]; !ok {
		return false
	}
	delete(n.pending, h)
	return true
}

func (n *Notifier) pendingCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

func newNotificationId() string {
	id, err := shortid.Generate()
	if err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return id
}

// Handle refers to one scheduled notification.
type Handle struct {
	n     *Notifier
	timer *time.Timer
	fired chan struct{}
}

// Cancel stops the notification if it has not been shown yet.
func (h *Handle) Cancel() bool {
	if h.timer == nil || !h.n.release(h) {
		return false
	}
	h.timer.Stop()
	return true
}

// Fired is closed once the notification has been shown.
func (h *Handle) Fired() <-chan struct{} {
	return h.fired
}
