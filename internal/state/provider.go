package state

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/npezzotti/go-classroom/internal/notify"
	"github.com/npezzotti/go-classroom/internal/persist"
	"github.com/npezzotti/go-classroom/internal/stats"
	"github.com/npezzotti/go-classroom/internal/storage"
	"github.com/npezzotti/go-classroom/internal/types"
)

const (
	DefaultStorageKey         = "schoolAppState"
	DefaultMessageNotifyDelay = 3 * time.Second

	previewLength = 50
)

var (
	ErrEmptyMessage   = errors.New("message text is empty")
	ErrUnknownChannel = errors.New("unknown channel")
)

type Options struct {
	StorageKey         string
	SeedDemoMessages   bool
	MessageNotifyDelay time.Duration
	// Now stamps new messages. Defaults to types.Now.
	Now func() time.Time
}

// Provider owns the application state. It applies actions one at a time,
// persists every new state and publishes it as an immutable snapshot.
type Provider struct {
	log       *log.Logger
	stats     stats.StatsProvider
	notifier  *notify.Notifier
	persisted *persist.Value[types.StatePatch]
	ids       *idGenerator
	opts      Options

	dispatchLock sync.Mutex
	current      atomic.Pointer[types.State]
	persisting   atomic.Bool

	startOnce sync.Once
	ready     chan struct{}
}

func NewProvider(logger *log.Logger, store storage.Store, notifier *notify.Notifier, statsProvider stats.StatsProvider, opts Options) *Provider {
	if opts.StorageKey == "" {
		opts.StorageKey = DefaultStorageKey
	}
	if opts.MessageNotifyDelay <= 0 {
		opts.MessageNotifyDelay = DefaultMessageNotifyDelay
	}
	if opts.Now == nil {
		opts.Now = types.Now
	}

	p := &Provider{
		log:       logger,
		stats:     statsProvider,
		notifier:  notifier,
		persisted: persist.NewValue(logger, store, opts.StorageKey, types.StatePatch{}),
		ids:       newIdGenerator(opts.Now),
		opts:      opts,
		ready:     make(chan struct{}),
	}
	p.persisted.OnWriteError = func(error) {
		p.stats.Incr(stats.PersistFailures)
	}

	initial := DefaultState(opts.SeedDemoMessages)
	p.current.Store(&initial)

	return p
}

// Start requests notification permission and loads the persisted state in
// the background. Ready is closed when both are done.
func (p *Provider) Start(ctx context.Context) {
	p.startOnce.Do(func() {
		var wg sync.WaitGroup
		wg.Add(2)

		go func() {
			defer wg.Done()
			p.notifier.Activate(ctx)
		}()

		go func() {
			defer wg.Done()
			p.load(ctx)
		}()

		go func() {
			wg.Wait()
			close(p.ready)
		}()
	})
}

func (p *Provider) Ready() <-chan struct{} {
	return p.ready
}

// Loading is true until the persisted state has been read.
func (p *Provider) Loading() bool {
	return p.persisted.Loading()
}

func (p *Provider) load(ctx context.Context) {
	loadErr := p.persisted.Load(ctx)

	patch := p.persisted.Get()
	if patch != (types.StatePatch{}) {
		if patch.Messages != nil {
			for _, m := range *patch.Messages {
				p.ids.Observe(m.Id)
			}
		}
		p.dispatch(LoadState{Patch: patch})
		p.log.Printf("loaded state from %q", p.opts.StorageKey)
	}

	p.dispatchLock.Lock()
	defer p.dispatchLock.Unlock()

	p.persisting.Store(true)

	// The stored blob may still be there after a failed read. Only a later
	// dispatch replaces it.
	if loadErr != nil {
		p.log.Println("load state:", loadErr)
		return
	}
	p.persisted.Set(types.PatchFrom(*p.current.Load()))
}

func (p *Provider) dispatch(a Action) types.State {
	p.dispatchLock.Lock()
	defer p.dispatchLock.Unlock()

	next := Reduce(*p.current.Load(), a)
	p.current.Store(&next)

	// Nothing is written before the stored state has been read, otherwise
	// the defaults would overwrite it.
	if p.persisting.Load() {
		p.persisted.Set(types.PatchFrom(next))
	}

	return next
}

// State returns the current snapshot. Callers must not modify it.
func (p *Provider) State() types.State {
	return *p.current.Load()
}

func (p *Provider) SetSchoolType(v types.SchoolType) {
	p.dispatch(SetSchoolType{Value: v})
}

func (p *Provider) SetUserRole(v types.UserRole) {
	p.dispatch(SetUserRole{Value: v})
}

func (p *Provider) SetUserName(name string) {
	p.dispatch(SetUserName{Value: name})
}

func (p *Provider) SetClassName(name string) {
	p.dispatch(SetClassName{Value: name})
}

func (p *Provider) UpdateSettings(patch types.SettingsPatch) {
	p.dispatch(UpdateSettings{Patch: patch})
}

// AddMessage posts text to channel as the current user. When notifications
// are enabled a local notification announces it after a short delay.
func (p *Provider) AddMessage(channel types.Channel, text string) (types.Message, error) {
	if _, err := types.ParseChannel(string(channel)); err != nil {
		return types.Message{}, fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return types.Message{}, ErrEmptyMessage
	}

	next := p.dispatch(AddMessage{
		Channel: channel,
		Text:    text,
		Id:      p.ids.Next(),
		At:      p.opts.Now(),
	})
	msg := next.Messages[len(next.Messages)-1]
	p.stats.Incr(stats.MessagesAdded)

	if next.Settings.NotificationsEnabled {
		p.notifyNewMessage(msg)
	}

	return msg, nil
}

func (p *Provider) notifyNewMessage(msg types.Message) {
	title := fmt.Sprintf("💬 Nuovo messaggio in %s", msg.Channel)
	if _, err := p.notifier.Schedule(title, preview(msg.Text), msg.Channel, p.opts.MessageNotifyDelay); err != nil {
		p.log.Println("schedule notification:", err)
	}
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLength {
		return text
	}
	return string(runes[:previewLength]) + "..."
}

func (p *Provider) MessagesForChannel(channel types.Channel) []types.Message {
	return MessagesForChannel(p.State().Messages, channel)
}

func (p *Provider) AvailableChannels() []types.Channel {
	return AvailableChannels(p.State().UserRole)
}

// CanWrite must be checked wherever a message is composed.
func (p *Provider) CanWrite(channel types.Channel) bool {
	return CanWrite(p.State().UserRole, channel)
}

func (p *Provider) ProfileComplete() bool {
	return p.State().Profile.Complete()
}

func (p *Provider) Notifier() *notify.Notifier {
	return p.notifier
}

// Flush waits for pending state writes.
func (p *Provider) Flush(ctx context.Context) error {
	return p.persisted.Flush(ctx)
}

// Close cancels pending notifications and writes the latest state.
func (p *Provider) Close(ctx context.Context) error {
	p.notifier.Close()
	if err := p.persisted.Close(ctx); err != nil {
		return fmt.Errorf("close persisted state: %w", err)
	}
	return nil
}
