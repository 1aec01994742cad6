package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"sync"
	"time"
)

const (
	MessagesAdded         = "MessagesAdded"
	NotificationsSurfaced = "NotificationsSurfaced"
	PersistFailures       = "PersistFailures"
	ActiveFeeds           = "ActiveFeeds"
)

// StatsProvider counts domain events. Components only ever Incr and Decr
// the counters named above; an updater may be shared by all of them.
type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan *metricsUpdateReq

	// stopLock guards updateChan against sends after Stop.
	stopLock sync.RWMutex
	stopped  bool
}

type metricsUpdateReq struct {
	name  string
	value int
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

// NewStatsUpdater creates a new stats updater instance and serves its
// counters on GET /debug/vars. The map is kept private to the updater so
// several instances can coexist in one process.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		updateChan: make(chan *metricsUpdateReq, 512),
		vars:       new(expvar.Map).Init(),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))
	su.initializeMetrics()

	return su
}

func (su *StatsUpdater) initializeMetrics() {
	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))
	for _, name := range []string{MessagesAdded, NotificationsSurfaced, PersistFailures, ActiveFeeds} {
		su.RegisterMetric(name)
	}
}

func (su *StatsUpdater) updateMetrics() {
	for req := range su.updateChan {
		metric, ok := su.vars.Get(req.name).(*expvar.Int)
		if !ok {
			panic("metric not found: " + req.name)
		}

		metric.Add(int64(req.value))
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.update(name, 1)
}

func (su *StatsUpdater) Decr(name string) {
	su.update(name, -1)
}

// update drops the change once the updater has been stopped. Timer
// callbacks may still report events during shutdown.
func (su *StatsUpdater) update(name string, delta int) {
	su.stopLock.RLock()
	defer su.stopLock.RUnlock()

	if su.stopped {
		return
	}
	su.updateChan <- &metricsUpdateReq{name: name, value: delta}
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Run() {
	go su.updateMetrics()
}

func (su *StatsUpdater) Stop() {
	su.stopLock.Lock()
	defer su.stopLock.Unlock()

	if su.stopped {
		return
	}
	su.stopped = true
	close(su.updateChan)
}

// Value returns the current value of a counter, or 0 if it is unknown.
func (su *StatsUpdater) Value(name string) int64 {
	if metric, ok := su.vars.Get(name).(*expvar.Int); ok {
		return metric.Value()
	}
	return 0
}
