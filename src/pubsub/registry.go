package pubsub

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"market-stream/src/interfaces"
	"market-stream/src/logger"

	"github.com/bytedance/sonic"
)

// Encoder serializes an outbound message once per publish.
type Encoder func(v interface{}) ([]byte, error)

// SonicEncoder is the default encoder.
func SonicEncoder(v interface{}) ([]byte, error) {
	return sonic.ConfigFastest.Marshal(v)
}

// -----------------------------------------------------------------------------
// Registry maps accounts to their live channels and keeps exactly one
// refresh job scheduled per account that has at least one channel.
// -----------------------------------------------------------------------------

type Registry struct {
	Scheduler interfaces.IAccountJobScheduler
	Interval  time.Duration
	Logger    *logger.Logger

	encode Encoder

	mu       sync.Mutex
	accounts map[int64]map[string]interfaces.IChannel

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

func NewRegistry(sched interfaces.IAccountJobScheduler, interval time.Duration, log *logger.Logger) *Registry {
	return &Registry{
		Scheduler: sched,
		Interval:  interval,
		Logger:    log,
		encode:    SonicEncoder,
		accounts:  make(map[int64]map[string]interfaces.IChannel),
	}
}

// WithEncoder swaps the serializer (tests count calls through it).
func (r *Registry) WithEncoder(enc Encoder) *Registry {
	r.encode = enc
	return r
}

// -----------------------------------------------------------------------------

// Register binds ch to accountID. The first channel of an account starts its
// refresh job; if that fails the channel is not registered.
func (r *Registry) Register(accountID int64, ch interfaces.IChannel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.accounts[accountID]
	if !ok {
		if err := r.Scheduler.StartAccountJob(accountID, r.Interval); err != nil {
			return fmt.Errorf("start refresh job for account %d: %w", accountID, err)
		}
		set = make(map[string]interfaces.IChannel)
		r.accounts[accountID] = set
	}
	set[ch.ID()] = ch
	return nil
}

// Unregister removes ch from accountID. Removing the last channel stops the
// account's job.
func (r *Registry) Unregister(accountID int64, ch interfaces.IChannel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(accountID, ch.ID())
}

func (r *Registry) removeLocked(accountID int64, channelID string) {
	set, ok := r.accounts[accountID]
	if !ok {
		return
	}
	delete(set, channelID)
	if len(set) == 0 {
		delete(r.accounts, accountID)
		r.Scheduler.StopAccountJob(accountID)
	}
}

// -----------------------------------------------------------------------------

type target struct {
	accountID int64
	ch        interfaces.IChannel
}

// SendToAccount delivers message to every channel bound to accountID.
// Undeliverable channels are dropped; nothing is returned to the caller.
func (r *Registry) SendToAccount(accountID int64, message interface{}) {
	r.mu.Lock()
	set := r.accounts[accountID]
	targets := make([]target, 0, len(set))
	for _, ch := range set {
		targets = append(targets, target{accountID, ch})
	}
	r.mu.Unlock()

	r.deliver(targets, message)
}

// BroadcastToAll delivers message to every registered channel.
func (r *Registry) BroadcastToAll(message interface{}) {
	r.mu.Lock()
	var targets []target
	for accountID, set := range r.accounts {
		for _, ch := range set {
			targets = append(targets, target{accountID, ch})
		}
	}
	r.mu.Unlock()

	r.deliver(targets, message)
}

func (r *Registry) deliver(targets []target, message interface{}) {
	if len(targets) == 0 {
		return
	}

	payload, err := r.encode(message)
	if err != nil {
		r.Logger.Error("Failed to encode %T: %v", message, err)
		return
	}

	var failed []target
	for _, t := range targets {
		if !t.ch.IsOpen() {
			failed = append(failed, t)
			continue
		}
		if err := t.ch.Send(payload); err != nil {
			r.Logger.Warning("Dropping channel %s of account %d: %v", t.ch.ID(), t.accountID, err)
			failed = append(failed, t)
			continue
		}
		r.delivered.Add(1)
	}

	if len(failed) == 0 {
		return
	}
	r.dropped.Add(uint64(len(failed)))
	r.mu.Lock()
	for _, t := range failed {
		// a newer registration under the same id keeps its place
		if cur, ok := r.accounts[t.accountID][t.ch.ID()]; ok && cur == t.ch {
			r.removeLocked(t.accountID, t.ch.ID())
		}
	}
	r.mu.Unlock()
}

// -----------------------------------------------------------------------------

func (r *Registry) HasConnections() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts) > 0
}

func (r *Registry) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, set := range r.accounts {
		n += len(set)
	}
	return n
}

func (r *Registry) AccountCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.accounts)
}

// Accounts returns the subscribed account ids in ascending order.
func (r *Registry) Accounts() []int64 {
	r.mu.Lock()
	ids := make([]int64, 0, len(r.accounts))
	for id := range r.accounts {
		ids = append(ids, id)
	}
	r.mu.Unlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Delivered and Dropped count per-channel outcomes since start.
func (r *Registry) Delivered() uint64 { return r.delivered.Load() }
func (r *Registry) Dropped() uint64   { return r.dropped.Load() }
