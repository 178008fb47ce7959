package client

import (
	"strings"
	"sync"
)

// Registry tracks discovered wallets. Wallets may register after initial
// load (browser extensions announce themselves asynchronously), so consumers
// subscribe for updates rather than polling.
type Registry struct {
	mu          sync.Mutex
	wallets     []Wallet
	allowList   []string
	subscribers map[int]func([]Wallet)
	nextSubID   int
}

// NewRegistry creates a registry. Only wallets whose name matches the
// allow-list (case-insensitive substring) are surfaced; an empty allow-list
// surfaces nothing.
func NewRegistry(allowList []string) *Registry {
	return &Registry{
		allowList:   allowList,
		subscribers: make(map[int]func([]Wallet)),
	}
}

// Register adds a discovered wallet and notifies subscribers. Wallets
// outside the allow-list and duplicate names are ignored.
func (r *Registry) Register(w Wallet) {
	if !r.allowed(w.Name()) {
		return
	}

	r.mu.Lock()
	for _, existing := range r.wallets {
		if existing.Name() == w.Name() {
			r.mu.Unlock()
			return
		}
	}
	r.wallets = append(r.wallets, w)
	wallets := append([]Wallet(nil), r.wallets...)
	subs := make([]func([]Wallet), 0, len(r.subscribers))
	for _, fn := range r.subscribers {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(wallets)
	}
}

// Wallets returns the surfaced wallets.
func (r *Registry) Wallets() []Wallet {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Wallet(nil), r.wallets...)
}

// Lookup finds a surfaced wallet by name.
func (r *Registry) Lookup(name string) (Wallet, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, w := range r.wallets {
		if w.Name() == name {
			return w, true
		}
	}
	return nil, false
}

// Subscribe registers a callback invoked with the full wallet list whenever
// it changes. The returned function unsubscribes.
func (r *Registry) Subscribe(fn func([]Wallet)) func() {
	r.mu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subscribers[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subscribers, id)
		r.mu.Unlock()
	}
}

func (r *Registry) allowed(name string) bool {
	lower := strings.ToLower(name)
	for _, entry := range r.allowList {
		if strings.Contains(lower, strings.ToLower(entry)) {
			return true
		}
	}
	return false
}
