package client

import (
	"context"
	"errors"
	"sync"
)

// FlowState is one of the mutually exclusive visual states of the sign-in
// page. Transitions are driven entirely by client events, never by server
// round-trips.
type FlowState int

const (
	StateLoading FlowState = iota
	StateWalletList
	StateConnecting
	StateError
	StateDone
)

func (s FlowState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateWalletList:
		return "wallet-list"
	case StateConnecting:
		return "connecting"
	case StateError:
		return "error"
	case StateDone:
		return "done"
	}
	return "unknown"
}

// Flow is the presentation state machine:
//
//	Loading -> WalletList          on discovery ready
//	WalletList -> Connecting       on wallet selection
//	Connecting -> WalletList       on cancellation or timeout
//	Connecting -> Done             on success
//	Connecting -> Error            on failure
//	Error -> WalletList            on retry
//
// Nothing survives a restart; a fresh Flow always re-enters Loading.
type Flow struct {
	mu          sync.Mutex
	state       FlowState
	client      *Client
	registry    *Registry
	wallets     []Wallet
	lastErr     error
	redirectURL string
	unsubscribe func()
	onChange    func(FlowState)
}

// NewFlow creates a flow in the Loading state and subscribes to wallet
// discovery. onChange (optional) is invoked after every state transition.
func NewFlow(c *Client, registry *Registry, onChange func(FlowState)) *Flow {
	f := &Flow{
		state:    StateLoading,
		client:   c,
		registry: registry,
		onChange: onChange,
	}
	f.unsubscribe = registry.Subscribe(f.onDiscovery)
	// Discovery may already have happened before we subscribed.
	if wallets := registry.Wallets(); len(wallets) > 0 {
		f.onDiscovery(wallets)
	}
	return f
}

// Close stops listening for discovery updates.
func (f *Flow) Close() {
	if f.unsubscribe != nil {
		f.unsubscribe()
	}
}

func (f *Flow) onDiscovery(wallets []Wallet) {
	f.mu.Lock()
	f.wallets = wallets
	transitioned := false
	if f.state == StateLoading && len(wallets) > 0 {
		f.state = StateWalletList
		transitioned = true
	}
	state := f.state
	f.mu.Unlock()

	if transitioned {
		f.notify(state)
	}
}

// Select picks a wallet and runs the signing flow to completion. It blocks
// until the attempt resolves; the state is Connecting for the duration.
func (f *Flow) Select(ctx context.Context, walletName string) {
	f.mu.Lock()
	if f.state != StateWalletList {
		f.mu.Unlock()
		return
	}
	f.state = StateConnecting
	f.mu.Unlock()
	f.notify(StateConnecting)

	result, err := f.client.ConnectAndSign(ctx, walletName)

	f.mu.Lock()
	switch {
	case err == nil:
		f.state = StateDone
		f.redirectURL = result.RedirectURL
	case errors.Is(err, ErrUserCancelled),
		errors.Is(err, ErrConnectionTimeout),
		errors.Is(err, ErrSigningTimeout):
		// Recoverable: back to the list with buttons re-enabled.
		f.state = StateWalletList
		f.lastErr = err
	default:
		f.state = StateError
		f.lastErr = err
	}
	state := f.state
	f.mu.Unlock()
	f.notify(state)
}

// Retry leaves the error state and re-enables the wallet list.
func (f *Flow) Retry() {
	f.mu.Lock()
	if f.state != StateError {
		f.mu.Unlock()
		return
	}
	f.state = StateWalletList
	f.lastErr = nil
	f.mu.Unlock()
	f.notify(StateWalletList)
}

// State returns the current state.
func (f *Flow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Wallets returns the wallets surfaced to the user.
func (f *Flow) Wallets() []Wallet {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Wallet(nil), f.wallets...)
}

// RedirectURL returns the navigation target once the flow is Done.
func (f *Flow) RedirectURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.redirectURL
}

// Err returns the most recent failure, if any.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

func (f *Flow) notify(state FlowState) {
	if f.onChange != nil {
		f.onChange(state)
	}
}
