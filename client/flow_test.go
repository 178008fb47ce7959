package client_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/halcyon-id/siws/client"
)

func newFlowFixture(t *testing.T) (*client.Flow, *client.KeypairWallet, *client.Registry, *[]client.FlowState) {
	t.Helper()

	stub := newCallbackStub()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	wallet := client.NewKeypairWallet("Phantom", client.CapabilitySignIn, priv)

	registry := client.NewRegistry([]string{"Phantom"})
	c := client.New(registry, client.Config{
		Challenge:   testInput("app.example.com"),
		CallbackURL: server.URL,
	})

	var transitions []client.FlowState
	flow := client.NewFlow(c, registry, func(s client.FlowState) {
		transitions = append(transitions, s)
	})
	t.Cleanup(flow.Close)

	return flow, wallet, registry, &transitions
}

func TestFlowStartsLoading(t *testing.T) {
	flow, _, _, _ := newFlowFixture(t)
	require.Equal(t, client.StateLoading, flow.State())
	require.Empty(t, flow.Wallets())
}

func TestFlowDiscoveryReady(t *testing.T) {
	flow, wallet, registry, transitions := newFlowFixture(t)

	registry.Register(wallet)

	require.Equal(t, client.StateWalletList, flow.State())
	require.Len(t, flow.Wallets(), 1)
	require.Equal(t, []client.FlowState{client.StateWalletList}, *transitions)
}

func TestFlowSeesWalletsRegisteredBeforeSubscribe(t *testing.T) {
	registry := client.NewRegistry([]string{"Phantom"})
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	registry.Register(client.NewKeypairWallet("Phantom", client.CapabilitySignIn, priv))

	flow := client.NewFlow(client.New(registry, client.Config{}), registry, nil)
	defer flow.Close()

	require.Equal(t, client.StateWalletList, flow.State())
}

func TestFlowSuccess(t *testing.T) {
	flow, wallet, registry, transitions := newFlowFixture(t)
	registry.Register(wallet)

	flow.Select(context.Background(), "Phantom")

	require.Equal(t, client.StateDone, flow.State())
	require.Equal(t, "https://app.example.com/#tokens", flow.RedirectURL())
	require.Equal(t, []client.FlowState{
		client.StateWalletList,
		client.StateConnecting,
		client.StateDone,
	}, *transitions)
}

func TestFlowCancellationReturnsToWalletList(t *testing.T) {
	flow, wallet, registry, _ := newFlowFixture(t)
	registry.Register(wallet)

	wallet.RejectNext = true
	flow.Select(context.Background(), "Phantom")

	require.Equal(t, client.StateWalletList, flow.State(), "cancellation re-enables the wallet list")
	require.ErrorIs(t, flow.Err(), client.ErrUserCancelled)

	// A second attempt still works.
	flow.Select(context.Background(), "Phantom")
	require.Equal(t, client.StateDone, flow.State())
}

func TestFlowFailureAndRetry(t *testing.T) {
	flow, _, registry, _ := newFlowFixture(t)
	registry.Register(&stubWallet{name: "Phantom Pro", capability: client.CapabilityNone})

	flow.Select(context.Background(), "Phantom Pro")

	require.Equal(t, client.StateError, flow.State())
	require.ErrorIs(t, flow.Err(), client.ErrUnsupportedWallet)

	flow.Retry()
	require.Equal(t, client.StateWalletList, flow.State())
	require.NoError(t, flow.Err())
}

func TestFlowSelectIgnoredOutsideWalletList(t *testing.T) {
	flow, _, _, _ := newFlowFixture(t)

	// Still loading: selection is a no-op.
	flow.Select(context.Background(), "Phantom")
	require.Equal(t, client.StateLoading, flow.State())

	// Retry outside the error state is a no-op too.
	flow.Retry()
	require.Equal(t, client.StateLoading, flow.State())
}
