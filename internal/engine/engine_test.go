package engine

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"signclient/internal/crypto"
	"signclient/internal/domain"
	"signclient/internal/expirer"
	"signclient/internal/heartbeat"
	"signclient/internal/history"
	"signclient/internal/jsonrpc"
	"signclient/internal/relay"
	"signclient/internal/store"
	"signclient/internal/uri"
)

var (
	required = domain.Namespaces{
		"eip155": {Chains: []string{"eip155:1"}, Methods: []string{"eth_sign"}, Events: []string{"chainChanged"}},
	}
	granted = domain.Namespaces{
		"eip155": {
			Chains:  []string{"eip155:1", "eip155:10"},
			Methods: []string{"eth_sign", "personal_sign"},
			Events:  []string{"chainChanged", "accountsChanged"},
		},
	}
	dappMetadata   = domain.Metadata{Name: "dapp", URL: "https://dapp.example"}
	walletMetadata = domain.Metadata{Name: "wallet", URL: "https://wallet.example"}
)

var allEvents = []EventName{
	EventSessionProposal, EventSessionUpdate, EventSessionExtend, EventSessionPing,
	EventPairingPing, EventSessionDelete, EventPairingDelete, EventSessionExpire,
	EventPairingExpire, EventSessionRequest, EventSessionEvent, EventProposalExpire,
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type peer struct {
	*Engine
	relay     *relay.Local
	crypto    *crypto.Provider
	keychain  *crypto.Keychain
	expirer   *expirer.Expirer
	history   *history.History
	heartbeat *heartbeat.Heartbeat
	storage   domain.Storage
	events    map[EventName]chan Event
}

func newPeer(t *testing.T, hub *relay.Hub, clk *clock, metadata domain.Metadata, storage domain.Storage) *peer {
	t.Helper()
	ctx := context.Background()
	log := zaptest.NewLogger(t).Named(metadata.Name)

	keychain := crypto.NewKeychain(storage)
	p := &peer{
		relay:     relay.NewLocal(hub, log),
		crypto:    crypto.New(keychain, log),
		keychain:  keychain,
		heartbeat: heartbeat.New(time.Hour),
		history:   history.New(storage, log),
		storage:   storage,
		events:    map[EventName]chan Event{},
	}
	p.expirer = expirer.New(storage, p.heartbeat, expirer.WithClock(clk.Now), expirer.WithLogger(log))
	deps := Deps{
		Crypto:    p.crypto,
		Relayer:   p.relay,
		Pairings:  store.New(storage, log, "pairing", func(v domain.Pairing) string { return v.Topic }),
		Sessions:  store.New(storage, log, "session", func(v domain.Session) string { return v.Topic }),
		Proposals: store.New(storage, log, "proposal", func(v domain.Proposal) int64 { return v.ID }),
		History:   p.history,
		Expirer:   p.expirer,
	}
	require.NoError(t, p.crypto.Init(ctx))
	require.NoError(t, deps.Pairings.Init(ctx))
	require.NoError(t, deps.Sessions.Init(ctx))
	require.NoError(t, deps.Proposals.Init(ctx))
	require.NoError(t, p.history.Init(ctx))
	require.NoError(t, p.expirer.Init(ctx))

	p.Engine = New(deps, metadata, WithLogger(log), WithClock(clk.Now))
	for _, name := range allEvents {
		ch := make(chan Event, 64)
		p.events[name] = ch
		p.On(name, func(ev Event) { ch <- ev })
	}
	require.NoError(t, p.Init(ctx))
	t.Cleanup(func() {
		p.Close()
		_ = p.relay.Close()
	})
	return p
}

func (p *peer) wait(t *testing.T, name EventName) Event {
	t.Helper()
	select {
	case ev := <-p.events[name]:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", name)
		return Event{}
	}
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

type pair struct {
	dapp, wallet *peer
	clock        *clock
	hub          *relay.Hub
}

func newPair(t *testing.T) *pair {
	hub := relay.NewHub()
	clk := &clock{now: time.Now()}
	return &pair{
		dapp:   newPeer(t, hub, clk, dappMetadata, store.NewMemoryStorage()),
		wallet: newPeer(t, hub, clk, walletMetadata, store.NewMemoryStorage()),
		clock:  clk,
		hub:    hub,
	}
}

// settle runs connect, pair and approve and returns both sides' sessions.
func (x *pair) settle(t *testing.T) (dappSession, walletSession domain.Session) {
	t.Helper()
	ctx := testContext(t)

	res, err := x.dapp.Connect(ctx, ConnectParams{RequiredNamespaces: required})
	require.NoError(t, err)
	_, err = x.wallet.Pair(ctx, PairParams{URI: res.URI})
	require.NoError(t, err)

	ev := x.wallet.wait(t, EventSessionProposal)
	approved, err := x.wallet.Approve(ctx, ApproveParams{ID: ev.ID, Namespaces: granted})
	require.NoError(t, err)

	dappSession, err = res.Approval.Wait(ctx)
	require.NoError(t, err)
	walletSession, err = approved.Acknowledged.Wait(ctx)
	require.NoError(t, err)
	return dappSession, walletSession
}

func TestConnectCreatesPendingPairing(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)

	res, err := x.dapp.Connect(ctx, ConnectParams{RequiredNamespaces: required})
	require.NoError(t, err)
	require.NotNil(t, res.Approval)

	params, err := uri.Parse(res.URI)
	require.NoError(t, err)
	pairings := x.dapp.Pairings()
	require.Len(t, pairings, 1)
	assert.Equal(t, pairings[0].Topic, params.Topic)
	assert.False(t, pairings[0].Active)
	assert.Equal(t, domain.CalcExpiry(x.clock.Now(), domain.PendingPairingTTL), pairings[0].Expiry)
	assert.Equal(t, domain.DefaultRelayProtocol, params.Relay.Protocol)
	assert.Len(t, params.SymKey, 64)

	proposals := x.dapp.Proposals()
	require.Len(t, proposals, 1)
	assert.Equal(t, params.Topic, proposals[0].PairingTopic)
	assert.Equal(t, required, proposals[0].RequiredNamespaces)
	assert.True(t, x.dapp.expirer.Has(expirer.Topic(params.Topic)))
	assert.True(t, x.dapp.expirer.Has(expirer.ID(proposals[0].ID)))

	// The proposal waits on the relay until someone pairs.
	assert.Equal(t, 1, x.hub.Retained(params.Topic))
}

func TestPairRejectsBadAndDuplicateURIs(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)

	_, err := x.wallet.Pair(ctx, PairParams{URI: "wc:nope"})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)

	res, err := x.dapp.Connect(ctx, ConnectParams{RequiredNamespaces: required})
	require.NoError(t, err)
	pairing, err := x.wallet.Pair(ctx, PairParams{URI: res.URI})
	require.NoError(t, err)
	assert.False(t, pairing.Active)
	assert.Equal(t, domain.CalcExpiry(x.clock.Now(), domain.PendingPairingTTL), pairing.Expiry)

	_, err = x.wallet.Pair(ctx, PairParams{URI: res.URI})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)
}

func TestSessionSettlement(t *testing.T) {
	x := newPair(t)
	dappSession, walletSession := x.settle(t)

	pairings := x.dapp.Pairings()
	require.Len(t, pairings, 1)
	pairingTopic := pairings[0].Topic

	assert.NotEqual(t, pairingTopic, dappSession.Topic)
	assert.Equal(t, walletSession.Topic, dappSession.Topic)
	assert.Equal(t, walletSession.Self.PublicKey, dappSession.Peer.PublicKey)
	assert.Equal(t, dappSession.Self.PublicKey, walletSession.Peer.PublicKey)
	assert.Equal(t, walletSession.Self.PublicKey, dappSession.Controller)
	assert.True(t, dappSession.Acknowledged)
	assert.True(t, walletSession.Acknowledged)
	assert.Equal(t, granted, dappSession.Namespaces)
	assert.Equal(t, required, dappSession.RequiredNamespaces)
	assert.Equal(t, walletMetadata, dappSession.Peer.Metadata)
	assert.Equal(t, dappMetadata, walletSession.Peer.Metadata)

	activeExpiry := domain.CalcExpiry(x.clock.Now(), domain.ActivePairingTTL)
	for _, p := range []*peer{x.dapp, x.wallet} {
		pairings := p.Pairings()
		require.Len(t, pairings, 1)
		assert.True(t, pairings[0].Active)
		assert.Equal(t, activeExpiry, pairings[0].Expiry)
		require.NotNil(t, pairings[0].PeerMetadata)
		assert.Empty(t, p.Proposals())
		assert.Len(t, p.Sessions(), 1)

		rec, err := p.expirer.Get(expirer.Topic(dappSession.Topic))
		require.NoError(t, err)
		assert.Equal(t, walletSession.Expiry, rec.Expiry)
	}
	assert.Equal(t, walletMetadata, *x.dapp.Pairings()[0].PeerMetadata)
	assert.Equal(t, dappMetadata, *x.wallet.Pairings()[0].PeerMetadata)
}

func TestRejectFailsApproval(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)

	res, err := x.dapp.Connect(ctx, ConnectParams{RequiredNamespaces: required})
	require.NoError(t, err)
	_, err = x.wallet.Pair(ctx, PairParams{URI: res.URI})
	require.NoError(t, err)
	ev := x.wallet.wait(t, EventSessionProposal)

	require.ErrorIs(t, x.wallet.Reject(ctx, RejectParams{ID: ev.ID}), domain.ErrMissingOrInvalid)
	require.NoError(t, x.wallet.Reject(ctx, RejectParams{ID: ev.ID, Reason: domain.ReasonUserRejected}))
	assert.Empty(t, x.wallet.Proposals())

	_, err = res.Approval.Wait(ctx)
	var reason domain.ErrorReason
	require.ErrorAs(t, err, &reason)
	assert.Equal(t, domain.ReasonUserRejected, reason)
	assert.Eventually(t, func() bool { return len(x.dapp.Proposals()) == 0 }, time.Second, 10*time.Millisecond)

	_, err = x.wallet.Approve(ctx, ApproveParams{ID: ev.ID, Namespaces: granted})
	require.ErrorIs(t, err, domain.ErrNoMatchingID)
}

func TestApproveRequiresSatisfyingNamespaces(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)

	res, err := x.dapp.Connect(ctx, ConnectParams{RequiredNamespaces: required})
	require.NoError(t, err)
	_, err = x.wallet.Pair(ctx, PairParams{URI: res.URI})
	require.NoError(t, err)
	ev := x.wallet.wait(t, EventSessionProposal)

	partial := domain.Namespaces{"eip155": {Chains: []string{"eip155:1"}, Methods: []string{"personal_sign"}}}
	_, err = x.wallet.Approve(ctx, ApproveParams{ID: ev.ID, Namespaces: partial})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)
	assert.Len(t, x.wallet.Proposals(), 1)
	assert.Empty(t, x.wallet.Sessions())
}

func TestConnectReusesOnlyActivePairing(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	x.settle(t)
	active := x.dapp.Pairings()[0].Topic

	res, err := x.dapp.Connect(ctx, ConnectParams{RequiredNamespaces: required, PairingTopic: active})
	require.NoError(t, err)
	assert.Empty(t, res.URI)
	ev := x.wallet.wait(t, EventSessionProposal)
	assert.Equal(t, active, ev.Topic)

	// A pending pairing is never reused.
	pending, err := x.dapp.Connect(ctx, ConnectParams{RequiredNamespaces: required})
	require.NoError(t, err)
	params, err := uri.Parse(pending.URI)
	require.NoError(t, err)
	again, err := x.dapp.Connect(ctx, ConnectParams{RequiredNamespaces: required, PairingTopic: params.Topic})
	require.NoError(t, err)
	require.NotEmpty(t, again.URI)
	assert.NotEqual(t, pending.URI, again.URI)

	_, err = x.dapp.Connect(ctx, ConnectParams{RequiredNamespaces: required, PairingTopic: "unknown"})
	require.ErrorIs(t, err, domain.ErrNoMatchingTopic)
	_, err = x.dapp.Connect(ctx, ConnectParams{})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)
}

func TestUpdateAndExtend(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	session, _ := x.settle(t)

	wider := domain.Namespaces{
		"eip155": granted["eip155"],
		"cosmos": {Chains: []string{"cosmos:cosmoshub-4"}, Methods: []string{"cosmos_signDirect"}},
	}
	ack, err := x.wallet.Update(ctx, UpdateParams{Topic: session.Topic, Namespaces: wider})
	require.NoError(t, err)
	_, err = ack.Wait(ctx)
	require.NoError(t, err)
	ev := x.dapp.wait(t, EventSessionUpdate)
	assert.Equal(t, wider, ev.Params)
	assert.Equal(t, wider, x.dapp.Sessions()[0].Namespaces)

	// Dropping a required method is refused before anything is sent.
	narrower := domain.Namespaces{"eip155": {Chains: []string{"eip155:1"}, Methods: []string{"personal_sign"}, Events: []string{"chainChanged"}}}
	_, err = x.wallet.Update(ctx, UpdateParams{Topic: session.Topic, Namespaces: narrower})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)
	assert.Equal(t, wider, x.wallet.Sessions()[0].Namespaces)

	_, err = x.dapp.Update(ctx, UpdateParams{Topic: session.Topic, Namespaces: wider})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)

	x.clock.Advance(time.Hour)
	extended, err := x.wallet.Extend(ctx, ExtendParams{Topic: session.Topic})
	require.NoError(t, err)
	_, err = extended.Wait(ctx)
	require.NoError(t, err)
	x.dapp.wait(t, EventSessionExtend)

	want := domain.CalcExpiry(x.clock.Now(), domain.SessionTTL)
	assert.Equal(t, want, x.wallet.Sessions()[0].Expiry)
	assert.Equal(t, want, x.dapp.Sessions()[0].Expiry)
	rec, err := x.dapp.expirer.Get(expirer.Topic(session.Topic))
	require.NoError(t, err)
	assert.Equal(t, want, rec.Expiry)

	_, err = x.dapp.Extend(ctx, ExtendParams{Topic: session.Topic})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)
}

func TestUpdateRestoresNamespacesWhenSendFails(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	session, _ := x.settle(t)

	// Without the topic key the request cannot be encoded.
	require.NoError(t, x.wallet.crypto.DeleteSymKey(ctx, session.Topic))
	wider := domain.Namespaces{
		"eip155": granted["eip155"],
		"cosmos": {Chains: []string{"cosmos:cosmoshub-4"}, Methods: []string{"cosmos_signDirect"}},
	}
	_, err := x.wallet.Update(ctx, UpdateParams{Topic: session.Topic, Namespaces: wider})
	require.ErrorIs(t, err, domain.ErrNoMatchingTopic)
	assert.Equal(t, granted, x.wallet.Sessions()[0].Namespaces)
	assert.Empty(t, x.wallet.PendingRequests())
}

func TestRequestRespond(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	session, _ := x.settle(t)

	type reply struct {
		raw json.RawMessage
		err error
	}
	call := func(method string) <-chan reply {
		out := make(chan reply, 1)
		go func() {
			raw, err := x.dapp.Request(ctx, RequestParams{
				Topic:   session.Topic,
				ChainID: "eip155:1",
				Request: domain.RequestArguments{Method: method, Params: json.RawMessage(`["0xabc","hello"]`)},
			})
			out <- reply{raw, err}
		}()
		return out
	}

	pending := call("eth_sign")
	ev := x.wallet.wait(t, EventSessionRequest)
	req := ev.Params.(SessionRequest)
	assert.Equal(t, "eth_sign", req.Request.Method)
	assert.Equal(t, "eip155:1", req.ChainID)
	assert.Len(t, x.wallet.PendingRequests(), 1)

	res, err := jsonrpc.FormatResult(ev.ID, "0xsignature")
	require.NoError(t, err)
	require.NoError(t, x.wallet.Respond(ctx, RespondParams{Topic: session.Topic, Response: res}))
	got := <-pending
	require.NoError(t, got.err)
	assert.JSONEq(t, `"0xsignature"`, string(got.raw))
	assert.Empty(t, x.wallet.PendingRequests())

	// A request is answered once.
	require.ErrorIs(t, x.wallet.Respond(ctx, RespondParams{Topic: session.Topic, Response: res}), domain.ErrMissingOrInvalid)

	pending = call("personal_sign")
	ev = x.wallet.wait(t, EventSessionRequest)
	refusal := jsonrpc.FormatError(ev.ID, domain.ReasonUserRejected)
	require.NoError(t, x.wallet.Respond(ctx, RespondParams{Topic: session.Topic, Response: refusal}))
	got = <-pending
	var reason domain.ErrorReason
	require.ErrorAs(t, got.err, &reason)
	assert.Equal(t, domain.ReasonUserRejected, reason)

	_, err = x.dapp.Request(ctx, RequestParams{
		Topic:   session.Topic,
		ChainID: "eip155:1",
		Request: domain.RequestArguments{Method: "eth_sendTransaction"},
	})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)
	_, err = x.dapp.Request(ctx, RequestParams{
		Topic:   session.Topic,
		ChainID: "eip155:5",
		Request: domain.RequestArguments{Method: "eth_sign"},
	})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)

	unknown, err := jsonrpc.FormatResult(12345, true)
	require.NoError(t, err)
	require.ErrorIs(t, x.wallet.Respond(ctx, RespondParams{Topic: session.Topic, Response: unknown}), domain.ErrNoMatchingID)
}

func TestRequestHonoursCancellation(t *testing.T) {
	x := newPair(t)
	session, _ := x.settle(t)

	ctx, cancel := context.WithTimeout(testContext(t), 50*time.Millisecond)
	defer cancel()
	_, err := x.dapp.Request(ctx, RequestParams{
		Topic:   session.Topic,
		ChainID: "eip155:1",
		Request: domain.RequestArguments{Method: "eth_sign"},
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	x.wallet.wait(t, EventSessionRequest)
}

func TestPingAndEmit(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	session, _ := x.settle(t)
	pairingTopic := x.dapp.Pairings()[0].Topic

	require.NoError(t, x.dapp.Ping(ctx, PingParams{Topic: session.Topic}))
	assert.Equal(t, session.Topic, x.wallet.wait(t, EventSessionPing).Topic)
	require.NoError(t, x.wallet.Ping(ctx, PingParams{Topic: session.Topic}))
	x.dapp.wait(t, EventSessionPing)

	require.NoError(t, x.dapp.Ping(ctx, PingParams{Topic: pairingTopic}))
	assert.Equal(t, pairingTopic, x.wallet.wait(t, EventPairingPing).Topic)

	require.ErrorIs(t, x.dapp.Ping(ctx, PingParams{Topic: "unknown"}), domain.ErrNoMatchingTopic)

	event := domain.SessionEvent{Name: "accountsChanged", Data: json.RawMessage(`["0xabc"]`)}
	require.NoError(t, x.wallet.Emit(ctx, EmitParams{Topic: session.Topic, ChainID: "eip155:10", Event: event}))
	ev := x.dapp.wait(t, EventSessionEvent)
	got := ev.Params.(SessionEvent)
	assert.Equal(t, "eip155:10", got.ChainID)
	assert.Equal(t, event.Name, got.Event.Name)
	assert.JSONEq(t, `["0xabc"]`, string(got.Event.Data))

	err := x.wallet.Emit(ctx, EmitParams{Topic: session.Topic, ChainID: "eip155:1", Event: domain.SessionEvent{Name: "disconnect"}})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)
}

func TestDisconnectTearsDownBothPeers(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	session, walletSession := x.settle(t)
	require.True(t, x.dapp.keychain.Has(session.Self.PublicKey))
	require.True(t, x.wallet.keychain.Has(walletSession.Self.PublicKey))

	reason := domain.ErrorReason{Code: 6000, Message: "User disconnected"}
	require.NoError(t, x.wallet.Disconnect(ctx, DisconnectParams{Topic: session.Topic, Reason: &reason}))
	ev := x.dapp.wait(t, EventSessionDelete)
	assert.Equal(t, reason, ev.Params)

	for _, p := range []*peer{x.dapp, x.wallet} {
		assert.Empty(t, p.Sessions())
		assert.False(t, p.expirer.Has(expirer.Topic(session.Topic)))
		_, err := p.crypto.Encode(session.Topic, struct{}{})
		require.ErrorIs(t, err, domain.ErrNoMatchingTopic)
		assert.False(t, p.relay.Subscribed(session.Topic))
		require.ErrorIs(t, p.Ping(ctx, PingParams{Topic: session.Topic}), domain.ErrNoMatchingTopic)
		assert.Len(t, p.Pairings(), 1)
	}
	assert.False(t, x.dapp.keychain.Has(session.Self.PublicKey))
	assert.False(t, x.wallet.keychain.Has(walletSession.Self.PublicKey))
}

func TestDisconnectPairingWithDefaultReason(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	x.settle(t)
	topic := x.dapp.Pairings()[0].Topic

	require.NoError(t, x.dapp.Disconnect(ctx, DisconnectParams{Topic: topic}))
	ev := x.wallet.wait(t, EventPairingDelete)
	reason := ev.Params.(domain.ErrorReason)
	assert.Equal(t, 6000, reason.Code)
	assert.Empty(t, x.dapp.Pairings())
	assert.Empty(t, x.wallet.Pairings())
	assert.Len(t, x.wallet.Sessions(), 1)

	require.ErrorIs(t, x.dapp.Disconnect(ctx, DisconnectParams{Topic: topic}), domain.ErrNoMatchingTopic)
}

func TestSessionExpiresOnHeartbeat(t *testing.T) {
	x := newPair(t)
	session, _ := x.settle(t)

	var fired atomic.Int32
	x.wallet.On(EventSessionExpire, func(Event) { fired.Add(1) })

	x.clock.Advance(domain.SessionTTL + time.Second)
	x.wallet.heartbeat.Pulse()
	x.wallet.heartbeat.Pulse()

	assert.Equal(t, int32(1), fired.Load())
	assert.Equal(t, session.Topic, x.wallet.wait(t, EventSessionExpire).Topic)
	assert.Empty(t, x.wallet.Sessions())
	assert.False(t, x.wallet.relay.Subscribed(session.Topic))
	_, err := x.wallet.expirer.Get(expirer.Topic(session.Topic))
	require.ErrorIs(t, err, domain.ErrNoMatchingID)
}

func TestLapsedSessionIsTornDownOnAccess(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	session, _ := x.settle(t)

	x.clock.Advance(domain.SessionTTL)
	require.ErrorIs(t, x.dapp.Ping(ctx, PingParams{Topic: session.Topic}), domain.ErrExpired)
	assert.Empty(t, x.dapp.Sessions())
	assert.False(t, x.dapp.expirer.Has(expirer.Topic(session.Topic)))
	require.ErrorIs(t, x.dapp.Ping(ctx, PingParams{Topic: session.Topic}), domain.ErrNoMatchingTopic)
}

func TestProposalExpiryFailsApproval(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)

	res, err := x.dapp.Connect(ctx, ConnectParams{RequiredNamespaces: required})
	require.NoError(t, err)

	x.clock.Advance(domain.ProposalTTL)
	x.dapp.heartbeat.Pulse()

	_, err = res.Approval.Wait(ctx)
	require.ErrorIs(t, err, domain.ErrExpired)
	x.dapp.wait(t, EventProposalExpire)
	x.dapp.wait(t, EventPairingExpire)
	assert.Empty(t, x.dapp.Proposals())
	assert.Empty(t, x.dapp.Pairings())
	assert.Zero(t, x.dapp.expirer.Len())
}

func TestInvalidInboundRequestGetsErrorReply(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	session, _ := x.settle(t)

	req, err := jsonrpc.FormatRequest(domain.MethodSessionRequest, domain.SessionRequestParams{
		Request: domain.RequestArguments{Method: "eth_sign"},
		ChainID: "eip155:999",
	})
	require.NoError(t, err)
	ack := x.dapp.expectAck(req.Method, req.ID)
	require.NoError(t, x.dapp.sendRequest(ctx, session.Topic, req, ""))

	_, err = ack.Wait(ctx)
	var reason domain.ErrorReason
	require.ErrorAs(t, err, &reason)
	assert.Equal(t, 1000, reason.Code)
	assert.Empty(t, x.wallet.events[EventSessionRequest])

	// The wallet keeps serving the session.
	require.NoError(t, x.dapp.Ping(ctx, PingParams{Topic: session.Topic}))
}

func TestDuplicateInboundRequestIsIgnored(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	session, _ := x.settle(t)

	var pings atomic.Int32
	x.wallet.On(EventSessionPing, func(Event) { pings.Add(1) })

	req, err := jsonrpc.FormatRequest(domain.MethodSessionPing, struct{}{})
	require.NoError(t, err)
	msg, err := x.dapp.crypto.Encode(session.Topic, req)
	require.NoError(t, err)
	require.NoError(t, x.dapp.relay.Publish(ctx, session.Topic, msg))
	require.NoError(t, x.dapp.relay.Publish(ctx, session.Topic, msg))

	x.wallet.wait(t, EventSessionPing)
	assert.Never(t, func() bool { return pings.Load() > 1 }, 200*time.Millisecond, 20*time.Millisecond)
}

func TestFind(t *testing.T) {
	x := newPair(t)
	session, _ := x.settle(t)

	found, err := x.dapp.Find(FindParams{RequiredNamespaces: required})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, session.Topic, found[0].Topic)

	found, err = x.dapp.Find(FindParams{RequiredNamespaces: domain.Namespaces{
		"eip155": {Chains: []string{"eip155:137"}},
	}})
	require.NoError(t, err)
	assert.Empty(t, found)

	_, err = x.dapp.Find(FindParams{})
	require.ErrorIs(t, err, domain.ErrMissingOrInvalid)
}

func TestRestartRestoresSessions(t *testing.T) {
	x := newPair(t)
	ctx := testContext(t)
	session, _ := x.settle(t)

	x.wallet.Close()
	require.NoError(t, x.wallet.relay.Close())
	restarted := newPeer(t, x.hub, x.clock, walletMetadata, x.wallet.storage)

	require.Len(t, restarted.Sessions(), 1)
	assert.True(t, restarted.relay.Subscribed(session.Topic))
	assert.True(t, restarted.expirer.Has(expirer.Topic(session.Topic)))
	require.NoError(t, x.dapp.Ping(ctx, PingParams{Topic: session.Topic}))
	restarted.wait(t, EventSessionPing)
}

func TestInitDropsLapsedEntities(t *testing.T) {
	x := newPair(t)
	session, _ := x.settle(t)

	x.dapp.Close()
	require.NoError(t, x.dapp.relay.Close())
	x.clock.Advance(domain.ActivePairingTTL)
	restarted := newPeer(t, x.hub, x.clock, dappMetadata, x.dapp.storage)

	assert.Empty(t, restarted.Sessions())
	assert.Empty(t, restarted.Pairings())
	assert.False(t, restarted.relay.Subscribed(session.Topic))
	_, err := restarted.crypto.Encode(session.Topic, struct{}{})
	require.ErrorIs(t, err, domain.ErrNoMatchingTopic)
}

func TestOperationsRequireInit(t *testing.T) {
	storage := store.NewMemoryStorage()
	hb := heartbeat.New(time.Hour)
	e := New(Deps{
		Crypto:    crypto.New(crypto.NewKeychain(storage), nil),
		Relayer:   relay.NewLocal(relay.NewHub(), nil),
		Pairings:  store.New(storage, nil, "pairing", func(v domain.Pairing) string { return v.Topic }),
		Sessions:  store.New(storage, nil, "session", func(v domain.Session) string { return v.Topic }),
		Proposals: store.New(storage, nil, "proposal", func(v domain.Proposal) int64 { return v.ID }),
		History:   history.New(storage, nil),
		Expirer:   expirer.New(storage, hb),
	}, dappMetadata)
	ctx := testContext(t)

	_, err := e.Connect(ctx, ConnectParams{RequiredNamespaces: required})
	require.ErrorIs(t, err, domain.ErrNotInitialized)
	_, err = e.Pair(ctx, PairParams{URI: "wc:x"})
	require.ErrorIs(t, err, domain.ErrNotInitialized)
	require.ErrorIs(t, e.Ping(ctx, PingParams{Topic: "x"}), domain.ErrNotInitialized)
	_, err = e.Find(FindParams{RequiredNamespaces: required})
	require.ErrorIs(t, err, domain.ErrNotInitialized)
}

func TestPendingWait(t *testing.T) {
	p := newPending[int]()
	p.resolve(1, nil)
	p.resolve(2, nil)
	v, err := p.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	select {
	case <-p.Done():
	default:
		t.Fatal("Done not closed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newPending[int]().Wait(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestWaitersDeliverOnce(t *testing.T) {
	w := newWaiters()
	var calls int
	w.expect("m", 1, func(outcome) { calls++ })
	assert.False(t, w.deliver("m", 2, outcome{}))
	assert.True(t, w.deliver("m", 1, outcome{}))
	assert.False(t, w.deliver("m", 1, outcome{}))
	assert.Equal(t, 1, calls)

	w.expect("m", 3, func(outcome) { calls++ })
	w.cancel("m", 3)
	assert.False(t, w.deliver("m", 3, outcome{}))
}
