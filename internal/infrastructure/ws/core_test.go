package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vaporchat/vapor/internal/domain"
	"github.com/vaporchat/vapor/internal/infrastructure/registry"
	"go.uber.org/zap"
)

type fakeHasher struct{}

func (fakeHasher) Derive(password string) (string, string, error) {
	return "salt", "hash:" + password, nil
}

func (fakeHasher) Verify(password, salt, expectedHash string) bool {
	return expectedHash == "hash:"+password
}

func newTestCore(t *testing.T) (*Core, *registry.Registry) {
	t.Helper()
	reg := registry.New(fakeHasher{}, registry.Options{WipeHistoryOnLeave: true})
	core := NewCore(reg, zap.NewNop().Sugar(), Config{})
	go core.Run()
	t.Cleanup(core.Stop)
	return core, reg
}

// newTestClient skips the websocket; the core only ever touches the send
// channel, so a nil conn is fine for hub-level tests.
func newTestClient(id string) *Client {
	return &Client{ID: id, send: make(chan *Event, 16)}
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func recvEvent(t *testing.T, cl *Client) *Event {
	t.Helper()
	select {
	case ev := <-cl.send:
		require.NotNil(t, ev)
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, cl *Client) {
	t.Helper()
	select {
	case ev := <-cl.send:
		t.Fatalf("unexpected event %q", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func join(t *testing.T, core *Core, cl *Client, roomID, sessionID string) *Event {
	t.Helper()
	core.register <- cl
	core.inbound <- inbound{client: cl, env: Envelope{
		Type: EventJoinRoom,
		Data: mustJSON(t, JoinRoomPayload{RoomID: roomID, SessionID: sessionID}),
	}}
	return recvEvent(t, cl)
}

func TestJoinRoomOK(t *testing.T) {
	t.Parallel()

	core, reg := newTestCore(t)
	res, err := reg.CreateRoom("Atlantis", "p1", "Ada")
	require.NoError(t, err)

	cl := newTestClient("conn-ada")
	ev := join(t, core, cl, res.RoomID, res.SessionID)

	require.Equal(t, EventJoinOK, ev.Type)
	payload, ok := ev.Data.(JoinOKPayload)
	require.True(t, ok)
	assert.Equal(t, res.RoomID, payload.RoomID)
	assert.Equal(t, "Atlantis", payload.RoomName)
	assert.NotNil(t, payload.Messages)
	assert.Empty(t, payload.Messages)
}

func TestJoinRoomError(t *testing.T) {
	t.Parallel()

	core, reg := newTestCore(t)
	res, err := reg.CreateRoom("Atlantis", "p1", "Ada")
	require.NoError(t, err)

	cl := newTestClient("conn-eve")
	ev := join(t, core, cl, res.RoomID, "not-a-session")

	require.Equal(t, EventJoinError, ev.Type)
	payload, ok := ev.Data.(ErrorPayload)
	require.True(t, ok)
	assert.Equal(t, "Invalid room or session", payload.Error)

	// The connection stays open and unbound; a later valid join works.
	core.inbound <- inbound{client: cl, env: Envelope{
		Type: EventJoinRoom,
		Data: mustJSON(t, JoinRoomPayload{RoomID: res.RoomID, SessionID: res.SessionID}),
	}}
	ev = recvEvent(t, cl)
	assert.Equal(t, EventJoinOK, ev.Type)
}

func TestSendMessageFansOutInOrder(t *testing.T) {
	t.Parallel()

	core, reg := newTestCore(t)
	ada, err := reg.CreateRoom("Atlantis", "p1", "Ada")
	require.NoError(t, err)
	bob, err := reg.JoinRoom(ada.RoomID, "", "p1", "Bob")
	require.NoError(t, err)

	clAda := newTestClient("conn-ada")
	clBob := newTestClient("conn-bob")
	require.Equal(t, EventJoinOK, join(t, core, clAda, ada.RoomID, ada.SessionID).Type)
	require.Equal(t, EventJoinOK, join(t, core, clBob, bob.RoomID, bob.SessionID).Type)

	for _, content := range []string{"one", "two", "three"} {
		core.inbound <- inbound{client: clBob, env: Envelope{
			Type: EventSendMessage,
			Data: mustJSON(t, SendMessagePayload{Content: content}),
		}}
	}

	for _, cl := range []*Client{clAda, clBob} {
		for _, want := range []string{"one", "two", "three"} {
			ev := recvEvent(t, cl)
			require.Equal(t, EventMessage, ev.Type)
			msg := ev.Data.(*domain.Message)
			assert.Equal(t, want, msg.Content)
			assert.Equal(t, bob.SessionID, msg.SenderID)
			assert.Equal(t, "Bob", msg.SenderName)
		}
	}
}

func TestSendMessageIgnoredWhenUnbound(t *testing.T) {
	t.Parallel()

	core, _ := newTestCore(t)

	cl := newTestClient("conn-stranger")
	core.register <- cl
	core.inbound <- inbound{client: cl, env: Envelope{
		Type: EventSendMessage,
		Data: mustJSON(t, SendMessagePayload{Content: "hello?"}),
	}}

	assertNoEvent(t, cl)
}

func TestVaporizeBroadcastsCleared(t *testing.T) {
	t.Parallel()

	core, reg := newTestCore(t)
	ada, err := reg.CreateRoom("Atlantis", "p1", "Ada")
	require.NoError(t, err)
	bob, err := reg.JoinRoom(ada.RoomID, "", "p1", "Bob")
	require.NoError(t, err)

	clAda := newTestClient("conn-ada")
	clBob := newTestClient("conn-bob")
	require.Equal(t, EventJoinOK, join(t, core, clAda, ada.RoomID, ada.SessionID).Type)
	require.Equal(t, EventJoinOK, join(t, core, clBob, bob.RoomID, bob.SessionID).Type)

	core.inbound <- inbound{client: clAda, env: Envelope{Type: EventVaporizeHistory}}

	assert.Equal(t, EventMessagesCleared, recvEvent(t, clAda).Type)
	assert.Equal(t, EventMessagesCleared, recvEvent(t, clBob).Type)
}

func TestVaporizeIgnoredWhenUnbound(t *testing.T) {
	t.Parallel()

	core, _ := newTestCore(t)

	cl := newTestClient("conn-stranger")
	core.register <- cl
	core.inbound <- inbound{client: cl, env: Envelope{Type: EventVaporizeHistory}}

	assertNoEvent(t, cl)
}

func TestExitRoomNotifiesAndAcks(t *testing.T) {
	t.Parallel()

	core, reg := newTestCore(t)
	ada, err := reg.CreateRoom("Atlantis", "p1", "Ada")
	require.NoError(t, err)
	bob, err := reg.JoinRoom(ada.RoomID, "", "p1", "Bob")
	require.NoError(t, err)

	clAda := newTestClient("conn-ada")
	clBob := newTestClient("conn-bob")
	require.Equal(t, EventJoinOK, join(t, core, clAda, ada.RoomID, ada.SessionID).Type)
	require.Equal(t, EventJoinOK, join(t, core, clBob, bob.RoomID, bob.SessionID).Type)

	core.inbound <- inbound{client: clBob, env: Envelope{Type: EventExitRoom}}

	// Remaining participant hears the departure and the wipe.
	ev := recvEvent(t, clAda)
	require.Equal(t, EventUserLeft, ev.Type)
	assert.Equal(t, bob.SessionID, ev.Data.(UserLeftPayload).SessionID)
	assert.Equal(t, EventMessagesCleared, recvEvent(t, clAda).Type)

	// The leaver hears the same fan-out, then the ack.
	assert.Equal(t, EventUserLeft, recvEvent(t, clBob).Type)
	assert.Equal(t, EventMessagesCleared, recvEvent(t, clBob).Type)
	assert.Equal(t, EventExitOK, recvEvent(t, clBob).Type)

	rooms, sessions := reg.Counts()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, sessions)
}

func TestDisconnectCleansUpWithoutAck(t *testing.T) {
	t.Parallel()

	core, reg := newTestCore(t)
	ada, err := reg.CreateRoom("Atlantis", "p1", "Ada")
	require.NoError(t, err)
	bob, err := reg.JoinRoom(ada.RoomID, "", "p1", "Bob")
	require.NoError(t, err)

	clAda := newTestClient("conn-ada")
	clBob := newTestClient("conn-bob")
	require.Equal(t, EventJoinOK, join(t, core, clAda, ada.RoomID, ada.SessionID).Type)
	require.Equal(t, EventJoinOK, join(t, core, clBob, bob.RoomID, bob.SessionID).Type)

	core.unregister <- clBob

	assert.Equal(t, EventUserLeft, recvEvent(t, clAda).Type)
	assert.Equal(t, EventMessagesCleared, recvEvent(t, clAda).Type)

	// The dropped client's channel is closed without an exit ack.
	_, open := <-clBob.send
	assert.False(t, open)

	rooms, sessions := reg.Counts()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, sessions)
}

func TestDisconnectBeforeJoinIsSafe(t *testing.T) {
	t.Parallel()

	core, reg := newTestCore(t)

	cl := newTestClient("conn-fleeting")
	core.register <- cl
	core.unregister <- cl

	_, open := <-cl.send
	assert.False(t, open)

	rooms, sessions := reg.Counts()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 0, sessions)
}

func TestUnknownEventIsDropped(t *testing.T) {
	t.Parallel()

	core, reg := newTestCore(t)
	res, err := reg.CreateRoom("Atlantis", "p1", "Ada")
	require.NoError(t, err)

	cl := newTestClient("conn-ada")
	require.Equal(t, EventJoinOK, join(t, core, cl, res.RoomID, res.SessionID).Type)

	core.inbound <- inbound{client: cl, env: Envelope{Type: "reverse-entropy"}}
	assertNoEvent(t, cl)
}
