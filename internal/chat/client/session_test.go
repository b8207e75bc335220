package client

import (
	"context"
	"testing"
	"time"

	"legal_marketplace_service/internal/chat/domain"
	"legal_marketplace_service/pkg/apperr"
	"legal_marketplace_service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.SetNewNop()
	m.Run()
}

const (
	selfID = "aaaa-member"
	peerID = "bbbb-member"
)

func newTestSession(t *testing.T) (*ChatSession, *fakeBusConn, *fakeHistoryAPI) {
	t.Helper()
	conn := newFakeBusConn()
	api := newFakeHistoryAPI(selfID)
	sess, err := NewChatSession(selfID, peerID, conn, api)
	require.NoError(t, err)
	return sess, conn, api
}

func TestSessionOpenSeedsHistory(t *testing.T) {
	sess, conn, api := newTestSession(t)
	roomID := sess.RoomID()

	api.seed(domain.Message{ID: "m2", ChatRoomID: roomID, SenderID: peerID, ReceiverID: selfID, Content: "second", Timestamp: 200})
	api.seed(domain.Message{ID: "m1", ChatRoomID: roomID, SenderID: selfID, ReceiverID: peerID, Content: "first", Timestamp: 100})

	require.NoError(t, sess.Open(context.Background()))

	assert.Equal(t, Joined, sess.State())
	assert.Equal(t, []string{roomID}, conn.joinedRooms())

	msgs := sess.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
	assert.Equal(t, "second", msgs[1].Content)
}

func TestSessionSendEchoNotDuplicated(t *testing.T) {
	sess, _, _ := newTestSession(t)
	require.NoError(t, sess.Open(context.Background()))

	stored, err := sess.Send(context.Background(), "hello")
	require.NoError(t, err)
	require.NotNil(t, stored)

	// the bus echo of the confirmed message arrives after the append
	// response
	sess.HandlePush(stored)

	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, stored.ID, msgs[0].ID)
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestSessionSendEchoBeforeConfirm(t *testing.T) {
	sess, _, api := newTestSession(t)
	require.NoError(t, sess.Open(context.Background()))

	// echo lands between the optimistic insert and the append response:
	// simulate by pushing the message the fake will confirm next
	echo := domain.Message{
		ID:         "srv-1",
		ChatRoomID: sess.RoomID(),
		SenderID:   selfID,
		ReceiverID: peerID,
		Content:    "hello",
		Timestamp:  1001,
	}
	api.appendFn = func() error {
		go sess.HandlePush(&echo)
		return nil
	}

	stored, err := sess.Send(context.Background(), "hello")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		msgs := sess.Messages()
		return len(msgs) == 1 && msgs[0].ID == stored.ID
	}, time.Second, 10*time.Millisecond)
}

func TestSessionSendFailureKeepsProvisional(t *testing.T) {
	sess, _, api := newTestSession(t)
	require.NoError(t, sess.Open(context.Background()))

	api.appendFn = func() error { return apperr.Transport(assert.AnError) }

	_, err := sess.Send(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, apperr.IsTransport(err))

	// the optimistic entry stays visible for a manual retry
	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].ID, "pending-")
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestSessionSendEmptyContent(t *testing.T) {
	sess, _, _ := newTestSession(t)
	require.NoError(t, sess.Open(context.Background()))

	_, err := sess.Send(context.Background(), "")
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, sess.Messages())
}

func TestSessionPushIgnoredWhenClosed(t *testing.T) {
	sess, _, _ := newTestSession(t)
	require.NoError(t, sess.Open(context.Background()))
	sess.Close()

	sess.HandlePush(&domain.Message{ID: "m1", ChatRoomID: sess.RoomID(), Content: "late", Timestamp: 1})
	assert.Empty(t, sess.Messages())
	assert.Equal(t, Disconnected, sess.State())
}

func TestSessionPushKeepsDisplayOrder(t *testing.T) {
	sess, _, _ := newTestSession(t)
	require.NoError(t, sess.Open(context.Background()))

	sess.HandlePush(&domain.Message{ID: "m2", ChatRoomID: sess.RoomID(), Content: "b", Timestamp: 200})
	sess.HandlePush(&domain.Message{ID: "m1", ChatRoomID: sess.RoomID(), Content: "a", Timestamp: 100})

	msgs := sess.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Content)
	assert.Equal(t, "b", msgs[1].Content)
}

func TestSessionScrollCallbackOnNewMessageOnly(t *testing.T) {
	sess, _, _ := newTestSession(t)
	require.NoError(t, sess.Open(context.Background()))

	calls := 0
	sess.ScrollToLatest = func() { calls++ }

	msg := domain.Message{ID: "m1", ChatRoomID: sess.RoomID(), Content: "hi", Timestamp: 1}
	sess.HandlePush(&msg)
	sess.HandlePush(&msg) // duplicate, no scroll

	assert.Equal(t, 1, calls)
}

func TestSessionTypingIndicator(t *testing.T) {
	sess, _, _ := newTestSession(t)
	require.NoError(t, sess.Open(context.Background()))

	assert.Empty(t, sess.TypingIndicator())

	sess.HandleTyping(&domain.TypingNotice{ChatRoomID: sess.RoomID(), FromID: peerID, DisplayName: "Jordan Lee"})
	assert.Equal(t, "Jordan Lee", sess.TypingIndicator())
}

func TestSessionClearEmptiesLocalView(t *testing.T) {
	sess, _, _ := newTestSession(t)
	require.NoError(t, sess.Open(context.Background()))

	_, err := sess.Send(context.Background(), "doomed")
	require.NoError(t, err)
	require.Len(t, sess.Messages(), 1)

	require.NoError(t, sess.Clear(context.Background()))
	assert.Empty(t, sess.Messages())

	// the room starts fresh afterwards
	stored, err := sess.Send(context.Background(), "fresh start")
	require.NoError(t, err)
	msgs := sess.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, stored.ID, msgs[0].ID)
}

func TestSessionSamePairSameRoom(t *testing.T) {
	conn := newFakeBusConn()
	api := newFakeHistoryAPI(selfID)

	a, err := NewChatSession(selfID, peerID, conn, api)
	require.NoError(t, err)
	b, err := NewChatSession(peerID, selfID, conn, api)
	require.NoError(t, err)

	assert.Equal(t, a.RoomID(), b.RoomID())
}
