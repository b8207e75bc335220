package client

import (
	"context"
	"testing"
	"time"

	"legal_marketplace_service/internal/chat/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestController(t *testing.T) (*ChatListController, *fakeBusConn, *fakeHistoryAPI) {
	t.Helper()
	conn := newFakeBusConn()
	api := newFakeHistoryAPI(selfID)
	ctrl := NewChatListController(selfID, conn, api)
	return ctrl, conn, api
}

func roomWith(t *testing.T, peer string) string {
	t.Helper()
	roomID, err := domain.PrivateRoomID(selfID, peer)
	require.NoError(t, err)
	return roomID
}

func TestControllerStartJoinsActiveRooms(t *testing.T) {
	ctrl, conn, api := newTestController(t)

	r1 := roomWith(t, "peer-1")
	r2 := roomWith(t, "peer-2")
	api.rooms = []domain.RoomSummary{
		{ChatRoomID: r1, PeerID: "peer-1", UnreadCount: 2},
		{ChatRoomID: r2, PeerID: "peer-2"},
	}

	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Shutdown()

	assert.ElementsMatch(t, []string{r1, r2}, conn.joinedRooms())

	rooms := ctrl.Rooms()
	require.Len(t, rooms, 2)
}

func TestControllerEvictsLeastRecentlyActivated(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Shutdown()

	s1, err := ctrl.OpenChat(context.Background(), "peer-1")
	require.NoError(t, err)
	_, err = ctrl.OpenChat(context.Background(), "peer-2")
	require.NoError(t, err)
	_, err = ctrl.OpenChat(context.Background(), "peer-3")
	require.NoError(t, err)

	// the fourth window pushes out the oldest one
	_, err = ctrl.OpenChat(context.Background(), "peer-4")
	require.NoError(t, err)

	assert.Equal(t, []string{
		roomWith(t, "peer-2"),
		roomWith(t, "peer-3"),
		roomWith(t, "peer-4"),
	}, ctrl.OpenSessionIDs())

	assert.Equal(t, Disconnected, s1.State())
	assert.Nil(t, ctrl.Session(s1.RoomID()))
}

func TestControllerReopenTouchesActivation(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Shutdown()

	s1, err := ctrl.OpenChat(context.Background(), "peer-1")
	require.NoError(t, err)
	_, err = ctrl.OpenChat(context.Background(), "peer-2")
	require.NoError(t, err)
	_, err = ctrl.OpenChat(context.Background(), "peer-3")
	require.NoError(t, err)

	// re-activating the oldest window saves it from the next eviction
	again, err := ctrl.OpenChat(context.Background(), "peer-1")
	require.NoError(t, err)
	assert.Same(t, s1, again)

	_, err = ctrl.OpenChat(context.Background(), "peer-4")
	require.NoError(t, err)

	assert.Equal(t, []string{
		roomWith(t, "peer-3"),
		roomWith(t, "peer-1"),
		roomWith(t, "peer-4"),
	}, ctrl.OpenSessionIDs())
	assert.Equal(t, Joined, s1.State())
}

func TestControllerRoutesPushToOpenSession(t *testing.T) {
	ctrl, conn, _ := newTestController(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Shutdown()

	sess, err := ctrl.OpenChat(context.Background(), "peer-1")
	require.NoError(t, err)

	msg := domain.Message{
		ID:         "m1",
		ChatRoomID: sess.RoomID(),
		SenderID:   "peer-1",
		ReceiverID: selfID,
		Content:    "hi",
		Timestamp:  100,
	}
	conn.push(domain.RoomEvent{Type: domain.EventMessage, RoomID: msg.ChatRoomID, Message: &msg})

	assert.Eventually(t, func() bool {
		return len(sess.Messages()) == 1
	}, time.Second, 10*time.Millisecond)

	// an open window never accrues unread
	for _, r := range ctrl.Rooms() {
		if r.ChatRoomID == sess.RoomID() {
			assert.Zero(t, r.UnreadCount)
		}
	}
}

func TestControllerCountsUnreadForClosedRoom(t *testing.T) {
	ctrl, conn, api := newTestController(t)

	r1 := roomWith(t, "peer-1")
	api.rooms = []domain.RoomSummary{{ChatRoomID: r1, PeerID: "peer-1"}}
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Shutdown()

	msg := domain.Message{
		ID:         "m1",
		ChatRoomID: r1,
		SenderID:   "peer-1",
		ReceiverID: selfID,
		Content:    "are you there?",
		Timestamp:  100,
	}
	conn.push(domain.RoomEvent{Type: domain.EventMessage, RoomID: r1, Message: &msg})

	assert.Eventually(t, func() bool {
		rooms := ctrl.Rooms()
		return len(rooms) == 1 && rooms[0].UnreadCount == 1 &&
			rooms[0].LastMessage != nil && rooms[0].LastMessage.ID == "m1"
	}, time.Second, 10*time.Millisecond)
}

func TestControllerOpenChatResetsUnread(t *testing.T) {
	ctrl, conn, api := newTestController(t)

	r1 := roomWith(t, "peer-1")
	api.rooms = []domain.RoomSummary{{ChatRoomID: r1, PeerID: "peer-1", UnreadCount: 5}}
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Shutdown()

	_, err := ctrl.OpenChat(context.Background(), "peer-1")
	require.NoError(t, err)

	rooms := ctrl.Rooms()
	require.Len(t, rooms, 1)
	assert.Zero(t, rooms[0].UnreadCount)

	// unknown peer typing while the window is open
	conn.push(domain.RoomEvent{
		Type:   domain.EventTyping,
		RoomID: r1,
		Typing: &domain.TypingNotice{ChatRoomID: r1, FromID: "peer-1", DisplayName: "Jordan Lee"},
	})

	sess := ctrl.Session(r1)
	require.NotNil(t, sess)
	assert.Eventually(t, func() bool {
		return sess.TypingIndicator() == "Jordan Lee"
	}, time.Second, 10*time.Millisecond)
}

func TestControllerNewRoomAppearsOnFirstMessage(t *testing.T) {
	ctrl, conn, _ := newTestController(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Shutdown()

	roomID := roomWith(t, "peer-9")
	msg := domain.Message{
		ID:         "m1",
		ChatRoomID: roomID,
		SenderID:   "peer-9",
		ReceiverID: selfID,
		Content:    "new case inquiry",
		Timestamp:  100,
	}
	conn.push(domain.RoomEvent{Type: domain.EventMessage, RoomID: roomID, Message: &msg})

	assert.Eventually(t, func() bool {
		rooms := ctrl.Rooms()
		return len(rooms) == 1 && rooms[0].PeerID == "peer-9" && rooms[0].UnreadCount == 1
	}, time.Second, 10*time.Millisecond)
}

func TestControllerCloseChatKeepsRoomOnList(t *testing.T) {
	ctrl, conn, _ := newTestController(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Shutdown()

	sess, err := ctrl.OpenChat(context.Background(), "peer-1")
	require.NoError(t, err)
	roomID := sess.RoomID()

	ctrl.CloseChat(roomID)
	assert.Nil(t, ctrl.Session(roomID))
	assert.Equal(t, Disconnected, sess.State())

	// the closed room keeps accumulating unread
	msg := domain.Message{ID: "m1", ChatRoomID: roomID, SenderID: "peer-1", ReceiverID: selfID, Content: "ping", Timestamp: 100}
	conn.push(domain.RoomEvent{Type: domain.EventMessage, RoomID: roomID, Message: &msg})

	assert.Eventually(t, func() bool {
		for _, r := range ctrl.Rooms() {
			if r.ChatRoomID == roomID {
				return r.UnreadCount == 1
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestControllerToggleMinimize(t *testing.T) {
	ctrl, _, _ := newTestController(t)
	require.NoError(t, ctrl.Start(context.Background()))
	defer ctrl.Shutdown()

	sess, err := ctrl.OpenChat(context.Background(), "peer-1")
	require.NoError(t, err)

	require.NoError(t, ctrl.ToggleMinimize(sess.RoomID()))
	assert.True(t, sess.Minimized())
	require.NoError(t, ctrl.ToggleMinimize(sess.RoomID()))
	assert.False(t, sess.Minimized())

	assert.Error(t, ctrl.ToggleMinimize("no_such_room"))
}

func TestControllerShutdownClosesEverything(t *testing.T) {
	ctrl, conn, _ := newTestController(t)
	require.NoError(t, ctrl.Start(context.Background()))

	sess, err := ctrl.OpenChat(context.Background(), "peer-1")
	require.NoError(t, err)

	require.NoError(t, ctrl.Shutdown())
	assert.Equal(t, Disconnected, sess.State())
	assert.True(t, conn.closed)
	assert.Empty(t, ctrl.OpenSessionIDs())
}
