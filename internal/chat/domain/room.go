package domain

import (
	"fmt"
	"strings"

	"legal_marketplace_service/pkg/apperr"
)

// roomIDSeparator joins the two participant ids. Member ids are uuid
// strings, so the separator can never appear inside an id.
const roomIDSeparator = "_"

// PrivateRoomID derives the chat room id for the unordered pair {a, b}.
// The ids are sorted first, so both participants resolve the same room
// no matter who initiates the conversation.
func PrivateRoomID(a, b string) (string, error) {
	if a == "" || b == "" {
		return "", apperr.Validation("both participant ids are required")
	}
	if a == b {
		return "", apperr.Validation("participants must be distinct")
	}
	if a > b {
		a, b = b, a
	}
	return a + roomIDSeparator + b, nil
}

// Participants splits a chat room id back into its two member ids.
func Participants(chatRoomID string) (string, string, error) {
	parts := strings.SplitN(chatRoomID, roomIDSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", apperr.Validation(fmt.Sprintf("malformed chat room id %q", chatRoomID))
	}
	return parts[0], parts[1], nil
}

// IsParticipant report whether memberID is one of the room's two participants.
func IsParticipant(chatRoomID, memberID string) bool {
	a, b, err := Participants(chatRoomID)
	if err != nil {
		return false
	}
	return memberID == a || memberID == b
}

// PeerOf returns the other participant of the room.
func PeerOf(chatRoomID, memberID string) (string, error) {
	a, b, err := Participants(chatRoomID)
	if err != nil {
		return "", err
	}
	switch memberID {
	case a:
		return b, nil
	case b:
		return a, nil
	}
	return "", apperr.NotAuthorized("member is not a participant of this room")
}
