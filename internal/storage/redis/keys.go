package redis

import (
	"fmt"

	"github.com/mcoot/codeduel-go/internal/model"
)

// Key prefix for all directory data
const keyPrefix = "codeduel"

// userKey returns the Redis key for a User
func userKey(id model.UserID) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// userNameIndexKey returns the Redis key for the name -> user_id index
func userNameIndexKey(name string) string {
	return fmt.Sprintf("%s:idx:user_name:%s", keyPrefix, name)
}

// lobbyRecordKey returns the Redis key for a LobbyRecord
func lobbyRecordKey(id model.LobbyID) string {
	return fmt.Sprintf("%s:lobby_record:%s", keyPrefix, id)
}

// matchHistoryKey returns the Redis key for the LIST of match results, newest at the head
func matchHistoryKey() string {
	return fmt.Sprintf("%s:match_history", keyPrefix)
}
