package redis

import "github.com/redis/rueidis"

// NewStoreForTest creates a Store with an injected client (for unit tests).
func NewStoreForTest(c rueidis.Client) *Store {
	return newStore(c, DefaultKeyPrefix, nil)
}
