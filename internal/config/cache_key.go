package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SessionStateKey returns the cache key holding a forge session's current view state
func (r *CacheKeyStruct) SessionStateKey(sessionID string) string {
	return fmt.Sprintf("forge:session:%s:state", sessionID)
}

// SessionEventsChannel returns the Redis PubSub channel carrying a session's state changes
func (r *CacheKeyStruct) SessionEventsChannel(sessionID string) string {
	return fmt.Sprintf("forge:session:%s:events", sessionID)
}

var CacheKey = NewCacheKeyStruct()
