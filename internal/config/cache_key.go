package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// RevokedTokenKey returns the cache key marking a token ID as revoked
func (r *CacheKeyStruct) RevokedTokenKey(jti string) string {
	return fmt.Sprintf("auth:revoked:%s", jti)
}

// BackupLockKey returns the cache key guarding against concurrent backups
func (r *CacheKeyStruct) BackupLockKey() string {
	return "backup:lock"
}

// GradeHistoryChannel returns the Redis PubSub channel carrying committed grade history entries
func (r *CacheKeyStruct) GradeHistoryChannel() string {
	return "grades:history"
}

var CacheKey = NewCacheKeyStruct()
