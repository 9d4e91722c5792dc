// File: utils/constants.go
package utils

import "time"

// AvailabilityCachePrefix is the prefix used for Redis availability cache keys.
const AvailabilityCachePrefix = "availability:"

// DefaultAvailabilityCacheTTL is used when configuration leaves the TTL unset.
const DefaultAvailabilityCacheTTL = 30 * time.Second

// UserIDKey is the gin/request context key holding the authenticated user's id.
const UserIDKey = "userID"
