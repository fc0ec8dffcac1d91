package redis

const (
	// KeyPrefixBookmark is the prefix for bookmark records
	KeyPrefixBookmark = "smartmarks:bookmark:"
	// KeyPrefixUser is the prefix for per-user indexes
	KeyPrefixUser = "smartmarks:user:"
)

// BookmarkKey returns the Redis key holding one bookmark as JSON
func BookmarkKey(id string) string {
	return KeyPrefixBookmark + id
}

// UserBookmarksKey returns the sorted set of a user's bookmark IDs,
// scored by creation time in milliseconds
func UserBookmarksKey(userID string) string {
	return KeyPrefixUser + userID + ":bookmarks"
}

// UserSequenceKey returns the per-user insert counter used to order
// bookmarks created at the same instant
func UserSequenceKey(userID string) string {
	return KeyPrefixUser + userID + ":seq"
}
