package common

import (
	"fmt"
	"net/url"
)

// TierUpdateNotification is fanned out to the bot whenever an admin records a
// tier so it can post the update embed to the log channel.
type TierUpdateNotification struct {
	Username string
	Kit      string
	TierCode string
	Points   int
}

// SkinHeadURL returns the avatar head render for a game account.
func SkinHeadURL(username string) string {
	return fmt.Sprintf("https://crafatar.com/avatars/%s?size=128&overlay", url.PathEscape(username))
}
