package app

import (
	"context"
	"encoding/json"
	"errors"

	"afterschool/internal/feed"
	"afterschool/internal/session"
	"afterschool/internal/watcher"
)

// sessionFetcher signs the session out when the feed rejects its token, so
// the watcher stops until a new token arrives through config.
type sessionFetcher struct {
	next     watcher.Fetcher
	sess     *session.Store
	rejected func()
}

func (f *sessionFetcher) Fetch(ctx context.Context, q feed.Query) (json.RawMessage, error) {
	tok := f.sess.Token()
	payload, err := f.next.Fetch(ctx, q)
	if errors.Is(err, feed.ErrUnauthorized) && f.sess.Invalidate(tok) && f.rejected != nil {
		f.rejected()
	}
	return payload, err
}
