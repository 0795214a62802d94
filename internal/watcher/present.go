package watcher

import (
	"strings"

	"afterschool/internal/feed"
)

// BuildPresentation maps a feed item to what the Presenter shows.
func BuildPresentation(it feed.Item, titleFallback string) Presentation {
	title := it.Title
	if strings.TrimSpace(title) == "" {
		title = titleFallback
	}
	ch, _ := it.Channels.Primary()
	return Presentation{
		Title: title,
		Body:  it.Message,
		Data: PresentationData{
			NotificationID: it.ID,
			Type:           it.Type,
			Data:           it.Data,
		},
		Channel:  ch,
		Priority: it.Priority,
	}
}
