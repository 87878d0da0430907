package feed

import (
	"regexp"

	"example.com/timelinefeed/internal/models"
)

var mentionRegex = regexp.MustCompile(`@(\w+)`)

// ExtractMentions returns the distinct users referenced as @name in content,
// in order of first appearance.
func ExtractMentions(content string) []models.UserID {
	matches := mentionRegex.FindAllStringSubmatch(content, -1)
	seen := make(map[models.UserID]struct{}, len(matches))
	out := make([]models.UserID, 0, len(matches))
	for _, m := range matches {
		u := models.UserID(m[1])
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// MentionRouter delivers messages into the timelines of mentioned users.
type MentionRouter struct {
	timelines *TimelineStore
}

func NewMentionRouter(timelines *TimelineStore) *MentionRouter {
	return &MentionRouter{timelines: timelines}
}

// Route appends msg to the timeline of every mentioned user, independent of
// any follower fan-out. It returns the users whose timeline actually changed.
func (r *MentionRouter) Route(msg models.Message, mentions []models.UserID) []models.UserID {
	delivered := make([]models.UserID, 0, len(mentions))
	for _, u := range mentions {
		if r.timelines.Append(u, msg) {
			delivered = append(delivered, u)
		}
	}
	return delivered
}
