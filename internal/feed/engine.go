// Package feed implements the in-memory timeline engine: per-user timelines,
// the follow graph, mention routing, feed aggregation, query filtering and
// direct messages.
package feed

import (
	"fmt"
	"sync"
	"time"

	"example.com/timelinefeed/internal/encoder"
	"example.com/timelinefeed/internal/logger"
	"example.com/timelinefeed/internal/models"
	"go.uber.org/zap"
)

var logg = logger.New()

// ContentEncoder rewrites raw content before it is stored.
type ContentEncoder interface {
	Encode(content string) string
}

// EventSink receives every state change made through the Engine. Emit must
// not block and must not call back into mutating Engine operations.
type EventSink interface {
	Emit(ev models.Event)
}

type Option func(*Engine)

func WithEncoder(enc ContentEncoder) Option {
	return func(e *Engine) { e.encoder = enc }
}

// WithMaxLength sets the maximum content length in runes. Zero disables the check.
func WithMaxLength(n int) Option {
	return func(e *Engine) { e.maxLength = n }
}

func WithFanOut(f FanOut) Option {
	return func(e *Engine) { e.fanOut = f }
}

func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithSinks(sinks ...EventSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, sinks...) }
}

// Engine is the operation surface over the timeline components. It owns all
// state; construct one per process.
type Engine struct {
	timelines  *TimelineStore
	graph      *FollowGraph
	directs    *DirectMessageStore
	access     *AccessList
	router     *MentionRouter
	aggregator *FeedAggregator

	encoder   ContentEncoder
	maxLength int
	fanOut    FanOut
	clock     func() time.Time
	sinks     []EventSink

	// writeMu pairs each mutation with its event so event IDs follow the
	// order in which mutations were applied. Reads do not take it.
	writeMu sync.Mutex
}

func New(opts ...Option) *Engine {
	timelines := NewTimelineStore()
	graph := NewFollowGraph()
	e := &Engine{
		timelines:  timelines,
		graph:      graph,
		directs:    NewDirectMessageStore(),
		access:     NewAccessList(),
		router:     NewMentionRouter(timelines),
		aggregator: NewFeedAggregator(timelines, graph),
		encoder:    encoder.Markup{},
		maxLength:  models.DefaultMaxContentLength,
		fanOut:     FanOutOnRead,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddSink registers another event sink. It is not safe to call concurrently
// with mutating operations.
func (e *Engine) AddSink(s EventSink) {
	e.sinks = append(e.sinks, s)
}

func (e *Engine) FanOut() FanOut { return e.fanOut }

// PostMessage stores a public message on the author's timeline, routes it to
// every mentioned user and, with FanOutOnWrite, to every follower.
func (e *Engine) PostMessage(author models.UserID, content string) (models.MessageID, error) {
	if err := author.Validate(); err != nil {
		return "", err
	}
	if err := models.ValidateContent(content, e.maxLength); err != nil {
		return "", err
	}

	msg := models.Message{
		ID:        models.MessageID(models.NewID()),
		Author:    author,
		Content:   e.encoder.Encode(content),
		Timestamp: e.clock(),
	}
	mentions := ExtractMentions(content)

	e.writeMu.Lock()
	e.deliver(msg, mentions)
	e.emit(models.EventMessagePosted, &msg, nil, mentions)
	e.writeMu.Unlock()

	logg.Debug("engine", "message posted", zap.String("message_id", string(msg.ID)), zap.Int("mentions", len(mentions)))
	return msg.ID, nil
}

func (e *Engine) deliver(msg models.Message, mentions []models.UserID) {
	e.timelines.Append(msg.Author, msg)
	e.router.Route(msg, mentions)

	if e.fanOut == FanOutOnWrite {
		for _, follower := range e.graph.FollowersOf(msg.Author) {
			e.timelines.Append(follower, msg)
		}
	}
}

func (e *Engine) Follow(follower, followee models.UserID) error {
	f := models.Follow{Follower: follower, Followee: followee, Timestamp: e.clock()}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	added, err := e.graph.Follow(f)
	if err != nil {
		return err
	}
	if added {
		e.emit(models.EventFollowed, nil, &f, nil)
	}
	return nil
}

// Unfollow removes the edge; it is a no-op when the edge does not exist.
func (e *Engine) Unfollow(follower, followee models.UserID) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.graph.Unfollow(follower, followee) {
		e.emit(models.EventUnfollowed, nil, &models.Follow{Follower: follower, Followee: followee, Timestamp: e.clock()}, nil)
	}
}

func (e *Engine) Followees(u models.UserID) []models.UserID { return e.graph.FolloweesOf(u) }

func (e *Engine) Followers(u models.UserID) []models.UserID { return e.graph.FollowersOf(u) }

func (e *Engine) IsFollowing(follower, followee models.UserID) bool {
	return e.graph.IsFollowing(follower, followee)
}

// GetTimeline returns owner's timeline filtered by q. Unknown owners have an
// empty timeline.
func (e *Engine) GetTimeline(owner models.UserID, q Query) ([]models.Message, error) {
	return q.Apply(e.timelines.MessagesFor(owner))
}

// GetFeed returns the aggregated public feed of viewer filtered by q.
func (e *Engine) GetFeed(viewer models.UserID, q Query) ([]models.Message, error) {
	return q.Apply(e.aggregator.Aggregate(viewer))
}

// ViewTimeline is GetTimeline on behalf of requester. The owner, the owner's
// followers and viewers admitted with AllowViewer may read it; anyone else
// gets an *models.AccessError.
func (e *Engine) ViewTimeline(requester, owner models.UserID, q Query) ([]models.Message, error) {
	if !e.CanView(requester, owner) {
		return nil, &models.AccessError{Requester: requester, Owner: owner}
	}
	return e.GetTimeline(owner, q)
}

func (e *Engine) CanView(requester, owner models.UserID) bool {
	return requester == owner || e.graph.IsFollowing(requester, owner) || e.access.Allowed(owner, requester)
}

// AllowViewer admits viewer to owner's timeline.
func (e *Engine) AllowViewer(owner, viewer models.UserID) error {
	if err := owner.Validate(); err != nil {
		return err
	}
	if err := viewer.Validate(); err != nil {
		return err
	}
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.access.Allow(owner, viewer) {
		e.emit(models.EventViewerAllowed, nil, &models.Follow{Follower: viewer, Followee: owner, Timestamp: e.clock()}, nil)
	}
	return nil
}

// SendDirectMessage stores a private message readable only by from and to.
func (e *Engine) SendDirectMessage(from, to models.UserID, content string) (models.MessageID, error) {
	if err := from.Validate(); err != nil {
		return "", err
	}
	if err := to.Validate(); err != nil {
		return "", err
	}
	if err := models.ValidateContent(content, e.maxLength); err != nil {
		return "", err
	}

	msg := models.Message{
		ID:        models.MessageID(models.NewID()),
		Author:    from,
		Content:   e.encoder.Encode(content),
		Timestamp: e.clock(),
		Recipient: to,
	}
	e.writeMu.Lock()
	e.directs.Send(msg)
	e.emit(models.EventDirectMessageSent, &msg, nil, nil)
	e.writeMu.Unlock()
	return msg.ID, nil
}

// GetInbox returns the direct messages user sent or received, newest first.
func (e *Engine) GetInbox(user models.UserID) []models.Message {
	return e.directs.InboxFor(user)
}

// Restore replays journaled events into the engine without emitting them.
// Events must be in the order they originally occurred.
func (e *Engine) Restore(events []models.Event) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	for _, ev := range events {
		if err := e.apply(ev); err != nil {
			return fmt.Errorf("restoring event %s: %w", ev.ID, err)
		}
	}
	logg.Info("engine", fmt.Sprintf("restored %d events", len(events)))
	return nil
}

func (e *Engine) apply(ev models.Event) error {
	switch ev.Type {
	case models.EventMessagePosted:
		if ev.Message == nil {
			return fmt.Errorf("%s event without message", ev.Type)
		}
		e.deliver(*ev.Message, ev.Mentions)
	case models.EventDirectMessageSent:
		if ev.Message == nil || !ev.Message.IsPrivate() {
			return fmt.Errorf("%s event without direct message", ev.Type)
		}
		e.directs.Send(*ev.Message)
	case models.EventFollowed:
		if ev.Follow == nil {
			return fmt.Errorf("%s event without follow", ev.Type)
		}
		if _, err := e.graph.Follow(*ev.Follow); err != nil {
			return err
		}
	case models.EventUnfollowed:
		if ev.Follow == nil {
			return fmt.Errorf("%s event without follow", ev.Type)
		}
		e.graph.Unfollow(ev.Follow.Follower, ev.Follow.Followee)
	case models.EventViewerAllowed:
		if ev.Follow == nil {
			return fmt.Errorf("%s event without grant", ev.Type)
		}
		e.access.Allow(ev.Follow.Followee, ev.Follow.Follower)
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

// emit must be called with writeMu held.
func (e *Engine) emit(t models.EventType, msg *models.Message, f *models.Follow, mentions []models.UserID) {
	if len(e.sinks) == 0 {
		return
	}
	ev := models.Event{
		ID:         models.NewID(),
		Type:       t,
		OccurredAt: e.clock(),
		Message:    msg,
		Follow:     f,
		Mentions:   mentions,
	}
	for _, s := range e.sinks {
		s.Emit(ev)
	}
}
