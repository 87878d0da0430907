package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"example.com/timelinefeed/internal/feed"
	"example.com/timelinefeed/internal/middleware"
	"example.com/timelinefeed/internal/models"
	"go.uber.org/zap"
)

// --- HTTP Handlers ---

// createUserHandler issues a token for a username.
// Expects JSON body: {"username": "example"}
// Returns JSON response: {"user_id": "example", "token": "..."}
func (s *Server) createUserHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
	}
	if !decodeBody(w, r, "http/users", &body) {
		return
	}

	userID := models.UserID(body.Username)
	if err := userID.Validate(); err != nil || len(body.Username) > 50 {
		logg.Info("http/users", "Invalid username")
		http.Error(w, "username must be 1-50 characters", http.StatusBadRequest)
		return
	}

	token, err := middleware.IssueToken(s.secret, userID, tokenTTL)
	if err != nil {
		logg.Error("http/users", "Failed to sign token", err)
		http.Error(w, "failed to generate token", http.StatusInternalServerError)
		return
	}

	logg.Info("http/users", "Token issued (user ID anonymized)")
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"token":   token,
	})
}

// createPostHandler publishes a message on the author's timeline.
// Expects JSON body: {"content": "hello @bob"}
func (s *Server) createPostHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if !decodeBody(w, r, "http/posts", &body) {
		return
	}
	userID, ok := currentUser(w, r, "http/posts")
	if !ok {
		return
	}

	id, err := s.engine.PostMessage(userID, body.Content)
	if err != nil {
		writeError(w, "http/posts", err)
		return
	}

	logg.Info("http/posts", "Message posted (user ID anonymized)")
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

type followRequest struct {
	FolloweeID models.UserID `json:"followee_id"`
}

// followHandler makes the token user follow followee_id.
// Expects JSON body: {"followee_id": "bob"}
func (s *Server) followHandler(w http.ResponseWriter, r *http.Request) {
	var body followRequest
	if !decodeBody(w, r, "http/follow", &body) {
		return
	}
	userID, ok := currentUser(w, r, "http/follow")
	if !ok {
		return
	}

	if err := s.engine.Follow(userID, body.FolloweeID); err != nil {
		writeError(w, "http/follow", err)
		return
	}

	logg.Info("http/follow", "Follow created (user IDs anonymized)")
	w.WriteHeader(http.StatusOK)
}

// unfollowHandler removes the follow edge. Unknown edges are a no-op.
func (s *Server) unfollowHandler(w http.ResponseWriter, r *http.Request) {
	var body followRequest
	if !decodeBody(w, r, "http/follow", &body) {
		return
	}
	userID, ok := currentUser(w, r, "http/follow")
	if !ok {
		return
	}

	s.engine.Unfollow(userID, body.FolloweeID)
	logg.Info("http/follow", "Follow removed (user IDs anonymized)")
	w.WriteHeader(http.StatusNoContent)
}

// getFeedHandler returns the token user's aggregated feed.
// Query parameters: ?limit=50&after=RFC3339&before=RFC3339
func (s *Server) getFeedHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, "http/feed")
	if !ok {
		return
	}
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, "http/feed", err)
		return
	}

	msgs, err := s.engine.GetFeed(userID, q)
	if err != nil {
		writeError(w, "http/feed", err)
		return
	}

	logg.Debug("http/feed", "Feed retrieved", zap.Int("count", len(msgs)))
	writeJSON(w, http.StatusOK, nonNil(msgs))
}

// getTimelineHandler returns another user's timeline if the token user may
// read it.
func (s *Server) getTimelineHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, "http/timeline")
	if !ok {
		return
	}
	owner := models.UserID(r.PathValue("owner"))
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, "http/timeline", err)
		return
	}

	msgs, err := s.engine.ViewTimeline(userID, owner, q)
	if err != nil {
		writeError(w, "http/timeline", err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(msgs))
}

// allowViewerHandler admits viewer_id to the token user's timeline.
// Expects JSON body: {"viewer_id": "carol"}
func (s *Server) allowViewerHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ViewerID models.UserID `json:"viewer_id"`
	}
	if !decodeBody(w, r, "http/viewers", &body) {
		return
	}
	userID, ok := currentUser(w, r, "http/viewers")
	if !ok {
		return
	}

	if err := s.engine.AllowViewer(userID, body.ViewerID); err != nil {
		writeError(w, "http/viewers", err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// sendDirectMessageHandler sends a private message.
// Expects JSON body: {"to": "bob", "content": "hi"}
func (s *Server) sendDirectMessageHandler(w http.ResponseWriter, r *http.Request) {
	var body struct {
		To      models.UserID `json:"to"`
		Content string        `json:"content"`
	}
	if !decodeBody(w, r, "http/messages", &body) {
		return
	}
	userID, ok := currentUser(w, r, "http/messages")
	if !ok {
		return
	}

	id, err := s.engine.SendDirectMessage(userID, body.To, body.Content)
	if err != nil {
		writeError(w, "http/messages", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

func (s *Server) getInboxHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r, "http/inbox")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, nonNil(s.engine.GetInbox(userID)))
}

// --- helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, module string, dst any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logg.Error(module, "Invalid request body", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func currentUser(w http.ResponseWriter, r *http.Request, module string) (models.UserID, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		logg.Info(module, "Unauthorized request")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}
	return userID, ok
}

// parseQuery reads limit, after and before. A missing limit defaults to
// defaultFeedLimit.
func parseQuery(v url.Values) (feed.Query, error) {
	opts := []feed.QueryOption{feed.Limit(defaultFeedLimit)}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return feed.Query{}, fmt.Errorf("%w: limit %q is not a number", models.ErrInvalidQuery, s)
		}
		opts[0] = feed.Limit(n)
	}
	for _, p := range []struct {
		name string
		opt  func(time.Time) feed.QueryOption
	}{{"after", feed.After}, {"before", feed.Before}} {
		s := v.Get(p.name)
		if s == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return feed.Query{}, fmt.Errorf("%w: %s must be RFC3339", models.ErrInvalidQuery, p.name)
		}
		opts = append(opts, p.opt(t))
	}
	return feed.NewQuery(opts...)
}

func writeError(w http.ResponseWriter, module string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidFollow),
		errors.Is(err, models.ErrInvalidQuery):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotAllowed):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		logg.Error(module, "Request failed", err)
	} else {
		logg.Debug(module, "Request rejected", zap.Int("status", status))
	}
	http.Error(w, err.Error(), status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logg.Error("http", "Failed to encode response", err)
	}
}

func nonNil(msgs []models.Message) []models.Message {
	if msgs == nil {
		return []models.Message{}
	}
	return msgs
}
