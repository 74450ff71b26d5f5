package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"blogchat/internal/apperr"
	"blogchat/internal/auth"
	"blogchat/internal/hub"
	"blogchat/internal/model"
	"blogchat/internal/service"
)

const (
	viewerID = "6523f0c2a1b2c3d4e5f60718"
	otherID  = "6523f0c2a1b2c3d4e5f60719"
)

type staticVerifier struct{}

func (staticVerifier) Verify(_ context.Context, token string) (model.Identity, error) {
	switch token {
	case "good":
		return model.Identity{ID: viewerID, Username: "alice"}, nil
	case "":
		return model.Identity{}, fmt.Errorf("%w: missing token", apperr.ErrUnauthorized)
	case "db-down":
		return model.Identity{}, fmt.Errorf("%w: get user", apperr.ErrPersistence)
	default:
		return model.Identity{}, fmt.Errorf("%w: invalid token", apperr.ErrUnauthorized)
	}
}

type fakeMessages struct {
	viewer string
	query  service.HistoryQuery
	err    error
}

func (f *fakeMessages) History(_ context.Context, viewerID string, q service.HistoryQuery) ([]model.Message, error) {
	f.viewer = viewerID
	f.query = q
	if f.err != nil {
		return nil, f.err
	}
	return []model.Message{
		{ID: "m1", Content: "first", Scope: model.RoomScope{Room: "global"}, CreatedAt: time.Unix(1, 0).UTC()},
		{ID: "m2", Content: "second", Scope: model.RoomScope{Room: "global"}, CreatedAt: time.Unix(2, 0).UTC()},
	}, nil
}

type fakeUsersService struct{}

func (fakeUsersService) OnlineUsers() []model.OnlineUser {
	return []model.OnlineUser{{ID: viewerID, Username: "alice"}}
}

func (fakeUsersService) Presence(_ context.Context, userID string) (model.PresenceStatus, error) {
	if userID != otherID {
		return model.PresenceStatus{}, fmt.Errorf("%w: user %s", apperr.ErrNotFound, userID)
	}
	return model.PresenceStatus{UserID: userID}, nil
}

func newRouter(messages service.MessageService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	logger := zap.NewNop()

	api := r.Group("/api", RequireIdentity(auth.NewGate(staticVerifier{}), logger))
	mh := NewMessageHandler(messages, logger)
	api.GET("/messages", mh.GetMessages)
	api.GET("/messages/global", mh.GetGlobalMessages)
	api.GET("/messages/private/:userId", mh.GetPrivateMessages)

	uh := NewUserHandler(fakeUsersService{})
	api.GET("/users/online", uh.GetOnlineUsers)
	api.GET("/users/:id/presence", uh.GetPresence)

	presence := hub.NewPresenceRegistry(hub.NewConnections(), logger)
	monitor := NewMonitorHandler(hub.NewMonitorService(hub.NewConnections(), hub.NewRooms(), presence))
	api.GET("/monitor/stats", monitor.GetHubStats)
	return r
}

func get(r *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type historyResponse struct {
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
	Messages []model.Message `json:"messages"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestMessageRoutes(t *testing.T) {
	t.Run("requires a credential", func(t *testing.T) {
		req := require.New(t)
		w := get(newRouter(&fakeMessages{}), "/api/messages", "")
		req.Equal(http.StatusUnauthorized, w.Code)
		req.False(decode[historyResponse](t, w).Success)

		w = get(newRouter(&fakeMessages{}), "/api/messages", "forged")
		req.Equal(http.StatusUnauthorized, w.Code)
	})

	t.Run("store outage during auth is not reported as unauthorized", func(t *testing.T) {
		req := require.New(t)
		w := get(newRouter(&fakeMessages{}), "/api/messages", "db-down")
		req.Equal(http.StatusServiceUnavailable, w.Code)
	})

	t.Run("private history via query", func(t *testing.T) {
		req := require.New(t)
		fm := &fakeMessages{}
		w := get(newRouter(fm), "/api/messages?userId="+otherID+"&limit=20&skip=5", "good")
		req.Equal(http.StatusOK, w.Code)

		body := decode[historyResponse](t, w)
		req.True(body.Success)
		req.Len(body.Messages, 2)
		req.Equal("first", body.Messages[0].Content)
		req.Equal(viewerID, fm.viewer)
		req.Equal(service.HistoryQuery{UserID: otherID, Limit: 20, Skip: 5}, fm.query)
	})

	t.Run("token query parameter is accepted", func(t *testing.T) {
		req := require.New(t)
		w := get(newRouter(&fakeMessages{}), "/api/messages/global?token=good", "")
		req.Equal(http.StatusOK, w.Code)
	})

	t.Run("global and private shortcuts", func(t *testing.T) {
		req := require.New(t)
		fm := &fakeMessages{}
		r := newRouter(fm)

		req.Equal(http.StatusOK, get(r, "/api/messages/global?limit=10", "good").Code)
		req.Equal(service.HistoryQuery{Limit: 10}, fm.query)

		req.Equal(http.StatusOK, get(r, "/api/messages/private/"+otherID, "good").Code)
		req.Equal(service.HistoryQuery{UserID: otherID}, fm.query)
	})

	t.Run("bad pagination", func(t *testing.T) {
		req := require.New(t)
		r := newRouter(&fakeMessages{})
		req.Equal(http.StatusBadRequest, get(r, "/api/messages?limit=abc", "good").Code)
		req.Equal(http.StatusBadRequest, get(r, "/api/messages?limit=-1", "good").Code)
		req.Equal(http.StatusBadRequest, get(r, "/api/messages?userId=nope", "good").Code)
	})

	t.Run("store failure", func(t *testing.T) {
		req := require.New(t)
		fm := &fakeMessages{err: fmt.Errorf("%w: read messages", apperr.ErrPersistence)}
		w := get(newRouter(fm), "/api/messages", "good")
		req.Equal(http.StatusServiceUnavailable, w.Code)
		body := decode[historyResponse](t, w)
		req.False(body.Success)
		req.NotContains(body.Message, "read messages")
	})
}

func TestUserRoutes(t *testing.T) {
	r := newRouter(&fakeMessages{})

	t.Run("online snapshot", func(t *testing.T) {
		req := require.New(t)
		w := get(r, "/api/users/online", "good")
		req.Equal(http.StatusOK, w.Code)
		body := decode[struct {
			Success bool               `json:"success"`
			Users   []model.OnlineUser `json:"users"`
		}](t, w)
		req.True(body.Success)
		req.Len(body.Users, 1)
	})

	t.Run("presence", func(t *testing.T) {
		req := require.New(t)
		w := get(r, "/api/users/"+otherID+"/presence", "good")
		req.Equal(http.StatusOK, w.Code)
		req.JSONEq(`{"success":true,"online":false,"status":"","lastSeen":null}`, w.Body.String())

		req.Equal(http.StatusNotFound, get(r, "/api/users/"+viewerID+"/presence", "good").Code)
	})

	t.Run("monitor", func(t *testing.T) {
		req := require.New(t)
		w := get(r, "/api/monitor/stats", "good")
		req.Equal(http.StatusOK, w.Code)
		body := decode[struct {
			Stats model.MonitorResponse `json:"stats"`
		}](t, w)
		req.Equal("idle", body.Stats.Status)
	})
}
