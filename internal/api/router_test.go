package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"linku/backend/internal/api"
	"linku/backend/internal/api/handler"
	"linku/backend/internal/api/middleware"
	"linku/backend/internal/auth"
	"linku/backend/internal/catalog"
	"linku/backend/internal/chat"
	"linku/backend/internal/chathub"
	"linku/backend/internal/linku"
	"linku/backend/internal/localization"
	"linku/backend/internal/models"
	"linku/backend/internal/storage"
	"linku/backend/internal/storage/storagetest"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv    *httptest.Server
	tokens *auth.JWTProvider
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := storagetest.OpenDB(t)
	storagetest.SeedUsers(t, db, 1, 2, 3)
	require.NoError(t, db.Create(&models.TalentPost{ID: 7, Title: "Guitar lessons", AuthorID: 1}).Error)

	store := storage.NewStorageService(db)
	posts := catalog.NewGormCatalog(db)
	bus := chathub.NewBus(nil)
	chatSvc := chat.NewService(store, posts, bus, nil)
	texts, err := localization.NewLocalizer("ko")
	require.NoError(t, err)
	linkuSvc := linku.NewService(store, chatSvc, posts, texts)

	resolver := auth.HandleResolverFunc(func(ctx context.Context, handle string) (uint, error) {
		u, err := store.FindUserByHandle(ctx, handle)
		if err != nil {
			return 0, err
		}
		return u.ID, nil
	})
	tokens := auth.NewJWTProvider("test-secret", "linku", time.Hour, resolver)
	authMW := middleware.NewAuthMiddleware(nil, tokens)

	h := handler.NewHandler(handler.Config{
		Chat:     chatSvc,
		Linku:    linkuSvc,
		Bus:      bus,
		Auth:     authMW,
		Tokens:   tokens,
		WSBuffer: 16,
		Origins:  []string{"http://localhost:5173"},
	})
	r := api.NewRouter(api.RouterConfig{
		Handler:        h,
		AuthMiddleware: authMW,
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, tokens: tokens}
}

func (s *testServer) token(t *testing.T, subject string) string {
	t.Helper()
	tok, err := s.tokens.Issue(subject)
	require.NoError(t, err)
	return tok
}

// do sends a JSON request as uid and decodes the response into out when
// given.
func (s *testServer) do(t *testing.T, uid uint, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if uid != 0 {
		req.Header.Set("Authorization", "Bearer "+s.token(t, strconv.FormatUint(uint64(uid), 10)))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *testServer) openRoom(t *testing.T) uint {
	t.Helper()
	var room chat.RoomView
	status := s.do(t, 2, http.MethodPost, "/chat/rooms", map[string]any{"postId": 7, "ownerUid": 1}, &room)
	require.Equal(t, http.StatusOK, status)
	return room.RoomID
}

func TestRouter_RequiresAuth(t *testing.T) {
	s := newTestServer(t)

	var body errorBody
	status := s.do(t, 0, http.MethodGet, "/chat/my-rooms", nil, &body)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "NOT_AUTHENTICATED", body.Error.Code)

	req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/chat/my-rooms", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+s.token(t, "user2"))
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode, "handle subjects resolve through the users table")
}

func TestRouter_Rooms(t *testing.T) {
	s := newTestServer(t)

	var selfChat errorBody
	status := s.do(t, 1, http.MethodPost, "/chat/rooms", map[string]any{"postId": 7}, &selfChat)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SELF_CHAT", selfChat.Error.Code)

	roomID := s.openRoom(t)

	var room chat.RoomView
	require.Equal(t, http.StatusOK, s.do(t, 2, http.MethodPost, "/chat/rooms", map[string]any{"postId": 7, "ownerUid": 1}, &room))
	assert.Equal(t, roomID, room.RoomID)
	assert.Equal(t, uint(1), room.OwnerUID)
	assert.Equal(t, uint(2), room.OtherUID)

	var forbidden errorBody
	status = s.do(t, 3, http.MethodGet, "/chat/rooms/"+strconv.Itoa(int(roomID))+"/messages", nil, &forbidden)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NOT_PARTICIPANT", forbidden.Error.Code)

	var bad errorBody
	assert.Equal(t, http.StatusBadRequest, s.do(t, 1, http.MethodGet, "/chat/rooms/abc/messages", nil, &bad))
	assert.Equal(t, "INVALID_INPUT", bad.Error.Code)

	var missing errorBody
	assert.Equal(t, http.StatusNotFound, s.do(t, 1, http.MethodGet, "/chat/rooms/999/messages", nil, &missing))
	assert.Equal(t, "ROOM_NOT_FOUND", missing.Error.Code)

	var rooms []chat.RoomCard
	require.Equal(t, http.StatusOK, s.do(t, 1, http.MethodGet, "/chat/my-rooms", nil, &rooms))
	require.Len(t, rooms, 1)
	assert.Equal(t, "User 2", rooms[0].OtherName)

	assert.Equal(t, http.StatusOK, s.do(t, 1, http.MethodDelete, "/chat/rooms/"+strconv.Itoa(int(roomID))+"/leave", nil, nil))
	rooms = nil
	require.Equal(t, http.StatusOK, s.do(t, 1, http.MethodGet, "/chat/my-rooms", nil, &rooms))
	assert.Empty(t, rooms)
}

func TestRouter_LinkuFlow(t *testing.T) {
	s := newTestServer(t)
	roomID := s.openRoom(t)
	base := "/chat/rooms/" + strconv.Itoa(int(roomID))

	var state linku.StateView
	require.Equal(t, http.StatusOK, s.do(t, 1, http.MethodPost, base+"/linku/propose", map[string]any{"targetUid": 2}, &state))
	require.NotNil(t, state.ConnectionID)
	assert.Equal(t, models.LinkuPending, *state.Status)
	connPath := "/chat/linku/" + strconv.Itoa(int(*state.ConnectionID))

	var denied errorBody
	assert.Equal(t, http.StatusForbidden, s.do(t, 1, http.MethodPost, connPath+"/accept", nil, &denied))
	assert.Equal(t, "FORBIDDEN", denied.Error.Code)

	require.Equal(t, http.StatusOK, s.do(t, 2, http.MethodPost, connPath+"/accept", nil, &state))
	assert.True(t, state.Linked)
	assert.True(t, state.CanReview)

	var conflict errorBody
	assert.Equal(t, http.StatusConflict, s.do(t, 2, http.MethodPost, connPath+"/reject", nil, &conflict))
	assert.Equal(t, "INVALID_TRANSITION", conflict.Error.Code)

	var invalid errorBody
	assert.Equal(t, http.StatusBadRequest, s.do(t, 2, http.MethodPost, base+"/linku/reviews",
		map[string]any{"relationRating": "GOOD", "kindnessScore": 9}, &invalid))
	assert.Equal(t, "INVALID_KINDNESS", invalid.Error.Code)

	require.Equal(t, http.StatusOK, s.do(t, 2, http.MethodPost, base+"/linku/reviews",
		map[string]any{"relationRating": "GOOD", "kindnessScore": 5, "content": "good"}, nil))

	var again errorBody
	assert.Equal(t, http.StatusConflict, s.do(t, 2, http.MethodPost, base+"/linku/reviews",
		map[string]any{"relationRating": "GOOD", "kindnessScore": 5}, &again))
	assert.Equal(t, "ALREADY_REVIEWED", again.Error.Code)

	var rating linku.RatingView
	require.Equal(t, http.StatusOK, s.do(t, 3, http.MethodGet, "/chat/linku/rating/user-id/user1", nil, &rating))
	assert.Equal(t, linku.RatingView{AverageScore: 5, ReviewCount: 1, AcceptedCount: 1}, rating)

	var byID linku.RatingView
	require.Equal(t, http.StatusOK, s.do(t, 3, http.MethodGet, "/chat/linku/rating/1", nil, &byID))
	assert.Equal(t, rating, byID)

	var mine linku.RatingView
	require.Equal(t, http.StatusOK, s.do(t, 1, http.MethodGet, "/chat/linku/rating/me", nil, &mine))
	assert.Equal(t, rating, mine, "the static route wins over the id lookup")

	var unknown errorBody
	assert.Equal(t, http.StatusNotFound, s.do(t, 3, http.MethodGet, "/chat/linku/rating/42", nil, &unknown))
	assert.Equal(t, "USER_NOT_FOUND", unknown.Error.Code)

	var reviews []linku.ReviewView
	require.Equal(t, http.StatusOK, s.do(t, 1, http.MethodGet, "/chat/linku/reviews/me", nil, &reviews))
	require.Len(t, reviews, 1)
	assert.Equal(t, "User 2", reviews[0].ReviewerName)

	var conns []linku.ConnectionView
	require.Equal(t, http.StatusOK, s.do(t, 2, http.MethodGet, "/chat/linku/connections/me", nil, &conns))
	require.Len(t, conns, 1)
	assert.Equal(t, "Guitar lessons", conns[0].TalentPostTitle)

	var msgs []models.MessageView
	require.Equal(t, http.StatusOK, s.do(t, 1, http.MethodGet, base+"/messages", nil, &msgs))
	kinds := make([]models.MessageKind, 0, len(msgs))
	for _, m := range msgs {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []models.MessageKind{models.KindLinkuPropose, models.KindLinkuAccept, models.KindReviewNotice}, kinds)

	reviewPath := "/chat/linku/reviews/" + strconv.Itoa(int(reviews[0].ReviewID))
	assert.Equal(t, http.StatusForbidden, s.do(t, 3, http.MethodDelete, reviewPath, nil, nil))
	assert.Equal(t, http.StatusOK, s.do(t, 1, http.MethodDelete, reviewPath, nil, nil))
}

func dialWS(t *testing.T, s *testServer, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(s.srv.URL, "http") + "/ws" + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

func readFrame(t *testing.T, conn *websocket.Conn) models.OutboundFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame models.OutboundFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestWebSocket_RejectsBadCredential(t *testing.T) {
	s := newTestServer(t)

	_, resp, err := dialWS(t, s, "?token=nope")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dialWS(t, s, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebSocket_SendAndReceive(t *testing.T) {
	s := newTestServer(t)
	roomID := s.openRoom(t)
	topic := chathub.RoomTopic(roomID)

	reader, _, err := dialWS(t, s, "?token="+s.token(t, "1"))
	require.NoError(t, err)
	require.NoError(t, reader.WriteJSON(models.InboundFrame{Type: models.FrameSubscribe, Topic: topic}))
	assert.Equal(t, models.FrameSubscribed, readFrame(t, reader).Type)

	outsider, _, err := dialWS(t, s, "?token="+s.token(t, "3"))
	require.NoError(t, err)
	require.NoError(t, outsider.WriteJSON(models.InboundFrame{Type: models.FrameSubscribe, Topic: topic}))
	denied := readFrame(t, outsider)
	assert.Equal(t, models.FrameError, denied.Type)
	assert.Equal(t, "NOT_PARTICIPANT", denied.Code)

	writer, _, err := dialWS(t, s, "?token="+s.token(t, "2"))
	require.NoError(t, err)
	require.NoError(t, writer.WriteJSON(models.InboundFrame{Type: models.FrameChatSend, RoomID: roomID, ReceiverUID: 1, Content: "hi"}))

	echo := readFrame(t, writer)
	assert.Equal(t, models.FrameMessage, echo.Type)
	require.NotNil(t, echo.Data)
	assert.Equal(t, "hi", echo.Data.Content)
	assert.NotZero(t, echo.Data.ID)

	got := readFrame(t, reader)
	assert.Equal(t, models.FrameMessage, got.Type)
	assert.Equal(t, topic, got.Topic)
	require.NotNil(t, got.Data)
	assert.Equal(t, echo.Data.ID, got.Data.ID)
	assert.Equal(t, uint(2), got.Data.SenderUID)

	var unread map[string]any
	require.Equal(t, http.StatusOK, s.do(t, 1, http.MethodGet, "/chat/rooms/"+strconv.Itoa(int(roomID))+"/unread", nil, &unread))
	assert.EqualValues(t, 1, unread["unreadCount"])
}

func TestDevToken(t *testing.T) {
	s := newTestServer(t)

	var out struct {
		Token string `json:"token"`
	}
	require.Equal(t, http.StatusOK, s.do(t, 0, http.MethodPost, "/auth/dev-token", map[string]string{"subject": "user3"}, &out))
	uid, err := s.tokens.Verify(context.Background(), out.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(3), uid)

	assert.Equal(t, http.StatusBadRequest, s.do(t, 0, http.MethodPost, "/auth/dev-token", map[string]string{}, nil))
}
