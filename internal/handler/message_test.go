package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bruindash/bruindash/internal/model"
	"github.com/bruindash/bruindash/internal/repository"
)

// fakeConvStore is an in-memory ConversationStore.
type fakeConvStore struct {
	convs    map[string]model.Conversation
	messages map[string][]model.Message
	nextID   int
}

func newFakeConvStore() *fakeConvStore {
	return &fakeConvStore{
		convs:    map[string]model.Conversation{},
		messages: map[string][]model.Message{},
	}
}

func (f *fakeConvStore) GetOrCreate(ctx context.Context, a, b string) (model.Conversation, error) {
	ua, ub := repository.NormalizePair(a, b)
	for _, c := range f.convs {
		if c.UserA == ua && c.UserB == ub {
			return c, nil
		}
	}
	f.nextID++
	c := model.Conversation{
		ID:        fmt.Sprintf("conv-%d", f.nextID),
		UserA:     ua,
		UserB:     ub,
		CreatedAt: time.Now().UTC(),
	}
	f.convs[c.ID] = c
	return c, nil
}

func (f *fakeConvStore) ListForUser(ctx context.Context, userID string) ([]repository.ConversationPreview, error) {
	out := make([]repository.ConversationPreview, 0)
	for _, c := range f.convs {
		if c.UserA != userID && c.UserB != userID {
			continue
		}
		peer := c.UserA
		if peer == userID {
			peer = c.UserB
		}
		p := repository.ConversationPreview{ID: c.ID, PeerID: peer}
		if msgs := f.messages[c.ID]; len(msgs) > 0 {
			last := msgs[len(msgs)-1]
			p.LastMessage = &last.Body
			p.LastAt = &last.CreatedAt
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeConvStore) GetConversation(ctx context.Context, id string) (model.Conversation, error) {
	c, ok := f.convs[id]
	if !ok {
		return model.Conversation{}, sql.ErrNoRows
	}
	return c, nil
}

func (f *fakeConvStore) InsertMessage(ctx context.Context, conversationID, senderID, body string) (model.Message, error) {
	f.nextID++
	m := model.Message{
		ID:             fmt.Sprintf("msg-%d", f.nextID),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      time.Now().UTC(),
	}
	f.messages[conversationID] = append(f.messages[conversationID], m)
	return m, nil
}

func (f *fakeConvStore) ListMessages(ctx context.Context, conversationID string, limit int, beforeID *string) ([]model.Message, error) {
	msgs := f.messages[conversationID]
	end := len(msgs)
	if beforeID != nil {
		for i, m := range msgs {
			if m.ID == *beforeID {
				end = i
				break
			}
		}
	}
	start := end - limit
	if start < 0 {
		start = 0
	}
	out := make([]model.Message, end-start)
	copy(out, msgs[start:end])
	return out, nil
}

func doConvRequest(t *testing.T, h echo.HandlerFunc, method, target, convID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if convID != "" {
		c.SetParamNames("id")
		c.SetParamValues(convID)
	}
	require.NoError(t, h(c))
	return rec
}

func TestOpen_IdempotentPerPair(t *testing.T) {
	h := NewMessageHandler(newFakeConvStore())

	rec := doConvRequest(t, h.Open, http.MethodPost, "/v1/conversations", "",
		`{"user_id":"alice","peer_id":"bob"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var first struct {
		Conversation struct {
			ID string `json:"id"`
		} `json:"conversation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.NotEmpty(t, first.Conversation.ID)

	// Opening from the other side returns the same thread.
	rec = doConvRequest(t, h.Open, http.MethodPost, "/v1/conversations", "",
		`{"user_id":"bob","peer_id":"alice"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var second struct {
		Conversation struct {
			ID string `json:"id"`
		} `json:"conversation"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.Equal(t, first.Conversation.ID, second.Conversation.ID)
}

func TestOpen_RejectsSelfConversation(t *testing.T) {
	h := NewMessageHandler(newFakeConvStore())

	rec := doConvRequest(t, h.Open, http.MethodPost, "/v1/conversations", "",
		`{"user_id":"alice","peer_id":"alice"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "cannot open a conversation with yourself", resp["error"])
}

func TestSend_MembershipEnforced(t *testing.T) {
	store := newFakeConvStore()
	conv, err := store.GetOrCreate(context.Background(), "alice", "bob")
	require.NoError(t, err)
	h := NewMessageHandler(store)

	rec := doConvRequest(t, h.Send, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", conv.ID,
		`{"sender_id":"mallory","body":"hi"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sender is not part of this conversation", resp["error"])

	rec = doConvRequest(t, h.Send, http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", conv.ID,
		`{"sender_id":"alice","body":"heading to rendezvous now"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSend_UnknownConversation(t *testing.T) {
	h := NewMessageHandler(newFakeConvStore())

	rec := doConvRequest(t, h.Send, http.MethodPost, "/v1/conversations/nope/messages", "nope",
		`{"sender_id":"alice","body":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHistory_PaginationCursor(t *testing.T) {
	store := newFakeConvStore()
	conv, err := store.GetOrCreate(context.Background(), "alice", "bob")
	require.NoError(t, err)
	var ids []string
	for i := 0; i < 5; i++ {
		m, err := store.InsertMessage(context.Background(), conv.ID, "alice", fmt.Sprintf("msg %d", i))
		require.NoError(t, err)
		ids = append(ids, m.ID)
	}
	h := NewMessageHandler(store)

	rec := doConvRequest(t, h.History, http.MethodGet,
		"/v1/conversations/"+conv.ID+"/messages?limit=2", conv.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var page struct {
		Messages []struct {
			ID   string `json:"id"`
			Body string `json:"body"`
		} `json:"messages"`
		HasMore bool `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Messages, 2)
	assert.True(t, page.HasMore)
	// Oldest-first within the page; latest two messages overall.
	assert.Equal(t, "msg 3", page.Messages[0].Body)
	assert.Equal(t, "msg 4", page.Messages[1].Body)

	// Page further back using the oldest id from the first page.
	rec = doConvRequest(t, h.History, http.MethodGet,
		"/v1/conversations/"+conv.ID+"/messages?limit=2&before="+ids[3], conv.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Messages, 2)
	assert.Equal(t, "msg 1", page.Messages[0].Body)
	assert.Equal(t, "msg 2", page.Messages[1].Body)
}

func TestList_RequiresUserID(t *testing.T) {
	h := NewMessageHandler(newFakeConvStore())

	rec := doConvRequest(t, h.List, http.MethodGet, "/v1/conversations", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
