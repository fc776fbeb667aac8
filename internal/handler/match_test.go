package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bruindash/bruindash/internal/model"
	"github.com/bruindash/bruindash/internal/queue"
	"github.com/bruindash/bruindash/internal/repository"
)

type fakeMatches struct {
	mu        sync.Mutex
	matches   map[string]model.Match
	createErr error
}

func newFakeMatches() *fakeMatches {
	return &fakeMatches{matches: map[string]model.Match{}}
}

func (f *fakeMatches) Create(ctx context.Context, m *model.Match) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	m.CreatedAt = time.Now().UTC()
	f.matches[m.ID] = *m
	return nil
}

func (f *fakeMatches) GetByID(ctx context.Context, id string) (model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return model.Match{}, repository.ErrMatchNotFound
	}
	return m, nil
}

func (f *fakeMatches) RecordVerification(ctx context.Context, id string, byOrderer bool) (model.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[id]
	if !ok {
		return model.Match{}, repository.ErrMatchNotFound
	}
	if byOrderer {
		m.OrdererOK = true
	} else {
		m.DelivererOK = true
	}
	if m.OrdererOK && m.DelivererOK {
		m.Status = model.MatchConfirmed
	}
	f.matches[id] = m
	return m, nil
}

type fakeConvs struct {
	mu     sync.Mutex
	opened [][2]string
}

func (f *fakeConvs) GetOrCreate(ctx context.Context, a, b string) (model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, [2]string{a, b})
	return model.Conversation{ID: "conv-1", UserA: a, UserB: b}, nil
}

func newMatchHandlerForTest(avail AvailabilityStore, matches MatchStore, convs ConversationOpener) (*MatchHandler, chan queue.MatchClaimedEvent) {
	published := make(chan queue.MatchClaimedEvent, 4)
	h := NewMatchHandler(avail, &fakeUsers{users: map[string]model.User{}}, matches, convs, 15*time.Minute)
	h.Publish = func(ctx context.Context, ev queue.MatchClaimedEvent) error {
		published <- ev
		return nil
	}
	return h, published
}

func doClaim(t *testing.T, h *MatchHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	c, rec := newJSONContext(http.MethodPost, "/v1/matches/claim", body)
	require.NoError(t, h.Claim(c))
	return rec
}

func doVerify(t *testing.T, h *MatchHandler, matchID, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/matches/"+matchID+"/verify", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(matchID)
	require.NoError(t, h.Verify(c))
	return rec
}

type claimResp struct {
	Match struct {
		ID        string    `json:"id"`
		Status    string    `json:"status"`
		ExpiresAt time.Time `json:"expires_at"`
	} `json:"match"`
	Deliverer model.Deliverer `json:"deliverer"`
	PIN       string          `json:"pin"`
}

func TestClaim_HappyPath(t *testing.T) {
	avail := newFakeAvail()
	avail.seed("d1", "rendezvous", "two quesadillas", true, time.Now())
	matches := newFakeMatches()
	h, published := newMatchHandlerForTest(avail, matches, &fakeConvs{})

	rec := doClaim(t, h, `{"orderer_id":"o1","hall_id":"rendezvous"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp claimResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.MatchPending, resp.Match.Status)
	assert.Len(t, resp.PIN, 4)
	assert.Equal(t, "d1", resp.Deliverer.UserID)
	assert.False(t, resp.Deliverer.Active, "claimed row is returned already deactivated")
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), resp.Match.ExpiresAt, time.Minute)

	// The deliverer's row flipped inactive as part of the claim.
	rows, err := avail.ListActive(context.Background(), "rendezvous")
	require.NoError(t, err)
	assert.Empty(t, rows)

	select {
	case ev := <-published:
		assert.Equal(t, resp.Match.ID, ev.MatchID)
		assert.Equal(t, "Rendezvous", ev.HallName)
		assert.Equal(t, "two quesadillas", ev.DesiredOrder)
	case <-time.After(time.Second):
		t.Fatal("match.claimed event was not published")
	}
}

func TestClaim_NoActiveDeliverers(t *testing.T) {
	h, _ := newMatchHandlerForTest(newFakeAvail(), newFakeMatches(), &fakeConvs{})

	rec := doClaim(t, h, `{"orderer_id":"o1","hall_id":"rendezvous"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no active deliverers for hall", resp["error"])
}

func TestClaim_ValidatesBody(t *testing.T) {
	avail := newFakeAvail()
	avail.seed("d1", "rendezvous", "pho", true, time.Now())
	h, _ := newMatchHandlerForTest(avail, newFakeMatches(), &fakeConvs{})

	rec := doClaim(t, h, `{"hall_id":"rendezvous"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doClaim(t, h, `{"orderer_id":"o1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing was claimed.
	rows, err := avail.ListActive(context.Background(), "rendezvous")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestClaim_ConcurrentClaimsSingleWinner(t *testing.T) {
	avail := newFakeAvail()
	avail.seed("d1", "rendezvous", "pad thai", true, time.Now())
	h, _ := newMatchHandlerForTest(avail, newFakeMatches(), &fakeConvs{})

	var wg sync.WaitGroup
	codes := make(chan int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := doClaim(t, h, `{"orderer_id":"o1","hall_id":"rendezvous"}`)
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	var won, lost int
	for code := range codes {
		switch code {
		case http.StatusCreated:
			won++
		case http.StatusNotFound:
			lost++
		default:
			t.Fatalf("unexpected status %d", code)
		}
	}
	assert.Equal(t, 1, won, "exactly one claimer wins the deliverer")
	assert.Equal(t, 1, lost)
}

func TestClaim_PicksMostRecentlyActive(t *testing.T) {
	now := time.Now().UTC()
	avail := newFakeAvail()
	avail.seed("d-old", "rendezvous", "soup", true, now.Add(-time.Hour))
	avail.seed("d-new", "rendezvous", "bao", true, now)
	h, _ := newMatchHandlerForTest(avail, newFakeMatches(), &fakeConvs{})

	rec := doClaim(t, h, `{"orderer_id":"o1","hall_id":"rendezvous"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp claimResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "d-new", resp.Deliverer.UserID)
}

func doGet(t *testing.T, h *MatchHandler, matchID, userID string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	target := "/v1/matches/" + matchID
	if userID != "" {
		target += "?user_id=" + userID
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(matchID)
	require.NoError(t, h.Get(c))
	return rec
}

func TestClaim_CreateFailureRestoresAvailability(t *testing.T) {
	avail := newFakeAvail()
	avail.seed("d1", "rendezvous", "bibimbap", true, time.Now())
	matches := newFakeMatches()
	matches.createErr = assert.AnError
	h, _ := newMatchHandlerForTest(avail, matches, &fakeConvs{})

	rec := doClaim(t, h, `{"orderer_id":"o1","hall_id":"rendezvous"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	// The deliverer must not vanish from the pool when no handshake record
	// was stored.
	rows, err := avail.ListActive(context.Background(), "rendezvous")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "d1", rows[0].UserID)
	assert.True(t, rows[0].Active)
}

func seedMatch(matches *fakeMatches, expiresAt time.Time) model.Match {
	m := model.Match{
		ID:           "m1",
		OrdererID:    "o1",
		DelivererID:  "d1",
		HallID:       "rendezvous",
		DesiredOrder: "dumplings",
		OrdererPIN:   "1111",
		DelivererPIN: "2222",
		Status:       model.MatchPending,
		ExpiresAt:    expiresAt,
	}
	matches.matches[m.ID] = m
	return m
}

func TestVerify_BothSidesConfirm(t *testing.T) {
	matches := newFakeMatches()
	seedMatch(matches, time.Now().UTC().Add(10*time.Minute))
	convs := &fakeConvs{}
	h, _ := newMatchHandlerForTest(newFakeAvail(), matches, convs)

	// Orderer types in the deliverer's PIN.
	rec := doVerify(t, h, "m1", `{"user_id":"o1","pin":"2222"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Match matchPart `json:"match"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Match.OrdererOK)
	assert.False(t, resp.Match.DelivererOK)
	assert.Equal(t, model.MatchPending, resp.Match.Status)
	assert.Empty(t, convs.opened, "conversation opens only on full confirmation")

	// Deliverer types in the orderer's PIN.
	rec = doVerify(t, h, "m1", `{"user_id":"d1","pin":"1111"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Match.OrdererOK)
	assert.True(t, resp.Match.DelivererOK)
	assert.Equal(t, model.MatchConfirmed, resp.Match.Status)

	require.Len(t, convs.opened, 1)
	assert.Equal(t, [2]string{"o1", "d1"}, convs.opened[0])
}

func TestVerify_PinMismatch(t *testing.T) {
	matches := newFakeMatches()
	seedMatch(matches, time.Now().UTC().Add(10*time.Minute))
	h, _ := newMatchHandlerForTest(newFakeAvail(), matches, &fakeConvs{})

	// Orderer submitting their own PIN instead of the deliverer's.
	rec := doVerify(t, h, "m1", `{"user_id":"o1","pin":"1111"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	m, err := matches.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.False(t, m.OrdererOK, "mismatch must not record a verification")
}

func TestVerify_NonParticipant(t *testing.T) {
	matches := newFakeMatches()
	seedMatch(matches, time.Now().UTC().Add(10*time.Minute))
	h, _ := newMatchHandlerForTest(newFakeAvail(), matches, &fakeConvs{})

	rec := doVerify(t, h, "m1", `{"user_id":"stranger","pin":"2222"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestVerify_Expired(t *testing.T) {
	matches := newFakeMatches()
	seedMatch(matches, time.Now().UTC().Add(-time.Minute))
	h, _ := newMatchHandlerForTest(newFakeAvail(), matches, &fakeConvs{})

	rec := doVerify(t, h, "m1", `{"user_id":"o1","pin":"2222"}`)
	assert.Equal(t, http.StatusGone, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "match expired", resp["error"])
}

func TestVerify_UnknownMatch(t *testing.T) {
	h, _ := newMatchHandlerForTest(newFakeAvail(), newFakeMatches(), &fakeConvs{})

	rec := doVerify(t, h, "nope", `{"user_id":"o1","pin":"2222"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestVerify_ConcurrentVerificationsBothRecorded(t *testing.T) {
	matches := newFakeMatches()
	seedMatch(matches, time.Now().UTC().Add(10*time.Minute))
	h, _ := newMatchHandlerForTest(newFakeAvail(), matches, &fakeConvs{})

	// Both parties verify at the same time, each starting from a snapshot
	// that predates the other's write. Per-flag recording in the store
	// means neither verification can erase the other.
	var wg sync.WaitGroup
	for _, body := range []string{
		`{"user_id":"o1","pin":"2222"}`,
		`{"user_id":"d1","pin":"1111"}`,
	} {
		wg.Add(1)
		go func(b string) {
			defer wg.Done()
			rec := doVerify(t, h, "m1", b)
			assert.Equal(t, http.StatusOK, rec.Code)
		}(body)
	}
	wg.Wait()

	m, err := matches.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.True(t, m.OrdererOK)
	assert.True(t, m.DelivererOK)
	assert.Equal(t, model.MatchConfirmed, m.Status)
}

type getResp struct {
	Match matchPart `json:"match"`
	PIN   string    `json:"pin"`
}

func TestGet_EachPartyReceivesOwnPIN(t *testing.T) {
	matches := newFakeMatches()
	seedMatch(matches, time.Now().UTC().Add(10*time.Minute))
	h, _ := newMatchHandlerForTest(newFakeAvail(), matches, &fakeConvs{})

	// The deliverer never saw the claim response; this is how they learn
	// the PIN they read out to the orderer.
	rec := doGet(t, h, "m1", "d1")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp getResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "2222", resp.PIN)
	assert.Equal(t, model.MatchPending, resp.Match.Status)

	rec = doGet(t, h, "m1", "o1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1111", resp.PIN)
}

func TestGet_FetchedPINCompletesHandshake(t *testing.T) {
	matches := newFakeMatches()
	seedMatch(matches, time.Now().UTC().Add(10*time.Minute))
	convs := &fakeConvs{}
	h, _ := newMatchHandlerForTest(newFakeAvail(), matches, convs)

	// Deliverer fetches their own PIN, reads it to the orderer, who types
	// it in; then the deliverer types in the orderer's.
	rec := doGet(t, h, "m1", "d1")
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched getResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))

	rec = doVerify(t, h, "m1", `{"user_id":"o1","pin":"`+fetched.PIN+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doVerify(t, h, "m1", `{"user_id":"d1","pin":"1111"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	m, err := matches.GetByID(context.Background(), "m1")
	require.NoError(t, err)
	assert.Equal(t, model.MatchConfirmed, m.Status)
	require.Len(t, convs.opened, 1)
}

func TestGet_NonParticipantForbidden(t *testing.T) {
	matches := newFakeMatches()
	seedMatch(matches, time.Now().UTC().Add(10*time.Minute))
	h, _ := newMatchHandlerForTest(newFakeAvail(), matches, &fakeConvs{})

	rec := doGet(t, h, "m1", "stranger")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = doGet(t, h, "m1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGet_UnknownMatch(t *testing.T) {
	h, _ := newMatchHandlerForTest(newFakeAvail(), newFakeMatches(), &fakeConvs{})

	rec := doGet(t, h, "nope", "o1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
