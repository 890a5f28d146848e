package ginserver

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"villabook/internal/app/admin"
	appavailability "villabook/internal/app/availability"
	"villabook/internal/app/booking"
	"villabook/internal/app/calendar"
	"villabook/internal/app/commands"
	"villabook/internal/app/middleware"
	"villabook/internal/app/queries"
	"villabook/internal/app/services/auth"
	"villabook/internal/domain/units"
	"villabook/internal/infra/config"
	"villabook/internal/infra/email"
	"villabook/internal/infra/obs"
	"villabook/internal/infra/security"
	"villabook/internal/infra/storage/memory"
)

const adminPassword = "maribella"

type stubMailer struct {
	err  error
	sent []email.Message
}

func (m *stubMailer) Send(_ context.Context, msg email.Message) (email.Sent, error) {
	if m.err != nil {
		return email.Sent{}, m.err
	}
	m.sent = append(m.sent, msg)
	return email.Sent{ID: "em_1"}, nil
}

type testServer struct {
	router *gin.Engine
	remote *memory.ReservationStore
	bcast  *appavailability.Broadcaster
	mailer *stubMailer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	catalog := units.DefaultCatalog()
	remote := memory.NewReservationStore()
	fallback := memory.NewFallbackStore()
	blocks := memory.NewBlockStore()
	bcast := appavailability.NewBroadcaster()
	cache := appavailability.NewRemoteCache(remote, bcast, nil)
	require.NoError(t, cache.Load(ctx))
	oracle := &appavailability.Oracle{Remote: cache, Fallback: fallback, Blocks: blocks}
	box := memory.NewOutbox()

	writer := &booking.Writer{
		Catalog: catalog, Oracle: oracle, Remote: remote, Fallback: fallback,
		Outbox: box, Snapshot: cache, Broadcaster: bcast, RemoteTimeout: time.Second,
		Now: func() time.Time { return time.Date(2027, 1, 5, 12, 0, 0, 0, time.UTC) },
	}
	t.Cleanup(writer.Wait)

	hasher := security.BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := hasher.Hash(adminPassword)
	require.NoError(t, err)
	authSvc := &auth.Service{
		PasswordHash: hash, Sessions: memory.NewSessionStore(),
		Passwords: hasher, Tokens: security.RandomTokenGenerator{},
	}

	cmdBus := commands.NewInMemoryBus()
	qryBus := queries.NewInMemoryBus()
	commands.RegisterHandler[booking.CreateReservationCommand, booking.Result](cmdBus, booking.CreateReservationKey, writer)
	queries.RegisterHandler[calendar.GetCalendarQuery, calendar.Month](qryBus, calendar.GetCalendarKey, &calendar.GetCalendarHandler{
		Oracle: oracle, Catalog: catalog,
		Now: func() time.Time { return time.Date(2027, 1, 5, 12, 0, 0, 0, time.UTC) },
	})
	queries.RegisterHandler[calendar.GetQuoteQuery, calendar.QuoteView](qryBus, calendar.GetQuoteKey, &calendar.GetQuoteHandler{Catalog: catalog})
	admin.Register(cmdBus, qryBus, &admin.Service{
		Catalog: catalog, Remote: remote, Fallback: fallback, Blocks: blocks,
		Cache: cache, Availability: oracle, Broadcaster: bcast, Outbox: box,
	}, nil)

	cmds := middleware.ChainCommands(cmdBus,
		middleware.Authorization(auth.AdminAuthorizer{}),
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Idempotency(memory.NewIdempotencyStore(time.Hour), nil),
	)
	qs := middleware.ChainQueries(qryBus, middleware.QueryAuthorization(auth.AdminAuthorizer{}))

	mailer := &stubMailer{}
	router := NewRouter(config.Config{}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Catalog:        CatalogHandler{Catalog: catalog, Queries: qs},
		Calendar:       CalendarHandler{Queries: qs, Catalog: catalog, Broadcaster: bcast, KeepAlive: time.Hour},
		Reservations:   ReservationHandler{Commands: cmds},
		Admin:          AdminHandler{Auth: authSvc, Commands: cmds, Queries: qs},
		Email:          EmailHandler{Mailer: mailer},
		AuthMiddleware: AuthMiddleware{Service: authSvc}.Handle,
	})
	return &testServer{router: router, remote: remote, bcast: bcast, mailer: mailer}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *testServer) login(t *testing.T) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/v1/admin/login", `{"password":"`+adminPassword+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return "Bearer " + decode[auth.LoginResult](t, rec).Token
}

const bookingBody = `{"unitId":"4D","guestName":"Ana Pérez","guestEmail":"ana@example.com","checkIn":"2027-01-10","checkOut":"2027-01-13","numGuests":4,"paymentMethod":"transfer"}`

func TestCreateReservation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/v1/reservations", bookingBody, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[booking.Result](t, rec)
	assert.True(t, strings.HasPrefix(res.Code, "VM-"))
	assert.Equal(t, "$255.00", res.Total)
	assert.Equal(t, "pending", res.Status)

	replay := s.do(t, http.MethodPost, "/api/v1/reservations", bookingBody, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, res.Code, decode[booking.Result](t, replay).Code)

	list, err := s.remote.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	conflict := s.do(t, http.MethodPost, "/api/v1/reservations", bookingBody)
	assert.Equal(t, http.StatusConflict, conflict.Code)
}

func TestCreateReservation_ValidationListsFields(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/v1/reservations",
		`{"unitId":"4D","guestName":"","guestEmail":"ana@example.com","checkIn":"2027-01-10","checkOut":"2027-01-13","numGuests":5,"paymentMethod":"card"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := decode[struct {
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}](t, rec)
	var fields []string
	for _, f := range body.Fields {
		fields = append(fields, f.Field)
	}
	assert.ElementsMatch(t, []string{"guestName", "numGuests"}, fields)

	bad := s.do(t, http.MethodPost, "/api/v1/reservations", `{`)
	assert.Equal(t, http.StatusBadRequest, bad.Code)
}

func TestUnitsAndQuote(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/api/v1/units", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct {
		Units []unitResponse `json:"units"`
	}](t, rec).Units, 6)

	q := s.do(t, http.MethodGet, "/api/v1/units/1A/quote?checkIn=2027-01-10&checkOut=2027-01-12", "")
	require.Equal(t, http.StatusOK, q.Code)
	quote := decode[quoteResponse](t, q)
	assert.Equal(t, 2, quote.Nights)
	assert.Equal(t, "$110.00", quote.Total)

	missing := s.do(t, http.MethodGet, "/api/v1/units/9Z/quote", "")
	assert.Equal(t, http.StatusNotFound, missing.Code)
}

func TestCalendar_MarksReservedAndSelection(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/reservations", bookingBody).Code)

	rec := s.do(t, http.MethodGet, "/api/v1/units/4D/calendar?month=2027-01&checkIn=2027-01-20&select=2027-01-22", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[calendarResponse](t, rec)
	assert.Equal(t, "2027-01-22", string(resp.State.CheckOut))
	assert.Equal(t, 2, resp.Quote.Nights)
	assert.Equal(t, "$170.00", resp.Quote.Total)

	cells := map[string]calendar.Cell{}
	for _, c := range resp.Calendar.Cells {
		cells[string(c.Day)] = c
	}
	assert.True(t, cells["2027-01-04"].Past)
	assert.True(t, cells["2027-01-10"].Reserved)
	assert.True(t, cells["2027-01-12"].Reserved)
	assert.False(t, cells["2027-01-13"].Reserved)
	assert.True(t, cells["2027-01-21"].InRange)

	other := s.do(t, http.MethodGet, "/api/v1/units/5E/calendar?month=2027-01", "")
	otherResp := decode[calendarResponse](t, other)
	for _, c := range otherResp.Calendar.Cells {
		if c.Day == "2027-01-11" {
			assert.False(t, c.Reserved)
		}
	}

	past := decode[calendarResponse](t, s.do(t, http.MethodGet, "/api/v1/units/4D/calendar?month=2027-01&select=2027-01-03", ""))
	assert.Empty(t, past.State.CheckIn, "past days cannot be picked")
	taken := decode[calendarResponse](t, s.do(t, http.MethodGet, "/api/v1/units/4D/calendar?month=2027-01&checkIn=2027-01-08&select=2027-01-11", ""))
	assert.Equal(t, "2027-01-08", string(taken.State.CheckIn))
	assert.Empty(t, taken.State.CheckOut, "reserved days cannot be picked")

	next := decode[calendarResponse](t, s.do(t, http.MethodGet, "/api/v1/units/4D/calendar?month=2027-01&nav=next", ""))
	assert.Equal(t, "2027-02", next.State.Month)
}

func TestCalendarStream_PushesOnChange(t *testing.T) {
	s := newTestServer(t)
	srv := httptest.NewServer(s.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/units/4D/calendar/stream?month=2027-01", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	reader := bufio.NewReader(resp.Body)
	readEvent := func() string {
		var data string
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data:") {
				data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			}
			if line == "\n" && data != "" {
				return data
			}
		}
	}
	first := readEvent()
	assert.NotContains(t, first, `"reserved":true`)

	require.Eventually(t, func() bool { return s.bcast.Subscribers() > 0 }, time.Second, 10*time.Millisecond)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/reservations", bookingBody).Code)

	var updated string
	for !strings.Contains(updated, `"reserved":true`) {
		updated = readEvent()
	}
	assert.Contains(t, updated, `"reserved":true`)
}

func TestAdmin_RequiresSession(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/admin/reservations", "").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/admin/stats", "", "Authorization", "Bearer nope").Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/api/v1/admin/login", `{"password":"wrong"}`).Code)
}

func TestAdmin_ListEditBlockAndLogout(t *testing.T) {
	s := newTestServer(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/api/v1/reservations", bookingBody).Code)
	token := s.login(t)

	list := s.do(t, http.MethodGet, "/api/v1/admin/reservations?month=2027-01", "", "Authorization", token)
	require.Equal(t, http.StatusOK, list.Code)
	rows := decode[struct {
		Reservations []admin.Row `json:"reservations"`
	}](t, list).Reservations
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Offline)

	edit := s.do(t, http.MethodPatch, "/api/v1/admin/reservations/"+rows[0].RemoteID,
		`{"checkOut":"2027-01-15","status":"confirmed"}`, "Authorization", token)
	require.Equal(t, http.StatusOK, edit.Code, edit.Body.String())
	edited := decode[admin.Row](t, edit)
	assert.Equal(t, "$425.00", edited.Total)
	assert.Equal(t, "confirmed", edited.Status)

	badMonth := s.do(t, http.MethodGet, "/api/v1/admin/reservations?month=jan", "", "Authorization", token)
	assert.Equal(t, http.StatusBadRequest, badMonth.Code)

	block := s.do(t, http.MethodPost, "/api/v1/admin/blocks", `{"start":"2027-02-01","end":"2027-02-03","reason":"Mantenimiento"}`, "Authorization", token)
	require.Equal(t, http.StatusCreated, block.Code, block.Body.String())
	created := decode[blockResponse](t, block)
	assert.Equal(t, 3, created.Days)

	stats := decode[admin.Stats](t, s.do(t, http.MethodGet, "/api/v1/admin/stats", "", "Authorization", token))
	assert.Equal(t, 1, stats.TotalReservations)
	assert.Equal(t, 3, stats.BlockedDays)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/admin/blocks/"+created.ID, "", "Authorization", token).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/api/v1/admin/blocks/"+created.ID, "", "Authorization", token).Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/v1/admin/reservations/"+rows[0].RemoteID, "", "Authorization", token).Code)

	export := s.do(t, http.MethodPost, "/api/v1/admin/exports", "", "Authorization", token)
	assert.Equal(t, http.StatusServiceUnavailable, export.Code)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPost, "/api/v1/admin/logout", "", "Authorization", token).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodGet, "/api/v1/admin/stats", "", "Authorization", token).Code)
}

func TestSendEmail(t *testing.T) {
	s := newTestServer(t)
	body := `{"guestName":"Ana","guestEmail":"ana@example.com","reservationId":"VM-7","checkIn":"10/1/2027","checkOut":"13/1/2027","total":"255.00","villaNumber":"4D"}`

	rec := s.do(t, http.MethodPost, "/api/send-email", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Email sent successfully")
	require.Len(t, s.mailer.sent, 1)
	assert.Equal(t, "Confirmación de Reserva #VM-7 - Villas Maribella", s.mailer.sent[0].Subject)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/send-email", `{"guestName":"Ana"}`).Code)

	s.mailer.err = &email.ProviderError{StatusCode: 422, Message: "Invalid to field"}
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, "/api/send-email", body).Code)

	s.mailer.err = context.DeadlineExceeded
	failed := s.do(t, http.MethodPost, "/api/send-email", body)
	assert.Equal(t, http.StatusInternalServerError, failed.Code)
	assert.Contains(t, failed.Body.String(), "Internal Server Error")
}
