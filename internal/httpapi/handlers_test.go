package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phonebook/internal/audit"
	"phonebook/internal/broadcast"
	"phonebook/internal/calls"
	"phonebook/internal/contacts"
	"phonebook/internal/directory"
	"phonebook/internal/incoming"
	"phonebook/internal/routing"
)

type envelope struct {
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

type recordingSync struct {
	mu   sync.Mutex
	jobs []contacts.Contact
}

func (r *recordingSync) Enqueue(ctx context.Context, c contacts.Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, c)
}

type fakeResyncer struct{ n int }

func (f fakeResyncer) ResyncAll(ctx context.Context, src directory.ContactLister) (int, error) {
	return f.n, nil
}

type testAPI struct {
	router   *gin.Engine
	contacts *contacts.MemoryStore
	calls    *calls.MemoryStore
	rules    *routing.MemoryStore
	hub      *broadcast.Hub[calls.Details]
	dir      *recordingSync
	audit    *audit.MemoryRepo
}

func newTestAPI(t *testing.T) testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cs := contacts.NewMemoryStore()
	rules := routing.NewMemoryStore()
	callStore := calls.NewMemoryStore(cs)
	hub := broadcast.NewHub[calls.Details]()
	dir := &recordingSync{}
	auditRepo := audit.NewMemoryRepo()
	auditSvc := audit.NewService(auditRepo)

	h := Handlers{
		Contacts: contacts.NewService(cs, dir, auditSvc),
		Rules:    rules,
		Calls:    callStore,
		Incoming: incoming.NewService(
			contacts.NewResolver(cs, rules),
			calls.NewRecorder(callStore, broadcast.Local[calls.Details]{Hub: hub}),
			dir,
		),
		Live:       hub,
		Directory:  fakeResyncer{n: 3},
		Audit:      auditSvc,
		PageSize:   2,
		LiveBuffer: 4,
		Heartbeat:  50 * time.Millisecond,
	}

	r := gin.New()
	r.GET("/api/healthcheck", h.HealthCheck)
	r.POST("/api/incoming_call/", h.IncomingCall)
	r.GET("/api/contacts", h.ListContacts)
	r.POST("/api/contacts", h.AddContact)
	r.GET("/api/contacts/:id", h.GetContact)
	r.PUT("/api/contacts/:id", h.UpdateContact)
	r.DELETE("/api/contacts/:id", h.DeleteContact)
	r.GET("/api/phone_calls", h.ListPhoneCalls)
	r.GET("/api/phone_calls/live", h.LivePhoneCalls)
	r.GET("/api/defaults", h.ListDefaults)
	r.GET("/api/defaults/:id", h.GetDefault)
	r.POST("/api/defaults", h.AddDefault)
	r.PUT("/api/defaults/:id", h.UpdateDefault)
	r.DELETE("/api/defaults/:id", h.DeleteDefault)
	r.POST("/api/directory/resync", h.DirectoryResync)

	return testAPI{router: r, contacts: cs, calls: callStore, rules: rules, hub: hub, dir: dir, audit: auditRepo}
}

func (a testAPI) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "body: %s", w.Body.String())
	return w, env
}

func TestHealthCheck(t *testing.T) {
	api := newTestAPI(t)
	w, env := api.do(t, http.MethodGet, "/api/healthcheck", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Success", env.Status)
}

type stubChecker struct{ err error }

func (s stubChecker) Check(ctx context.Context) error { return s.err }

func TestHealthCheck_CoversDirectory(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, tc := range []struct {
		name string
		err  error
		want int
	}{
		{"directory up", nil, http.StatusOK},
		{"directory down", errors.New("ldap: connection refused"), http.StatusInternalServerError},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/api/healthcheck", Handlers{DirectoryHealth: stubChecker{err: tc.err}}.HealthCheck)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/healthcheck", nil))
			assert.Equal(t, tc.want, w.Code)
			assert.NotContains(t, w.Body.String(), "connection refused")
		})
	}
}

func TestIncomingCall_CreatesContactFromRule(t *testing.T) {
	api := newTestAPI(t)
	_, err := api.rules.Add(context.Background(), routing.RuleFields{Order: 1, Regexp: "^04", Name: "Mobile", Action: routing.ActionVoiceMail})
	require.NoError(t, err)

	w, env := api.do(t, http.MethodPost, "/api/incoming_call/", `{"phone_number":"0412345678","destination_number":"100"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var d calls.Details
	require.NoError(t, json.Unmarshal(env.Data, &d))
	require.NotNil(t, d.ContactName)
	assert.Equal(t, "Mobile", *d.ContactName)
	assert.Equal(t, routing.ActionVoiceMail, d.Action)
	assert.Contains(t, string(env.Data), `"action":"voicemail"`)
	assert.Len(t, api.dir.jobs, 1)
}

func TestIncomingCall_MissingPhoneNumber(t *testing.T) {
	api := newTestAPI(t)
	w, env := api.do(t, http.MethodPost, "/api/incoming_call/", `{"destination_number":"100"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Error", env.Status)
	assert.Equal(t, "Phone number cannot be empty", env.Message)
}

func TestIncomingCall_MalformedBody(t *testing.T) {
	api := newTestAPI(t)
	w, env := api.do(t, http.MethodPost, "/api/incoming_call/", `{"phone_number":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid JSON", env.Message)
}

func TestContacts_CRUD(t *testing.T) {
	api := newTestAPI(t)

	w, env := api.do(t, http.MethodPost, "/api/contacts", `{"phone_number":"0400000000","name":"Carl","action":"allow","comments":""}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created contacts.Contact
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Nil(t, created.Comments)
	assert.Contains(t, string(env.Data), `"comments":null`)

	w, env = api.do(t, http.MethodPut, "/api/contacts/1", `{"name":"Carl","action":"voicemail","comments":"after hours"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = api.do(t, http.MethodGet, "/api/contacts/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var d contacts.Details
	require.NoError(t, json.Unmarshal(env.Data, &d))
	assert.Equal(t, routing.ActionVoiceMail, d.Action)
	assert.Equal(t, int64(0), d.NumberCalls)

	w, _ = api.do(t, http.MethodDelete, "/api/contacts/1", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, http.MethodGet, "/api/contacts/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Contact with id 1 not found", env.Message)

	require.Len(t, api.dir.jobs, 3)
	assert.Equal(t, int64(1), api.dir.jobs[2].ID)
	assert.Len(t, api.audit.Events(), 3)
}

func TestContacts_InvalidAction(t *testing.T) {
	api := newTestAPI(t)
	w, env := api.do(t, http.MethodPost, "/api/contacts", `{"phone_number":"0400000000","action":"hangup"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.HasPrefix(env.Message, "Invalid action"), env.Message)
}

func TestContacts_DeleteWithCallsConflicts(t *testing.T) {
	api := newTestAPI(t)
	_, _ = api.do(t, http.MethodPost, "/api/incoming_call/", `{"phone_number":"0299990000","destination_number":"100"}`)

	w, env := api.do(t, http.MethodDelete, "/api/contacts/1", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Contact has phone calls", env.Message)
}

func TestContacts_ListPagesAndSearches(t *testing.T) {
	api := newTestAPI(t)
	for _, body := range []string{
		`{"phone_number":"01","name":"John Doe","action":"allow"}`,
		`{"phone_number":"02","name":"Jane","action":"allow"}`,
		`{"phone_number":"03","action":"allow"}`,
	} {
		w, _ := api.do(t, http.MethodPost, "/api/contacts", body)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	_, env := api.do(t, http.MethodGet, "/api/contacts", "")
	var page struct {
		Items   []contacts.Details `json:"items"`
		NextKey *contacts.Key      `json:"next_key"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextKey)
	assert.Equal(t, contacts.Key{PhoneNumber: "02", ID: 2}, *page.NextKey)

	_, env = api.do(t, http.MethodGet, "/api/contacts?after_key[phone_number]=02&after_key[id]=2", "")
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "03", page.Items[0].PhoneNumber)
	assert.Nil(t, page.NextKey)

	_, env = api.do(t, http.MethodGet, "/api/contacts?search=john", "")
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 1)
	assert.Equal(t, "John Doe", *page.Items[0].Name)
}

func TestContacts_BadCursor(t *testing.T) {
	api := newTestAPI(t)
	w, env := api.do(t, http.MethodGet, "/api/contacts?after_key[phone_number]=02&after_key[id]=x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid integer: x", env.Message)
}

func TestPhoneCalls_ListScopedToContact(t *testing.T) {
	api := newTestAPI(t)
	for _, phone := range []string{"01", "02", "01"} {
		w, _ := api.do(t, http.MethodPost, "/api/incoming_call/", `{"phone_number":"`+phone+`","destination_number":"100"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	_, env := api.do(t, http.MethodGet, "/api/phone_calls?contact_id=1", "")
	var page struct {
		Items   []calls.Details `json:"items"`
		NextKey *calls.Key      `json:"next_key"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &page))
	require.Len(t, page.Items, 2)
	for _, d := range page.Items {
		assert.Equal(t, int64(1), d.ContactID)
	}
	assert.Greater(t, page.Items[0].ID, page.Items[1].ID)
}

func TestDefaults_ValidationMessages(t *testing.T) {
	api := newTestAPI(t)
	cases := []struct {
		body string
		want string
	}{
		{`{"order":"","regexp":"^04","name":"Mobile","action":"allow"}`, "Order cannot be empty"},
		{`{"order":"one","regexp":"^04","name":"Mobile","action":"allow"}`, "Invalid integer"},
		{`{"order":1,"regexp":"","name":"Mobile","action":"allow"}`, "Regexp cannot be empty"},
		{`{"order":1,"regexp":"(","name":"Mobile","action":"allow"}`, "Invalid regexp"},
		{`{"order":1,"regexp":"^04","name":"","action":"allow"}`, "Name cannot be empty"},
	}
	for _, tc := range cases {
		w, env := api.do(t, http.MethodPost, "/api/defaults", tc.body)
		assert.Equal(t, http.StatusBadRequest, w.Code, tc.body)
		assert.True(t, strings.HasPrefix(env.Message, tc.want), "%s: got %q", tc.body, env.Message)
	}
}

func TestDefaults_CRUD(t *testing.T) {
	api := newTestAPI(t)

	w, _ := api.do(t, http.MethodPost, "/api/defaults", `{"order":"2","regexp":".*","name":"Rest","action":"allow"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	w, _ = api.do(t, http.MethodPost, "/api/defaults", `{"order":1,"regexp":"^04","name":"Mobile","action":"voicemail"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	_, env := api.do(t, http.MethodGet, "/api/defaults", "")
	var rules []routing.DefaultRule
	require.NoError(t, json.Unmarshal(env.Data, &rules))
	require.Len(t, rules, 2)
	assert.Equal(t, "Mobile", rules[0].Name)

	w, _ = api.do(t, http.MethodPut, "/api/defaults/1", `{"order":3,"regexp":".*","name":"Others","action":"allow"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = api.do(t, http.MethodDelete, "/api/defaults/2", "")
	require.Equal(t, http.StatusOK, w.Code)

	w, env = api.do(t, http.MethodGet, "/api/defaults/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Default with id 2 not found", env.Message)
}

func TestDirectoryResync(t *testing.T) {
	api := newTestAPI(t)
	w, env := api.do(t, http.MethodPost, "/api/directory/resync", "")
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.JSONEq(t, `{"queued":3}`, string(env.Data))
}

func TestLivePhoneCalls_StreamsRecordedCalls(t *testing.T) {
	api := newTestAPI(t)
	srv := httptest.NewServer(api.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/phone_calls/live", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool { return api.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	w, _ := api.do(t, http.MethodPost, "/api/incoming_call/", `{"phone_number":"0400000000","destination_number":"100"}`)
	require.Equal(t, http.StatusOK, w.Code)

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		}
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			break
		}
	}
	assert.Equal(t, "phone_call", event)
	var d calls.Details
	require.NoError(t, json.Unmarshal([]byte(data), &d))
	assert.Equal(t, "0400000000", d.ContactPhoneNumber)
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Phone number", humanize("PhoneNumber"))
	assert.Equal(t, "Action", humanize("Action"))
}
