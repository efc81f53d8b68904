package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/nhle/mail-assistant/internal/directory"
	"github.com/nhle/mail-assistant/internal/logger"
	"github.com/nhle/mail-assistant/internal/model"
	"github.com/nhle/mail-assistant/internal/service"
	"github.com/nhle/mail-assistant/tests/testutil"
)

type stubMailbox struct {
	msgs    []model.Message
	err     error
	sendErr error
	sent    []string
}

func (s *stubMailbox) FetchRecent(context.Context) ([]model.Message, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]model.Message(nil), s.msgs...), nil
}

func (s *stubMailbox) MarkAnswered(context.Context, uint32) error { return nil }

func (s *stubMailbox) SendReply(_ context.Context, msg model.Message) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, msg.ID)
	return nil
}

type stubDrafter struct{ basic bool }

func (stubDrafter) DraftReply(_ context.Context, msg model.Message) (string, error) {
	return "Thanks for " + msg.Subject, nil
}

func (d stubDrafter) IsBasic(context.Context, model.Message) bool { return d.basic }

type countingRefresher struct{ calls int }

func (r *countingRefresher) Refresh() { r.calls++ }

type testServer struct {
	app       *fiber.App
	mailbox   *stubMailbox
	settings  *model.SettingsStore
	refresher *countingRefresher
}

func newTestServer(t *testing.T, msgs ...model.Message) *testServer {
	t.Helper()

	settings, err := model.NewSettingsStore(filepath.Join(t.TempDir(), ".env.local"), nil)
	if err != nil {
		t.Fatalf("NewSettingsStore: %v", err)
	}

	mailbox := &stubMailbox{msgs: msgs}
	factory := func(s model.Settings) service.Adapters {
		return service.Adapters{
			Reader:  mailbox,
			Drafter: stubDrafter{basic: true},
			Sender:  mailbox,
		}
	}

	activity := testutil.NewTestStore(t)
	refresher := &countingRefresher{}
	log := logger.Nop()
	svc := service.New(settings, factory, directory.New(),
		service.WithRecorder(activity), service.WithLogger(log))

	app := NewApp()
	SetupRoutes(app, Handlers{
		Config:   NewConfigHandler(settings, refresher, log),
		Email:    NewEmailHandler(svc, log),
		Monitor:  NewMonitorHandler(svc, nil, log),
		Activity: NewActivityHandler(activity, log),
	}, false)

	return &testServer{app: app, mailbox: mailbox, settings: settings, refresher: refresher}
}

func (s *testServer) do(t *testing.T, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]interface{}{}
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(data, &out); err != nil {
			t.Fatalf("decoding %s: %v", data, err)
		}
	}
	return resp.StatusCode, out
}

func testMessages() []model.Message {
	return []model.Message{
		{ID: "2", Sender: "Bob <bob@example.com>", Subject: "Lunch", Body: "Lunch today?"},
		{ID: "1", Sender: "amy@example.com", Subject: "Thanks", Body: "Thank you!"},
	}
}

func TestConfig_BeforeAndAfterSave(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/config", "")
	if status != http.StatusOK || body["configured"] != false {
		t.Fatalf("before save: %d %v", status, body)
	}

	status, body = s.do(t, http.MethodPost, "/config",
		`{"anthropicKey":"sk-1","emailHost":"imap.example.com","emailPort":993,"emailUser":"me@example.com","autoReplyEnabled":true}`)
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("save: %d %v", status, body)
	}

	for i := 0; i < 2; i++ {
		status, body = s.do(t, http.MethodGet, "/config", "")
		if status != http.StatusOK || body["configured"] != true {
			t.Errorf("after save (%d): %d %v", i, status, body)
		}
	}

	cur := s.settings.Current()
	if cur.EmailPort != "993" || !cur.AutoReplyEnabled || cur.SMTPHost != "" {
		t.Errorf("saved settings = %+v", cur)
	}
	if s.refresher.calls != 1 {
		t.Errorf("poller refreshed %d times after save, want 1", s.refresher.calls)
	}
}

func TestConfig_MalformedBody(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodPost, "/config", `{"emailHost":`)
	if status != http.StatusBadRequest || body["error"] == nil {
		t.Errorf("status %d body %v, want 400 with error", status, body)
	}
	if s.refresher.calls != 0 {
		t.Errorf("poller refreshed after rejected save")
	}
}

func TestEmails_List(t *testing.T) {
	s := newTestServer(t, testMessages()...)

	status, body := s.do(t, http.MethodGet, "/emails", "")
	if status != http.StatusOK {
		t.Fatalf("status %d body %v", status, body)
	}
	emails, _ := body["emails"].([]interface{})
	if len(emails) != 2 {
		t.Errorf("emails = %v", body["emails"])
	}
	if body["generation"] != float64(1) {
		t.Errorf("generation = %v", body["generation"])
	}
}

func TestEmails_FetchError(t *testing.T) {
	s := newTestServer(t)
	s.mailbox.err = errors.New("dial tcp: connection refused")

	status, body := s.do(t, http.MethodGet, "/emails", "")
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "connection refused") {
		t.Errorf("error = %v", body["error"])
	}
}

func TestEmails_EmptyMailbox(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/emails", "")
	if status != http.StatusOK {
		t.Fatalf("status %d body %v", status, body)
	}
	if emails, ok := body["emails"].([]interface{}); !ok || len(emails) != 0 {
		t.Errorf("emails = %#v, want []", body["emails"])
	}
}

func TestGenerateDraft(t *testing.T) {
	s := newTestServer(t, testMessages()...)

	status, body := s.do(t, http.MethodPost, "/generate-draft", `{"emailId":"2"}`)
	if status != http.StatusOK || body["draft"] != "Thanks for Lunch" {
		t.Errorf("status %d body %v", status, body)
	}
}

func TestGenerateDraft_UnknownID(t *testing.T) {
	s := newTestServer(t, testMessages()...)

	status, body := s.do(t, http.MethodPost, "/generate-draft", `{"emailId":"99"}`)
	if status != http.StatusNotFound || body["error"] != "Email not found" {
		t.Errorf("status %d body %v", status, body)
	}
}

func TestGenerateDraft_Stale(t *testing.T) {
	s := newTestServer(t, testMessages()...)
	s.do(t, http.MethodGet, "/emails", "")
	s.do(t, http.MethodGet, "/emails", "")

	status, body := s.do(t, http.MethodPost, "/generate-draft", `{"emailId":"2","generation":1}`)
	if status != http.StatusNotFound || body["stale"] != true {
		t.Errorf("status %d body %v, want 404 stale", status, body)
	}
}

func TestGenerateDraft_MissingID(t *testing.T) {
	s := newTestServer(t, testMessages()...)

	status, _ := s.do(t, http.MethodPost, "/generate-draft", `{}`)
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestSendReply_NoDraft(t *testing.T) {
	s := newTestServer(t, testMessages()...)

	status, body := s.do(t, http.MethodPost, "/send-reply", `{"emailId":"1"}`)
	if status != http.StatusBadRequest || body["error"] != "No draft available" {
		t.Errorf("status %d body %v", status, body)
	}
	if len(s.mailbox.sent) != 0 {
		t.Error("sender called without a draft")
	}
}

func TestSendReply_SenderReportsNoDraft(t *testing.T) {
	s := newTestServer(t, testMessages()...)
	s.do(t, http.MethodPost, "/generate-draft", `{"emailId":"1"}`)
	s.mailbox.sendErr = model.ErrNoDraft

	status, body := s.do(t, http.MethodPost, "/send-reply", `{"emailId":"1"}`)
	if status != http.StatusBadRequest || body["error"] != "No draft available" {
		t.Errorf("status %d body %v, want 400 No draft available", status, body)
	}
}

func TestSendReply_UnknownID(t *testing.T) {
	s := newTestServer(t, testMessages()...)

	status, _ := s.do(t, http.MethodPost, "/send-reply", `{"emailId":"42"}`)
	if status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", status)
	}
}

func TestSendReply(t *testing.T) {
	s := newTestServer(t, testMessages()...)

	s.do(t, http.MethodPost, "/generate-draft", `{"emailId":"2"}`)
	status, body := s.do(t, http.MethodPost, "/send-reply", `{"emailId":2}`)
	if status != http.StatusOK || body["success"] != true {
		t.Fatalf("status %d body %v", status, body)
	}
	if len(s.mailbox.sent) != 1 || s.mailbox.sent[0] != "2" {
		t.Errorf("sent = %v", s.mailbox.sent)
	}

	_, body = s.do(t, http.MethodGet, "/activity?limit=10", "")
	activity, _ := body["activity"].([]interface{})
	if len(activity) == 0 {
		t.Fatal("no activity recorded")
	}
	latest := activity[0].(map[string]interface{})
	if latest["kind"] != "reply" || latest["recipient"] != "bob@example.com" {
		t.Errorf("latest activity = %v", latest)
	}
}

func TestMonitor_AutoReplyDisabled(t *testing.T) {
	s := newTestServer(t, testMessages()...)

	status, body := s.do(t, http.MethodGet, "/monitor", "")
	if status != http.StatusOK {
		t.Fatalf("status %d body %v", status, body)
	}
	if body["newEmails"] != float64(2) || body["autoReplied"] != float64(0) {
		t.Errorf("body = %v", body)
	}
	if len(s.mailbox.sent) != 0 {
		t.Errorf("sent = %v with auto-reply off", s.mailbox.sent)
	}
}

func TestMonitor_AutoReplyEnabled(t *testing.T) {
	s := newTestServer(t, testMessages()...)
	if err := s.settings.Save(model.Settings{AutoReplyEnabled: true}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	status, body := s.do(t, http.MethodGet, "/monitor", "")
	if status != http.StatusOK {
		t.Fatalf("status %d body %v", status, body)
	}
	if body["autoReplied"] != float64(2) {
		t.Errorf("autoReplied = %v", body["autoReplied"])
	}
	outcomes, _ := body["outcomes"].([]interface{})
	if len(outcomes) != 2 {
		t.Errorf("outcomes = %v", body["outcomes"])
	}
}

func TestMonitorStatus_NoPoller(t *testing.T) {
	s := newTestServer(t)

	status, body := s.do(t, http.MethodGet, "/monitor/status", "")
	if status != http.StatusOK || body["state"] != "stopped" {
		t.Errorf("status %d body %v", status, body)
	}
}

func TestActivity_InvalidLimit(t *testing.T) {
	s := newTestServer(t)

	status, _ := s.do(t, http.MethodGet, "/activity?limit=0", "")
	if status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", status)
	}
}

func TestIndex(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "Mail Assistant") {
		t.Errorf("status %d, body lacks title", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestFlexString(t *testing.T) {
	tests := map[string]string{
		`"abc"`: "abc",
		`993`:   "993",
		`true`:  "true",
		`null`:  "",
	}
	for in, want := range tests {
		var f flexString
		if err := json.Unmarshal([]byte(in), &f); err != nil {
			t.Errorf("Unmarshal(%s): %v", in, err)
			continue
		}
		if f.String() != want {
			t.Errorf("Unmarshal(%s) = %q, want %q", in, f, want)
		}
	}

	var f flexString
	if err := json.Unmarshal([]byte(`{"a":1}`), &f); err == nil {
		t.Error("object accepted")
	}
}
