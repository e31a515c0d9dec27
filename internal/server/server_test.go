package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tersedak-care/apiserver/config"
	"github.com/tersedak-care/apiserver/internal/auth"
	"github.com/tersedak-care/apiserver/internal/content"
	"github.com/tersedak-care/apiserver/internal/db"
	"github.com/tersedak-care/apiserver/internal/logger"
	"go.opentelemetry.io/otel"
)

const testSecret = "server-test-secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	conn, err := db.OpenSQLite(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	catalog, err := content.Default()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}

	router := NewRouter(Deps{
		Config: config.Config{
			Auth: config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
		},
		DB:      conn,
		Log:     logger.Nop(),
		Catalog: catalog,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(func() {
		srv.Close()
		_ = conn.Close()
	})
	return srv
}

type apiClient struct {
	t       *testing.T
	baseURL string
	http    *http.Client
}

func newAPIClient(t *testing.T, srv *httptest.Server) *apiClient {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &apiClient{t: t, baseURL: srv.URL, http: &http.Client{Jar: jar}}
}

func (c *apiClient) do(method, path string, body any, out any) int {
	c.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (c *apiClient) register(name, email, password string) {
	c.t.Helper()
	status := c.do(http.MethodPost, "/auth/register", map[string]string{
		"name": name, "email": email, "password": password,
	}, nil)
	if status != http.StatusCreated {
		c.t.Fatalf("register %s: status %d", email, status)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type authBody struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID        int     `json:"id"`
		Name      string  `json:"name"`
		Email     string  `json:"email"`
		AvatarURL *string `json:"avatar_url"`
	} `json:"user"`
}

type progressBody struct {
	Lessons []struct {
		ModuleID    string    `json:"module_id"`
		LessonID    string    `json:"lesson_id"`
		CompletedAt time.Time `json:"completed_at"`
	} `json:"lessons"`
	CompletedModules []int `json:"completedModules"`
}

type assessmentBody struct {
	Result *struct {
		Score       int             `json:"score"`
		Total       int             `json:"total"`
		Answers     json.RawMessage `json:"answers"`
		CompletedAt time.Time       `json:"completedAt"`
	} `json:"result"`
}

type bookmarksBody struct {
	Bookmarks []struct {
		ItemID       string  `json:"item_id"`
		ItemTitle    string  `json:"item_title"`
		ItemCategory *string `json:"item_category"`
		ItemPath     string  `json:"item_path"`
	} `json:"bookmarks"`
}

func TestHealthz(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))
	var body map[string]string
	if status := c.do(http.MethodGet, "/healthz", nil, &body); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestLessonProgressFlow(t *testing.T) {
	srv := newTestServer(t)
	c := newAPIClient(t, srv)

	c.register("Ana", "ana@example.com", "secret1")
	if status := c.do(http.MethodPost, "/auth/logout", nil, nil); status != http.StatusOK {
		t.Fatalf("logout: %d", status)
	}

	var login authBody
	status := c.do(http.MethodPost, "/auth/login", map[string]string{
		"email": "ana@example.com", "password": "secret1",
	}, &login)
	if status != http.StatusOK {
		t.Fatalf("login: %d", status)
	}
	if login.User.Name != "Ana" || login.Token == "" {
		t.Fatalf("unexpected login body %+v", login)
	}

	status = c.do(http.MethodPost, "/progress", map[string]string{
		"type": "lesson", "moduleId": "module-1", "lessonId": "lesson-1-1",
	}, nil)
	if status != http.StatusOK {
		t.Fatalf("save progress: %d", status)
	}

	var progress progressBody
	if status := c.do(http.MethodGet, "/progress?moduleId=module-1", nil, &progress); status != http.StatusOK {
		t.Fatalf("get progress: %d", status)
	}
	if len(progress.Lessons) != 1 {
		t.Fatalf("expected one lesson, got %+v", progress.Lessons)
	}
	lesson := progress.Lessons[0]
	if lesson.ModuleID != "module-1" || lesson.LessonID != "lesson-1-1" || lesson.CompletedAt.IsZero() {
		t.Fatalf("unexpected lesson %+v", lesson)
	}
	if progress.CompletedModules == nil || len(progress.CompletedModules) != 0 {
		t.Fatalf("expected empty completed modules, got %v", progress.CompletedModules)
	}

	// Completing a module is a separate action.
	if status := c.do(http.MethodPost, "/progress/complete", map[string]int{"moduleOrder": 1}, nil); status != http.StatusOK {
		t.Fatalf("complete module: %d", status)
	}
	progress = progressBody{}
	c.do(http.MethodGet, "/progress", nil, &progress)
	if len(progress.CompletedModules) != 1 || progress.CompletedModules[0] != 1 {
		t.Fatalf("expected module 1 completed, got %v", progress.CompletedModules)
	}
}

func TestProgressValidation(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))
	c.register("Ana", "ana@example.com", "secret1")

	tests := []struct {
		name string
		path string
		body map[string]any
	}{
		{name: "lesson without ids", path: "/progress", body: map[string]any{"type": "lesson"}},
		{name: "module without order", path: "/progress", body: map[string]any{"type": "module"}},
		{name: "unknown type", path: "/progress", body: map[string]any{"type": "chapter", "moduleId": "m", "lessonId": "l"}},
		{name: "empty legacy", path: "/progress", body: map[string]any{}},
		{name: "complete without order", path: "/progress/complete", body: map[string]any{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body errorBody
			if status := c.do(http.MethodPost, tt.path, tt.body, &body); status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", status)
			}
			if body.Error == "" {
				t.Fatalf("expected error message")
			}
		})
	}

	// Legacy clients send lesson completions without a type.
	status := c.do(http.MethodPost, "/progress", map[string]any{"moduleId": "module-2", "lessonId": "lesson-2-1"}, nil)
	if status != http.StatusOK {
		t.Fatalf("legacy lesson: %d", status)
	}
}

func TestAssessmentFlow(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))
	c.register("Ana", "ana@example.com", "secret1")

	var empty assessmentBody
	if status := c.do(http.MethodGet, "/assessment?type=pre", nil, &empty); status != http.StatusOK {
		t.Fatalf("get empty: %d", status)
	}
	if empty.Result != nil {
		t.Fatalf("expected null result, got %+v", empty.Result)
	}

	var saved map[string]any
	status := c.do(http.MethodPost, "/assessment", map[string]any{
		"type": "pre", "score": 7, "total": 10, "answers": map[string]int{"q1": 0, "q2": 2},
	}, &saved)
	if status != http.StatusOK || saved["success"] != true {
		t.Fatalf("save assessment: %d %v", status, saved)
	}

	var latest assessmentBody
	c.do(http.MethodGet, "/assessment?type=pre", nil, &latest)
	if latest.Result == nil || latest.Result.Score != 7 || latest.Result.Total != 10 {
		t.Fatalf("unexpected result %+v", latest.Result)
	}
	if content.Percentage(latest.Result.Score, latest.Result.Total) != 70 {
		t.Fatalf("expected 70 percent")
	}
	var answers map[string]int
	if err := json.Unmarshal(latest.Result.Answers, &answers); err != nil || answers["q2"] != 2 {
		t.Fatalf("answers not preserved: %s", latest.Result.Answers)
	}

	// A newer attempt becomes the current result; post stays independent.
	c.do(http.MethodPost, "/assessment", map[string]any{"type": "pre", "score": 9, "total": 10}, nil)
	latest = assessmentBody{}
	c.do(http.MethodGet, "/assessment?type=pre", nil, &latest)
	if latest.Result == nil || latest.Result.Score != 9 {
		t.Fatalf("expected newest attempt, got %+v", latest.Result)
	}
	var post assessmentBody
	c.do(http.MethodGet, "/assessment?type=post", nil, &post)
	if post.Result != nil {
		t.Fatalf("expected no post-test result")
	}

	if status := c.do(http.MethodGet, "/assessment?type=mid", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", status)
	}
	if status := c.do(http.MethodPost, "/assessment", map[string]any{"type": "pre", "total": 10}, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing score, got %d", status)
	}
	if status := c.do(http.MethodPost, "/assessment", map[string]any{"type": "post", "score": 11, "total": 10}, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for score above total, got %d", status)
	}
}

func TestQuizResults(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))
	c.register("Ana", "ana@example.com", "secret1")

	for _, score := range []int{2, 3} {
		status := c.do(http.MethodPost, "/quiz", map[string]any{
			"moduleId": "module-1", "lessonId": "lesson-1-3", "score": score, "totalQuestions": 3,
		}, nil)
		if status != http.StatusOK {
			t.Fatalf("save quiz: %d", status)
		}
	}
	c.do(http.MethodPost, "/quiz", map[string]any{
		"moduleId": "module-2", "lessonId": "lesson-2-4", "score": 1, "totalQuestions": 4,
	}, nil)

	var body struct {
		Results []struct {
			ModuleID string `json:"module_id"`
			Score    int    `json:"score"`
		} `json:"results"`
	}
	c.do(http.MethodGet, "/quiz?moduleId=module-1", nil, &body)
	if len(body.Results) != 2 || body.Results[0].Score != 3 {
		t.Fatalf("expected two module-1 results newest first, got %+v", body.Results)
	}

	if status := c.do(http.MethodPost, "/quiz", map[string]any{"moduleId": "module-1"}, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
}

func TestBookmarks(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))
	c.register("Ana", "ana@example.com", "secret1")

	save := func(title string) {
		status := c.do(http.MethodPost, "/bookmarks", map[string]string{
			"id": "emergency-infant", "title": title, "category": "emergency", "path": "/emergency#infant",
		}, nil)
		if status != http.StatusOK {
			t.Fatalf("save bookmark: %d", status)
		}
	}
	save("Bayi")
	save("Bayi di bawah 1 tahun")

	var list bookmarksBody
	c.do(http.MethodGet, "/bookmarks", nil, &list)
	if len(list.Bookmarks) != 1 || list.Bookmarks[0].ItemTitle != "Bayi di bawah 1 tahun" {
		t.Fatalf("expected one overwritten bookmark, got %+v", list.Bookmarks)
	}

	if status := c.do(http.MethodDelete, "/bookmarks", map[string]string{"id": "never-saved"}, nil); status != http.StatusOK {
		t.Fatalf("delete of missing bookmark should succeed, got %d", status)
	}
	list = bookmarksBody{}
	c.do(http.MethodGet, "/bookmarks", nil, &list)
	if len(list.Bookmarks) != 1 {
		t.Fatalf("expected bookmark count unchanged, got %d", len(list.Bookmarks))
	}

	if status := c.do(http.MethodDelete, "/bookmarks?id=emergency-infant", nil, nil); status != http.StatusOK {
		t.Fatalf("delete by query: %d", status)
	}
	list = bookmarksBody{}
	c.do(http.MethodGet, "/bookmarks", nil, &list)
	if len(list.Bookmarks) != 0 {
		t.Fatalf("expected no bookmarks, got %+v", list.Bookmarks)
	}

	if status := c.do(http.MethodDelete, "/bookmarks", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 without id, got %d", status)
	}
}

func TestDuplicateEmail(t *testing.T) {
	srv := newTestServer(t)
	c := newAPIClient(t, srv)
	c.register("Ana", "ana@example.com", "secret1")

	var body errorBody
	status := newAPIClient(t, srv).do(http.MethodPost, "/auth/register", map[string]string{
		"name": "Ana Lagi", "email": "ANA@example.com", "password": "secret2",
	}, &body)
	if status != http.StatusConflict {
		t.Fatalf("expected 409, got %d", status)
	}
	if body.Error != "Email sudah terdaftar" {
		t.Fatalf("unexpected error %q", body.Error)
	}
}

func TestConcurrentDuplicateRegistration(t *testing.T) {
	srv := newTestServer(t)
	payload := []byte(`{"name":"Ana","email":"ana@example.com","password":"secret1"}`)

	const attempts = 8
	statuses := make([]int, attempts)
	var wg sync.WaitGroup
	for i := range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(srv.URL+"/auth/register", "application/json", bytes.NewReader(payload))
			if err != nil {
				return
			}
			defer resp.Body.Close()
			var body errorBody
			_ = json.NewDecoder(resp.Body).Decode(&body)
			if resp.StatusCode == http.StatusConflict && body.Error != "Email sudah terdaftar" {
				statuses[i] = -1
				return
			}
			statuses[i] = resp.StatusCode
		}()
	}
	wg.Wait()

	counts := map[int]int{}
	for _, status := range statuses {
		counts[status]++
	}
	if counts[http.StatusCreated] != 1 || counts[http.StatusConflict] != attempts-1 {
		t.Fatalf("expected one 201 and %d conflicts, got %v", attempts-1, counts)
	}
}

func TestRegisterValidation(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))

	tests := []struct {
		name string
		body map[string]string
	}{
		{name: "missing name", body: map[string]string{"email": "a@example.com", "password": "secret1"}},
		{name: "short password", body: map[string]string{"name": "A", "email": "a@example.com", "password": "12345"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status := c.do(http.MethodPost, "/auth/register", tt.body, nil); status != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", status)
			}
		})
	}
}

func TestLoginFailures(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))
	c.register("Ana", "ana@example.com", "secret1")

	var wrong, unknown errorBody
	if status := c.do(http.MethodPost, "/auth/login", map[string]string{"email": "ana@example.com", "password": "nope123"}, &wrong); status != http.StatusUnauthorized {
		t.Fatalf("wrong password: %d", status)
	}
	if status := c.do(http.MethodPost, "/auth/login", map[string]string{"email": "budi@example.com", "password": "secret1"}, &unknown); status != http.StatusUnauthorized {
		t.Fatalf("unknown email: %d", status)
	}
	if wrong.Error != unknown.Error {
		t.Fatalf("login failures should not differ: %q vs %q", wrong.Error, unknown.Error)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))
	c.register("Ana", "ana@example.com", "secret1")

	var me authBody
	if status := c.do(http.MethodGet, "/auth/me", nil, &me); status != http.StatusOK || me.User.Email != "ana@example.com" {
		t.Fatalf("me before logout: %d %+v", status, me)
	}
	if me.User.AvatarURL != nil {
		t.Fatalf("expected no avatar")
	}

	c.do(http.MethodPost, "/auth/logout", nil, nil)
	if status := c.do(http.MethodGet, "/auth/me", nil, nil); status != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", status)
	}
}

func TestIsolationBetweenUsers(t *testing.T) {
	srv := newTestServer(t)
	ana := newAPIClient(t, srv)
	budi := newAPIClient(t, srv)
	ana.register("Ana", "ana@example.com", "secret1")
	budi.register("Budi", "budi@example.com", "secret1")

	ana.do(http.MethodPost, "/progress", map[string]string{"type": "lesson", "moduleId": "module-1", "lessonId": "lesson-1-1"}, nil)
	ana.do(http.MethodPost, "/assessment", map[string]any{"type": "pre", "score": 5, "total": 10}, nil)
	ana.do(http.MethodPost, "/bookmarks", map[string]string{"id": "x", "title": "X", "path": "/x"}, nil)
	ana.do(http.MethodPost, "/quiz", map[string]any{"moduleId": "module-1", "lessonId": "lesson-1-3", "score": 1, "totalQuestions": 3}, nil)

	var progress progressBody
	budi.do(http.MethodGet, "/progress", nil, &progress)
	if len(progress.Lessons) != 0 {
		t.Fatalf("progress leaked: %+v", progress.Lessons)
	}
	var assessment assessmentBody
	budi.do(http.MethodGet, "/assessment?type=pre", nil, &assessment)
	if assessment.Result != nil {
		t.Fatalf("assessment leaked")
	}
	var bookmarks bookmarksBody
	budi.do(http.MethodGet, "/bookmarks", nil, &bookmarks)
	if len(bookmarks.Bookmarks) != 0 {
		t.Fatalf("bookmarks leaked")
	}
	var quiz struct {
		Results []json.RawMessage `json:"results"`
	}
	budi.do(http.MethodGet, "/quiz", nil, &quiz)
	if len(quiz.Results) != 0 {
		t.Fatalf("quiz results leaked")
	}
}

func TestAuthenticatedRoutesRejectExpiredToken(t *testing.T) {
	srv := newTestServer(t)
	c := newAPIClient(t, srv)
	c.register("Ana", "ana@example.com", "secret1")

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		UserID: 1,
		Email:  "ana@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-8 * 24 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/auth/me"},
		{http.MethodPut, "/auth/me/avatar"},
		{http.MethodGet, "/progress"},
		{http.MethodPost, "/progress"},
		{http.MethodPost, "/progress/complete"},
		{http.MethodGet, "/assessment?type=pre"},
		{http.MethodPost, "/assessment"},
		{http.MethodGet, "/quiz"},
		{http.MethodPost, "/quiz"},
		{http.MethodGet, "/bookmarks"},
		{http.MethodPost, "/bookmarks"},
		{http.MethodDelete, "/bookmarks"},
	}
	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req, err := http.NewRequest(route.method, srv.URL+route.path, bytes.NewReader([]byte(`{}`)))
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: expired})
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("do: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", resp.StatusCode)
			}
			var body errorBody
			_ = json.NewDecoder(resp.Body).Decode(&body)
			if body.Error != "Tidak terautentikasi" {
				t.Fatalf("unexpected message %q", body.Error)
			}
		})
	}
}

func TestAvatarUploadWithoutStorage(t *testing.T) {
	srv := newTestServer(t)
	c := newAPIClient(t, srv)
	c.register("Ana", "ana@example.com", "secret1")

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("avatar", "avatar.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	_, _ = part.Write([]byte("\x89PNG\r\n\x1a\n0000"))
	_ = writer.Close()

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/auth/me/avatar", &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
}

func TestContentRoutes(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))

	var modules struct {
		Modules []struct {
			ID      string            `json:"id"`
			Lessons []json.RawMessage `json:"lessons"`
		} `json:"modules"`
	}
	if status := c.do(http.MethodGet, "/content/modules", nil, &modules); status != http.StatusOK {
		t.Fatalf("modules: %d", status)
	}
	if len(modules.Modules) == 0 || modules.Modules[0].ID != "module-1" {
		t.Fatalf("unexpected modules %+v", modules.Modules)
	}

	if status := c.do(http.MethodGet, "/content/modules/module-1", nil, nil); status != http.StatusOK {
		t.Fatalf("module-1: %d", status)
	}
	var byOrder struct {
		Module struct {
			ID string `json:"id"`
		} `json:"module"`
	}
	if status := c.do(http.MethodGet, "/content/modules/2", nil, &byOrder); status != http.StatusOK || byOrder.Module.ID != "module-2" {
		t.Fatalf("module by order: %d %+v", status, byOrder)
	}
	if status := c.do(http.MethodGet, "/content/modules/module-99", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}

	var emergency struct {
		Steps  []json.RawMessage `json:"steps"`
		DontDo []json.RawMessage `json:"dontDo"`
	}
	c.do(http.MethodGet, "/content/emergency", nil, &emergency)
	if len(emergency.Steps) == 0 || len(emergency.DontDo) == 0 {
		t.Fatalf("expected emergency content")
	}

	var refs struct {
		Sources []json.RawMessage `json:"sources"`
	}
	c.do(http.MethodGet, "/content/references", nil, &refs)
	if len(refs.Sources) == 0 {
		t.Fatalf("expected reference sources")
	}
}

func TestAgeGroupRoutes(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))

	var list struct {
		AgeGroups []struct {
			ID       string            `json:"id"`
			AgeRange string            `json:"ageRange"`
			Sections []json.RawMessage `json:"sections"`
		} `json:"ageGroups"`
	}
	if status := c.do(http.MethodGet, "/content/age-groups", nil, &list); status != http.StatusOK {
		t.Fatalf("age groups: %d", status)
	}
	if len(list.AgeGroups) != 3 || list.AgeGroups[0].ID != "bayi" || len(list.AgeGroups[0].Sections) == 0 {
		t.Fatalf("unexpected age groups %+v", list.AgeGroups)
	}

	var one struct {
		AgeGroup struct {
			ID       string `json:"id"`
			Sections []struct {
				ID       string   `json:"id"`
				Content  string   `json:"content"`
				VideoURL string   `json:"videoUrl"`
				Warnings []string `json:"warnings"`
			} `json:"sections"`
		} `json:"ageGroup"`
	}
	if status := c.do(http.MethodGet, "/content/age-groups/balita", nil, &one); status != http.StatusOK {
		t.Fatalf("balita: %d", status)
	}
	if one.AgeGroup.ID != "balita" || len(one.AgeGroup.Sections) == 0 || one.AgeGroup.Sections[0].Content == "" {
		t.Fatalf("unexpected balita group %+v", one.AgeGroup)
	}

	var missing errorBody
	if status := c.do(http.MethodGet, "/content/age-groups/remaja", nil, &missing); status != http.StatusNotFound || missing.Error != "Kategori usia tidak ditemukan" {
		t.Fatalf("unknown age group: %d %+v", status, missing)
	}
}

func TestLessonBodiesHideQuizAnswers(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/content/modules/module-1")
	if err != nil {
		t.Fatalf("get module: %v", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var body struct {
		Module struct {
			Lessons []struct {
				ID      string `json:"id"`
				Content string `json:"content"`
				Quiz    []struct {
					Question string   `json:"question"`
					Options  []string `json:"options"`
				} `json:"quiz"`
			} `json:"lessons"`
		} `json:"module"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode module: %v", err)
	}
	first := body.Module.Lessons[0]
	if first.ID != "lesson-1-1" || first.Content == "" || len(first.Quiz) != 2 || len(first.Quiz[0].Options) != 4 {
		t.Fatalf("unexpected first lesson %+v", first)
	}
	if bytes.Contains(raw, []byte("correctAnswer")) || bytes.Contains(raw, []byte(`"explanation"`)) {
		t.Fatalf("module body exposes quiz answers")
	}
}

func TestUnknownRoutesAnswerJSON(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name    string
		method  string
		path    string
		status  int
		message string
	}{
		{name: "unknown path", method: http.MethodGet, path: "/does-not-exist", status: http.StatusNotFound, message: "Halaman tidak ditemukan"},
		{name: "unknown nested path", method: http.MethodGet, path: "/content/nope", status: http.StatusNotFound, message: "Halaman tidak ditemukan"},
		{name: "wrong method", method: http.MethodDelete, path: "/content/modules", status: http.StatusMethodNotAllowed, message: "Metode tidak diizinkan"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req, err := http.NewRequest(tc.method, srv.URL+tc.path, nil)
			if err != nil {
				t.Fatalf("new request: %v", err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("do: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tc.status {
				t.Fatalf("expected %d, got %d", tc.status, resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
				t.Fatalf("expected JSON content type, got %q", ct)
			}
			var body errorBody
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, body.Error)
			}
		})
	}
}

func TestQuestionsAndScoring(t *testing.T) {
	c := newAPIClient(t, newTestServer(t))

	var questions struct {
		Questions []map[string]any `json:"questions"`
	}
	if status := c.do(http.MethodGet, "/assessment/questions?count=5", nil, &questions); status != http.StatusOK {
		t.Fatalf("questions: %d", status)
	}
	if len(questions.Questions) != 5 {
		t.Fatalf("expected 5 questions, got %d", len(questions.Questions))
	}
	ids := make([]string, 0, len(questions.Questions))
	for _, q := range questions.Questions {
		if _, leaked := q["correctAnswer"]; leaked {
			t.Fatalf("correct answer must not be exposed: %v", q)
		}
		ids = append(ids, q["id"].(string))
	}

	var scored struct {
		Score          int `json:"score"`
		TotalQuestions int `json:"totalQuestions"`
	}
	status := c.do(http.MethodPost, "/assessment/score", map[string]any{
		"questionIds": ids, "answers": []int{0, 0, 0, 0, 0},
	}, &scored)
	if status != http.StatusOK {
		t.Fatalf("score: %d", status)
	}
	if scored.TotalQuestions != 5 || scored.Score < 0 || scored.Score > 5 {
		t.Fatalf("unexpected score %+v", scored)
	}

	if status := c.do(http.MethodGet, "/assessment/questions?count=zero", nil, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad count, got %d", status)
	}
	if status := c.do(http.MethodPost, "/assessment/score", map[string]any{"questionIds": []string{"nope"}, "answers": []int{0}}, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown question, got %d", status)
	}
}

func TestNewReleasesBackendsOnFailure(t *testing.T) {
	cfg := config.Config{
		Database: config.DatabaseConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "tersedak.db"),
		},
		Auth: config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
		// rabbitmq without a URL fails after the database is open.
		MQ:   config.MQConfig{Backend: "rabbitmq"},
		OTel: config.OTelConfig{Enabled: true, ServiceName: "tersedak-test", SamplerRatio: 1},
	}

	srv, err := New(context.Background(), cfg, logger.Nop())
	if err == nil || srv != nil {
		t.Fatalf("expected failure, got server %v err %v", srv, err)
	}
	if !strings.Contains(err.Error(), "init mq") {
		t.Fatalf("unexpected error: %v", err)
	}

	_, span := otel.Tracer("server-test").Start(context.Background(), "after-failed-start")
	defer span.End()
	if span.IsRecording() {
		t.Fatalf("tracer provider should be shut down after a failed start")
	}
}

func TestCleanupStackRunsNewestFirst(t *testing.T) {
	var order []string
	var cleanup cleanupStack
	cleanup.push(func() { order = append(order, "otel") })
	cleanup.push(func() { order = append(order, "db") })
	cleanup.push(func() { order = append(order, "mq") })

	cleanup.run()
	cleanup.run()

	if strings.Join(order, ",") != "mq,db,otel" {
		t.Fatalf("unexpected cleanup order %v", order)
	}
}
