package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rulercosta/neuralwired/internal/db"
	"github.com/rulercosta/neuralwired/internal/handler"
	"github.com/rulercosta/neuralwired/internal/router"
	"github.com/rulercosta/neuralwired/internal/storage"
	"gorm.io/gorm/logger"
)

type e2eSuite struct {
	public    httpClient
	admin     httpClient
	baseURL   string
	uploadDir string
	username  string
	password  string
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler, withJar bool) *localClient {
	var jar http.CookieJar
	if withJar {
		if j, err := cookiejar.New(nil); err == nil {
			jar = j
		}
	}
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

type pagePayload struct {
	ID            uint      `json:"id"`
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	Content       string    `json:"content"`
	IsBlog        bool      `json:"is_blog"`
	Excerpt       *string   `json:"excerpt"`
	Featured      bool      `json:"featured"`
	PublishedDate time.Time `json:"published_date"`
}

func TestE2E_AllInterfaces(t *testing.T) {
	suite := newE2ESuite(t)

	t.Run("public endpoints", suite.testPublicEndpoints)
	t.Run("unauthenticated mutations", suite.testUnauthenticatedMutations)

	suite.login(t)
	t.Run("page lifecycle", suite.testPageLifecycle)
	t.Run("posts", suite.testPosts)
	t.Run("settings", suite.testSettings)
	t.Run("uploads", suite.testUploads)
	t.Run("logout", suite.testLogout)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Init(context.Background(), db.Options{
		Driver: db.DriverSQLite,
		DSN:    dsn,
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to init database: %v", err)
	}
	t.Cleanup(func() { db.Close(gdb) })

	if _, err := db.EnsureUser(context.Background(), gdb, "admin", "e2e-secret"); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	uploadDir := t.TempDir()
	backend, err := storage.NewFSBackend(storage.FSConfig{BaseDir: uploadDir, URLPrefix: "/static/uploads"})
	if err != nil {
		t.Fatalf("failed to create upload backend: %v", err)
	}

	api := handler.NewAPI(gdb, backend, handler.Options{})
	engine := router.SetupRouter(api, router.Options{
		SessionSecret:  "test-session-secret",
		RequestTimeout: 5 * time.Second,
		UploadDir:      uploadDir,
		UploadURLPath:  "/static/uploads",
	})

	return &e2eSuite{
		public:    newLocalClient(engine, false),
		admin:     newLocalClient(engine, true),
		baseURL:   "http://example.test",
		uploadDir: uploadDir,
		username:  "admin",
		password:  "e2e-secret",
	}
}

func (s *e2eSuite) login(t *testing.T) {
	t.Helper()

	resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/auth/login", map[string]interface{}{
		"username": s.username,
		"password": "wrong",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("login with wrong password: expected 401, got %d", resp.StatusCode)
	}

	resp = s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/auth/login", map[string]interface{}{
		"username": s.username,
		"password": s.password,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed, status %d: %s", resp.StatusCode, readBody(t, resp))
	}

	status := s.mustRequest(t, s.admin, http.MethodGet, "/api/auth/status", nil, nil)
	defer status.Body.Close()
	var payload map[string]interface{}
	decodeJSON(t, status, &payload)
	if payload["authenticated"] != true || payload["user"] != s.username {
		t.Fatalf("unexpected auth status %v", payload)
	}
}

func (s *e2eSuite) testPublicEndpoints(t *testing.T) {
	check := func(name, path, expect string, code int) {
		t.Helper()
		resp := s.mustRequest(t, s.public, http.MethodGet, path, nil, nil)
		defer resp.Body.Close()
		if resp.StatusCode != code {
			t.Fatalf("%s: expected status %d, got %d", name, code, resp.StatusCode)
		}
		body := readBody(t, resp)
		if expect != "" && !strings.Contains(body, expect) {
			t.Fatalf("%s: response %q does not contain %q", name, body, expect)
		}
	}

	check("health", "/health", `"status":"ok"`, http.StatusOK)
	check("pages", "/api/pages", "[]", http.StatusOK)
	check("posts", "/api/pages?type=blog", "[]", http.StatusOK)
	check("missing page", "/api/pages/nothing-here", "error", http.StatusNotFound)
	check("settings", "/api/settings", "introduction", http.StatusOK)
	check("introduction", "/api/settings/introduction", "neuralwired", http.StatusOK)
	check("missing setting", "/api/settings/unknown_key", "error", http.StatusNotFound)
	check("auth status", "/api/auth/status", `"authenticated":false`, http.StatusOK)
}

func (s *e2eSuite) testUnauthenticatedMutations(t *testing.T) {
	resp := s.mustRequestJSON(t, s.public, http.MethodPost, "/api/pages", map[string]interface{}{
		"title":   "Sneaky",
		"content": "should not be stored",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("create without session: expected 401, got %d", resp.StatusCode)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/pages/sneaky", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("rejected create must not persist, got %d", resp.StatusCode)
	}

	resp = s.mustRequestJSON(t, s.public, http.MethodPut, "/api/settings/site_name", map[string]interface{}{"value": "x"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("put setting without session: expected 401, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testPageLifecycle(t *testing.T) {
	resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/pages", map[string]interface{}{"title": "About Us"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create page expected 201, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var created pagePayload
	decodeJSON(t, resp, &created)
	if created.Slug != "about-us" || created.IsBlog || created.Featured {
		t.Fatalf("unexpected created page %+v", created)
	}

	resp = s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/pages", map[string]interface{}{"title": "About Us!"})
	defer resp.Body.Close()
	var second pagePayload
	decodeJSON(t, resp, &second)
	if second.Slug != "about-us-1" {
		t.Fatalf("expected deduplicated slug about-us-1, got %q", second.Slug)
	}

	resp = s.mustRequestJSON(t, s.admin, http.MethodPut, "/api/pages/about-us", map[string]interface{}{"content": "# Hello", "format": "markdown"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update page expected 200, got %d", resp.StatusCode)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/pages/about-us", nil, nil)
	defer resp.Body.Close()
	var fetched pagePayload
	decodeJSON(t, resp, &fetched)
	if fetched.Title != "About Us" || !strings.Contains(fetched.Content, "<h1>Hello</h1>") {
		t.Fatalf("unexpected page after update %+v", fetched)
	}

	resp = s.mustRequest(t, s.admin, http.MethodDelete, "/api/pages/about-us", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete page expected 200, got %d", resp.StatusCode)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/pages/about-us", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted page expected 404, got %d", resp.StatusCode)
	}

	resp = s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/pages", map[string]interface{}{"content": "no title"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("create without title expected 400, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testPosts(t *testing.T) {
	titles := []string{"First Post", "Second Post", "Third Post"}
	for i, title := range titles {
		resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/pages", map[string]interface{}{
			"title":    title,
			"content":  "This is the body of " + strings.ToLower(title) + " with enough words to excerpt.",
			"is_blog":  true,
			"featured": i == 0,
		})
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create post %q expected 201, got %d", title, resp.StatusCode)
		}
		// published_date 按秒排序时需要明确先后
		time.Sleep(10 * time.Millisecond)
	}

	resp := s.mustRequest(t, s.public, http.MethodGet, "/api/pages?type=blog", nil, nil)
	defer resp.Body.Close()
	var posts []pagePayload
	decodeJSON(t, resp, &posts)
	if len(posts) != len(titles) {
		t.Fatalf("expected %d posts, got %d", len(titles), len(posts))
	}
	if posts[0].Slug != "third-post" {
		t.Fatalf("expected newest post first, got %q", posts[0].Slug)
	}
	for _, post := range posts {
		if post.Excerpt == nil || *post.Excerpt == "" {
			t.Fatalf("post %q should carry a derived excerpt", post.Slug)
		}
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/pages?type=blog&featured=true", nil, nil)
	defer resp.Body.Close()
	var featured []pagePayload
	decodeJSON(t, resp, &featured)
	if len(featured) != 1 || featured[0].Slug != "first-post" {
		t.Fatalf("unexpected featured listing %+v", featured)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/pages?type=blog&limit=2", nil, nil)
	defer resp.Body.Close()
	var limited []pagePayload
	decodeJSON(t, resp, &limited)
	if len(limited) != 2 {
		t.Fatalf("expected 2 posts with limit, got %d", len(limited))
	}

	resp = s.mustRequest(t, s.admin, http.MethodPost, "/api/pages/second-post/feature", nil, nil)
	defer resp.Body.Close()
	var toggled pagePayload
	decodeJSON(t, resp, &toggled)
	if !toggled.Featured {
		t.Fatal("toggle should feature the post")
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/pages", nil, nil)
	defer resp.Body.Close()
	var pages []pagePayload
	decodeJSON(t, resp, &pages)
	for _, page := range pages {
		if page.IsBlog {
			t.Fatalf("plain page listing returned post %q", page.Slug)
		}
	}
}

func (s *e2eSuite) testSettings(t *testing.T) {
	resp := s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/settings", map[string]interface{}{
		"site_name":    "neuralwired",
		"introduction": "updated intro",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update settings expected 200, got %d", resp.StatusCode)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/settings", nil, nil)
	defer resp.Body.Close()
	var settings map[string]string
	decodeJSON(t, resp, &settings)
	if settings["site_name"] != "neuralwired" || settings["introduction"] != "updated intro" {
		t.Fatalf("unexpected settings %v", settings)
	}

	resp = s.mustRequestJSON(t, s.admin, http.MethodPut, "/api/settings/footer", map[string]interface{}{"value": "bye"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("put setting expected 200, got %d", resp.StatusCode)
	}

	resp = s.mustRequest(t, s.admin, http.MethodDelete, "/api/settings/footer", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete setting expected 200, got %d", resp.StatusCode)
	}
	resp = s.mustRequest(t, s.admin, http.MethodDelete, "/api/settings/footer", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete expected 404, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testUploads(t *testing.T) {
	resp := s.uploadTestImage(t)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("upload expected 201, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var uploaded struct {
		URL      string `json:"url"`
		Filename string `json:"filename"`
	}
	decodeJSON(t, resp, &uploaded)
	if !strings.HasSuffix(uploaded.Filename, "_test.png") {
		t.Fatalf("unexpected stored filename %q", uploaded.Filename)
	}
	if _, err := os.Stat(filepath.Join(s.uploadDir, uploaded.Filename)); err != nil {
		t.Fatalf("uploaded file missing on disk: %v", err)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, uploaded.URL, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("serving upload expected 200, got %d", resp.StatusCode)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/uploads/list", nil, nil)
	defer resp.Body.Close()
	var listing struct {
		Count int `json:"count"`
	}
	decodeJSON(t, resp, &listing)
	if listing.Count != 1 {
		t.Fatalf("expected 1 upload, got %d", listing.Count)
	}

	resp = s.mustRequest(t, s.admin, http.MethodDelete, "/api/uploads/"+uploaded.Filename, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete upload expected 200, got %d", resp.StatusCode)
	}
	resp = s.mustRequest(t, s.admin, http.MethodDelete, "/api/uploads/"+uploaded.Filename, nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete expected 404, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testLogout(t *testing.T) {
	resp := s.mustRequest(t, s.admin, http.MethodPost, "/api/auth/logout", nil, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout expected 200, got %d", resp.StatusCode)
	}

	resp = s.mustRequestJSON(t, s.admin, http.MethodPost, "/api/pages", map[string]interface{}{"title": "After Logout"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("create after logout expected 401, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) uploadTestImage(t *testing.T) *http.Response {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 200, A: 255})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, "file", "test.png"))
	partHeader.Set("Content-Type", "image/png")
	part, err := writer.CreatePart(partHeader)
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(buf.Bytes()); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	headers := map[string]string{
		"Content-Type": writer.FormDataContentType(),
	}
	return s.mustRequest(t, s.admin, http.MethodPost, "/api/uploads", body, headers)
}

func (s *e2eSuite) mustRequest(t *testing.T, client httpClient, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	target := path
	if !strings.HasPrefix(target, "http") {
		target = s.baseURL + path
	}
	req, err := http.NewRequest(method, target, body)
	if err != nil {
		t.Fatalf("failed to build request %s %s: %v", method, path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func (s *e2eSuite) mustRequestJSON(t *testing.T, client httpClient, method, path string, payload map[string]interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	return s.mustRequest(t, client, method, path, bytes.NewReader(data), headers)
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	body := readBody(t, resp)
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		t.Fatalf("failed to decode json: %v\nbody=%s", err, body)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(data)
}
