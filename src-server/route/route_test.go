package route_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"invitation/src-server/hub"
	"invitation/src-server/route"
	"invitation/src-server/utils"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func newApp(t *testing.T, env map[string]string) (*utils.AppState, *http.ServeMux) {
	t.Helper()
	dir := t.TempDir()
	defaults := map[string]string{
		"DEV":                   "1",
		"JWT_SECRET":            "test-secret-test-secret",
		"ADMIN_ACCOUNTS":        "admin:hunter22",
		"TIMEZONE":              "UTC",
		"SQLITE_PATH":           filepath.Join(dir, "test.db"),
		"STORAGE_DRIVER":        "bun",
		"UPLOAD_DIR":            filepath.Join(dir, "uploads"),
		"REMOTE_DSN":            "",
		"REDIS_ADDR":            "",
		"MINIO_ENDPOINT":        "",
		"DISCORD_WEBHOOK_ID":    "",
		"DISCORD_WEBHOOK_TOKEN": "",
		"RATE_LIMIT_PER_MINUTE": "100",
	}
	for k, v := range env {
		defaults[k] = v
	}
	for k, v := range defaults {
		t.Setenv(k, v)
	}

	as := utils.NewAppState()
	t.Cleanup(as.GracefulShutdown)

	muxer := http.NewServeMux()
	route.Auth(muxer, as)
	route.Guest(muxer, as)
	route.QR(muxer, as)
	route.Admin(muxer, as)
	route.Scan(muxer, as)
	return as, muxer
}

func do(t *testing.T, muxer http.Handler, method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	muxer.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, muxer http.Handler) *http.Cookie {
	t.Helper()
	rec := do(t, muxer, http.MethodPost, "/auth", `{"adminId":"admin","password":"hunter22"}`)
	if rec.Code != http.StatusOK {
		t.Fatal("login failed", rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == route.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func TestAuthFlow(t *testing.T) {
	_, muxer := newApp(t, nil)

	if rec := do(t, muxer, http.MethodGet, "/admin/api/stats", ""); rec.Code != http.StatusUnauthorized {
		t.Error("stats without session should be 401, got", rec.Code)
	}
	if rec := do(t, muxer, http.MethodPost, "/auth", `{"adminId":"admin","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Error("wrong password should be 401, got", rec.Code)
	}
	if rec := do(t, muxer, http.MethodPost, "/auth", `{"adminId":""}`); rec.Code != http.StatusBadRequest {
		t.Error("missing fields should be 400, got", rec.Code)
	}

	cookie := login(t, muxer)
	if !cookie.HttpOnly {
		t.Error("session cookie must be http only")
	}
	if rec := do(t, muxer, http.MethodGet, "/admin/api/stats", "", cookie); rec.Code != http.StatusOK {
		t.Fatal("stats with session should be 200, got", rec.Code)
	}
	if rec := do(t, muxer, http.MethodGet, "/auth", "", cookie); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"adminId":"admin"`) {
		t.Error("whoami failed", rec.Code, rec.Body.String())
	}

	if rec := do(t, muxer, http.MethodDelete, "/auth", "", cookie); rec.Code != http.StatusOK {
		t.Fatal("logout failed", rec.Code)
	}
	if rec := do(t, muxer, http.MethodGet, "/admin/api/stats", "", cookie); rec.Code != http.StatusUnauthorized {
		t.Error("a logged out token must be rejected, got", rec.Code)
	}
}

func TestRSVP(t *testing.T) {
	as, muxer := newApp(t, nil)

	cases := []struct {
		body string
		want int
	}{
		{`{"response":"yes"}`, http.StatusBadRequest},
		{`{"response":"perhaps"}`, http.StatusBadRequest},
		{`{"response":"yes","name":"Kim","phone":"123","email":"kim@example.com"}`, http.StatusBadRequest},
		{`not json`, http.StatusBadRequest},
		{`{"response":"no"}`, http.StatusCreated},
		{`{"response":"yes","name":"Kim","phone":"01012345678","email":"kim@example.com"}`, http.StatusCreated},
	}
	for i, c := range cases {
		if rec := do(t, muxer, http.MethodPost, "/api/rsvp", c.body); rec.Code != c.want {
			t.Errorf("case %d: got %d (%s), want %d", i, rec.Code, rec.Body.String(), c.want)
		}
	}

	stats := as.Dashboard.Stats(t.Context())
	if stats.TotalRSVP != 2 || stats.Yes != 1 || stats.No != 1 {
		t.Error("unexpected stats", stats)
	}
}

func TestGuestbook(t *testing.T) {
	_, muxer := newApp(t, nil)

	if rec := do(t, muxer, http.MethodPost, "/api/guestbook", `{"name":"Kim","message":""}`); rec.Code != http.StatusBadRequest {
		t.Error("empty message should be 400, got", rec.Code)
	}
	if rec := do(t, muxer, http.MethodPost, "/api/guestbook", `{"name":"`+strings.Repeat("가", 21)+`","message":"hi"}`); rec.Code != http.StatusBadRequest {
		t.Error("long name should be 400, got", rec.Code)
	}
	if rec := do(t, muxer, http.MethodPost, "/api/guestbook", `{"name":"Kim","message":"congrats"}`); rec.Code != http.StatusCreated {
		t.Fatal("post failed", rec.Code, rec.Body.String())
	}

	rec := do(t, muxer, http.MethodGet, "/api/guestbook?limit=10", "")
	var msgs []struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].Name != "Kim" {
		t.Error("unexpected guestbook", msgs)
	}
	if rec := do(t, muxer, http.MethodGet, "/api/guestbook?limit=x", ""); rec.Code != http.StatusBadRequest {
		t.Error("bad limit should be 400, got", rec.Code)
	}

	page := do(t, muxer, http.MethodGet, "/", "")
	if page.Code != http.StatusOK || !strings.Contains(page.Body.String(), "congrats") {
		t.Error("guest page should list the message")
	}

	rec = do(t, muxer, http.MethodGet, "/api/guestbook?limit=0", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "congrats") {
		t.Error("limit 0 should fall back to the page size", rec.Code, rec.Body.String())
	}
}

func TestGalleryModal(t *testing.T) {
	_, muxer := newApp(t, nil)

	closed := do(t, muxer, http.MethodGet, "/", "").Body.String()
	if !strings.Contains(closed, `<div class="gallery-modal" hidden="">`) {
		t.Error("modal should start hidden")
	}
	if !strings.Contains(closed, `href="/?photo=1"`) {
		t.Error("thumbnails should link to the full size view")
	}

	open := do(t, muxer, http.MethodGet, "/?photo=1", "").Body.String()
	if !strings.Contains(open, `<div class="gallery-modal" data-index="1"><img src="/uploads/gallery-2.jpg"`) {
		t.Error("photo=1 should open the second image")
	}
	if !strings.Contains(open, `class="gallery-close" href="/"`) {
		t.Error("open modal needs a close link")
	}

	for _, target := range []string{"/?photo=99", "/?photo=x"} {
		if page := do(t, muxer, http.MethodGet, target, "").Body.String(); !strings.Contains(page, `<div class="gallery-modal" hidden="">`) {
			t.Error("invalid photo should keep the modal hidden", target)
		}
	}
}

func TestRateLimit(t *testing.T) {
	_, muxer := newApp(t, map[string]string{"RATE_LIMIT_PER_MINUTE": "2"})

	codes := make([]int, 0, 3)
	for range 3 {
		rec := do(t, muxer, http.MethodPost, "/api/guestbook", `{"name":"Kim","message":"hi"}`)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusCreated || codes[1] != http.StatusCreated || codes[2] != http.StatusTooManyRequests {
		t.Error("expected two posts then 429, got", codes)
	}
}

func TestQRDownloadAndShare(t *testing.T) {
	_, muxer := newApp(t, nil)

	if rec := do(t, muxer, http.MethodPost, "/api/qr", `{"name":"Kim","requireContact":true}`); rec.Code != http.StatusBadRequest {
		t.Error("missing contact should be 400, got", rec.Code)
	}
	rec := do(t, muxer, http.MethodPost, "/api/qr", `{"name":"Kim"}`)
	if rec.Code != http.StatusCreated {
		t.Fatal("generate failed", rec.Code, rec.Body.String())
	}
	var generated struct {
		FileName    string `json:"fileName"`
		DownloadURL string `json:"downloadUrl"`
		ShareURL    string `json:"shareUrl"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &generated); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(generated.FileName, "QR-Code-Kim-") {
		t.Error("unexpected file name", generated.FileName)
	}

	download := do(t, muxer, http.MethodGet, generated.DownloadURL, "")
	if download.Code != http.StatusOK || download.Header().Get("Content-Type") != "image/png" {
		t.Fatal("download failed", download.Code)
	}
	if !strings.Contains(download.Header().Get("Content-Disposition"), generated.FileName) {
		t.Error("attachment should carry the file name", download.Header().Get("Content-Disposition"))
	}
	if _, err := png.Decode(download.Body); err != nil {
		t.Error("download is not a png", err)
	}

	share := do(t, muxer, http.MethodGet, generated.ShareURL, "")
	if share.Code != http.StatusOK || !strings.Contains(share.Body.String(), `"outcome":"clipboard"`) || !strings.Contains(share.Body.String(), "Attendee: Kim") {
		t.Error("share should fall back to text", share.Code, share.Body.String())
	}
	native := do(t, muxer, http.MethodGet, generated.ShareURL+"?native=1", "")
	if native.Code != http.StatusOK || native.Header().Get("Content-Type") != "image/png" {
		t.Error("native share should answer with the png", native.Code)
	}

	if rec := do(t, muxer, http.MethodGet, "/api/qr/nope/download", ""); rec.Code != http.StatusNotFound {
		t.Error("unknown code should be 404, got", rec.Code)
	}
}

func TestExport(t *testing.T) {
	_, muxer := newApp(t, nil)
	cookie := login(t, muxer)
	do(t, muxer, http.MethodPost, "/api/rsvp", `{"response":"yes","name":"Kim","phone":"01012345678","email":"kim@example.com"}`)

	rec := do(t, muxer, http.MethodGet, "/admin/api/export/attendees", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatal("export failed", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(rec.Body.String(), "\uFEFF") {
		t.Error("csv should start with a BOM")
	}
	if !strings.Contains(rec.Body.String(), `"Kim"`) || !strings.Contains(rec.Body.String(), `"참석"`) {
		t.Error("csv should carry the attendee", rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "attendees_") {
		t.Error("unexpected disposition", rec.Header().Get("Content-Disposition"))
	}

	future := do(t, muxer, http.MethodGet, "/admin/api/export/attendees?since=2999-01-01", "", cookie)
	if strings.Contains(future.Body.String(), "Kim") {
		t.Error("since should filter older rows")
	}
	if rec := do(t, muxer, http.MethodGet, "/admin/api/export/attendees?since=zzz", "", cookie); rec.Code != http.StatusBadRequest {
		t.Error("bad since should be 400, got", rec.Code)
	}
	if rec := do(t, muxer, http.MethodGet, "/admin/api/export/nope", "", cookie); rec.Code != http.StatusNotFound {
		t.Error("unknown export should be 404, got", rec.Code)
	}
}

func TestAdminEdits(t *testing.T) {
	as, muxer := newApp(t, nil)
	cookie := login(t, muxer)

	if rec := do(t, muxer, http.MethodDelete, "/admin/api/rsvp/nope", "", cookie); rec.Code != http.StatusNotFound {
		t.Error("deleting nothing should be a 404 no-op, got", rec.Code)
	}

	msg, _, err := as.Guests.PostGuestbook(t.Context(), "Kim", "hello", "")
	if err != nil {
		t.Fatal(err)
	}
	if rec := do(t, muxer, http.MethodPost, "/admin/api/guestbook/"+msg.ID+"/approve", `{"approved":false}`, cookie); rec.Code != http.StatusNoContent {
		t.Fatal("hide failed", rec.Code, rec.Body.String())
	}
	if n := len(as.Guests.Guestbook(t.Context(), 0)); n != 0 {
		t.Error("hidden message should not be listed, got", n)
	}
	if rec := do(t, muxer, http.MethodPost, "/admin/api/guestbook/"+msg.ID+"/approve", "", cookie); rec.Code != http.StatusNoContent {
		t.Fatal("approve failed", rec.Code)
	}
	if rec := do(t, muxer, http.MethodDelete, "/admin/api/guestbook/"+msg.ID, "", cookie); rec.Code != http.StatusNoContent {
		t.Error("delete failed", rec.Code)
	}

	if rec := do(t, muxer, http.MethodGet, "/admin/api/section/nope", "", cookie); rec.Code != http.StatusNotFound {
		t.Error("unknown section should be 404, got", rec.Code)
	}
	if rec := do(t, muxer, http.MethodGet, "/admin/api/section/settings", "", cookie); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"connected":false`) {
		t.Error("settings should report the missing remote", rec.Body.String())
	}
	if rec := do(t, muxer, http.MethodPost, "/admin/api/migrate", "", cookie); rec.Code != http.StatusServiceUnavailable {
		t.Error("migrate without remote should be 503, got", rec.Code)
	}
}

func TestContent(t *testing.T) {
	_, muxer := newApp(t, nil)
	cookie := login(t, muxer)

	if rec := do(t, muxer, http.MethodPost, "/admin/api/content", `{"eventTitle":"Spring Gala"}`); rec.Code != http.StatusUnauthorized {
		t.Error("content edits need a session, got", rec.Code)
	}
	if rec := do(t, muxer, http.MethodPost, "/admin/api/content", `{"eventTitle":"Spring Gala"}`, cookie); rec.Code != http.StatusOK {
		t.Fatal("save failed", rec.Code, rec.Body.String())
	}
	if rec := do(t, muxer, http.MethodGet, "/api/content", ""); !strings.Contains(rec.Body.String(), "Spring Gala") {
		t.Error("merged content should carry the override", rec.Body.String())
	}
	if rec := do(t, muxer, http.MethodDelete, "/admin/api/content", "", cookie); rec.Code != http.StatusOK {
		t.Fatal("reset failed", rec.Code)
	}
	if rec := do(t, muxer, http.MethodGet, "/api/content", ""); strings.Contains(rec.Body.String(), "Spring Gala") {
		t.Error("reset should restore the defaults")
	}
}

func TestManualEntry(t *testing.T) {
	_, muxer := newApp(t, nil)
	cookie := login(t, muxer)

	if rec := do(t, muxer, http.MethodPost, "/admin/api/entries", `{"name":""}`, cookie); rec.Code != http.StatusBadRequest {
		t.Error("nameless entry should be 400, got", rec.Code)
	}
	rec := do(t, muxer, http.MethodPost, "/admin/api/entries", `{"name":"Lee"}`, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatal("manual entry failed", rec.Code, rec.Body.String())
	}
	var result struct {
		Entry struct {
			ID string `json:"id"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, muxer, http.MethodGet, "/admin/api/section/qr", "", cookie); !strings.Contains(rec.Body.String(), "Lee") {
		t.Error("qr section should list the entry", rec.Body.String())
	}
	if rec := do(t, muxer, http.MethodDelete, "/admin/api/entries/"+result.Entry.ID, "", cookie); rec.Code != http.StatusNoContent {
		t.Error("delete failed", rec.Code)
	}
	if rec := do(t, muxer, http.MethodDelete, "/admin/api/entries/"+result.Entry.ID, "", cookie); rec.Code != http.StatusNotFound {
		t.Error("second delete should be a no-op 404, got", rec.Code)
	}
	if rec := do(t, muxer, http.MethodPost, "/admin/api/scan/confirm", "", cookie); rec.Code != http.StatusNotFound {
		t.Error("confirm without a scan should be 404, got", rec.Code)
	}
}

func TestScanFlow(t *testing.T) {
	_, muxer := newApp(t, nil)
	cookie := login(t, muxer)

	if rec := do(t, muxer, http.MethodPost, "/admin/api/scan/frame", "", cookie); rec.Code != http.StatusBadRequest {
		t.Error("empty frame should be 400, got", rec.Code)
	}
	rec := do(t, muxer, http.MethodPost, "/admin/api/scan/start", "", cookie)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"active":true`) {
		t.Fatal("scan should start", rec.Code, rec.Body.String())
	}
	rec = do(t, muxer, http.MethodPost, "/admin/api/scan/stop", "", cookie)
	if rec.Code != http.StatusOK || strings.Contains(rec.Body.String(), `"active":true`) {
		t.Error("scan should stop", rec.Body.String())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatal(err)
	}
	if rec := do(t, muxer, http.MethodPost, "/admin/api/scan/frame", buf.String(), cookie); rec.Code != http.StatusConflict {
		t.Error("frames without a scan should be 409, got", rec.Code)
	}
}

func TestGalleryUpload(t *testing.T) {
	_, muxer := newApp(t, nil)
	cookie := login(t, muxer)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}

	upload := func(field string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile(field, "photo.png")
		if err != nil {
			t.Fatal(err)
		}
		fw.Write(data)
		mw.Close()
		req := httptest.NewRequest(http.MethodPost, "/admin/api/gallery", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		muxer.ServeHTTP(rec, req)
		return rec
	}

	if rec := upload("image", []byte("plain text")); rec.Code != http.StatusBadRequest {
		t.Error("text should be rejected, got", rec.Code)
	}
	rec := upload("image", pngBuf.Bytes())
	if rec.Code != http.StatusCreated {
		t.Fatal("upload failed", rec.Code, rec.Body.String())
	}
	var resp struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.URL, "/uploads/gallery/") {
		t.Fatal("unexpected url", resp.URL)
	}

	got := do(t, muxer, http.MethodGet, resp.URL, "")
	if got.Code != http.StatusOK || got.Header().Get("Content-Type") != "image/png" || !bytes.Equal(got.Body.Bytes(), pngBuf.Bytes()) {
		t.Error("uploaded image should be served back", got.Code, got.Header().Get("Content-Type"))
	}
	if rec := do(t, muxer, http.MethodGet, "/uploads/gallery/missing.png", ""); rec.Code != http.StatusNotFound {
		t.Error("missing upload should be 404, got", rec.Code)
	}
}

func TestGuestWebsocket(t *testing.T) {
	as, muxer := newApp(t, nil)
	go as.Hub.Run(as.Ctx)

	srv := httptest.NewServer(muxer)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for as.Hub.Count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Post(srv.URL+"/api/guestbook", "application/json", strings.NewReader(`{"name":"Kim","message":"live"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg struct {
		Type string `json:"type"`
		Data struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != hub.MessageTypeGuestbookNew || msg.Data.Name != "Kim" {
		t.Error("unexpected message", msg)
	}
}
