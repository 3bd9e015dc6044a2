package content_test

import (
	"context"
	"invitation/src-server/content"
	"invitation/src-server/hub"
	"invitation/src-server/model"
	"invitation/src-server/remote"
	"invitation/src-server/storage"
	"invitation/src-server/web"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
)

func newStore(t *testing.T) *storage.Adapter {
	t.Helper()
	backend, err := storage.OpenBadger("")
	if err != nil {
		t.Fatal(err)
	}
	a := storage.NewAdapter(backend)
	t.Cleanup(func() { a.Close() })
	return a
}

func text(t *testing.T, page, selector string) string {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		t.Fatal(err)
	}
	return doc.Find(selector).Text()
}

func overrides(kv ...string) model.ContentOverrides {
	o := model.NewContentOverrides()
	for i := 0; i+1 < len(kv); i += 2 {
		o.Set(kv[i], kv[i+1])
	}
	return o
}

func TestMergeOverDefaults(t *testing.T) {
	defaults := overrides(content.FieldEventTitle, "Y", content.FieldEventFee, "free")

	merged := content.Merge(defaults, overrides(content.FieldEventTitle, "X"))
	if merged.Get(content.FieldEventTitle) != "X" || merged.Get(content.FieldEventFee) != "free" {
		t.Error("override should win field by field", merged.Fields)
	}
	merged = content.Merge(defaults, model.NewContentOverrides())
	if merged.Get(content.FieldEventTitle) != "Y" {
		t.Error("empty overrides should keep defaults")
	}
	merged = content.Merge(defaults, overrides(content.FieldEventTitle, ""))
	if merged.Get(content.FieldEventTitle) != "Y" {
		t.Error("empty string should keep the default")
	}
	if defaults.Get(content.FieldEventTitle) != "Y" {
		t.Error("merge must not modify its inputs")
	}
}

func TestRender(t *testing.T) {
	// case: override shows, otherwise the default shows
	page, err := content.RenderHTML(web.IndexHTML, content.Merge(content.Defaults(), overrides(content.FieldEventTitle, "X")))
	if err != nil {
		t.Fatal(err)
	}
	if got := text(t, page, ".event-title"); got != "X" {
		t.Error("expected X, got", got)
	}
	page, _ = content.RenderHTML(web.IndexHTML, content.Merge(content.Defaults(), model.NewContentOverrides()))
	if got := text(t, page, ".event-title"); got != content.Defaults().Get(content.FieldEventTitle) {
		t.Error("expected default title, got", got)
	}
	if n := strings.Count(page, `class="gallery-item"`); n != len(content.Defaults().GalleryImages) {
		t.Error("unexpected gallery items", n)
	}

	// case: multi-line fields and escaping
	merged := content.Merge(content.Defaults(), overrides(
		content.FieldLocationAddress, "line 1\n<b>line 2</b>",
		content.FieldGreetingContent, "first\n\nsecond",
		content.FieldAccountHolder, "Kim",
	))
	page, _ = content.RenderHTML(web.IndexHTML, merged)
	if !strings.Contains(page, "line 1<br/>&lt;b&gt;line 2&lt;/b&gt;") {
		t.Error("address should be escaped and split on newlines")
	}
	if got := text(t, page, ".greeting-content p"); !strings.HasPrefix(got, "firstsecond") {
		t.Error("greeting should become paragraphs", got)
	}
	if got := text(t, page, ".account-holder"); got != "예금주: Kim" {
		t.Error("unexpected account holder", got)
	}
}

func TestRenderSkipsMissingTargets(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><h1 class="event-title"></h1></body></html>`))
	if err != nil {
		t.Fatal(err)
	}
	missing := content.Render(doc, content.Defaults())
	if doc.Find(".event-title").Text() != content.Defaults().Get(content.FieldEventTitle) {
		t.Error("present target should still be rendered")
	}
	found := false
	for _, sel := range missing {
		if sel == ".gallery-grid" {
			found = true
		}
	}
	if !found {
		t.Error("missing gallery target should be reported", missing)
	}
}

func TestHasPendingUpdate(t *testing.T) {
	t0 := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		flag content.UpdateFlag
		last time.Time
		want bool
	}{
		{content.UpdateFlag{}, time.Time{}, false},
		{content.UpdateFlag{Pending: true, At: t0}, time.Time{}, true},
		{content.UpdateFlag{Pending: true, At: t0}, t0, false},
		{content.UpdateFlag{Pending: true, At: t0.Add(time.Second)}, t0, true},
		{content.UpdateFlag{Pending: false, At: t0.Add(time.Second)}, t0, false},
	}
	for i, c := range cases {
		if got := content.HasPendingUpdate(c.flag, c.last); got != c.want {
			t.Errorf("case %d: got %v, want %v", i, got, c.want)
		}
	}
}

func TestLoadAndSave(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	// case: offline save still succeeds locally
	offline := content.NewEngine(store, remote.NewGateway(nil, nil, 0), nil, web.IndexHTML)
	if _, src := offline.Load(ctx); src != content.SourceDefaults {
		t.Error("fresh store should load defaults, got", src)
	}
	res, err := offline.Save(ctx, overrides(content.FieldEventTitle, "local"))
	if err != nil || res.SavedRemotely {
		t.Fatal("offline save should succeed locally only", err)
	}
	if o, src := offline.Load(ctx); src != content.SourceLocal || o.Get(content.FieldEventTitle) != "local" {
		t.Error("expected local copy", src)
	}

	// case: remote copy wins when non-empty
	g := remote.NewGateway(remote.NewMemoryBackend(), nil, time.Second)
	if !g.Initialize(ctx) {
		t.Fatal("initialize failed")
	}
	online := content.NewEngine(store, g, nil, web.IndexHTML)
	if o, src := online.Load(ctx); src != content.SourceLocal || o.Get(content.FieldEventTitle) != "local" {
		t.Error("empty remote copy should fall back to local", src)
	}
	if res, err := online.Save(ctx, overrides(content.FieldEventTitle, "remote")); err != nil || !res.SavedRemotely {
		t.Fatal("online save should reach the remote store", err)
	}
	store.Set(ctx, storage.KeyContentData, overrides(content.FieldEventTitle, "stale"))
	if o, src := online.Load(ctx); src != content.SourceRemote || o.Get(content.FieldEventTitle) != "remote" {
		t.Error("expected remote copy", src)
	}

	// case: reset
	if _, err := online.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	page, _ := online.RenderPage(ctx)
	if got := text(t, page, ".event-title"); got != content.Defaults().Get(content.FieldEventTitle) {
		t.Error("reset should restore the default title, got", got)
	}
}

func TestLivePageFollowsAdminSave(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := hub.New()
	go h.Run(ctx)

	engine := content.NewEngine(newStore(t), remote.NewGateway(nil, nil, 0), h, web.IndexHTML)
	live := content.NewLivePage(engine, h)
	go live.Run(ctx)

	select {
	case <-live.Rendered():
	case <-time.After(time.Second):
		t.Fatal("initial render missing")
	}
	if got := text(t, live.HTML(ctx), ".event-location span"); got == "Busan" {
		t.Fatal("location should start at the default")
	}

	if _, err := engine.Save(ctx, overrides(content.FieldEventLocation, "Busan")); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(content.DefaultPollInterval)
	for {
		select {
		case <-live.Rendered():
			if text(t, live.HTML(ctx), ".event-location span") == "Busan" {
				return
			}
		case <-deadline:
			t.Fatal("page was not re-rendered within the polling bound")
		}
	}
}

// slowContentBackend stalls every content read like a remote store under
// load.
type slowContentBackend struct {
	*remote.MemoryBackend
	delay time.Duration
}

func (b slowContentBackend) GetContent(ctx context.Context, eventID string) (model.ContentOverrides, error) {
	time.Sleep(b.delay)
	return b.MemoryBackend.GetContent(ctx, eventID)
}

func TestLivePageSurvivesBurstDuringSlowRender(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := hub.New()
	go h.Run(ctx)

	g := remote.NewGateway(slowContentBackend{remote.NewMemoryBackend(), 300 * time.Millisecond}, nil, 2*time.Second)
	if !g.Initialize(ctx) {
		t.Fatal("initialize failed")
	}
	engine := content.NewEngine(newStore(t), g, h, web.IndexHTML)
	live := content.NewLivePage(engine, h)
	go live.Run(ctx)

	select {
	case <-live.Rendered():
	case <-time.After(2 * time.Second):
		t.Fatal("initial render missing")
	}

	h.Broadcast(hub.MessageTypeContentUpdate, nil)
	for i := 0; i < 40; i++ {
		h.Broadcast(hub.MessageTypeGuestbookNew, i)
	}
	time.Sleep(100 * time.Millisecond)
	if h.Count() == 0 {
		t.Fatal("guest page listener left the hub")
	}

	if _, err := engine.Save(ctx, overrides(content.FieldEventLocation, "Busan")); err != nil {
		t.Fatal(err)
	}
	deadline := time.After(3 * time.Second)
	for {
		select {
		case <-live.Rendered():
			if text(t, live.HTML(ctx), ".event-location span") == "Busan" {
				return
			}
		case <-deadline:
			t.Fatal("guest page kept stale content after the burst")
		}
	}
}

func TestWatcherSeesOtherInstance(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := newStore(t)
	gateway := remote.NewGateway(nil, nil, 0)

	admin := content.NewEngine(store, gateway, nil, web.IndexHTML)
	guest := content.NewEngine(store, gateway, nil, web.IndexHTML)

	updates := make(chan string, 4)
	w := content.NewWatcher(guest, time.Hour, func(ctx context.Context) {
		updates <- guest.Merged(ctx).Get(content.FieldEventLocation)
	})

	// polling path
	if w.Check(ctx) {
		t.Error("nothing to apply yet")
	}
	admin.Save(ctx, overrides(content.FieldEventLocation, "Busan"))
	if !w.Check(ctx) {
		t.Fatal("flag from another instance should be pending")
	}
	if got := <-updates; got != "Busan" {
		t.Error("unexpected location", got)
	}
	if w.Check(ctx) {
		t.Error("the same flag must not apply twice")
	}

	// change notification path, long before the next poll
	go w.Run(ctx)
	time.Sleep(20 * time.Millisecond)
	admin.Save(ctx, overrides(content.FieldEventLocation, "Daegu"))
	select {
	case got := <-updates:
		if got != "Daegu" {
			t.Error("unexpected location", got)
		}
	case <-time.After(time.Second):
		t.Fatal("watcher did not react to the change notification")
	}

	// own saves are already delivered through the hub
	guest.Save(ctx, overrides(content.FieldEventLocation, "Incheon"))
	select {
	case got := <-updates:
		t.Error("own update should be skipped", got)
	case <-time.After(50 * time.Millisecond):
	}
}
