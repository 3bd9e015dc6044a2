package guest

import (
	"fmt"
	"invitation/src-server/model"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const emptyGuestbook = "아직 방명록 메시지가 없습니다. 첫 번째 메시지를 남겨보세요!"

// RenderGuestbook fills the guestbook list of page with msgs.
func RenderGuestbook(page string, msgs []model.GuestbookMessage) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("RenderGuestbook: %w", err)
	}
	list := doc.Find(".guestbook-list")
	if list.Length() == 0 {
		return page, nil
	}
	list.Empty()
	if len(msgs) == 0 {
		list.AppendHtml(`<li class="message-item empty"></li>`)
		list.Find(".empty").SetText(emptyGuestbook)
	}
	for _, msg := range msgs {
		list.AppendHtml(`<li class="message-item"><strong class="message-name"></strong><time></time><p class="message-content"></p></li>`)
		item := list.Children().Last()
		item.Find(".message-name").SetText(msg.Name)
		item.Find("time").SetAttr("datetime", msg.CreatedAt.Format(time.RFC3339))
		item.Find("time").SetText(msg.CreatedAt.Format("2006.01.02"))
		item.Find(".message-content").SetText(msg.Message)
	}
	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("RenderGuestbook: %w", err)
	}
	return out, nil
}

// RenderGallery opens the full-size modal on image photo of the page's
// gallery. An index outside the gallery leaves the page untouched.
func RenderGallery(page string, photo int) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("RenderGallery: %w", err)
	}
	var images []string
	doc.Find(".gallery-item img").Each(func(_ int, img *goquery.Selection) {
		images = append(images, img.AttrOr("src", ""))
	})
	g := NewGallery(images)
	if !g.Open(photo) {
		return page, nil
	}
	src, _ := g.Current()
	modal := doc.Find(".gallery-modal")
	if modal.Length() == 0 {
		return page, nil
	}
	modal.RemoveAttr("hidden")
	modal.SetAttr("data-index", fmt.Sprint(photo))
	modal.Find("img").SetAttr("src", src).SetAttr("alt", fmt.Sprintf("Gallery image %d", photo+1))
	if modal.Find(".gallery-close").Length() == 0 {
		modal.AppendHtml(`<a class="gallery-close" href="/">Close</a>`)
	}
	out, err := doc.Html()
	if err != nil {
		return "", fmt.Errorf("RenderGallery: %w", err)
	}
	return out, nil
}
