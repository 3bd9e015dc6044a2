package guest

// Gallery is the state of the full-size image modal.
type Gallery struct {
	images []string
	open   bool
	index  int
}

func NewGallery(images []string) *Gallery {
	return &Gallery{images: images}
}

// Open shows image i; out of range indexes are ignored.
func (g *Gallery) Open(i int) bool {
	if i < 0 || i >= len(g.images) {
		return false
	}
	g.open, g.index = true, i
	return true
}

// Key handles a key press while the modal is shown.
func (g *Gallery) Key(key string) {
	if key == "Escape" {
		g.Close()
	}
}

func (g *Gallery) ClickBackdrop() {
	g.Close()
}

// ClickImage keeps the modal open.
func (g *Gallery) ClickImage() {}

func (g *Gallery) Close() {
	g.open = false
}

// Current returns the image shown, if any.
func (g *Gallery) Current() (string, bool) {
	if !g.open {
		return "", false
	}
	return g.images[g.index], true
}
