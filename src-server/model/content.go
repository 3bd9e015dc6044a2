package model

import (
	"encoding/json"
	"fmt"
	"sort"
)

const GalleryImagesField = "galleryImages"

// ContentOverrides is a flat JSON object of string fields plus an ordered
// list of gallery image URLs.
type ContentOverrides struct {
	Fields        map[string]string
	GalleryImages []string
}

func NewContentOverrides() ContentOverrides {
	return ContentOverrides{Fields: make(map[string]string)}
}

func (c ContentOverrides) Get(field string) string {
	if c.Fields == nil {
		return ""
	}
	return c.Fields[field]
}

func (c *ContentOverrides) Set(field, value string) {
	if c.Fields == nil {
		c.Fields = make(map[string]string)
	}
	c.Fields[field] = value
}

func (c ContentOverrides) IsEmpty() bool {
	for _, v := range c.Fields {
		if v != "" {
			return false
		}
	}
	return len(c.GalleryImages) == 0
}

// Keys returns the field names in a stable order.
func (c ContentOverrides) Keys() []string {
	keys := make([]string, 0, len(c.Fields))
	for k := range c.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c ContentOverrides) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.Fields)+1)
	for k, v := range c.Fields {
		out[k] = v
	}
	if c.GalleryImages != nil {
		out[GalleryImagesField] = c.GalleryImages
	}
	return json.Marshal(out)
}

// UnmarshalJSON ignores fields that are neither strings nor the gallery list.
func (c *ContentOverrides) UnmarshalJSON(b []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("(*ContentOverrides).UnmarshalJSON: %w", err)
	}
	c.Fields = make(map[string]string, len(raw))
	c.GalleryImages = nil
	for k, v := range raw {
		if k == GalleryImagesField {
			var images []string
			if err := json.Unmarshal(v, &images); err == nil {
				c.GalleryImages = images
			}
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			c.Fields[k] = s
		}
	}
	return nil
}
