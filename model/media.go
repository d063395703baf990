package model

// MediaItem is one image (or similar asset) shown in the gallery. Immutable
// after creation. DataURI holds the payload inline unless a blob store is
// configured, in which case it carries an object reference until rehydrated.
type MediaItem struct {
	Name         string `json:"name"`
	DataURI      string `json:"dataUrl"`
	RelativePath string `json:"relativePath"`
}
