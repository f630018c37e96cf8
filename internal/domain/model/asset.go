package model

import "time"

// Video is freely viewable catalog content. A video may link to one gated
// image whose visibility this engine controls.
type Video struct {
	ID           string
	Title        string
	URL          string
	GatedImageID *string
	CreatedAt    time.Time
}

// GatedImage is the locked asset a viewer pays to see. Price is in minor
// currency units; zero means the catalog has no price set and the engine
// falls back to its configured default.
type GatedImage struct {
	ID         string
	VideoID    string
	URL        string
	PriceMinor int64
	Currency   string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (g *GatedImage) IsZero() bool { return g == nil || g.ID == "" }
