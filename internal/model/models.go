// Package model defines shared data structures for the deal sniper.
package model

import "time"

// Material is a categorical guess at a sneaker's upper, inferred from title text.
type Material string

const (
	MaterialPatentLeather Material = "Patent Leather"
	MaterialSynthetic     Material = "Synthetic"
	MaterialMesh          Material = "Mesh"
	MaterialNubuck        Material = "Nubuck"
	MaterialFabric        Material = "Fabric"
	MaterialFauxLeather   Material = "Faux Leather"
	MaterialLeather       Material = "Leather"
	MaterialUnknown       Material = "Unknown"
)

// ConditionUnknown is used when a result row carries no condition text.
const ConditionUnknown = "Unknown"

// Listing is a single offer extracted from a search result page.
// URL is canonical (no query string) and is the identity key everywhere.
type Listing struct {
	Title         string   `json:"title"`
	Price         float64  `json:"price"`
	Condition     string   `json:"condition"`
	UpperMaterial Material `json:"upperMaterial"`
	URL           string   `json:"url"`
	ImageURL      string   `json:"imageUrl,omitempty"`
}

// SeenRecord mirrors a seen_listings row.
type SeenRecord struct {
	URL       string    `json:"url"`
	Title     string    `json:"title"`
	Price     float64   `json:"price"`
	FirstSeen time.Time `json:"firstSeen"`
}

// Deal is a listing that passed the filters, ready for delivery.
type Deal struct {
	Listing    Listing   `json:"listing"`
	Score      int       `json:"score"`
	Tier       string    `json:"tier,omitempty"`
	Highlights []string  `json:"highlights,omitempty"`
	FoundAt    time.Time `json:"foundAt"`
}
