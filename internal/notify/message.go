// Package notify formats deals and delivers them to downstream sinks.
package notify

import (
	"fmt"
	"strings"
	"time"

	"sneakerbot/deal-sniper/internal/model"
)

// Embed colors by score.
const (
	ColorHot  = 0x00ff00
	ColorWarm = 0xffa500
	ColorCold = 0xff0000
)

// Field is one name/value row of a Message.
type Field struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// Message is a chat-embed shaped rendering of a deal.
type Message struct {
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Color     int       `json:"color"`
	Fields    []Field   `json:"fields"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Footer    string    `json:"footer"`
	Timestamp time.Time `json:"timestamp"`
}

// Format renders d as a Message.
func Format(d model.Deal) Message {
	found := d.FoundAt
	if found.IsZero() {
		found = time.Now()
	}

	fields := []Field{
		{Name: "💰 Price", Value: fmt.Sprintf("$%.2f", d.Listing.Price), Inline: true},
		{Name: "📦 Condition", Value: d.Listing.Condition, Inline: true},
		{Name: "⭐ Deal Score", Value: fmt.Sprintf("%d/10", d.Score), Inline: true},
	}
	if d.Listing.UpperMaterial != "" && d.Listing.UpperMaterial != model.MaterialUnknown {
		fields = append(fields, Field{Name: "🧵 Upper", Value: string(d.Listing.UpperMaterial), Inline: true})
	}
	if d.Tier != "" {
		fields = append(fields, Field{Name: "🏷️ Tier", Value: d.Tier, Inline: true})
	}
	if len(d.Highlights) > 0 {
		fields = append(fields, Field{Name: "✨ Highlights", Value: strings.Join(d.Highlights, ", ")})
	}

	return Message{
		Title:     "🔥 " + d.Listing.Title,
		URL:       d.Listing.URL,
		Color:     colorFor(d.Score),
		Fields:    fields,
		Thumbnail: d.Listing.ImageURL,
		Footer:    "Found on eBay • " + found.Format("2006-01-02 15:04:05"),
		Timestamp: found,
	}
}

func colorFor(score int) int {
	switch {
	case score >= 8:
		return ColorHot
	case score >= 6:
		return ColorWarm
	default:
		return ColorCold
	}
}
