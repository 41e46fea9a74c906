package types

import (
	"fmt"
	"strings"
)

// PlaceholderImage is the image reference stored when no file was uploaded.
const PlaceholderImage = "placeholder.svg"

// Item is a single entry in a user's indoor or outdoor design list.
type Item struct {
	// ID is unique within the owning list.
	ID int `json:"id"`

	// Name is the item or facility being planned, e.g. "Library Room".
	Name string `json:"name"`

	// Description is free text describing the item.
	Description string `json:"description"`

	// Comment is a free-text personal note.
	Comment string `json:"comment"`

	// Image is the stored image file name or PlaceholderImage.
	Image string `json:"image"`

	// Priority ranks the item from PriorityHigh to PriorityLow.
	Priority Priority `json:"priority"`

	// EstimatedCost is a non-negative whole-currency estimate.
	EstimatedCost int `json:"estimated_cost"`
}

// HasImage reports whether the item references an uploaded file.
func (i Item) HasImage() bool {
	return i.Image != "" && i.Image != PlaceholderImage
}

// Kind selects the indoor or outdoor list for an operation.
type Kind string

const (
	KindIndoor  Kind = "indoor"
	KindOutdoor Kind = "outdoor"
)

// ParseKind accepts "indoor" or "outdoor" in any case.
func ParseKind(raw string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(raw))) {
	case KindIndoor:
		return KindIndoor, nil
	case KindOutdoor:
		return KindOutdoor, nil
	default:
		return "", fmt.Errorf("unknown list kind %q", raw)
	}
}

// Title returns the capitalized kind as used in page titles and routes.
func (k Kind) Title() string {
	if k == KindOutdoor {
		return "Outdoor"
	}
	return "Indoor"
}

// Priority is the importance of an item, 1 being the highest.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// Valid reports whether p is within the 1-3 range.
func (p Priority) Valid() bool {
	return p >= PriorityHigh && p <= PriorityLow
}

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "High"
	case PriorityMedium:
		return "Medium"
	case PriorityLow:
		return "Low"
	default:
		return "Unknown"
	}
}
