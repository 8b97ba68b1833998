// Package records models the business records nook indexes and turns them
// into retrievable documents.
package records

import (
	"context"
	"errors"
	"time"

	"github.com/papercomputeco/nook/pkg/vector"
)

// ErrNotFound is returned when a business does not exist.
var ErrNotFound = errors.New("business not found")

// Document sources.
const (
	SourceBusinessProfile = "business_profile"
	SourceServiceCatalog  = "service_catalog"
	SourceFAQ             = "faq"
	SourcePromotion       = "promotion"
	SourceCustomResponse  = "custom_response"
)

// Business is the aggregate a namespace is derived from.
type Business struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Category       string           `json:"category,omitempty"`
	Address        string           `json:"address,omitempty"`
	Phone          string           `json:"phone,omitempty"`
	Email          string           `json:"email,omitempty"`
	Website        string           `json:"website,omitempty"`
	Hours          []DayHours       `json:"hours,omitempty"`
	PaymentMethods []string         `json:"payment_methods,omitempty"`
	Services       []Service        `json:"services,omitempty"`
	FAQs           []FAQ            `json:"faqs,omitempty"`
	Promotions     []Promotion      `json:"promotions,omitempty"`
	Responses      []CustomResponse `json:"custom_responses,omitempty"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// DayHours is the opening window of one weekday.
type DayHours struct {
	Day    string `json:"day"`
	Opens  string `json:"opens,omitempty"`
	Closes string `json:"closes,omitempty"`
	Closed bool   `json:"closed,omitempty"`
}

// Service is one bookable offering.
type Service struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Description     string  `json:"description,omitempty"`
	Price           float64 `json:"price,omitempty"`
	DurationMinutes int     `json:"duration_minutes,omitempty"`
}

// FAQ is a question the business answers up front.
type FAQ struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Promotion is a time-limited offer.
type Promotion struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Active      bool       `json:"active"`
	ValidUntil  *time.Time `json:"valid_until,omitempty"`
}

// IsLive reports whether the promotion should be offered at now.
func (p Promotion) IsLive(now time.Time) bool {
	if !p.Active {
		return false
	}
	return p.ValidUntil == nil || now.Before(*p.ValidUntil)
}

// CustomResponse is a canned answer the business wants the assistant to use.
type CustomResponse struct {
	ID       string `json:"id"`
	Trigger  string `json:"trigger"`
	Response string `json:"response"`
}

// Source derives the documents of a namespace from the system of record.
type Source interface {
	// Documents returns the current documents of the namespace. A namespace
	// without a record yields no documents.
	Documents(ctx context.Context, namespaceID string) ([]vector.Document, error)
}
