package records

import (
	"fmt"
	"strings"
	"time"

	"github.com/papercomputeco/nook/pkg/vector"
)

// Chunk splits a business into one document per retrievable fact: its
// profile, contact details, opening hours and payment methods, plus one per
// service, FAQ, live promotion and custom response. Empty sections produce
// no document.
func Chunk(b Business, now time.Time) []vector.Document {
	var docs []vector.Document
	add := func(t vector.DocType, source, ref, content string, extra map[string]any) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		docs = append(docs, vector.Document{
			Content: content,
			Metadata: vector.Metadata{
				NamespaceID: b.ID,
				Type:        t,
				Source:      source,
				Content:     content,
				Ref:         ref,
				Extra:       extra,
			},
		})
	}

	add(vector.TypeBasicInfo, SourceBusinessProfile, "", basicInfo(b), nil)
	add(vector.TypeContactInfo, SourceBusinessProfile, "", contactInfo(b), nil)
	add(vector.TypeBusinessHours, SourceBusinessProfile, "", hours(b.Hours), nil)
	if len(b.PaymentMethods) > 0 {
		add(vector.TypePaymentMethods, SourceBusinessProfile, "",
			"Accepted payment methods: "+strings.Join(b.PaymentMethods, ", ")+".", nil)
	}

	for _, s := range b.Services {
		extra := map[string]any{}
		if s.Price > 0 {
			extra["price"] = s.Price
		}
		if s.DurationMinutes > 0 {
			extra["durationMinutes"] = s.DurationMinutes
		}
		if len(extra) == 0 {
			extra = nil
		}
		add(vector.TypeService, SourceServiceCatalog, s.ID, service(s), extra)
	}

	for _, f := range b.FAQs {
		add(vector.TypeFAQ, SourceFAQ, f.ID, fmt.Sprintf("Q: %s\nA: %s", f.Question, f.Answer), nil)
	}

	for _, p := range b.Promotions {
		if !p.IsLive(now) {
			continue
		}
		add(vector.TypePromotion, SourcePromotion, p.ID, promotion(p), nil)
	}

	for _, r := range b.Responses {
		add(vector.TypeCustomResponse, SourceCustomResponse, r.ID, fmt.Sprintf("%s: %s", r.Trigger, r.Response), nil)
	}

	return docs
}

func basicInfo(b Business) string {
	var parts []string
	if b.Name != "" {
		parts = append(parts, b.Name+".")
	}
	if b.Description != "" {
		parts = append(parts, sentence(b.Description))
	}
	if b.Category != "" {
		parts = append(parts, "Category: "+b.Category+".")
	}
	return strings.Join(parts, " ")
}

func contactInfo(b Business) string {
	var parts []string
	for _, f := range []struct{ label, value string }{
		{"Address", b.Address},
		{"Phone", b.Phone},
		{"Email", b.Email},
		{"Website", b.Website},
	} {
		if f.value != "" {
			parts = append(parts, f.label+": "+f.value)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return "Contact information. " + strings.Join(parts, ". ") + "."
}

func hours(days []DayHours) string {
	if len(days) == 0 {
		return ""
	}

	lines := make([]string, 0, len(days))
	for _, d := range days {
		switch {
		case d.Closed:
			lines = append(lines, d.Day+": closed")
		case d.Opens != "" && d.Closes != "":
			lines = append(lines, fmt.Sprintf("%s: %s - %s", d.Day, d.Opens, d.Closes))
		}
	}
	if len(lines) == 0 {
		return ""
	}
	return "Opening hours. " + strings.Join(lines, "; ") + "."
}

func service(s Service) string {
	text := s.Name
	if s.Description != "" {
		text += ": " + sentence(s.Description)
	} else {
		text += "."
	}
	if s.Price > 0 {
		text += fmt.Sprintf(" Price: %.2f.", s.Price)
	}
	if s.DurationMinutes > 0 {
		text += fmt.Sprintf(" Duration: %d minutes.", s.DurationMinutes)
	}
	return text
}

func promotion(p Promotion) string {
	text := "Promotion: " + p.Title
	if p.Description != "" {
		text += ". " + sentence(p.Description)
	} else {
		text += "."
	}
	if p.ValidUntil != nil {
		text += " Valid until " + p.ValidUntil.Format("2006-01-02") + "."
	}
	return text
}

func sentence(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s[len(s)-1:], ".!?") {
		return s
	}
	return s + "."
}
