package records_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/nook/pkg/records"
	"github.com/papercomputeco/nook/pkg/vector"
)

func sampleBusiness(now time.Time) records.Business {
	past := now.Add(-24 * time.Hour)
	future := now.Add(72 * time.Hour)
	return records.Business{
		ID:          "biz-1",
		Name:        "Corner Barber",
		Description: "Classic cuts downtown",
		Category:    "barber",
		Address:     "1 Main St",
		Phone:       "555-0100",
		Hours: []records.DayHours{
			{Day: "Mon", Opens: "09:00", Closes: "17:00"},
			{Day: "Sun", Closed: true},
		},
		PaymentMethods: []string{"cash", "card"},
		Services: []records.Service{
			{ID: "svc-1", Name: "Haircut", Description: "Scissor cut", Price: 25, DurationMinutes: 30},
		},
		FAQs: []records.FAQ{
			{ID: "faq-1", Question: "Do you take walk-ins?", Answer: "Yes, until 4pm."},
		},
		Promotions: []records.Promotion{
			{ID: "promo-live", Title: "Spring deal", Description: "10% off", Active: true, ValidUntil: &future},
			{ID: "promo-expired", Title: "Winter deal", Active: true, ValidUntil: &past},
			{ID: "promo-off", Title: "Paused deal", Active: false},
		},
		Responses: []records.CustomResponse{
			{ID: "resp-1", Trigger: "parking", Response: "Free parking behind the shop."},
		},
	}
}

func byType(docs []vector.Document, t vector.DocType) []vector.Document {
	var out []vector.Document
	for _, d := range docs {
		if d.Metadata.Type == t {
			out = append(out, d)
		}
	}
	return out
}

var _ = Describe("Chunk", func() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	It("emits one document per retrievable fact", func() {
		docs := records.Chunk(sampleBusiness(now), now)

		Expect(byType(docs, vector.TypeBasicInfo)).To(HaveLen(1))
		Expect(byType(docs, vector.TypeContactInfo)).To(HaveLen(1))
		Expect(byType(docs, vector.TypeBusinessHours)).To(HaveLen(1))
		Expect(byType(docs, vector.TypePaymentMethods)).To(HaveLen(1))
		Expect(byType(docs, vector.TypeService)).To(HaveLen(1))
		Expect(byType(docs, vector.TypeFAQ)).To(HaveLen(1))
		Expect(byType(docs, vector.TypeCustomResponse)).To(HaveLen(1))
	})

	It("stamps every document with the business namespace", func() {
		for _, d := range records.Chunk(sampleBusiness(now), now) {
			Expect(d.Metadata.NamespaceID).To(Equal("biz-1"))
			Expect(d.Metadata.Content).To(Equal(d.Content))
			Expect(d.Metadata.Type.Valid()).To(BeTrue())
		}
	})

	It("only includes live promotions", func() {
		promos := byType(records.Chunk(sampleBusiness(now), now), vector.TypePromotion)
		Expect(promos).To(HaveLen(1))
		Expect(promos[0].Metadata.Ref).To(Equal("promo-live"))
		Expect(promos[0].Content).To(ContainSubstring("Valid until 2026-03-04"))
	})

	It("carries type-specific references and attributes", func() {
		docs := records.Chunk(sampleBusiness(now), now)

		svc := byType(docs, vector.TypeService)[0]
		Expect(svc.Metadata.Ref).To(Equal("svc-1"))
		Expect(svc.Metadata.Source).To(Equal(records.SourceServiceCatalog))
		Expect(svc.Metadata.Extra).To(HaveKeyWithValue("price", 25.0))
		Expect(svc.Metadata.Extra).To(HaveKeyWithValue("durationMinutes", 30))
		Expect(svc.Content).To(Equal("Haircut: Scissor cut. Price: 25.00. Duration: 30 minutes."))

		faq := byType(docs, vector.TypeFAQ)[0]
		Expect(faq.Metadata.Ref).To(Equal("faq-1"))
		Expect(faq.Content).To(Equal("Q: Do you take walk-ins?\nA: Yes, until 4pm."))
	})

	It("renders hours and payment methods", func() {
		docs := records.Chunk(sampleBusiness(now), now)

		Expect(byType(docs, vector.TypeBusinessHours)[0].Content).
			To(Equal("Opening hours. Mon: 09:00 - 17:00; Sun: closed."))
		Expect(byType(docs, vector.TypePaymentMethods)[0].Content).
			To(Equal("Accepted payment methods: cash, card."))
	})

	It("skips empty sections", func() {
		docs := records.Chunk(records.Business{ID: "bare", Name: "Bare"}, now)
		Expect(docs).To(HaveLen(1))
		Expect(docs[0].Metadata.Type).To(Equal(vector.TypeBasicInfo))
		Expect(docs[0].Content).To(Equal("Bare."))
	})
})

var _ = Describe("Promotion", func() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	It("is live without an end date while active", func() {
		Expect(records.Promotion{Active: true}.IsLive(now)).To(BeTrue())
	})

	It("is not live once inactive", func() {
		Expect(records.Promotion{Active: false}.IsLive(now)).To(BeFalse())
	})
})
