package domain

import "testing"

func TestEnumValid(t *testing.T) {
	valid := []interface{ Valid() bool }{
		PlanFree, PlanPremium, PlanPremiumPlus,
		RelationshipChild, RelationshipOther,
		MessageTypeVideo, MessageTypeAudio, MessageTypeText,
		DeliverySpecificDate, DeliveryUponPassing, DeliveryMilestone, DeliverySurprise,
		MilestoneBirthday, MilestoneRetirement,
		StatusDraft, StatusScheduled, StatusDelivered,
	}
	for _, v := range valid {
		if !v.Valid() {
			t.Fatalf("%v should be valid", v)
		}
	}

	invalid := []interface{ Valid() bool }{
		Plan("free"), Relationship("COUSIN"), MessageType("GIF"),
		DeliveryType("LATER"), Milestone("PROMOTION"), Status("ARCHIVED"),
	}
	for _, v := range invalid {
		if v.Valid() {
			t.Fatalf("%v should be invalid", v)
		}
	}
}
