package domain

// Plan is a user's billing tier.
type Plan string

const (
	PlanFree        Plan = "FREE"
	PlanPremium     Plan = "PREMIUM"
	PlanPremiumPlus Plan = "PREMIUM_PLUS"
)

// Valid reports whether p is a known plan.
func (p Plan) Valid() bool {
	switch p {
	case PlanFree, PlanPremium, PlanPremiumPlus:
		return true
	}
	return false
}

// Relationship categorizes a recipient.
type Relationship string

const (
	RelationshipChild   Relationship = "CHILD"
	RelationshipSpouse  Relationship = "SPOUSE"
	RelationshipParent  Relationship = "PARENT"
	RelationshipSibling Relationship = "SIBLING"
	RelationshipFriend  Relationship = "FRIEND"
	RelationshipOther   Relationship = "OTHER"
)

// Valid reports whether r is a known relationship.
func (r Relationship) Valid() bool {
	switch r {
	case RelationshipChild, RelationshipSpouse, RelationshipParent,
		RelationshipSibling, RelationshipFriend, RelationshipOther:
		return true
	}
	return false
}

// MessageType selects how Message.Content is interpreted.
type MessageType string

const (
	MessageTypeVideo MessageType = "VIDEO"
	MessageTypeAudio MessageType = "AUDIO"
	MessageTypeText  MessageType = "TEXT"
)

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeVideo, MessageTypeAudio, MessageTypeText:
		return true
	}
	return false
}

// DeliveryType selects the rule that releases a message.
type DeliveryType string

const (
	DeliverySpecificDate DeliveryType = "SPECIFIC_DATE"
	DeliveryUponPassing  DeliveryType = "UPON_PASSING"
	DeliveryMilestone    DeliveryType = "MILESTONE"
	DeliverySurprise     DeliveryType = "SURPRISE"
)

// Valid reports whether d is a known delivery type.
func (d DeliveryType) Valid() bool {
	switch d {
	case DeliverySpecificDate, DeliveryUponPassing, DeliveryMilestone, DeliverySurprise:
		return true
	}
	return false
}

// Milestone names a life event used by MILESTONE delivery.
type Milestone string

const (
	MilestoneBirthday    Milestone = "BIRTHDAY"
	MilestoneWedding     Milestone = "WEDDING"
	MilestoneGraduation  Milestone = "GRADUATION"
	MilestoneAnniversary Milestone = "ANNIVERSARY"
	MilestoneFirstChild  Milestone = "FIRST_CHILD"
	MilestoneRetirement  Milestone = "RETIREMENT"
)

// Valid reports whether m is a known milestone.
func (m Milestone) Valid() bool {
	switch m {
	case MilestoneBirthday, MilestoneWedding, MilestoneGraduation,
		MilestoneAnniversary, MilestoneFirstChild, MilestoneRetirement:
		return true
	}
	return false
}

// Status is the delivery lifecycle state of a message.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusScheduled Status = "SCHEDULED"
	StatusDelivered Status = "DELIVERED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusScheduled, StatusDelivered:
		return true
	}
	return false
}

// ChatRole identifies the author of a ChatMessage.
type ChatRole string

const (
	ChatRoleUser      ChatRole = "USER"
	ChatRoleAssistant ChatRole = "ASSISTANT"
)
