// Package domain defines the persistence models for users, recipients,
// scheduled messages, trustees and AI conversations. These types are mapped
// with GORM and form the core data layer of the HelloForever backend.
package domain

import (
	"time"
)

// User is an account holder who records messages for recipients.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - Email: unique login email.
//   - Plan: billing tier (FREE, PREMIUM, PREMIUM_PLUS).
//   - MessageCount: denormalized number of live messages owned by the user.
//     Maintained in the same transaction as every message insert/delete.
type User struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	Name         string    `json:"name"          gorm:"type:varchar(255);not null"`
	Email        string    `json:"email"         gorm:"type:varchar(320);not null;uniqueIndex:ux_users_email"`
	Plan         Plan      `json:"plan"          gorm:"type:varchar(16);not null;default:'FREE';check:plan IN ('FREE','PREMIUM','PREMIUM_PLUS')"`
	MessageCount int       `json:"message_count" gorm:"not null;default:0"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Recipient is a named contact owned by exactly one user. No two recipients of
// the same user share an email (enforced by ux_recipients_user_email).
type Recipient struct {
	ID           string       `json:"id"                 gorm:"type:char(36);primaryKey"`
	UserID       string       `json:"user_id"            gorm:"type:char(36);not null;index;uniqueIndex:ux_recipients_user_email,priority:1"`
	Name         string       `json:"name"               gorm:"type:varchar(255);not null"`
	Email        string       `json:"email"              gorm:"type:varchar(320);not null;uniqueIndex:ux_recipients_user_email,priority:2"`
	Relationship Relationship `json:"relationship"       gorm:"type:varchar(16);not null;default:'OTHER';check:relationship IN ('CHILD','SPOUSE','PARENT','SIBLING','FRIEND','OTHER')"`
	Birthday     *time.Time   `json:"birthday,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Recipient.
func (Recipient) TableName() string { return "recipients" }

// Message is the unit of scheduled delivery. Content is inline text for TEXT
// messages and a media URL for VIDEO/AUDIO. Note is private to the author.
//
// The composite index idx_messages_due backs the sweep's candidate queries.
type Message struct {
	ID            string       `json:"id"                       gorm:"type:char(36);primaryKey"`
	UserID        string       `json:"user_id"                  gorm:"type:char(36);not null;index"`
	RecipientID   string       `json:"recipient_id"             gorm:"type:char(36);not null;index"`
	Title         string       `json:"title"                    gorm:"type:varchar(255);not null"`
	Type          MessageType  `json:"type"                     gorm:"type:varchar(8);not null;check:type IN ('VIDEO','AUDIO','TEXT')"`
	Content       string       `json:"content,omitempty"        gorm:"type:text"`
	Thumbnail     string       `json:"thumbnail,omitempty"      gorm:"type:text"`
	Duration      *int         `json:"duration,omitempty"`
	DeliveryType  DeliveryType `json:"delivery_type"            gorm:"type:varchar(16);not null;index:idx_messages_due,priority:2;check:delivery_type IN ('SPECIFIC_DATE','UPON_PASSING','MILESTONE','SURPRISE')"`
	ScheduledDate *time.Time   `json:"scheduled_date,omitempty" gorm:"index:idx_messages_due,priority:3"`
	Milestone     *Milestone   `json:"milestone,omitempty"      gorm:"type:varchar(16)"`
	Status        Status       `json:"status"                   gorm:"type:varchar(16);not null;default:'SCHEDULED';index:idx_messages_due,priority:1;check:status IN ('DRAFT','SCHEDULED','DELIVERED')"`
	DeliveredAt   *time.Time   `json:"delivered_at,omitempty"`
	ViewedAt      *time.Time   `json:"viewed_at,omitempty"`
	Note          string       `json:"note,omitempty"           gorm:"type:text"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`

	User      User      `json:"-"                   gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Recipient Recipient `json:"recipient,omitempty" gorm:"foreignKey:RecipientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }

// Trustee is the single person allowed to confirm a user's passing.
type Trustee struct {
	ID           string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID       string    `json:"user_id"      gorm:"type:char(36);not null;uniqueIndex:ux_trustees_user"`
	Name         string    `json:"name"         gorm:"type:varchar(255);not null"`
	Email        string    `json:"email"        gorm:"type:varchar(320);not null"`
	Relationship string    `json:"relationship" gorm:"type:varchar(64)"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Trustee.
func (Trustee) TableName() string { return "trustees" }

// Conversation pairs a user with one of their recipients. AccessToken is a
// capability: whoever holds it may read and append to the conversation.
type Conversation struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID      string    `json:"user_id"      gorm:"type:char(36);not null;uniqueIndex:ux_conversations_pair,priority:1"`
	RecipientID string    `json:"recipient_id" gorm:"type:char(36);not null;uniqueIndex:ux_conversations_pair,priority:2"`
	AccessToken string    `json:"-"            gorm:"type:varchar(64);not null;uniqueIndex:ux_conversations_token"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	User      User      `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Recipient Recipient `json:"-" gorm:"foreignKey:RecipientID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Conversation.
func (Conversation) TableName() string { return "conversations" }

// ChatMessage is an append-only utterance in a conversation.
type ChatMessage struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"type:char(36);not null;index:idx_conversation_msgs,priority:1"`
	Role           ChatRole  `json:"role"            gorm:"type:varchar(16);not null;check:role IN ('USER','ASSISTANT')"`
	Content        string    `json:"content"         gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at"      gorm:"index:idx_conversation_msgs,priority:2"`

	Conversation Conversation `json:"-" gorm:"foreignKey:ConversationID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for ChatMessage.
func (ChatMessage) TableName() string { return "chat_messages" }
