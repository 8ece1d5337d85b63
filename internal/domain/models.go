// Package domain defines the persistence models for users and food logs,
// plus the transient values (estimations, inbound events) that flow between
// the webhook transport and the service layer.
package domain

import "time"

// User is a LINE user that has talked to the bot at least once.
//
// Fields:
//   - UserID: opaque LINE user identifier, primary key.
//   - UserName: display name captured from the LINE profile at first contact.
//   - TargetWeight / CurrentWeight: placeholders, stored as zero.
//   - CreatedAt: timestamp managed by the store.
type User struct {
	UserID        string    `json:"user_id"        gorm:"type:varchar(64);primaryKey"`
	UserName      string    `json:"user_name"      gorm:"type:varchar(255);not null;default:''"`
	TargetWeight  float64   `json:"target_weight"  gorm:"not null;default:0"`
	CurrentWeight float64   `json:"current_weight" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at,omitempty"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// FoodLog is one estimated meal. Rows are inserted once per successfully
// parsed photo and never updated.
type FoodLog struct {
	ID        uint      `json:"id,omitempty"         gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"user_id"              gorm:"type:varchar(64);not null;index:idx_food_logs_user_created,priority:1"`
	FoodName  string    `json:"food_name"            gorm:"type:varchar(255);not null"`
	Calorie   int       `json:"calorie"              gorm:"not null;default:0"`
	CreatedAt time.Time `json:"created_at,omitempty" gorm:"index:idx_food_logs_user_created,priority:2"`
}

// TableName returns the database table name for FoodLog.
func (FoodLog) TableName() string { return "food_logs" }

// Estimation is the model's structured reading of a meal photo. Macro values
// are free text with units ("45g") exactly as the model wrote them.
type Estimation struct {
	FoodName  string `json:"food_name"`
	Calorie   int    `json:"calorie"`
	Carbs     string `json:"carbs"`
	Protein   string `json:"protein"`
	Fat       string `json:"fat"`
	ReplyText string `json:"reply_text"`
}

// EventKind classifies an inbound webhook event for dispatch.
type EventKind string

const (
	EventImage  EventKind = "image"
	EventText   EventKind = "text"
	EventFollow EventKind = "follow"
	EventOther  EventKind = "other"
)

// InboundEvent is a platform-neutral view of one webhook event.
type InboundEvent struct {
	Kind       EventKind
	EventID    string // webhookEventId
	Redelivery bool
	ReplyToken string
	UserID     string
	// ChatID is set only for 1:1 chats, the only place the loading
	// indicator is supported.
	ChatID    string
	MessageID string
	Text      string
}
