package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type ResearchSession struct {
	Id            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionKey    string    `gorm:"type:text;uniqueIndex;not null"` // ledger session id
	Mode          string    `gorm:"type:text;not null;index"`
	Query         string    `gorm:"type:text;not null"`
	Status        string    `gorm:"type:text;not null;index"`
	Result        string    `gorm:"type:text"`
	Clarification string    `gorm:"type:text"`
	FailureReason string    `gorm:"type:text"`

	InputTokens  int            `gorm:"not null;default:0"`
	OutputTokens int            `gorm:"not null;default:0"`
	TotalCostUSD float64        `gorm:"type:numeric(12,6);not null;default:0"`
	Breakdown    datatypes.JSON `gorm:"type:jsonb"` // []ResearchCallRecord

	StartedAt  time.Time `gorm:"not null;index"`
	FinishedAt *time.Time
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

func (ResearchSession) TableName() string {
	return "research_sessions"
}
