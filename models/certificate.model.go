package models

import (
	"time"

	"gorm.io/gorm"
)

// ApprovalStatus tracks the on-chain handshake for a certificate.
// NoRequest -> Pending -> Approved is the only forward path. Denied is
// a terminal state reserved for opt-in rejection; a denied certificate
// may be re-requested.
type ApprovalStatus string

const (
	StatusNoRequest ApprovalStatus = "NoRequest"
	StatusPending   ApprovalStatus = "Pending"
	StatusApproved  ApprovalStatus = "Approved"
	StatusDenied    ApprovalStatus = "Denied"
)

type Certificate struct {
	gorm.Model
	Title          string         `gorm:"not null" json:"title"`
	Score          int            `gorm:"not null" json:"score"`
	IssuedDate     time.Time      `json:"issuedDate"`
	IssuerID       uint           `gorm:"not null" json:"issuerId"`
	RecipientID    uint           `gorm:"not null" json:"recipientId"`
	ChallengeID    uint           `gorm:"not null" json:"challengeId"`
	AssetID        uint64         `gorm:"unique;not null" json:"assetId"`
	ContentHash    string         `gorm:"not null" json:"contentHash"`
	ApprovalStatus ApprovalStatus `gorm:"default:'NoRequest'" json:"approvalStatus"`
}
