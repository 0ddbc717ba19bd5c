// Package models contains domain entities and business models for the video outreach system
package models

import (
	"time"

	"github.com/clipgreet/clipgreet/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Customer represents an owner account. Account management (signup, login,
// verification) lives outside this service; the engagement core only needs
// the owner row for video ownership checks on the authenticated surface.
type Customer struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uk_customers_uuid" json:"uuid"`
	Email     string    `gorm:"size:255;not null;uniqueIndex:uk_customers_email" json:"email"`
	FirstName string    `gorm:"size:255;not null" json:"first_name"`
	LastName  string    `gorm:"size:255;not null" json:"last_name"`
	IsActive  *bool     `gorm:"default:true;index:idx_customers_is_active" json:"is_active"`

	CreatedAt time.Time `gorm:"index:idx_customers_created_at" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Videos []Video `gorm:"foreignKey:CustomerID" json:"-"`
}

// TableName returns the table name for Customer
func (Customer) TableName() string {
	return "customers"
}

// BeforeCreate is called before creating a new record
func (c *Customer) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// CustomerFilter represents filter criteria for customers
type CustomerFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	Email    *string    `json:"email,omitempty"`
	IsActive *bool      `json:"is_active,omitempty"`
}
