package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/quayretail/orderdesk-backend/pkg/enums"
)

// Customer is a retail account. CompanyName is the natural key used to
// resolve customers during import.
type Customer struct {
	CustomerID    uuid.UUID          `gorm:"column:customer_id;type:uuid;primaryKey"`
	CompanyName   string             `gorm:"column:company_name;not null;uniqueIndex"`
	CustomerType  enums.CustomerType `gorm:"column:customer_type;not null;default:unknown"`
	ContactPerson string             `gorm:"column:contact_person;not null;default:''"`
	ContactPhone  string             `gorm:"column:contact_phone;not null;default:''"`
	ContactEmail  string             `gorm:"column:contact_email;not null;default:''"`
	Address       string             `gorm:"column:address;not null;default:''"`
	City          string             `gorm:"column:city;not null;default:''"`
	Province      string             `gorm:"column:province;not null;default:''"`
	PostalCode    string             `gorm:"column:postal_code;not null;default:''"`
	TaxID         string             `gorm:"column:tax_id;not null;default:''"`
	CreditLevel   int                `gorm:"column:credit_level;not null;default:3"`
	Notes         string             `gorm:"column:notes;not null;default:''"`
	IsActive      bool               `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (Customer) TableName() string { return "customers" }

// Validate reports whether the account has a usable company name.
func (c *Customer) Validate() bool {
	return len(c.CompanyName) >= 2
}
