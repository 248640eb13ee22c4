package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lmsinform84-bit/orbfood-backend/pkg/enums"
)

// User is the authenticated identity consumed from the auth layer. The order
// and billing engine only needs the role for permission checks.
type User struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Name      string         `gorm:"column:name;not null"`
	Email     string         `gorm:"column:email;not null;uniqueIndex"`
	Role      enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
