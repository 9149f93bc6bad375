package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/convoflow/workflow-engine/internal/store"
)

// Tenants implements store.Tenants on gorm.io/gorm.
type Tenants struct {
	db *gorm.DB
}

// NewTenants wraps an open *gorm.DB.
func NewTenants(db *gorm.DB) *Tenants {
	return &Tenants{db: db}
}

func (r *Tenants) SubscriptionStatus(ctx context.Context, tenantID string) (string, error) {
	var m tenantModel
	if err := r.db.WithContext(ctx).First(&m, "id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", store.ErrNotFound
		}
		return "", err
	}
	return m.SubscriptionStatus, nil
}

var _ store.Tenants = (*Tenants)(nil)
