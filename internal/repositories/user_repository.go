package repositories

import (
	"context"

	"github.com/teamtide/workforce-backend/internal/models"
	"gorm.io/gorm"
)

// UserRepository exposes the read-only user access this backend needs:
// contact lookup for delivery and audience resolution for campaigns.
type UserRepository interface {
	GetByID(ctx context.Context, organisationID, userID string) (*models.User, error)
	ResolveAudience(ctx context.Context, organisationID string, filter models.AudienceFilter) ([]string, error)
}

type postgresUserRepository struct {
	db *gorm.DB
}

func NewPostgresUserRepository(db *gorm.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) GetByID(ctx context.Context, organisationID, userID string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("organisation_id = ? AND id = ?", organisationID, userID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ResolveAudience evaluates the filter into a concrete user-id set. All
// supplied dimensions are ANDed together; All returns every user in the
// organisation and ignores the other fields. An empty result is valid.
func (r *postgresUserRepository) ResolveAudience(ctx context.Context, organisationID string, filter models.AudienceFilter) ([]string, error) {
	q := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("organisation_id = ?", organisationID)

	if !filter.All {
		if len(filter.Roles) > 0 {
			q = q.Where("role IN ?", filter.Roles)
		}
		if len(filter.LocationIDs) > 0 {
			q = q.Where("location_id IN ?", filter.LocationIDs)
		}
		if len(filter.EmployeeIDs) > 0 {
			q = q.Where("id IN ?", filter.EmployeeIDs)
		}
	}

	var ids []string
	if err := q.Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
