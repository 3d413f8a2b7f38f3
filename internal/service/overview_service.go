package service

import (
	"go-admin-rbac/internal/model"
	"go-admin-rbac/internal/repository"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// OverviewService aggregates counters for the admin dashboard.
type OverviewService interface {
	GetOverview() (*Overview, error)
}

type Overview struct {
	Users       int64            `json:"users"`
	ActiveUsers int64            `json:"active_users"`
	Roles       int64            `json:"roles"`
	Modules     int64            `json:"modules"`
	Options     int64            `json:"options"`
	Grants      int64            `json:"grants"`
	RecentAudit []model.AuditLog `json:"recent_audit"`
}

type overviewService struct {
	db        *gorm.DB
	auditRepo repository.AuditRepository
	log       *logrus.Logger
}

func NewOverviewService(db *gorm.DB, auditRepo repository.AuditRepository, log *logrus.Logger) OverviewService {
	return &overviewService{db: db, auditRepo: auditRepo, log: log}
}

func (s *overviewService) GetOverview() (*Overview, error) {
	overview := &Overview{}

	counts := []struct {
		model  interface{}
		target *int64
	}{
		{&model.User{}, &overview.Users},
		{&model.Role{}, &overview.Roles},
		{&model.Module{}, &overview.Modules},
		{&model.Option{}, &overview.Options},
		{&model.RolePermission{}, &overview.Grants},
	}
	for _, c := range counts {
		if err := s.db.Model(c.model).Count(c.target).Error; err != nil {
			return nil, categorize(s.log, "overview", err)
		}
	}
	if err := s.db.Model(&model.User{}).Where("is_active = ?", true).Count(&overview.ActiveUsers).Error; err != nil {
		return nil, categorize(s.log, "overview", err)
	}

	recent, err := s.auditRepo.FindRecent(10)
	if err != nil {
		return nil, categorize(s.log, "overview", err)
	}
	overview.RecentAudit = recent

	return overview, nil
}
