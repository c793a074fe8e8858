package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-timetable-api/internal/models"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
)

type classGroupRepository interface {
	List(ctx context.Context) ([]models.ClassGroup, error)
	FindByID(ctx context.Context, id string) (*models.ClassGroup, error)
	Create(ctx context.Context, group *models.ClassGroup) error
	Update(ctx context.Context, group *models.ClassGroup) error
	Delete(ctx context.Context, id string) error
}

// ClassGroupRequest describes payload for creating or updating a class group.
type ClassGroupRequest struct {
	Name    string  `json:"name" validate:"required"`
	Section *string `json:"section"`
	Year    int     `json:"year" validate:"required,gte=1"`
}

// ClassGroupService orchestrates class group registry workflows.
type ClassGroupService struct {
	repo      classGroupRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassGroupService creates a new class group service instance.
func NewClassGroupService(repo classGroupRepository, validate *validator.Validate, logger *zap.Logger) *ClassGroupService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassGroupService{repo: repo, validator: validate, logger: logger}
}

// List returns all class groups.
func (s *ClassGroupService) List(ctx context.Context) ([]models.ClassGroup, error) {
	groups, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class groups")
	}
	return groups, nil
}

// Get returns a class group by ID.
func (s *ClassGroupService) Get(ctx context.Context, id string) (*models.ClassGroup, error) {
	group, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class group")
	}
	return group, nil
}

// Create registers a new class group.
func (s *ClassGroupService) Create(ctx context.Context, req ClassGroupRequest) (*models.ClassGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class group payload")
	}

	group := &models.ClassGroup{
		Name:    req.Name,
		Section: req.Section,
		Year:    req.Year,
	}

	if err := s.repo.Create(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class group")
	}
	return group, nil
}

// Update modifies a class group record.
func (s *ClassGroupService) Update(ctx context.Context, id string, req ClassGroupRequest) (*models.ClassGroup, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class group payload")
	}

	group, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	group.Name = req.Name
	group.Section = req.Section
	group.Year = req.Year

	if err := s.repo.Update(ctx, group); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class group")
	}
	return group, nil
}

// Delete removes a class group.
func (s *ClassGroupService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class group")
	}
	return nil
}
