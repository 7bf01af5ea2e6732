package application

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/sebuszqo/FinanceLedger/internal/finance/domain"
)

type CategoryService struct {
	repo domain.CategoryRepository
	log  logrus.FieldLogger
}

func NewCategoryService(repo domain.CategoryRepository, log logrus.FieldLogger) *CategoryService {
	return &CategoryService{repo: repo, log: log}
}

// List returns the default categories followed by the user's own.
func (s *CategoryService) List(ctx context.Context, userID string) ([]domain.Category, error) {
	return s.repo.ListVisible(ctx, userID)
}

func (s *CategoryService) Create(ctx context.Context, userID, name string) (*domain.Category, error) {
	name, err := domain.NormalizeCategoryName(name)
	if err != nil {
		return nil, err
	}
	category := &domain.Category{Name: name, UserID: &userID}
	if err := s.repo.Create(ctx, category); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "category_id": category.ID}).Info("category created")
	return category, nil
}

func (s *CategoryService) Rename(ctx context.Context, userID string, id int, name string) (*domain.Category, error) {
	name, err := domain.NormalizeCategoryName(name)
	if err != nil {
		return nil, err
	}
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := checkWritable(category, userID); err != nil {
		return nil, err
	}
	if err := s.repo.Rename(ctx, id, userID, name); err != nil {
		return nil, err
	}
	category.Name = name
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, userID string, id int) error {
	category, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := checkWritable(category, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"user_id": userID, "category_id": id}).Info("category deleted")
	return nil
}
