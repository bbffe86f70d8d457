package service

import (
	"gradesync/app_error"
	"gradesync/repository"

	"gorm.io/gorm"
)

type AssessmentComponentService struct {
	componentRepository *repository.AssessmentComponentRepository
}

func NewAssessmentComponentService(db *gorm.DB) *AssessmentComponentService {
	return &AssessmentComponentService{
		componentRepository: repository.NewAssessmentComponentRepository(db),
	}
}

func (e *AssessmentComponentService) GetComponents() ([]*repository.AssessmentComponent, error) {
	return e.componentRepository.GetComponents()
}

func (e *AssessmentComponentService) GetComponentById(id int) (*repository.AssessmentComponent, error) {
	return e.componentRepository.GetComponentById(id)
}

func (e *AssessmentComponentService) SaveComponent(component *repository.AssessmentComponent) (*repository.AssessmentComponent, error) {
	if component.Name == "" {
		return nil, app_error.NewValidationError("component name must not be empty")
	}
	if component.MaxScore != nil && *component.MaxScore <= 0 {
		return nil, app_error.NewValidationError("component max score must be positive, got %.2f", *component.MaxScore)
	}
	if component.Weight < 0 {
		return nil, app_error.NewValidationError("component weight must not be negative, got %.2f", component.Weight)
	}
	return e.componentRepository.SaveComponent(component)
}

func (e *AssessmentComponentService) DeleteComponent(id int) error {
	return e.componentRepository.DeleteComponent(id)
}
