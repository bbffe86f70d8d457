package repository

import (
	"time"

	"gorm.io/gorm"
)

type AssessmentComponent struct {
	Id        int       `gorm:"primaryKey"`
	Name      string    `gorm:"not null;unique"`
	MaxScore  *float64  `gorm:"type:decimal(7,2);null"`
	Weight    float64   `gorm:"type:decimal(5,2);not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`

	ScoreStructures []*ScoreStructure    `gorm:"foreignKey:ComponentId;constraint:OnDelete:CASCADE"`
	CbtLinks        []*CbtAssessmentLink `gorm:"foreignKey:ComponentId;constraint:OnDelete:CASCADE"`
}

type AssessmentComponentRepository struct {
	DB *gorm.DB
}

func NewAssessmentComponentRepository(db *gorm.DB) *AssessmentComponentRepository {
	return &AssessmentComponentRepository{DB: db}
}

func (r *AssessmentComponentRepository) GetComponents() ([]*AssessmentComponent, error) {
	var components []*AssessmentComponent
	result := r.DB.Find(&components)
	if result.Error != nil {
		return nil, result.Error
	}
	return components, nil
}

func (r *AssessmentComponentRepository) GetComponentById(id int, preloads ...string) (*AssessmentComponent, error) {
	query := r.DB
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	var component AssessmentComponent
	result := query.First(&component, AssessmentComponent{Id: id})
	if result.Error != nil {
		return nil, result.Error
	}
	return &component, nil
}

func (r *AssessmentComponentRepository) SaveComponent(component *AssessmentComponent) (*AssessmentComponent, error) {
	result := r.DB.Save(component)
	if result.Error != nil {
		return nil, result.Error
	}
	return component, nil
}

func (r *AssessmentComponentRepository) DeleteComponent(id int) error {
	return r.DB.Delete(&AssessmentComponent{Id: id}).Error
}
