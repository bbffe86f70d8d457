package repository

import (
	"time"

	"gorm.io/gorm"
)

type ScoreStructure struct {
	Id          int       `gorm:"primaryKey"`
	ComponentId int       `gorm:"not null;index;references:assessment_components(id)"`
	ClassId     *int      `gorm:"null"`
	TermId      *int      `gorm:"null;references:terms(id)"`
	MaxScore    float64   `gorm:"type:decimal(7,2);not null"`
	IsActive    bool      `gorm:"not null;default:true"`
	Description string    `gorm:"not null;default:''"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`

	Component *AssessmentComponent `gorm:"foreignKey:ComponentId;constraint:OnDelete:CASCADE"`
}

type ScoreStructureRepository struct {
	DB *gorm.DB
}

func NewScoreStructureRepository(db *gorm.DB) *ScoreStructureRepository {
	return &ScoreStructureRepository{DB: db}
}

func (r *ScoreStructureRepository) GetStructureById(id int) (*ScoreStructure, error) {
	var structure ScoreStructure
	result := r.DB.First(&structure, ScoreStructure{Id: id})
	if result.Error != nil {
		return nil, result.Error
	}
	return &structure, nil
}

func (r *ScoreStructureRepository) GetStructuresForComponent(componentId int) ([]*ScoreStructure, error) {
	var structures []*ScoreStructure
	result := r.DB.Find(&structures, "component_id = ?", componentId)
	if result.Error != nil {
		return nil, result.Error
	}
	return structures, nil
}

func (r *ScoreStructureRepository) GetActiveStructuresForComponent(componentId int) ([]*ScoreStructure, error) {
	var structures []*ScoreStructure
	result := r.DB.Find(&structures, "component_id = ? AND is_active = ?", componentId, true)
	if result.Error != nil {
		return nil, result.Error
	}
	return structures, nil
}

// FindActiveDuplicate finds an active structure covering the same resolved
// (component, class, term) triple, null-safe on the wildcard columns.
func (r *ScoreStructureRepository) FindActiveDuplicate(componentId int, classId *int, termId *int, excludeId int) (*ScoreStructure, error) {
	var structures []*ScoreStructure
	result := r.DB.Find(&structures,
		"component_id = ? AND class_id IS NOT DISTINCT FROM ? AND term_id IS NOT DISTINCT FROM ? AND is_active = ? AND id != ?",
		componentId, classId, termId, true, excludeId)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(structures) == 0 {
		return nil, nil
	}
	return structures[0], nil
}

func (r *ScoreStructureRepository) SaveStructure(structure *ScoreStructure) (*ScoreStructure, error) {
	result := r.DB.Save(structure)
	if result.Error != nil {
		return nil, result.Error
	}
	return structure, nil
}

func (r *ScoreStructureRepository) DeactivateStructure(id int) error {
	return r.DB.Model(&ScoreStructure{Id: id}).Update("is_active", false).Error
}

func (r *ScoreStructureRepository) DeleteStructure(id int) error {
	return r.DB.Delete(&ScoreStructure{Id: id}).Error
}
