package repository

import (
	"time"

	"gorm.io/gorm"
)

type ScoreMappingType string

const (
	MappingDirect     ScoreMappingType = "DIRECT"
	MappingPercentage ScoreMappingType = "PERCENTAGE"
	MappingScaled     ScoreMappingType = "SCALED"
)

type CbtAssessmentLink struct {
	Id               int              `gorm:"primaryKey"`
	ComponentId      int              `gorm:"not null;index;references:assessment_components(id)"`
	ExamId           int              `gorm:"not null"`
	SessionId        int              `gorm:"not null;references:sessions(id)"`
	TermId           int              `gorm:"not null;references:terms(id)"`
	ClassId          *int             `gorm:"null"`
	SubjectId        *int             `gorm:"null"`
	ScoreMappingType ScoreMappingType `gorm:"type:gradesync.score_mapping_type;not null"`
	MaxScoreOverride *float64         `gorm:"type:decimal(7,2);null"`
	AutoSync         bool             `gorm:"not null;default:false"`
	IsActive         bool             `gorm:"not null;default:true"`
	AttemptsSince    *time.Time       `gorm:"null"`
	CreatedAt        time.Time        `gorm:"not null"`
	UpdatedAt        time.Time        `gorm:"not null"`

	Component *AssessmentComponent `gorm:"foreignKey:ComponentId;constraint:OnDelete:CASCADE"`
	Session   *Session             `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE"`
	Term      *Term                `gorm:"foreignKey:TermId;constraint:OnDelete:CASCADE"`
	Rows      []*ScoreImportRow    `gorm:"foreignKey:LinkId;constraint:OnDelete:CASCADE"`
}

type CbtLinkRepository struct {
	DB *gorm.DB
}

func NewCbtLinkRepository(db *gorm.DB) *CbtLinkRepository {
	return &CbtLinkRepository{DB: db}
}

func (r *CbtLinkRepository) GetLinkById(id int, preloads ...string) (*CbtAssessmentLink, error) {
	query := r.DB
	for _, preload := range preloads {
		query = query.Preload(preload)
	}
	var link CbtAssessmentLink
	result := query.First(&link, CbtAssessmentLink{Id: id})
	if result.Error != nil {
		return nil, result.Error
	}
	return &link, nil
}

func (r *CbtLinkRepository) GetLinksForComponent(componentId int) ([]*CbtAssessmentLink, error) {
	var links []*CbtAssessmentLink
	result := r.DB.Find(&links, "component_id = ?", componentId)
	if result.Error != nil {
		return nil, result.Error
	}
	return links, nil
}

// FindActiveByComponentAndExam guards the one-active-link-per-(component, exam)
// invariant regardless of class/subject scope.
func (r *CbtLinkRepository) FindActiveByComponentAndExam(componentId int, examId int) (*CbtAssessmentLink, error) {
	var links []*CbtAssessmentLink
	result := r.DB.Find(&links, "component_id = ? AND exam_id = ? AND is_active = ?", componentId, examId, true)
	if result.Error != nil {
		return nil, result.Error
	}
	if len(links) == 0 {
		return nil, nil
	}
	return links[0], nil
}

func (r *CbtLinkRepository) SaveLink(link *CbtAssessmentLink) (*CbtAssessmentLink, error) {
	result := r.DB.Save(link)
	if result.Error != nil {
		return nil, result.Error
	}
	return link, nil
}

func (r *CbtLinkRepository) DeactivateLink(id int) error {
	return r.DB.Model(&CbtAssessmentLink{Id: id}).Update("is_active", false).Error
}

func (r *CbtLinkRepository) UpdateAttemptsSince(id int, since time.Time) error {
	return r.DB.Model(&CbtAssessmentLink{Id: id}).Update("attempts_since", since).Error
}

func (r *CbtLinkRepository) DeleteLink(id int) error {
	return r.DB.Delete(&CbtAssessmentLink{Id: id}).Error
}
