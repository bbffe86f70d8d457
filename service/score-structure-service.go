package service

import (
	"gradesync/app_error"
	"gradesync/repository"
	"gradesync/scoring"

	"gorm.io/gorm"
)

type ScoreStructureService struct {
	structureRepository *repository.ScoreStructureRepository
	componentRepository *repository.AssessmentComponentRepository
}

func NewScoreStructureService(db *gorm.DB) *ScoreStructureService {
	return &ScoreStructureService{
		structureRepository: repository.NewScoreStructureRepository(db),
		componentRepository: repository.NewAssessmentComponentRepository(db),
	}
}

func (e *ScoreStructureService) GetStructuresForComponent(componentId int) ([]*repository.ScoreStructure, error) {
	return e.structureRepository.GetStructuresForComponent(componentId)
}

func (e *ScoreStructureService) SaveStructure(structure *repository.ScoreStructure) (*repository.ScoreStructure, error) {
	if structure.MaxScore <= 0 {
		return nil, app_error.NewValidationError("structure max score must be positive, got %.2f", structure.MaxScore)
	}
	if _, err := e.componentRepository.GetComponentById(structure.ComponentId); err != nil {
		return nil, err
	}
	if structure.IsActive {
		duplicate, err := e.structureRepository.FindActiveDuplicate(structure.ComponentId, structure.ClassId, structure.TermId, structure.Id)
		if err != nil {
			return nil, err
		}
		if duplicate != nil {
			return nil, app_error.NewConflictError("an active structure (id %d) already covers this component/class/term scope", duplicate.Id)
		}
	}
	return e.structureRepository.SaveStructure(structure)
}

func (e *ScoreStructureService) DeactivateStructure(id int) error {
	if _, err := e.structureRepository.GetStructureById(id); err != nil {
		return err
	}
	return e.structureRepository.DeactivateStructure(id)
}

// Historical rows store the max they were converted against, so removing a
// structure never rewrites history.
func (e *ScoreStructureService) DeleteStructure(id int) error {
	return e.structureRepository.DeleteStructure(id)
}

// ResolveMaxScore answers "what would a score for this component currently
// be capped at" for the given class/term scope.
func (e *ScoreStructureService) ResolveMaxScore(componentId int, classId *int, termId *int) (float64, error) {
	component, err := e.componentRepository.GetComponentById(componentId)
	if err != nil {
		return 0, err
	}
	structures, err := e.structureRepository.GetActiveStructuresForComponent(componentId)
	if err != nil {
		return 0, err
	}
	return scoring.ResolveMaxScore(component, structures, classId, termId)
}
