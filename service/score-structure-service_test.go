package service

import (
	"testing"

	"gradesync/app_error"
	"gradesync/repository"

	"github.com/stretchr/testify/assert"
)

func TestSaveStructureRefusesOverlappingActiveScope(t *testing.T) {
	component := createTestComponent(t, "Structure-duplicate")
	structureService := NewScoreStructureService(db)

	_, err := structureService.SaveStructure(&repository.ScoreStructure{
		ComponentId: component.Id,
		ClassId:     intPtr(1),
		TermId:      intPtr(currentTerm.Id),
		MaxScore:    15,
		IsActive:    true,
	})
	assert.NoError(t, err)

	_, err = structureService.SaveStructure(&repository.ScoreStructure{
		ComponentId: component.Id,
		ClassId:     intPtr(1),
		TermId:      intPtr(currentTerm.Id),
		MaxScore:    30,
		IsActive:    true,
	})
	var conflictErr *app_error.ConflictError
	assert.ErrorAs(t, err, &conflictErr)

	// a component-wide structure lives in a different scope, no conflict
	_, err = structureService.SaveStructure(&repository.ScoreStructure{
		ComponentId: component.Id,
		MaxScore:    25,
		IsActive:    true,
	})
	assert.NoError(t, err)
}

func TestResolveMaxScoreThroughService(t *testing.T) {
	component := createTestComponent(t, "Structure-resolve")
	structureService := NewScoreStructureService(db)

	classTerm, err := structureService.SaveStructure(&repository.ScoreStructure{
		ComponentId: component.Id,
		ClassId:     intPtr(3),
		TermId:      intPtr(currentTerm.Id),
		MaxScore:    25,
		IsActive:    true,
	})
	assert.NoError(t, err)
	_, err = structureService.SaveStructure(&repository.ScoreStructure{
		ComponentId: component.Id,
		ClassId:     intPtr(3),
		MaxScore:    18,
		IsActive:    true,
	})
	assert.NoError(t, err)

	max, err := structureService.ResolveMaxScore(component.Id, intPtr(3), intPtr(currentTerm.Id))
	assert.NoError(t, err)
	assert.Equal(t, 25.0, max)

	// deactivating the class+term structure exposes the class-only one
	err = structureService.DeactivateStructure(classTerm.Id)
	assert.NoError(t, err)
	max, err = structureService.ResolveMaxScore(component.Id, intPtr(3), intPtr(currentTerm.Id))
	assert.NoError(t, err)
	assert.Equal(t, 18.0, max)

	// an unscoped lookup falls back to the component default
	max, err = structureService.ResolveMaxScore(component.Id, nil, nil)
	assert.NoError(t, err)
	assert.Equal(t, 20.0, max)
}

func TestSaveStructureValidatesMaxScore(t *testing.T) {
	component := createTestComponent(t, "Structure-invalid")
	structureService := NewScoreStructureService(db)

	_, err := structureService.SaveStructure(&repository.ScoreStructure{
		ComponentId: component.Id,
		MaxScore:    0,
		IsActive:    true,
	})
	var validationErr *app_error.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}
