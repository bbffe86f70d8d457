package scoring

import (
	"gradesync/app_error"
	"gradesync/repository"
)

// precedenceLevel is one rung of the max-score lookup. Levels are evaluated
// in declaration order; the first active structure matching a level wins.
type precedenceLevel struct {
	name    string
	matches func(structure *repository.ScoreStructure, classId *int, termId *int) bool
}

var precedenceLevels = []precedenceLevel{
	{
		name: "class and term",
		matches: func(s *repository.ScoreStructure, classId *int, termId *int) bool {
			return idEquals(s.ClassId, classId) && idEquals(s.TermId, termId)
		},
	},
	{
		name: "class only",
		matches: func(s *repository.ScoreStructure, classId *int, termId *int) bool {
			return idEquals(s.ClassId, classId) && s.TermId == nil
		},
	},
	{
		name: "term only",
		matches: func(s *repository.ScoreStructure, classId *int, termId *int) bool {
			return s.ClassId == nil && idEquals(s.TermId, termId)
		},
	},
	{
		name: "component wide",
		matches: func(s *repository.ScoreStructure, classId *int, termId *int) bool {
			return s.ClassId == nil && s.TermId == nil
		},
	},
}

func idEquals(structureId *int, requestedId *int) bool {
	return structureId != nil && requestedId != nil && *structureId == *requestedId
}

// ResolveMaxScore returns the effective maximum score for a component in the
// given class/term scope. Pure over its inputs; callers pass the structure
// set pinned at the start of a batch so mid-batch edits never apply
// retroactively.
func ResolveMaxScore(component *repository.AssessmentComponent, structures []*repository.ScoreStructure, classId *int, termId *int) (float64, error) {
	for _, level := range precedenceLevels {
		for _, structure := range structures {
			if !structure.IsActive || structure.ComponentId != component.Id {
				continue
			}
			if level.matches(structure, classId, termId) {
				return structure.MaxScore, nil
			}
		}
	}
	if component.MaxScore != nil {
		return *component.MaxScore, nil
	}
	return 0, app_error.NewConfigurationError("no max score configured for component %q (id %d)", component.Name, component.Id)
}
