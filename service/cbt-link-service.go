package service

import (
	"context"
	"time"

	"gradesync/app_error"
	"gradesync/client"
	"gradesync/repository"

	"gorm.io/gorm"
)

// ExamCatalog is the CBT subsystem's exam catalog as the engine sees it.
type ExamCatalog interface {
	GetExam(ctx context.Context, examId int) (*client.CbtExam, error)
	ListAttempts(ctx context.Context, examId int, since *time.Time) ([]*client.CbtAttempt, error)
}

// Gradebook is the gradebook of record. UpsertScore must be safe to call
// repeatedly with the same key.
type Gradebook interface {
	UpsertScore(ctx context.Context, key client.GradebookScoreKey, score float64) error
}

type CbtLinkService struct {
	linkRepository   *repository.CbtLinkRepository
	importRepository *repository.ScoreImportRepository
	contextService   *SchoolContextService
	examCatalog      ExamCatalog
}

func NewCbtLinkService(db *gorm.DB, examCatalog ExamCatalog) *CbtLinkService {
	return &CbtLinkService{
		linkRepository:   repository.NewCbtLinkRepository(db),
		importRepository: repository.NewScoreImportRepository(db),
		contextService:   NewSchoolContextService(db),
		examCatalog:      examCatalog,
	}
}

type LinkWithPendingCount struct {
	Link         *repository.CbtAssessmentLink
	PendingCount int
}

func (e *CbtLinkService) GetLinkById(id int, preloads ...string) (*repository.CbtAssessmentLink, error) {
	return e.linkRepository.GetLinkById(id, preloads...)
}

func (e *CbtLinkService) GetLinksForComponent(componentId int) ([]*LinkWithPendingCount, error) {
	links, err := e.linkRepository.GetLinksForComponent(componentId)
	if err != nil {
		return nil, err
	}
	linkIds := make([]int, 0, len(links))
	for _, link := range links {
		linkIds = append(linkIds, link.Id)
	}
	counts, err := e.importRepository.PendingCountsByLink(linkIds)
	if err != nil {
		return nil, err
	}
	withCounts := make([]*LinkWithPendingCount, 0, len(links))
	for _, link := range links {
		withCounts = append(withCounts, &LinkWithPendingCount{Link: link, PendingCount: counts[link.Id]})
	}
	return withCounts, nil
}

// CreateLink binds a component to a CBT exam. Links are never retroactive:
// the requested session/term must be the school's current pair.
func (e *CbtLinkService) CreateLink(ctx context.Context, link *repository.CbtAssessmentLink) (*repository.CbtAssessmentLink, error) {
	session, term, err := e.contextService.GetCurrentContext()
	if err != nil {
		return nil, err
	}
	if link.SessionId != session.Id || link.TermId != term.Id {
		return nil, app_error.NewStaleContextError(
			"link must target the current session/term (%d/%d), got %d/%d",
			session.Id, term.Id, link.SessionId, link.TermId)
	}
	if link.ScoreMappingType == repository.MappingScaled {
		if link.MaxScoreOverride == nil {
			return nil, app_error.NewValidationError("scaled mapping requires a max score override")
		}
		if *link.MaxScoreOverride <= 0 {
			return nil, app_error.NewValidationError("max score override must be positive, got %.2f", *link.MaxScoreOverride)
		}
	}
	exam, err := e.examCatalog.GetExam(ctx, link.ExamId)
	if err != nil {
		return nil, app_error.NewValidationError("cbt exam %d could not be verified: %s", link.ExamId, err.Error())
	}
	// Links may narrow scope but never contradict an already-scoped exam.
	if exam.ClassId != nil && link.ClassId != nil && *exam.ClassId != *link.ClassId {
		return nil, app_error.NewValidationError("exam %d is scoped to class %d, link targets class %d", exam.Id, *exam.ClassId, *link.ClassId)
	}
	if exam.SubjectId != nil && link.SubjectId != nil && *exam.SubjectId != *link.SubjectId {
		return nil, app_error.NewValidationError("exam %d is scoped to subject %d, link targets subject %d", exam.Id, *exam.SubjectId, *link.SubjectId)
	}
	existing, err := e.linkRepository.FindActiveByComponentAndExam(link.ComponentId, link.ExamId)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, app_error.NewConflictError("an active link (id %d) already binds component %d to exam %d", existing.Id, link.ComponentId, link.ExamId)
	}
	link.IsActive = true
	return e.linkRepository.SaveLink(link)
}

func (e *CbtLinkService) DeactivateLink(id int) error {
	if _, err := e.linkRepository.GetLinkById(id); err != nil {
		return err
	}
	return e.linkRepository.DeactivateLink(id)
}

// DeleteLink removes a link. Already-synced scores stay in the gradebook;
// deletion is not a retroactive un-sync.
func (e *CbtLinkService) DeleteLink(id int) error {
	return e.linkRepository.DeleteLink(id)
}
