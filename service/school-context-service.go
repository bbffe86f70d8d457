package service

import (
	"gradesync/app_error"
	"gradesync/repository"

	"gorm.io/gorm"
)

type SchoolContextService struct {
	contextRepository *repository.SchoolContextRepository
}

func NewSchoolContextService(db *gorm.DB) *SchoolContextService {
	return &SchoolContextService{
		contextRepository: repository.NewSchoolContextRepository(db),
	}
}

// GetCurrentContext returns the school's current session and term. Links
// are only ever created against this pair.
func (e *SchoolContextService) GetCurrentContext() (*repository.Session, *repository.Term, error) {
	session, err := e.contextRepository.GetCurrentSession()
	if err != nil {
		return nil, nil, app_error.NewConfigurationError("no current session is set")
	}
	term, err := e.contextRepository.GetCurrentTerm()
	if err != nil {
		return nil, nil, app_error.NewConfigurationError("no current term is set")
	}
	return session, term, nil
}

func (e *SchoolContextService) GetSessions() ([]*repository.Session, error) {
	return e.contextRepository.GetSessions()
}

func (e *SchoolContextService) SaveSession(session *repository.Session) (*repository.Session, error) {
	if session.Name == "" {
		return nil, app_error.NewValidationError("session name must not be empty")
	}
	return e.contextRepository.SaveSession(session)
}

func (e *SchoolContextService) SaveTerm(term *repository.Term) (*repository.Term, error) {
	if term.Name == "" {
		return nil, app_error.NewValidationError("term name must not be empty")
	}
	return e.contextRepository.SaveTerm(term)
}
