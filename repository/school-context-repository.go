package repository

import (
	"time"

	"gorm.io/gorm"
)

type Session struct {
	Id        int       `gorm:"primaryKey"`
	Name      string    `gorm:"not null;unique"`
	IsCurrent bool      `gorm:"not null"`
	StartDate time.Time `gorm:"null"`
	EndDate   time.Time `gorm:"null"`
	Terms     []*Term   `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE"`
}

type Term struct {
	Id        int    `gorm:"primaryKey"`
	SessionId int    `gorm:"not null;references:sessions(id)"`
	Name      string `gorm:"not null"`
	IsCurrent bool   `gorm:"not null"`

	Session *Session `gorm:"foreignKey:SessionId;constraint:OnDelete:CASCADE"`
}

type SchoolContextRepository struct {
	DB *gorm.DB
}

func NewSchoolContextRepository(db *gorm.DB) *SchoolContextRepository {
	return &SchoolContextRepository{DB: db}
}

func (r *SchoolContextRepository) GetCurrentSession() (*Session, error) {
	var session Session
	result := r.DB.Preload("Terms").Where("is_current = ?", true).First(&session)
	if result.Error != nil {
		return nil, result.Error
	}
	return &session, nil
}

func (r *SchoolContextRepository) GetCurrentTerm() (*Term, error) {
	var term Term
	result := r.DB.Joins("Session").Where("terms.is_current = ? AND \"Session\".is_current = ?", true, true).First(&term)
	if result.Error != nil {
		return nil, result.Error
	}
	return &term, nil
}

func (r *SchoolContextRepository) GetSessions() ([]*Session, error) {
	var sessions []*Session
	result := r.DB.Preload("Terms").Find(&sessions)
	if result.Error != nil {
		return nil, result.Error
	}
	return sessions, nil
}

func (r *SchoolContextRepository) SaveSession(session *Session) (*Session, error) {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if session.IsCurrent {
			if err := tx.Model(&Session{}).Where("is_current = ?", true).Update("is_current", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(session).Error
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *SchoolContextRepository) SaveTerm(term *Term) (*Term, error) {
	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if term.IsCurrent {
			if err := tx.Model(&Term{}).Where("session_id = ? AND is_current = ?", term.SessionId, true).Update("is_current", false).Error; err != nil {
				return err
			}
		}
		return tx.Save(term).Error
	})
	if err != nil {
		return nil, err
	}
	return term, nil
}
