package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ImportStatus string

const (
	StatusPending  ImportStatus = "PENDING"
	StatusApproved ImportStatus = "APPROVED"
	StatusRejected ImportStatus = "REJECTED"
	StatusSynced   ImportStatus = "SYNCED"
)

// allowedTransitions is the complete row lifecycle. REJECTED and SYNCED are
// terminal; anything not listed here is refused.
var allowedTransitions = map[ImportStatus][]ImportStatus{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusSynced},
	StatusRejected: {},
	StatusSynced:   {},
}

func CanTransition(from ImportStatus, to ImportStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type ScoreImportRow struct {
	Id             int          `gorm:"primaryKey"`
	LinkId         int          `gorm:"not null;uniqueIndex:idx_import_identity;references:cbt_assessment_links(id)"`
	StudentId      int          `gorm:"not null;uniqueIndex:idx_import_identity"`
	AttemptId      string       `gorm:"not null;uniqueIndex:idx_import_identity"`
	CbtRawScore    *float64     `gorm:"type:decimal(7,2);null"`
	CbtMaxScore    float64      `gorm:"type:decimal(7,2);not null"`
	ConvertedScore *float64     `gorm:"type:decimal(7,2);null"`
	TargetMaxScore *float64     `gorm:"type:decimal(7,2);null"`
	Status         ImportStatus `gorm:"type:gradesync.import_status;not null"`
	ReviewComment  *string      `gorm:"null"`
	RejectedAt     *time.Time   `gorm:"null"`
	SyncedAt       *time.Time   `gorm:"null"`
	CreatedAt      time.Time    `gorm:"not null"`
	UpdatedAt      time.Time    `gorm:"not null"`

	Link *CbtAssessmentLink `gorm:"foreignKey:LinkId;constraint:OnDelete:CASCADE"`
}

// NeedsAttention marks rows a reviewer cannot approve as-is.
func (r *ScoreImportRow) NeedsAttention() bool {
	return r.Status == StatusPending && r.ConvertedScore == nil
}

type ScoreImportRepository struct {
	DB *gorm.DB
}

func NewScoreImportRepository(db *gorm.DB) *ScoreImportRepository {
	return &ScoreImportRepository{DB: db}
}

// InsertIfAbsent inserts a row unless one already exists for the same
// (link, student, attempt) identity. A conflict is "already imported", not
// an error; returns whether the row was actually inserted.
func (r *ScoreImportRepository) InsertIfAbsent(row *ScoreImportRow) (bool, error) {
	result := r.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "link_id"}, {Name: "student_id"}, {Name: "attempt_id"}},
		DoNothing: true,
	}).Create(row)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *ScoreImportRepository) GetRowById(id int) (*ScoreImportRow, error) {
	var row ScoreImportRow
	result := r.DB.First(&row, ScoreImportRow{Id: id})
	if result.Error != nil {
		return nil, result.Error
	}
	return &row, nil
}

func (r *ScoreImportRepository) GetRowsByIds(ids []int) ([]*ScoreImportRow, error) {
	var rows []*ScoreImportRow
	result := r.DB.Find(&rows, "id IN ?", ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}

func (r *ScoreImportRepository) GetRowsForLink(linkId int, statuses ...ImportStatus) ([]*ScoreImportRow, error) {
	query := r.DB.Where("link_id = ?", linkId)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}
	var rows []*ScoreImportRow
	result := query.Order("student_id, attempt_id").Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}

type linkPendingCount struct {
	LinkId int
	Count  int
}

// PendingCountsByLink excludes rejected rows per the review contract; only
// genuinely awaiting rows are counted.
func (r *ScoreImportRepository) PendingCountsByLink(linkIds []int) (map[int]int, error) {
	var counts []linkPendingCount
	result := r.DB.Model(&ScoreImportRow{}).
		Select("link_id, count(*) as count").
		Where("link_id IN ? AND status = ?", linkIds, StatusPending).
		Group("link_id").
		Scan(&counts)
	if result.Error != nil {
		return nil, result.Error
	}
	countMap := make(map[int]int)
	for _, c := range counts {
		countMap[c.LinkId] = c.Count
	}
	return countMap, nil
}

// TransitionStatus performs a compare-and-swap on the row's status. A false
// return means the row was not in the expected state anymore (or the
// transition is not in the table) and nothing was written.
func (r *ScoreImportRepository) TransitionStatus(rowId int, from ImportStatus, to ImportStatus, updates map[string]any) (bool, error) {
	return transitionStatus(r.DB, rowId, from, to, updates)
}

// TransitionStatusTx is TransitionStatus inside a caller-owned transaction,
// used by sync to make the status flip atomic with the gradebook write.
func (r *ScoreImportRepository) TransitionStatusTx(tx *gorm.DB, rowId int, from ImportStatus, to ImportStatus, updates map[string]any) (bool, error) {
	return transitionStatus(tx, rowId, from, to, updates)
}

func transitionStatus(db *gorm.DB, rowId int, from ImportStatus, to ImportStatus, updates map[string]any) (bool, error) {
	if !CanTransition(from, to) {
		return false, nil
	}
	values := map[string]any{"status": to}
	for key, value := range updates {
		values[key] = value
	}
	result := db.Model(&ScoreImportRow{}).
		Where("id = ? AND status = ?", rowId, from).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
