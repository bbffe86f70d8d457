package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gradesync/app_error"
	"gradesync/client"
	"gradesync/metrics"
	"gradesync/repository"
	"gradesync/scoring"
	"gradesync/utils"

	"gorm.io/gorm"
)

type ImportService struct {
	db                  *gorm.DB
	linkRepository      *repository.CbtLinkRepository
	importRepository    *repository.ScoreImportRepository
	componentRepository *repository.AssessmentComponentRepository
	structureRepository *repository.ScoreStructureRepository
	examCatalog         ExamCatalog
	gradebook           Gradebook
}

func NewImportService(db *gorm.DB, examCatalog ExamCatalog, gradebook Gradebook) *ImportService {
	return &ImportService{
		db:                  db,
		linkRepository:      repository.NewCbtLinkRepository(db),
		importRepository:    repository.NewScoreImportRepository(db),
		componentRepository: repository.NewAssessmentComponentRepository(db),
		structureRepository: repository.NewScoreStructureRepository(db),
		examCatalog:         examCatalog,
		gradebook:           gradebook,
	}
}

type ImportSummary struct {
	Imported        int
	SkippedExisting int
	Warnings        []string
}

type RowError struct {
	RowId  int
	Reason string
}

type ReviewSummary struct {
	Succeeded []int
	Failed    []RowError
}

type SyncSummary struct {
	Synced int
	Failed []RowError
}

// Err converts a partially failed sync into an error value for callers
// that want one. A fully successful sync has no error form.
func (s *SyncSummary) Err() error {
	if len(s.Failed) == 0 {
		return nil
	}
	failures := make(map[int]string)
	for _, f := range s.Failed {
		failures[f.RowId] = f.Reason
	}
	return app_error.NewReconciliationError("sync completed partially", failures)
}

// Import pulls unseen attempts for the link's exam and stores them as
// pending review rows. Safe to re-run and to run concurrently: the
// (link, student, attempt) identity dedupes at the storage layer.
func (e *ImportService) Import(ctx context.Context, linkId int) (*ImportSummary, error) {
	link, err := e.linkRepository.GetLinkById(linkId, "Component")
	if err != nil {
		return nil, err
	}
	if !link.IsActive {
		return nil, app_error.NewValidationError("link %d is not active", linkId)
	}

	// The structure set is pinned here; edits made while the batch runs do
	// not reopen already-converted rows.
	var targetMaxScore float64
	if link.ScoreMappingType != repository.MappingScaled {
		structures, err := e.structureRepository.GetActiveStructuresForComponent(link.ComponentId)
		if err != nil {
			return nil, err
		}
		termId := link.TermId
		targetMaxScore, err = scoring.ResolveMaxScore(link.Component, structures, link.ClassId, &termId)
		if err != nil {
			return nil, err
		}
	}

	summary := &ImportSummary{Warnings: []string{}}

	exam, err := e.examCatalog.GetExam(ctx, link.ExamId)
	if err != nil {
		// Staff can still review already-imported rows, so an unreachable
		// exam degrades to an empty import instead of failing.
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("exam %d unavailable: %s", link.ExamId, err.Error()))
		return summary, nil
	}
	if exam.ClassId != nil && link.ClassId != nil && *exam.ClassId != *link.ClassId {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("exam %d is scoped to class %d, link targets class %d; nothing imported", exam.Id, *exam.ClassId, *link.ClassId))
		return summary, nil
	}
	if exam.SubjectId != nil && link.SubjectId != nil && *exam.SubjectId != *link.SubjectId {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("exam %d is scoped to subject %d, link targets subject %d; nothing imported", exam.Id, *exam.SubjectId, *link.SubjectId))
		return summary, nil
	}

	attempts, err := e.examCatalog.ListAttempts(ctx, link.ExamId, link.AttemptsSince)
	if err != nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("attempts for exam %d unavailable: %s", link.ExamId, err.Error()))
		return summary, nil
	}

	var newestAttempt *time.Time
	batchComplete := true
	for _, attempt := range attempts {
		// Each row commits independently, so an aborted import resumes
		// cleanly on the next invocation.
		if ctx.Err() != nil {
			summary.Warnings = append(summary.Warnings, "import aborted, re-run to resume")
			batchComplete = false
			break
		}
		row := e.buildRow(link, attempt, targetMaxScore, summary)
		inserted, err := e.importRepository.InsertIfAbsent(row)
		if err != nil {
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("attempt %s for student %d not stored: %s", attempt.AttemptId, attempt.StudentId, err.Error()))
			batchComplete = false
			continue
		}
		if inserted {
			summary.Imported++
			metrics.AttemptsImportedCounter.Inc()
		} else {
			summary.SkippedExisting++
			metrics.AttemptsSkippedCounter.Inc()
		}
		if newestAttempt == nil || attempt.SubmittedAt.After(*newestAttempt) {
			submittedAt := attempt.SubmittedAt
			newestAttempt = &submittedAt
		}
	}
	if batchComplete && newestAttempt != nil {
		// Advancing past an attempt that was never stored would drop it from
		// every later fetch, so the cursor stays put after a partial batch.
		// A failed update is not fatal: the identity index dedupes the
		// re-fetched attempts.
		if err := e.linkRepository.UpdateAttemptsSince(link.Id, *newestAttempt); err != nil {
			log.Printf("could not advance attempt cursor for link %d: %v", link.Id, err)
		}
	}
	return summary, nil
}

func (e *ImportService) buildRow(link *repository.CbtAssessmentLink, attempt *client.CbtAttempt, targetMaxScore float64, summary *ImportSummary) *repository.ScoreImportRow {
	row := &repository.ScoreImportRow{
		LinkId:      link.Id,
		StudentId:   attempt.StudentId,
		AttemptId:   attempt.AttemptId,
		CbtRawScore: attempt.RawScore,
		CbtMaxScore: attempt.RawMax,
		Status:      repository.StatusPending,
	}
	result, err := scoring.Convert(attempt.RawScore, attempt.RawMax, link.ScoreMappingType, link.MaxScoreOverride, targetMaxScore)
	if err != nil {
		// The row is imported anyway with no converted score; the reviewer
		// sees it flagged instead of it vanishing.
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("attempt %s for student %d needs attention: %s", attempt.AttemptId, attempt.StudentId, err.Error()))
		metrics.ConversionFailureCounter.Inc()
		return row
	}
	row.ConvertedScore = result.ConvertedScore
	row.TargetMaxScore = &result.TargetMaxScore
	if result.Truncated {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("attempt %s for student %d exceeded max %.2f and was truncated", attempt.AttemptId, attempt.StudentId, result.TargetMaxScore))
	}
	if result.ConvertedScore == nil {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("student %d has no attempt score for %s, row needs attention", attempt.StudentId, attempt.AttemptId))
	}
	return row
}

// Approve moves pending rows to approved. Rows without a converted score
// are refused per-row; the rest of the batch proceeds. Links flagged
// auto_sync are synced immediately after.
func (e *ImportService) Approve(ctx context.Context, rowIds []int) (*ReviewSummary, error) {
	summary := &ReviewSummary{Succeeded: []int{}, Failed: []RowError{}}
	rows, err := e.importRepository.GetRowsByIds(rowIds)
	if err != nil {
		return nil, err
	}
	rowsById := make(map[int]*repository.ScoreImportRow)
	for _, row := range rows {
		rowsById[row.Id] = row
	}

	approvedLinkIds := []int{}
	for _, rowId := range rowIds {
		row, ok := rowsById[rowId]
		if !ok {
			summary.Failed = append(summary.Failed, RowError{RowId: rowId, Reason: "row not found"})
			continue
		}
		if row.ConvertedScore == nil {
			summary.Failed = append(summary.Failed, RowError{RowId: rowId, Reason: "no converted score, needs attention"})
			continue
		}
		if row.RejectedAt != nil {
			// Rejection is terminal even if the status was edited behind the
			// engine's back; a corrected score arrives as a new attempt.
			summary.Failed = append(summary.Failed, RowError{RowId: rowId, Reason: "row was rejected, import the corrected attempt instead"})
			continue
		}
		changed, err := e.importRepository.TransitionStatus(rowId, repository.StatusPending, repository.StatusApproved, nil)
		if err != nil {
			return nil, err
		}
		if !changed {
			summary.Failed = append(summary.Failed, RowError{RowId: rowId, Reason: e.notPendingReason(rowId)})
			continue
		}
		summary.Succeeded = append(summary.Succeeded, rowId)
		metrics.RowsReviewedCounter.WithLabelValues("approved").Inc()
		approvedLinkIds = append(approvedLinkIds, row.LinkId)
	}

	for _, linkId := range utils.Uniques(approvedLinkIds) {
		link, err := e.linkRepository.GetLinkById(linkId)
		if err != nil || !link.AutoSync {
			continue
		}
		syncSummary, err := e.Sync(ctx, linkId)
		if err != nil {
			log.Printf("auto-sync for link %d failed: %v", linkId, err)
			continue
		}
		if err := syncSummary.Err(); err != nil {
			log.Printf("auto-sync for link %d: %v", linkId, err)
		}
	}
	return summary, nil
}

// Reject moves pending rows to rejected, a terminal state. The reason is
// kept for audit only and never feeds back into any decision.
func (e *ImportService) Reject(rowIds []int, reason *string) (*ReviewSummary, error) {
	summary := &ReviewSummary{Succeeded: []int{}, Failed: []RowError{}}
	rows, err := e.importRepository.GetRowsByIds(rowIds)
	if err != nil {
		return nil, err
	}
	rowsById := make(map[int]*repository.ScoreImportRow)
	for _, row := range rows {
		rowsById[row.Id] = row
	}

	for _, rowId := range rowIds {
		if _, ok := rowsById[rowId]; !ok {
			summary.Failed = append(summary.Failed, RowError{RowId: rowId, Reason: "row not found"})
			continue
		}
		updates := map[string]any{"rejected_at": time.Now()}
		if reason != nil {
			updates["review_comment"] = *reason
		}
		changed, err := e.importRepository.TransitionStatus(rowId, repository.StatusPending, repository.StatusRejected, updates)
		if err != nil {
			return nil, err
		}
		if !changed {
			summary.Failed = append(summary.Failed, RowError{RowId: rowId, Reason: e.notPendingReason(rowId)})
			continue
		}
		summary.Succeeded = append(summary.Succeeded, rowId)
		metrics.RowsReviewedCounter.WithLabelValues("rejected").Inc()
	}
	return summary, nil
}

// notPendingReason reports the row's state as of the refused transition; the
// copy read before the compare-and-swap may be stale by then.
func (e *ImportService) notPendingReason(rowId int) string {
	current, err := e.importRepository.GetRowById(rowId)
	if err != nil {
		return "row is no longer pending"
	}
	return fmt.Sprintf("row is %s, not pending", current.Status)
}

var errSyncConflict = errors.New("row already claimed by a concurrent sync")

// Sync writes every approved row under the link to the gradebook exactly
// once. The status flip and the gradebook write share a transaction: a
// failed write rolls the row back to approved, a committed row can never
// be passed to the gradebook again.
func (e *ImportService) Sync(ctx context.Context, linkId int) (*SyncSummary, error) {
	link, err := e.linkRepository.GetLinkById(linkId)
	if err != nil {
		return nil, err
	}
	rows, err := e.importRepository.GetRowsForLink(linkId, repository.StatusApproved)
	if err != nil {
		return nil, err
	}

	summary := &SyncSummary{Failed: []RowError{}}
	now := time.Now()
	for _, row := range rows {
		if ctx.Err() != nil {
			break
		}
		err := e.db.Transaction(func(tx *gorm.DB) error {
			changed, err := e.importRepository.TransitionStatusTx(tx, row.Id, repository.StatusApproved, repository.StatusSynced, map[string]any{"synced_at": now})
			if err != nil {
				return err
			}
			if !changed {
				return errSyncConflict
			}
			return e.gradebook.UpsertScore(ctx, client.GradebookScoreKey{
				StudentId:   row.StudentId,
				ComponentId: link.ComponentId,
				ClassId:     link.ClassId,
				TermId:      link.TermId,
				SessionId:   link.SessionId,
			}, *row.ConvertedScore)
		})
		if err != nil {
			if !errors.Is(err, errSyncConflict) {
				metrics.SyncFailureCounter.Inc()
			}
			summary.Failed = append(summary.Failed, RowError{RowId: row.Id, Reason: err.Error()})
			continue
		}
		summary.Synced++
		metrics.RowsSyncedCounter.Inc()
	}
	return summary, nil
}

// GetRowsForLink lists import rows for reviewer screens, optionally
// narrowed by status.
func (e *ImportService) GetRowsForLink(linkId int, statuses ...repository.ImportStatus) ([]*repository.ScoreImportRow, error) {
	if _, err := e.linkRepository.GetLinkById(linkId); err != nil {
		return nil, err
	}
	return e.importRepository.GetRowsForLink(linkId, statuses...)
}
