package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"gradesync/client"
	"gradesync/repository"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int {
	return &v
}

func floatPtr(v float64) *float64 {
	return &v
}

type fakeExamCatalog struct {
	exams    map[int]*client.CbtExam
	attempts map[int][]*client.CbtAttempt
	examErr  error
}

func (f *fakeExamCatalog) GetExam(ctx context.Context, examId int) (*client.CbtExam, error) {
	if f.examErr != nil {
		return nil, f.examErr
	}
	exam, ok := f.exams[examId]
	if !ok {
		return nil, fmt.Errorf("exam %d not found", examId)
	}
	return exam, nil
}

func (f *fakeExamCatalog) ListAttempts(ctx context.Context, examId int, since *time.Time) ([]*client.CbtAttempt, error) {
	return f.attempts[examId], nil
}

type fakeGradebook struct {
	mu      sync.Mutex
	writes  []client.GradebookScoreKey
	failFor map[int]bool
}

func (f *fakeGradebook) UpsertScore(ctx context.Context, key client.GradebookScoreKey, score float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[key.StudentId] {
		return fmt.Errorf("gradebook unavailable for student %d", key.StudentId)
	}
	f.writes = append(f.writes, key)
	return nil
}

func (f *fakeGradebook) writeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func newTestCatalog(examId int, attempts []*client.CbtAttempt) *fakeExamCatalog {
	return &fakeExamCatalog{
		exams:    map[int]*client.CbtExam{examId: {Id: examId, Title: "Mid-Term CBT"}},
		attempts: map[int][]*client.CbtAttempt{examId: attempts},
	}
}

func createTestLink(t *testing.T, componentName string, mapping repository.ScoreMappingType, override *float64, autoSync bool) *repository.CbtAssessmentLink {
	componentRepository := repository.NewAssessmentComponentRepository(db)
	component, err := componentRepository.SaveComponent(&repository.AssessmentComponent{
		Name:     componentName,
		MaxScore: floatPtr(20),
		Weight:   20,
	})
	assert.NoError(t, err)

	linkRepository := repository.NewCbtLinkRepository(db)
	link, err := linkRepository.SaveLink(&repository.CbtAssessmentLink{
		ComponentId:      component.Id,
		ExamId:           component.Id + 1000,
		SessionId:        currentSession.Id,
		TermId:           currentTerm.Id,
		ScoreMappingType: mapping,
		MaxScoreOverride: override,
		AutoSync:         autoSync,
		IsActive:         true,
	})
	assert.NoError(t, err)
	return link
}

func attemptsFor(count int, rawMax float64) []*client.CbtAttempt {
	attempts := make([]*client.CbtAttempt, 0, count)
	for i := 1; i <= count; i++ {
		raw := float64(i * 5)
		attempts = append(attempts, &client.CbtAttempt{
			StudentId:   i,
			AttemptId:   fmt.Sprintf("attempt-%d", i),
			RawScore:    &raw,
			RawMax:      rawMax,
			SubmittedAt: time.Now().Add(-time.Hour),
		})
	}
	return attempts
}

func TestImportIdempotence(t *testing.T) {
	link := createTestLink(t, "CA1-idempotence", repository.MappingPercentage, nil, false)
	catalog := newTestCatalog(link.ExamId, attemptsFor(3, 50))
	importService := NewImportService(db, catalog, &fakeGradebook{})

	summary, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 3, summary.Imported)
	assert.Equal(t, 0, summary.SkippedExisting)

	summary, err = importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, 3, summary.SkippedExisting)

	rows, err := importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)
	assert.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, repository.StatusPending, row.Status)
		assert.NotNil(t, row.ConvertedScore)
	}
}

func TestImportConvertsAgainstResolvedMax(t *testing.T) {
	link := createTestLink(t, "CA1-conversion", repository.MappingPercentage, nil, false)
	raw := 40.0
	catalog := newTestCatalog(link.ExamId, []*client.CbtAttempt{
		{StudentId: 1, AttemptId: "attempt-1", RawScore: &raw, RawMax: 50, SubmittedAt: time.Now()},
	})
	importService := NewImportService(db, catalog, &fakeGradebook{})

	_, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)

	rows, err := importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	// 40/50 of the component max of 20
	assert.Equal(t, 16.0, *rows[0].ConvertedScore)
	assert.Equal(t, 20.0, *rows[0].TargetMaxScore)
}

func TestImportMissingAttemptNeedsAttention(t *testing.T) {
	link := createTestLink(t, "CA1-missing", repository.MappingPercentage, nil, false)
	catalog := newTestCatalog(link.ExamId, []*client.CbtAttempt{
		{StudentId: 1, AttemptId: "attempt-1", RawScore: nil, RawMax: 50, SubmittedAt: time.Now()},
	})
	importService := NewImportService(db, catalog, &fakeGradebook{})

	summary, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.NotEmpty(t, summary.Warnings)

	rows, err := importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Nil(t, rows[0].ConvertedScore)
	assert.Equal(t, repository.StatusPending, rows[0].Status)
	assert.True(t, rows[0].NeedsAttention())

	// a row with no converted score cannot be approved
	reviewSummary, err := importService.Approve(context.Background(), []int{rows[0].Id})
	assert.NoError(t, err)
	assert.Empty(t, reviewSummary.Succeeded)
	assert.Len(t, reviewSummary.Failed, 1)
	assert.Equal(t, rows[0].Id, reviewSummary.Failed[0].RowId)
}

func TestImportUnavailableExamDegrades(t *testing.T) {
	link := createTestLink(t, "CA1-unavailable", repository.MappingPercentage, nil, false)
	catalog := &fakeExamCatalog{examErr: fmt.Errorf("catalog down")}
	importService := NewImportService(db, catalog, &fakeGradebook{})

	summary, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 0, summary.Imported)
	assert.Equal(t, 0, summary.SkippedExisting)
	assert.NotEmpty(t, summary.Warnings)
}

func TestSyncExactlyOnce(t *testing.T) {
	link := createTestLink(t, "CA1-sync", repository.MappingPercentage, nil, false)
	catalog := newTestCatalog(link.ExamId, attemptsFor(5, 50))
	gradebook := &fakeGradebook{}
	importService := NewImportService(db, catalog, gradebook)

	_, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	rows, err := importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)
	rowIds := make([]int, 0, len(rows))
	for _, row := range rows {
		rowIds = append(rowIds, row.Id)
	}

	reviewSummary, err := importService.Approve(context.Background(), rowIds)
	assert.NoError(t, err)
	assert.Len(t, reviewSummary.Succeeded, 5)

	syncSummary, err := importService.Sync(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 5, syncSummary.Synced)
	assert.Empty(t, syncSummary.Failed)

	// the second invocation finds nothing left to write
	syncSummary, err = importService.Sync(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 0, syncSummary.Synced)
	assert.Equal(t, 5, gradebook.writeCount())

	rows, err = importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, repository.StatusSynced, row.Status)
		assert.NotNil(t, row.SyncedAt)
	}
}

func TestSyncFailureLeavesRowApproved(t *testing.T) {
	link := createTestLink(t, "CA1-syncfail", repository.MappingPercentage, nil, false)
	catalog := newTestCatalog(link.ExamId, attemptsFor(3, 50))
	gradebook := &fakeGradebook{failFor: map[int]bool{2: true}}
	importService := NewImportService(db, catalog, gradebook)

	_, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	rows, err := importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)
	rowIds := make([]int, 0, len(rows))
	for _, row := range rows {
		rowIds = append(rowIds, row.Id)
	}
	_, err = importService.Approve(context.Background(), rowIds)
	assert.NoError(t, err)

	syncSummary, err := importService.Sync(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 2, syncSummary.Synced)
	assert.Len(t, syncSummary.Failed, 1)
	assert.Error(t, syncSummary.Err())

	rows, err = importService.GetRowsForLink(link.Id, repository.StatusApproved)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].StudentId)

	// once the gradebook recovers, re-invoking picks up the leftover row
	gradebook.failFor = map[int]bool{}
	syncSummary, err = importService.Sync(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 1, syncSummary.Synced)
	assert.Equal(t, 3, gradebook.writeCount())
}

func TestRejectIsTerminal(t *testing.T) {
	link := createTestLink(t, "CA1-reject", repository.MappingPercentage, nil, false)
	catalog := newTestCatalog(link.ExamId, attemptsFor(2, 50))
	gradebook := &fakeGradebook{}
	importService := NewImportService(db, catalog, gradebook)

	_, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	rows, err := importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)

	reason := "duplicate attempt"
	rejectSummary, err := importService.Reject([]int{rows[0].Id}, &reason)
	assert.NoError(t, err)
	assert.Len(t, rejectSummary.Succeeded, 1)

	// rejected rows cannot be approved again
	reviewSummary, err := importService.Approve(context.Background(), []int{rows[0].Id})
	assert.NoError(t, err)
	assert.Empty(t, reviewSummary.Succeeded)
	assert.Len(t, reviewSummary.Failed, 1)

	// and never reach the gradebook
	_, err = importService.Approve(context.Background(), []int{rows[1].Id})
	assert.NoError(t, err)
	syncSummary, err := importService.Sync(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 1, syncSummary.Synced)
	assert.Equal(t, 1, gradebook.writeCount())

	rejected, err := importService.GetRowsForLink(link.Id, repository.StatusRejected)
	assert.NoError(t, err)
	assert.Len(t, rejected, 1)
	assert.Equal(t, reason, *rejected[0].ReviewComment)
}

func TestApproveConflictOnRepeat(t *testing.T) {
	link := createTestLink(t, "CA1-conflict", repository.MappingPercentage, nil, false)
	catalog := newTestCatalog(link.ExamId, attemptsFor(1, 50))
	importService := NewImportService(db, catalog, &fakeGradebook{})

	_, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	rows, err := importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)

	first, err := importService.Approve(context.Background(), []int{rows[0].Id})
	assert.NoError(t, err)
	assert.Len(t, first.Succeeded, 1)

	// the compare-and-swap refuses a second transition and reports the
	// state the row actually holds
	second, err := importService.Approve(context.Background(), []int{rows[0].Id})
	assert.NoError(t, err)
	assert.Empty(t, second.Succeeded)
	assert.Len(t, second.Failed, 1)
	assert.Contains(t, second.Failed[0].Reason, "APPROVED")
}

func TestImportKeepsCursorOnPartialFailure(t *testing.T) {
	link := createTestLink(t, "CA1-cursor", repository.MappingPercentage, nil, false)
	// overflows the decimal(7,2) score columns, so the insert itself fails
	overflowing := 5000000.0
	valid := 10.0
	earlier := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	later := time.Now().Add(-time.Hour).Truncate(time.Second)
	catalog := newTestCatalog(link.ExamId, []*client.CbtAttempt{
		{StudentId: 1, AttemptId: "attempt-1", RawScore: &overflowing, RawMax: 50, SubmittedAt: earlier},
		{StudentId: 2, AttemptId: "attempt-2", RawScore: &valid, RawMax: 50, SubmittedAt: later},
	})
	importService := NewImportService(db, catalog, &fakeGradebook{})

	summary, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.NotEmpty(t, summary.Warnings)

	// the failed attempt must stay inside the next fetch window
	linkRepository := repository.NewCbtLinkRepository(db)
	stored, err := linkRepository.GetLinkById(link.Id)
	assert.NoError(t, err)
	assert.Nil(t, stored.AttemptsSince)

	corrected := 25.0
	catalog.attempts[link.ExamId][0].RawScore = &corrected
	summary, err = importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.SkippedExisting)

	// a fully handled batch advances the cursor again
	stored, err = linkRepository.GetLinkById(link.Id)
	assert.NoError(t, err)
	assert.NotNil(t, stored.AttemptsSince)
}

func TestRejectedRowCannotBeRevived(t *testing.T) {
	link := createTestLink(t, "CA1-revive", repository.MappingPercentage, nil, false)
	catalog := newTestCatalog(link.ExamId, attemptsFor(1, 50))
	gradebook := &fakeGradebook{}
	importService := NewImportService(db, catalog, gradebook)

	_, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	rows, err := importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)

	rejectSummary, err := importService.Reject([]int{rows[0].Id}, nil)
	assert.NoError(t, err)
	assert.Len(t, rejectSummary.Succeeded, 1)

	// a status edit behind the engine's back does not reopen the row
	err = db.Exec("UPDATE gradesync.score_import_rows SET status = 'PENDING' WHERE id = ?", rows[0].Id).Error
	assert.NoError(t, err)

	reviewSummary, err := importService.Approve(context.Background(), []int{rows[0].Id})
	assert.NoError(t, err)
	assert.Empty(t, reviewSummary.Succeeded)
	assert.Len(t, reviewSummary.Failed, 1)

	syncSummary, err := importService.Sync(context.Background(), link.Id)
	assert.NoError(t, err)
	assert.Equal(t, 0, syncSummary.Synced)
	assert.Equal(t, 0, gradebook.writeCount())
}

func TestAutoSyncOnApproval(t *testing.T) {
	link := createTestLink(t, "CA1-autosync", repository.MappingPercentage, nil, true)
	catalog := newTestCatalog(link.ExamId, attemptsFor(2, 50))
	gradebook := &fakeGradebook{}
	importService := NewImportService(db, catalog, gradebook)

	_, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)
	rows, err := importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)
	rowIds := make([]int, 0, len(rows))
	for _, row := range rows {
		rowIds = append(rowIds, row.Id)
	}

	reviewSummary, err := importService.Approve(context.Background(), rowIds)
	assert.NoError(t, err)
	assert.Len(t, reviewSummary.Succeeded, 2)
	assert.Equal(t, 2, gradebook.writeCount())

	synced, err := importService.GetRowsForLink(link.Id, repository.StatusSynced)
	assert.NoError(t, err)
	assert.Len(t, synced, 2)
}

func TestScaledMappingStoresOverrideMax(t *testing.T) {
	link := createTestLink(t, "CA1-scaled", repository.MappingScaled, floatPtr(8), false)
	raw := 5.0
	catalog := newTestCatalog(link.ExamId, []*client.CbtAttempt{
		{StudentId: 1, AttemptId: "attempt-1", RawScore: &raw, RawMax: 10, SubmittedAt: time.Now()},
	})
	importService := NewImportService(db, catalog, &fakeGradebook{})

	_, err := importService.Import(context.Background(), link.Id)
	assert.NoError(t, err)

	rows, err := importService.GetRowsForLink(link.Id)
	assert.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 4.0, *rows[0].ConvertedScore)
	assert.Equal(t, 8.0, *rows[0].TargetMaxScore)
}
