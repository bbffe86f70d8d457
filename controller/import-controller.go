package controller

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gradesync/app_error"
	"gradesync/repository"
	"gradesync/service"
	"gradesync/utils"
)

type ImportController struct {
	importService *service.ImportService
}

func NewImportController(db *gorm.DB, examCatalog service.ExamCatalog, gradebook service.Gradebook) *ImportController {
	return &ImportController{
		importService: service.NewImportService(db, examCatalog, gradebook),
	}
}

func setupImportController(db *gorm.DB, examCatalog service.ExamCatalog, gradebook service.Gradebook) []RouteInfo {
	e := NewImportController(db, examCatalog, gradebook)
	routes := []RouteInfo{
		{Method: "POST", Path: "cbt-links/:link_id/import", HandlerFunc: e.importHandler()},
		{Method: "GET", Path: "cbt-links/:link_id/rows", HandlerFunc: e.getRowsHandler()},
		{Method: "POST", Path: "import-rows/approve", HandlerFunc: e.approveHandler()},
		{Method: "POST", Path: "import-rows/reject", HandlerFunc: e.rejectHandler()},
		{Method: "POST", Path: "cbt-links/:link_id/sync", HandlerFunc: e.syncHandler()},
	}
	return routes
}

type ImportSummary struct {
	Imported        int      `json:"imported" binding:"required"`
	SkippedExisting int      `json:"skipped_existing" binding:"required"`
	Warnings        []string `json:"warnings"`
}

type RowError struct {
	RowId  int    `json:"row_id" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

type ReviewSummary struct {
	Succeeded []int      `json:"succeeded" binding:"required"`
	Failed    []RowError `json:"failed" binding:"required"`
}

type SyncSummary struct {
	Synced int        `json:"synced" binding:"required"`
	Failed []RowError `json:"failed" binding:"required"`
}

type ScoreImportRow struct {
	Id             int                     `json:"id" binding:"required"`
	LinkId         int                     `json:"link_id" binding:"required"`
	StudentId      int                     `json:"student_id" binding:"required"`
	AttemptId      string                  `json:"attempt_id" binding:"required"`
	CbtRawScore    *float64                `json:"cbt_raw_score"`
	CbtMaxScore    float64                 `json:"cbt_max_score" binding:"required"`
	ConvertedScore *float64                `json:"converted_score"`
	TargetMaxScore *float64                `json:"target_max_score"`
	Status         repository.ImportStatus `json:"status" binding:"required"`
	NeedsAttention bool                    `json:"needs_attention"`
	ReviewComment  *string                 `json:"review_comment"`
}

type ReviewRequest struct {
	RowIds []int   `json:"row_ids" binding:"required"`
	Reason *string `json:"reason"`
}

func toRowErrors(errors []service.RowError) []RowError {
	return utils.Map(errors, func(e service.RowError) RowError {
		return RowError{RowId: e.RowId, Reason: e.Reason}
	})
}

func toRowResponse(row *repository.ScoreImportRow) *ScoreImportRow {
	return &ScoreImportRow{
		Id:             row.Id,
		LinkId:         row.LinkId,
		StudentId:      row.StudentId,
		AttemptId:      row.AttemptId,
		CbtRawScore:    row.CbtRawScore,
		CbtMaxScore:    row.CbtMaxScore,
		ConvertedScore: row.ConvertedScore,
		TargetMaxScore: row.TargetMaxScore,
		Status:         row.Status,
		NeedsAttention: row.NeedsAttention(),
		ReviewComment:  row.ReviewComment,
	}
}

// @id ImportScores
// @Description Imports unseen CBT attempts for a link as pending review rows; idempotent
// @Tags import
// @Produce json
// @Param link_id path int true "Link Id"
// @Success 200 {object} ImportSummary
// @Router /cbt-links/{link_id}/import [post]
func (e *ImportController) importHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		linkId, ok := pathParamInt(c, "link_id")
		if !ok {
			return
		}
		summary, err := e.importService.Import(c.Request.Context(), linkId)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				app_error.Handle(c, app_error.NewNotFoundError("link not found"))
				return
			}
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, ImportSummary{
			Imported:        summary.Imported,
			SkippedExisting: summary.SkippedExisting,
			Warnings:        summary.Warnings,
		})
	}
}

// @id GetImportRows
// @Description Lists import rows for a link, optionally filtered by status
// @Tags import
// @Produce json
// @Param link_id path int true "Link Id"
// @Param status query string false "Row status filter"
// @Success 200 {array} ScoreImportRow
// @Router /cbt-links/{link_id}/rows [get]
func (e *ImportController) getRowsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		linkId, ok := pathParamInt(c, "link_id")
		if !ok {
			return
		}
		statuses := []repository.ImportStatus{}
		if status := c.Query("status"); status != "" {
			statuses = append(statuses, repository.ImportStatus(status))
		}
		rows, err := e.importService.GetRowsForLink(linkId, statuses...)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				app_error.Handle(c, app_error.NewNotFoundError("link not found"))
				return
			}
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, utils.Map(rows, toRowResponse))
	}
}

// @id ApproveImportRows
// @Description Approves pending rows; rows without a converted score are reported per-row
// @Tags import
// @Accept json
// @Produce json
// @Param body body ReviewRequest true "Rows to approve"
// @Success 200 {object} ReviewSummary
// @Router /import-rows/approve [post]
func (e *ImportController) approveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request ReviewRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		summary, err := e.importService.Approve(c.Request.Context(), request.RowIds)
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, ReviewSummary{Succeeded: summary.Succeeded, Failed: toRowErrors(summary.Failed)})
	}
}

// @id RejectImportRows
// @Description Rejects pending rows with an optional audit reason; terminal
// @Tags import
// @Accept json
// @Produce json
// @Param body body ReviewRequest true "Rows to reject"
// @Success 200 {object} ReviewSummary
// @Router /import-rows/reject [post]
func (e *ImportController) rejectHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request ReviewRequest
		if err := c.BindJSON(&request); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		summary, err := e.importService.Reject(request.RowIds, request.Reason)
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, ReviewSummary{Succeeded: summary.Succeeded, Failed: toRowErrors(summary.Failed)})
	}
}

// @id SyncScores
// @Description Writes approved rows to the gradebook; exactly once per row
// @Tags import
// @Produce json
// @Param link_id path int true "Link Id"
// @Success 200 {object} SyncSummary
// @Router /cbt-links/{link_id}/sync [post]
func (e *ImportController) syncHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		linkId, ok := pathParamInt(c, "link_id")
		if !ok {
			return
		}
		summary, err := e.importService.Sync(c.Request.Context(), linkId)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				app_error.Handle(c, app_error.NewNotFoundError("link not found"))
				return
			}
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, SyncSummary{Synced: summary.Synced, Failed: toRowErrors(summary.Failed)})
	}
}
