package controller

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gradesync/app_error"
	"gradesync/repository"
	"gradesync/service"
	"gradesync/utils"
)

type CbtLinkController struct {
	linkService *service.CbtLinkService
}

func NewCbtLinkController(db *gorm.DB, examCatalog service.ExamCatalog) *CbtLinkController {
	return &CbtLinkController{
		linkService: service.NewCbtLinkService(db, examCatalog),
	}
}

func setupCbtLinkController(db *gorm.DB, examCatalog service.ExamCatalog) []RouteInfo {
	e := NewCbtLinkController(db, examCatalog)
	routes := []RouteInfo{
		{Method: "GET", Path: "components/:component_id/cbt-links", HandlerFunc: e.getLinksHandler()},
		{Method: "PUT", Path: "cbt-links", HandlerFunc: e.createLinkHandler()},
		{Method: "POST", Path: "cbt-links/:link_id/deactivate", HandlerFunc: e.deactivateLinkHandler()},
		{Method: "DELETE", Path: "cbt-links/:link_id", HandlerFunc: e.deleteLinkHandler()},
	}
	return routes
}

type CbtLinkCreate struct {
	ComponentId      int                         `json:"component_id" binding:"required"`
	ExamId           int                         `json:"exam_id" binding:"required"`
	SessionId        int                         `json:"session_id" binding:"required"`
	TermId           int                         `json:"term_id" binding:"required"`
	ClassId          *int                        `json:"class_id"`
	SubjectId        *int                        `json:"subject_id"`
	ScoreMappingType repository.ScoreMappingType `json:"score_mapping_type" binding:"required"`
	MaxScoreOverride *float64                    `json:"max_score_override"`
	AutoSync         bool                        `json:"auto_sync"`
}

type CbtLink struct {
	Id               int                         `json:"id" binding:"required"`
	ComponentId      int                         `json:"component_id" binding:"required"`
	ExamId           int                         `json:"exam_id" binding:"required"`
	SessionId        int                         `json:"session_id" binding:"required"`
	TermId           int                         `json:"term_id" binding:"required"`
	ClassId          *int                        `json:"class_id"`
	SubjectId        *int                        `json:"subject_id"`
	ScoreMappingType repository.ScoreMappingType `json:"score_mapping_type" binding:"required"`
	MaxScoreOverride *float64                    `json:"max_score_override"`
	AutoSync         bool                        `json:"auto_sync" binding:"required"`
	IsActive         bool                        `json:"is_active" binding:"required"`
	PendingCount     int                         `json:"pending_count"`
}

func toLinkResponse(link *repository.CbtAssessmentLink, pendingCount int) *CbtLink {
	return &CbtLink{
		Id:               link.Id,
		ComponentId:      link.ComponentId,
		ExamId:           link.ExamId,
		SessionId:        link.SessionId,
		TermId:           link.TermId,
		ClassId:          link.ClassId,
		SubjectId:        link.SubjectId,
		ScoreMappingType: link.ScoreMappingType,
		MaxScoreOverride: link.MaxScoreOverride,
		AutoSync:         link.AutoSync,
		IsActive:         link.IsActive,
		PendingCount:     pendingCount,
	}
}

// @id GetCbtLinks
// @Description Fetches a component's CBT exam links with their pending review counts
// @Tags cbt-link
// @Produce json
// @Param component_id path int true "Component Id"
// @Success 200 {array} CbtLink
// @Router /components/{component_id}/cbt-links [get]
func (e *CbtLinkController) getLinksHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		componentId, ok := pathParamInt(c, "component_id")
		if !ok {
			return
		}
		links, err := e.linkService.GetLinksForComponent(componentId)
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, utils.Map(links, func(link *service.LinkWithPendingCount) *CbtLink {
			return toLinkResponse(link.Link, link.PendingCount)
		}))
	}
}

// @id CreateCbtLink
// @Description Links an assessment component to a CBT exam for the current session/term
// @Tags cbt-link
// @Accept json
// @Produce json
// @Param body body CbtLinkCreate true "Link to create"
// @Success 201 {object} CbtLink
// @Router /cbt-links [put]
func (e *CbtLinkController) createLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var linkCreate CbtLinkCreate
		if err := c.BindJSON(&linkCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		link, err := e.linkService.CreateLink(c.Request.Context(), &repository.CbtAssessmentLink{
			ComponentId:      linkCreate.ComponentId,
			ExamId:           linkCreate.ExamId,
			SessionId:        linkCreate.SessionId,
			TermId:           linkCreate.TermId,
			ClassId:          linkCreate.ClassId,
			SubjectId:        linkCreate.SubjectId,
			ScoreMappingType: linkCreate.ScoreMappingType,
			MaxScoreOverride: linkCreate.MaxScoreOverride,
			AutoSync:         linkCreate.AutoSync,
		})
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(201, toLinkResponse(link, 0))
	}
}

// @id DeactivateCbtLink
// @Description Deactivates a CBT link; already-synced scores are untouched
// @Tags cbt-link
// @Produce json
// @Param link_id path int true "Link Id"
// @Success 204
// @Router /cbt-links/{link_id}/deactivate [post]
func (e *CbtLinkController) deactivateLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		linkId, ok := pathParamInt(c, "link_id")
		if !ok {
			return
		}
		if err := e.linkService.DeactivateLink(linkId); err != nil {
			if err == gorm.ErrRecordNotFound {
				app_error.Handle(c, app_error.NewNotFoundError("link not found"))
				return
			}
			app_error.Handle(c, err)
			return
		}
		c.JSON(204, nil)
	}
}

// @id DeleteCbtLink
// @Description Deletes a CBT link; already-synced scores are untouched
// @Tags cbt-link
// @Produce json
// @Param link_id path int true "Link Id"
// @Success 204
// @Router /cbt-links/{link_id} [delete]
func (e *CbtLinkController) deleteLinkHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		linkId, ok := pathParamInt(c, "link_id")
		if !ok {
			return
		}
		if err := e.linkService.DeleteLink(linkId); err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(204, nil)
	}
}
