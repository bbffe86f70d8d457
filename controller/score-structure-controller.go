package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gradesync/app_error"
	"gradesync/repository"
	"gradesync/service"
	"gradesync/utils"
)

type ScoreStructureController struct {
	structureService *service.ScoreStructureService
}

func NewScoreStructureController(db *gorm.DB) *ScoreStructureController {
	return &ScoreStructureController{
		structureService: service.NewScoreStructureService(db),
	}
}

func setupScoreStructureController(db *gorm.DB) []RouteInfo {
	e := NewScoreStructureController(db)
	routes := []RouteInfo{
		{Method: "GET", Path: "components/:component_id/structures", HandlerFunc: e.getStructuresHandler()},
		{Method: "GET", Path: "components/:component_id/max-score", HandlerFunc: e.resolveMaxScoreHandler()},
		{Method: "PUT", Path: "structures", HandlerFunc: e.saveStructureHandler()},
		{Method: "POST", Path: "structures/:structure_id/deactivate", HandlerFunc: e.deactivateStructureHandler()},
		{Method: "DELETE", Path: "structures/:structure_id", HandlerFunc: e.deleteStructureHandler()},
	}
	return routes
}

type ScoreStructureCreate struct {
	Id          int     `json:"id"`
	ComponentId int     `json:"component_id" binding:"required"`
	ClassId     *int    `json:"class_id"`
	TermId      *int    `json:"term_id"`
	MaxScore    float64 `json:"max_score" binding:"required"`
	IsActive    *bool   `json:"is_active"`
	Description string  `json:"description"`
}

type ScoreStructure struct {
	Id          int     `json:"id" binding:"required"`
	ComponentId int     `json:"component_id" binding:"required"`
	ClassId     *int    `json:"class_id"`
	TermId      *int    `json:"term_id"`
	MaxScore    float64 `json:"max_score" binding:"required"`
	IsActive    bool    `json:"is_active" binding:"required"`
	Description string  `json:"description"`
}

type ResolvedMaxScore struct {
	ComponentId int     `json:"component_id" binding:"required"`
	ClassId     *int    `json:"class_id"`
	TermId      *int    `json:"term_id"`
	MaxScore    float64 `json:"max_score" binding:"required"`
}

func toStructureResponse(structure *repository.ScoreStructure) *ScoreStructure {
	return &ScoreStructure{
		Id:          structure.Id,
		ComponentId: structure.ComponentId,
		ClassId:     structure.ClassId,
		TermId:      structure.TermId,
		MaxScore:    structure.MaxScore,
		IsActive:    structure.IsActive,
		Description: structure.Description,
	}
}

// @id GetStructures
// @Description Fetches all score structures for a component
// @Tags structure
// @Produce json
// @Param component_id path int true "Component Id"
// @Success 200 {array} ScoreStructure
// @Router /components/{component_id}/structures [get]
func (e *ScoreStructureController) getStructuresHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		componentId, ok := pathParamInt(c, "component_id")
		if !ok {
			return
		}
		structures, err := e.structureService.GetStructuresForComponent(componentId)
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, utils.Map(structures, toStructureResponse))
	}
}

// @id ResolveMaxScore
// @Description Resolves the effective max score for a component under an optional class/term scope
// @Tags structure
// @Produce json
// @Param component_id path int true "Component Id"
// @Param class_id query int false "Class Id"
// @Param term_id query int false "Term Id"
// @Success 200 {object} ResolvedMaxScore
// @Router /components/{component_id}/max-score [get]
func (e *ScoreStructureController) resolveMaxScoreHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		componentId, ok := pathParamInt(c, "component_id")
		if !ok {
			return
		}
		classId := queryParamInt(c, "class_id")
		termId := queryParamInt(c, "term_id")
		maxScore, err := e.structureService.ResolveMaxScore(componentId, classId, termId)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				app_error.Handle(c, app_error.NewNotFoundError("component not found"))
				return
			}
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, ResolvedMaxScore{
			ComponentId: componentId,
			ClassId:     classId,
			TermId:      termId,
			MaxScore:    maxScore,
		})
	}
}

// @id SaveStructure
// @Description Creates or updates a score structure override
// @Tags structure
// @Accept json
// @Produce json
// @Param body body ScoreStructureCreate true "Structure to save"
// @Success 201 {object} ScoreStructure
// @Router /structures [put]
func (e *ScoreStructureController) saveStructureHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var structureCreate ScoreStructureCreate
		if err := c.BindJSON(&structureCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		isActive := true
		if structureCreate.IsActive != nil {
			isActive = *structureCreate.IsActive
		}
		structure, err := e.structureService.SaveStructure(&repository.ScoreStructure{
			Id:          structureCreate.Id,
			ComponentId: structureCreate.ComponentId,
			ClassId:     structureCreate.ClassId,
			TermId:      structureCreate.TermId,
			MaxScore:    structureCreate.MaxScore,
			IsActive:    isActive,
			Description: structureCreate.Description,
		})
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				app_error.Handle(c, app_error.NewNotFoundError("component not found"))
				return
			}
			app_error.Handle(c, err)
			return
		}
		c.JSON(201, toStructureResponse(structure))
	}
}

// @id DeactivateStructure
// @Description Deactivates a score structure so it no longer participates in resolution
// @Tags structure
// @Produce json
// @Param structure_id path int true "Structure Id"
// @Success 204
// @Router /structures/{structure_id}/deactivate [post]
func (e *ScoreStructureController) deactivateStructureHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		structureId, ok := pathParamInt(c, "structure_id")
		if !ok {
			return
		}
		if err := e.structureService.DeactivateStructure(structureId); err != nil {
			if err == gorm.ErrRecordNotFound {
				app_error.Handle(c, app_error.NewNotFoundError("structure not found"))
				return
			}
			app_error.Handle(c, err)
			return
		}
		c.JSON(204, nil)
	}
}

// @id DeleteStructure
// @Description Deletes a score structure
// @Tags structure
// @Produce json
// @Param structure_id path int true "Structure Id"
// @Success 204
// @Router /structures/{structure_id} [delete]
func (e *ScoreStructureController) deleteStructureHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		structureId, ok := pathParamInt(c, "structure_id")
		if !ok {
			return
		}
		if err := e.structureService.DeleteStructure(structureId); err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(204, nil)
	}
}

func queryParamInt(c *gin.Context, name string) *int {
	value := c.Query(name)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return nil
	}
	return &parsed
}
