package controller

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gradesync/app_error"
	"gradesync/repository"
	"gradesync/service"
	"gradesync/utils"
)

type AssessmentComponentController struct {
	componentService *service.AssessmentComponentService
}

func NewAssessmentComponentController(db *gorm.DB) *AssessmentComponentController {
	return &AssessmentComponentController{
		componentService: service.NewAssessmentComponentService(db),
	}
}

func setupAssessmentComponentController(db *gorm.DB) []RouteInfo {
	e := NewAssessmentComponentController(db)
	routes := []RouteInfo{
		{Method: "GET", Path: "components", HandlerFunc: e.getComponentsHandler()},
		{Method: "GET", Path: "components/:component_id", HandlerFunc: e.getComponentHandler()},
		{Method: "PUT", Path: "components", HandlerFunc: e.saveComponentHandler()},
		{Method: "DELETE", Path: "components/:component_id", HandlerFunc: e.deleteComponentHandler()},
	}
	return routes
}

type AssessmentComponentCreate struct {
	Id       int      `json:"id"`
	Name     string   `json:"name" binding:"required"`
	MaxScore *float64 `json:"max_score"`
	Weight   float64  `json:"weight"`
}

type AssessmentComponent struct {
	Id       int      `json:"id" binding:"required"`
	Name     string   `json:"name" binding:"required"`
	MaxScore *float64 `json:"max_score"`
	Weight   float64  `json:"weight" binding:"required"`
}

func toComponentResponse(component *repository.AssessmentComponent) *AssessmentComponent {
	return &AssessmentComponent{
		Id:       component.Id,
		Name:     component.Name,
		MaxScore: component.MaxScore,
		Weight:   component.Weight,
	}
}

// @id GetComponents
// @Description Fetches all assessment components
// @Tags component
// @Produce json
// @Success 200 {array} AssessmentComponent
// @Router /components [get]
func (e *AssessmentComponentController) getComponentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		components, err := e.componentService.GetComponents()
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, utils.Map(components, toComponentResponse))
	}
}

// @id GetComponent
// @Description Fetches an assessment component by id
// @Tags component
// @Produce json
// @Param component_id path int true "Component Id"
// @Success 200 {object} AssessmentComponent
// @Router /components/{component_id} [get]
func (e *AssessmentComponentController) getComponentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		componentId, ok := pathParamInt(c, "component_id")
		if !ok {
			return
		}
		component, err := e.componentService.GetComponentById(componentId)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				app_error.Handle(c, app_error.NewNotFoundError("component not found"))
				return
			}
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, toComponentResponse(component))
	}
}

// @id SaveComponent
// @Description Creates or updates an assessment component
// @Tags component
// @Accept json
// @Produce json
// @Param body body AssessmentComponentCreate true "Component to save"
// @Success 201 {object} AssessmentComponent
// @Router /components [put]
func (e *AssessmentComponentController) saveComponentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var componentCreate AssessmentComponentCreate
		if err := c.BindJSON(&componentCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		component, err := e.componentService.SaveComponent(&repository.AssessmentComponent{
			Id:       componentCreate.Id,
			Name:     componentCreate.Name,
			MaxScore: componentCreate.MaxScore,
			Weight:   componentCreate.Weight,
		})
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(201, toComponentResponse(component))
	}
}

// @id DeleteComponent
// @Description Deletes an assessment component
// @Tags component
// @Produce json
// @Param component_id path int true "Component Id"
// @Success 204
// @Router /components/{component_id} [delete]
func (e *AssessmentComponentController) deleteComponentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		componentId, ok := pathParamInt(c, "component_id")
		if !ok {
			return
		}
		if err := e.componentService.DeleteComponent(componentId); err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(204, nil)
	}
}
