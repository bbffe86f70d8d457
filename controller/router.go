package controller

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gradesync/service"
)

type RouteInfo struct {
	Method      string
	Path        string
	HandlerFunc gin.HandlerFunc
}

func SetRoutes(r *gin.Engine, db *gorm.DB, examCatalog service.ExamCatalog, gradebook service.Gradebook) {
	routes := make([]RouteInfo, 0)
	routes = append(routes, setupSchoolContextController(db)...)
	routes = append(routes, setupAssessmentComponentController(db)...)
	routes = append(routes, setupScoreStructureController(db)...)
	routes = append(routes, setupCbtLinkController(db, examCatalog)...)
	routes = append(routes, setupImportController(db, examCatalog, gradebook)...)
	for _, route := range routes {
		r.Handle(route.Method, "/api/"+route.Path, route.HandlerFunc)
	}
}
