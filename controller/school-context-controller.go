package controller

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"gradesync/app_error"
	"gradesync/repository"
	"gradesync/service"
	"gradesync/utils"
)

type SchoolContextController struct {
	contextService *service.SchoolContextService
}

func NewSchoolContextController(db *gorm.DB) *SchoolContextController {
	return &SchoolContextController{
		contextService: service.NewSchoolContextService(db),
	}
}

func setupSchoolContextController(db *gorm.DB) []RouteInfo {
	e := NewSchoolContextController(db)
	routes := []RouteInfo{
		{Method: "GET", Path: "school-context/current", HandlerFunc: e.getCurrentContextHandler()},
		{Method: "GET", Path: "sessions", HandlerFunc: e.getSessionsHandler()},
		{Method: "PUT", Path: "sessions", HandlerFunc: e.createSessionHandler()},
		{Method: "PUT", Path: "sessions/:session_id/terms", HandlerFunc: e.createTermHandler()},
	}
	return routes
}

type SessionCreate struct {
	Name      string    `json:"name" binding:"required"`
	IsCurrent bool      `json:"is_current"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type TermCreate struct {
	Name      string `json:"name" binding:"required"`
	IsCurrent bool   `json:"is_current"`
}

type Term struct {
	Id        int    `json:"id" binding:"required"`
	SessionId int    `json:"session_id" binding:"required"`
	Name      string `json:"name" binding:"required"`
	IsCurrent bool   `json:"is_current" binding:"required"`
}

type Session struct {
	Id        int     `json:"id" binding:"required"`
	Name      string  `json:"name" binding:"required"`
	IsCurrent bool    `json:"is_current" binding:"required"`
	Terms     []*Term `json:"terms"`
}

type CurrentContext struct {
	SessionId int    `json:"session_id" binding:"required"`
	TermId    int    `json:"term_id" binding:"required"`
	Session   string `json:"session" binding:"required"`
	Term      string `json:"term" binding:"required"`
}

func toTermResponse(term *repository.Term) *Term {
	return &Term{
		Id:        term.Id,
		SessionId: term.SessionId,
		Name:      term.Name,
		IsCurrent: term.IsCurrent,
	}
}

func toSessionResponse(session *repository.Session) *Session {
	return &Session{
		Id:        session.Id,
		Name:      session.Name,
		IsCurrent: session.IsCurrent,
		Terms:     utils.Map(session.Terms, toTermResponse),
	}
}

// @id GetCurrentContext
// @Description Fetches the school's current session and term
// @Tags school-context
// @Produce json
// @Success 200 {object} CurrentContext
// @Router /school-context/current [get]
func (e *SchoolContextController) getCurrentContextHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		session, term, err := e.contextService.GetCurrentContext()
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, CurrentContext{
			SessionId: session.Id,
			TermId:    term.Id,
			Session:   session.Name,
			Term:      term.Name,
		})
	}
}

// @id GetSessions
// @Description Fetches all school sessions with their terms
// @Tags school-context
// @Produce json
// @Success 200 {array} Session
// @Router /sessions [get]
func (e *SchoolContextController) getSessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := e.contextService.GetSessions()
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(200, utils.Map(sessions, toSessionResponse))
	}
}

// @id CreateSession
// @Description Creates a school session, optionally making it current
// @Tags school-context
// @Accept json
// @Produce json
// @Param body body SessionCreate true "Session to create"
// @Success 201 {object} Session
// @Router /sessions [put]
func (e *SchoolContextController) createSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var sessionCreate SessionCreate
		if err := c.BindJSON(&sessionCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		session, err := e.contextService.SaveSession(&repository.Session{
			Name:      sessionCreate.Name,
			IsCurrent: sessionCreate.IsCurrent,
			StartDate: sessionCreate.StartDate,
			EndDate:   sessionCreate.EndDate,
		})
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(201, toSessionResponse(session))
	}
}

// @id CreateTerm
// @Description Creates a term under a session, optionally making it current
// @Tags school-context
// @Accept json
// @Produce json
// @Param session_id path int true "Session Id"
// @Param body body TermCreate true "Term to create"
// @Success 201 {object} Term
// @Router /sessions/{session_id}/terms [put]
func (e *SchoolContextController) createTermHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionId, ok := pathParamInt(c, "session_id")
		if !ok {
			return
		}
		var termCreate TermCreate
		if err := c.BindJSON(&termCreate); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}
		term, err := e.contextService.SaveTerm(&repository.Term{
			SessionId: sessionId,
			Name:      termCreate.Name,
			IsCurrent: termCreate.IsCurrent,
		})
		if err != nil {
			app_error.Handle(c, err)
			return
		}
		c.JSON(201, toTermResponse(term))
	}
}
