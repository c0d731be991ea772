package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/presenter"
	"github.com/smart-disease-client/internal/schema"
)

type variantInfo struct {
	Variant     domain.DiseaseVariant `json:"variant"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Path        string                `json:"path"`
}

type variantSchema struct {
	Variant  domain.DiseaseVariant `json:"variant"`
	Title    string                `json:"title"`
	Fields   []domain.FieldSpec    `json:"fields"`
	Defaults domain.FormState      `json:"defaults"`
}

type selectVariantRequest struct {
	Variant string `json:"variant" binding:"required"`
}

type setFieldsRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// renderResponse is what a client needs to draw the current session.
type renderResponse struct {
	Variant      domain.DiseaseVariant  `json:"variant"`
	Status       domain.SessionStatus   `json:"status"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Result       *presenter.RenderModel `json:"result"`
}

func variantInfos() []variantInfo {
	variants := schema.Variants()
	out := make([]variantInfo, 0, len(variants))
	for _, v := range variants {
		out = append(out, variantInfo{
			Variant:     v,
			Title:       schema.Title(v),
			Description: schema.Description(v),
			Path:        "/assess/" + v.String(),
		})
	}
	return out
}

func (s *Server) handleListVariants(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"variants": variantInfos()})
}

func (s *Server) handleVariantSchema(c *gin.Context) {
	v, err := domain.ParseDiseaseVariant(c.Param("variant"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, variantSchema{
		Variant:  v,
		Title:    schema.Title(v),
		Fields:   schema.SchemaFor(v),
		Defaults: schema.DefaultsFor(v),
	})
}

func (s *Server) handleGetSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.controller(c).Snapshot())
}

func (s *Server) handleSelectVariant(c *gin.Context) {
	var req selectVariantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}
	v, err := domain.ParseDiseaseVariant(req.Variant)
	if err != nil {
		s.respondError(c, err)
		return
	}

	ctrl := s.controller(c)
	if err := ctrl.SelectVariant(v); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (s *Server) handleSetFields(c *gin.Context) {
	var req setFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	ctrl := s.controller(c)
	if err := ctrl.SetFields(req.Fields); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

// handleSubmit blocks until the prediction resolves. A failed prediction is
// still a 200: the failure is part of the session state.
func (s *Server) handleSubmit(c *gin.Context) {
	snap, err := s.controller(c).Submit(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) handleReset(c *gin.Context) {
	ctrl := s.controller(c)
	ctrl.Reset()
	c.JSON(http.StatusOK, ctrl.Snapshot())
}

func (s *Server) handleRender(c *gin.Context) {
	snap := s.controller(c).Snapshot()
	resp := renderResponse{
		Variant:      snap.Variant,
		Status:       snap.Status,
		ErrorMessage: snap.ErrorMessage,
	}
	if snap.Status == domain.StatusSucceeded {
		model := presenter.Present(snap.Result)
		resp.Result = &model
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err.Error())
		return
	}

	reply, err := s.chat.Chat(c.Request.Context(), req.Message)
	if err != nil {
		if !errors.Is(err, domain.ErrEmptyMessage) {
			s.logger.WithError(err).Warn("Chat relay failed")
		}
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}
