package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/smart-disease-client/internal/domain"
	"github.com/smart-disease-client/internal/middleware"
	"github.com/smart-disease-client/internal/presenter"
	"github.com/smart-disease-client/internal/schema"
	"github.com/smart-disease-client/internal/session"
)

const (
	chatEmptyMessage  = "Please type a message first."
	chatFailedMessage = "The assistant is unavailable right now. Please try again later."
)

type fieldView struct {
	domain.FieldSpec
	Value string
}

type assessPage struct {
	Title      string
	Variants   []variantInfo
	Variant    domain.DiseaseVariant
	Fields     []fieldView
	Submitting bool
	Error      string
	Notice     string
	Result     *presenter.RenderModel
}

type chatPage struct {
	Title   string
	Message string
	Reply   *domain.ChatReply
	Error   string
}

func (s *Server) handleIndex(c *gin.Context) {
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"Title":    "Smart Disease Prediction",
		"Variants": variantInfos(),
	})
}

// handleAssessPage shows the form for a variant. Arriving from another
// variant starts that variant over from its defaults.
func (s *Server) handleAssessPage(c *gin.Context) {
	v, err := domain.ParseDiseaseVariant(c.Param("variant"))
	if err != nil {
		c.HTML(http.StatusNotFound, "notfound.tmpl", gin.H{"Title": "Not found"})
		return
	}

	ctrl := s.controller(c)
	if ctrl.Snapshot().Variant != v {
		if err := ctrl.SelectVariant(v); err != nil {
			s.renderAssess(c, http.StatusInternalServerError, ctrl.Snapshot(), "")
			return
		}
	}
	s.renderAssess(c, http.StatusOK, ctrl.Snapshot(), "")
}

func (s *Server) handleSelectVariantForm(c *gin.Context) {
	v, err := domain.ParseDiseaseVariant(c.PostForm("variant"))
	if err != nil {
		c.HTML(http.StatusNotFound, "notfound.tmpl", gin.H{"Title": "Not found"})
		return
	}
	if err := s.controller(c).SelectVariant(v); err != nil {
		s.respondError(c, err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/assess/"+v.String())
}

// handleSubmitForm applies the posted fields of the current variant and
// submits them, then redirects back to the variant page.
func (s *Server) handleSubmitForm(c *gin.Context) {
	ctrl := s.controller(c)
	if err := c.Request.ParseForm(); err != nil {
		s.renderAssess(c, http.StatusBadRequest, ctrl.Snapshot(), "")
		return
	}

	snap := ctrl.Snapshot()
	if posted := c.PostForm("variant"); posted != "" && posted != snap.Variant.String() {
		// The page was rendered for a variant this session has since left.
		c.Redirect(http.StatusSeeOther, "/assess/"+snap.Variant.String())
		return
	}

	values := make(map[string]string)
	for _, f := range schema.SchemaFor(snap.Variant) {
		if raw, ok := c.Request.PostForm[f.Name]; ok && len(raw) > 0 {
			values[f.Name] = raw[0]
		}
	}
	if err := ctrl.SetFields(values); err != nil {
		s.renderAssess(c, http.StatusUnprocessableEntity, ctrl.Snapshot(), "")
		return
	}

	snap, err := ctrl.Submit(c.Request.Context())
	switch {
	case errors.Is(err, domain.ErrSubmissionInFlight):
		s.renderAssess(c, http.StatusConflict, snap, "An assessment is already in progress.")
		return
	case err != nil && !errors.Is(err, domain.ErrSuperseded):
		s.logger.WithFields(logrus.Fields{
			"session_id": middleware.SessionID(c),
		}).WithError(err).Warn("Assessment submission rejected")
		status, _ := statusFor(err)
		s.renderAssess(c, status, ctrl.Snapshot(), "")
		return
	}

	c.Redirect(http.StatusSeeOther, "/assess/"+snap.Variant.String())
}

func (s *Server) handleResetForm(c *gin.Context) {
	ctrl := s.controller(c)
	ctrl.Reset()
	c.Redirect(http.StatusSeeOther, "/assess/"+ctrl.Snapshot().Variant.String())
}

func (s *Server) handleChatPage(c *gin.Context) {
	c.HTML(http.StatusOK, "chat.tmpl", chatPage{Title: "Supportive Chat"})
}

func (s *Server) handleChatForm(c *gin.Context) {
	page := chatPage{Title: "Supportive Chat", Message: c.PostForm("message")}

	reply, err := s.chat.Chat(c.Request.Context(), page.Message)
	switch {
	case errors.Is(err, domain.ErrEmptyMessage):
		page.Error = chatEmptyMessage
		c.HTML(http.StatusBadRequest, "chat.tmpl", page)
		return
	case err != nil:
		s.logger.WithError(err).Warn("Chat relay failed")
		page.Error = chatFailedMessage
		c.HTML(http.StatusBadGateway, "chat.tmpl", page)
		return
	}

	page.Reply = reply
	page.Message = ""
	c.HTML(http.StatusOK, "chat.tmpl", page)
}

func (s *Server) renderAssess(c *gin.Context, status int, snap session.Snapshot, notice string) {
	specs := schema.SchemaFor(snap.Variant)
	fields := make([]fieldView, 0, len(specs))
	for _, f := range specs {
		fields = append(fields, fieldView{FieldSpec: f, Value: snap.Form[f.Name]})
	}

	page := assessPage{
		Title:      schema.Title(snap.Variant) + " Risk Assessment",
		Variants:   variantInfos(),
		Variant:    snap.Variant,
		Fields:     fields,
		Submitting: snap.Status == domain.StatusSubmitting,
		Error:      snap.ErrorMessage,
		Notice:     notice,
	}
	if snap.Status == domain.StatusSucceeded {
		model := presenter.Present(snap.Result)
		page.Result = &model
	}
	c.HTML(status, "assess.tmpl", page)
}
