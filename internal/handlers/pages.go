package handlers

import (
	"bytes"
	"net/http"

	"github.com/pkg/errors"

	"furnishai-web/internal/middleware"
	"furnishai-web/internal/models"
	"furnishai-web/internal/services"
	"furnishai-web/internal/views"
)

const sessionExpiredMessage = "Your conversation has expired. Reload the page to start a new one."

// PageHandler serves the HTML views. Every page works without JavaScript;
// the recommend page's inline script upgrades it to the JSON API.
type PageHandler struct {
	renderer  *views.Renderer
	chat      chatService
	analytics analyticsService
	info      []models.InfoEntry
	tokens    *middleware.SessionTokens
}

func NewPageHandler(
	renderer *views.Renderer,
	chat chatService,
	analytics analyticsService,
	info []models.InfoEntry,
	tokens *middleware.SessionTokens,
) *PageHandler {
	return &PageHandler{
		renderer:  renderer,
		chat:      chat,
		analytics: analytics,
		info:      info,
		tokens:    tokens,
	}
}

// Recommend starts a new conversation on every load.
func (h *PageHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	conv, err := h.chat.NewConversation(r.Context())
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Could not start a conversation.", err)
		return
	}

	token, err := h.tokens.Issue(conv.SessionID)
	if err != nil {
		h.renderError(w, r, http.StatusInternalServerError, "Could not start a conversation.", err)
		return
	}

	h.render(w, r, http.StatusOK, views.PageRecommend, "Recommend", views.RecommendData{
		SessionID: conv.SessionID.String(),
		Token:     token,
		Turns:     conv.Turns,
	})
}

// SubmitForm handles the plain form post and re-renders the conversation.
func (h *PageHandler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderError(w, r, http.StatusBadRequest, "Invalid form submission.", err)
		return
	}

	token := r.PostFormValue("token")
	sessionID, err := h.tokens.Parse(token)
	if err != nil || sessionID.String() != r.PostFormValue("session_id") {
		h.renderError(w, r, http.StatusUnauthorized, sessionExpiredMessage, err)
		return
	}

	status := http.StatusOK
	var notice string

	_, err = h.chat.Submit(r.Context(), sessionID, r.PostFormValue("text"))
	var (
		validation *services.ValidationError
		conflict   *services.ConflictError
		notFound   *services.NotFoundError
	)
	switch {
	case err == nil, errors.As(err, &validation):
		// blank input leaves the log untouched
	case errors.As(err, &conflict):
		status = http.StatusConflict
		notice = conflict.Message
	case errors.As(err, &notFound):
		h.renderError(w, r, http.StatusNotFound, sessionExpiredMessage, err)
		return
	default:
		h.renderError(w, r, http.StatusInternalServerError, "Something went wrong. Please try again.", err)
		return
	}

	conv, err := h.chat.Conversation(r.Context(), sessionID)
	if err != nil {
		h.renderError(w, r, http.StatusNotFound, sessionExpiredMessage, err)
		return
	}

	if fresh, err := h.tokens.Issue(sessionID); err == nil {
		token = fresh
	}

	h.render(w, r, status, views.PageRecommend, "Recommend", views.RecommendData{
		SessionID: sessionID.String(),
		Token:     token,
		Turns:     conv.Turns,
		Notice:    notice,
	})
}

// Analytics serves a loading shell whose script fetches /api/v1/analytics.
// With ?static=1 it aggregates on the server instead; a failed fetch shows
// the error banner and no charts either way.
func (h *PageHandler) Analytics(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("static") == "" {
		h.render(w, r, http.StatusOK, views.PageAnalytics, "Analytics", views.AnalyticsData{
			Loading:      true,
			ErrorMessage: services.AnalyticsErrorMessage,
		})
		return
	}

	report, err := h.analytics.Report(r.Context())
	if err != nil {
		h.render(w, r, http.StatusBadGateway, views.PageAnalytics, "Analytics", views.AnalyticsData{
			Error: services.AnalyticsErrorMessage,
		})
		return
	}

	h.render(w, r, http.StatusOK, views.PageAnalytics, "Analytics", views.AnalyticsData{Report: report})
}

func (h *PageHandler) Info(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, views.PageInfo, "Info", views.InfoData{Entries: h.info})
}

func (h *PageHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.renderError(w, r, http.StatusNotFound, "Page not found.", nil)
}

func (h *PageHandler) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data interface{}) {
	var buf bytes.Buffer
	err := h.renderer.Render(&buf, page, views.Page{Title: title, Active: page, Data: data})
	if err != nil {
		middleware.GetLogger(r.Context()).WithError(err).Error("failed to render page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (h *PageHandler) renderError(w http.ResponseWriter, r *http.Request, status int, message string, cause error) {
	if cause != nil {
		log := middleware.GetLogger(r.Context()).WithError(cause)
		if status >= http.StatusInternalServerError {
			log.Error(message)
		} else {
			log.Debug(message)
		}
	}
	h.render(w, r, status, views.PageError, http.StatusText(status), views.ErrorData{Status: status, Message: message})
}
