package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/be4breach/internal/middleware"
	"github.com/hitoshi/be4breach/internal/security"
	"github.com/hitoshi/be4breach/internal/site"
)

// ContactRecorder は問い合わせの受付を記録する。
type ContactRecorder interface {
	RecordContactSubmission()
}

// ContentHandler は公開ページ向けの静的コンテンツと問い合わせフォームのHTTPハンドラー。
type ContentHandler struct {
	sanitizer security.TextSanitizer
	recorder  ContactRecorder
}

// NewContentHandler はContentHandlerを生成する。recorderはnilでもよい。
func NewContentHandler(sanitizer security.TextSanitizer, recorder ContactRecorder) *ContentHandler {
	return &ContentHandler{
		sanitizer: sanitizer,
		recorder:  recorder,
	}
}

type messageResponse struct {
	Message string `json:"message"`
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company"`
	Message string `json:"message"`
}

// Info はサイト名と説明を返す。
// GET /api/info
func (h *ContentHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, site.SiteInfo())
}

// Services はサービスカタログを返す。
// GET /api/services
func (h *ContentHandler) Services(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, site.Services())
}

// About は会社概要を返す。
// GET /api/about
func (h *ContentHandler) About(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: site.AboutMessage})
}

// Contact は連絡先を返す。
// GET /api/contact
func (h *ContentHandler) Contact(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: site.ContactMessage})
}

// SubmitContact は問い合わせを受け付ける。
// 自由入力はサニタイズしてから検証し、内容はログにのみ残す。
// POST /api/v1/contact
func (h *ContentHandler) SubmitContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	name := h.sanitizer.Sanitize(req.Name)
	email := strings.TrimSpace(req.Email)
	company := h.sanitizer.Sanitize(req.Company)
	message := h.sanitizer.Sanitize(req.Message)

	var errs fieldErrors
	errs.checkLength("name", name, 2, 100)
	errs.checkEmail(email)
	errs.checkLength("company", company, 0, 120)
	errs.checkLength("message", message, 10, 2000)
	if err := errs.err(); err != nil {
		middleware.WriteError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "contact submission received",
		slog.String("name", name),
		slog.String("email", email),
		slog.String("company", company),
		slog.Int("message_length", len(message)),
	)
	if h.recorder != nil {
		h.recorder.RecordContactSubmission()
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "received",
		"message": "Contact request received.",
	})
}
