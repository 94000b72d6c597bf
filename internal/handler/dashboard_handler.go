package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/be4breach/internal/middleware"
	"github.com/hitoshi/be4breach/internal/model"
	"github.com/hitoshi/be4breach/internal/site"
)

// AccountCounter はディレクトリのアカウント数を返す。
type AccountCounter interface {
	Count(ctx context.Context) (int, error)
}

// DashboardHandler はロール別ダッシュボードのHTTPハンドラー。
// ロールの検証はルーター側のミドルウェアで行う。
type DashboardHandler struct {
	accounts AccountCounter
}

// NewDashboardHandler はDashboardHandlerを生成する。
func NewDashboardHandler(accounts AccountCounter) *DashboardHandler {
	return &DashboardHandler{accounts: accounts}
}

// UserDashboard は一般ユーザー向けダッシュボードを返す。
// GET /api/v1/dashboard/user, /api/v1/user/dashboard
func (h *DashboardHandler) UserDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, model.RoleUser)
}

// AdminDashboard は管理者向けダッシュボードを返す。
// GET /api/v1/dashboard/admin, /api/v1/admin/dashboard
func (h *DashboardHandler) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	h.dashboard(w, r, model.RoleAdmin)
}

func (h *DashboardHandler) dashboard(w http.ResponseWriter, r *http.Request, role model.Role) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		middleware.WriteError(w, r, model.ErrUnauthenticated)
		return
	}
	writeJSON(w, http.StatusOK, site.DashboardFor(role, claims.Subject))
}

// UserSummary は一般ユーザー向けの集計値を返す。
// GET /api/v1/dashboard/user/summary
func (h *DashboardHandler) UserSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, site.UserDashboardSummary())
}

// AdminSummary は管理者向けの集計値を返す。
// GET /api/v1/dashboard/admin/summary
func (h *DashboardHandler) AdminSummary(w http.ResponseWriter, r *http.Request) {
	count, err := h.accounts.Count(r.Context())
	if err != nil {
		middleware.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, site.AdminDashboardSummary(count))
}

// UserServices はログインユーザー向けサービスを返す。
// GET /api/v1/user/services
func (h *DashboardHandler) UserServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, site.MemberServices())
}

// AdminAlerts は管理者向けアラートの状況を返す。
// GET /api/v1/admin/alerts
func (h *DashboardHandler) AdminAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: site.AlertsMessage})
}
