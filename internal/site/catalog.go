// Package site は公開ページとダッシュボードで返す静的コンテンツを提供する。
package site

import "github.com/hitoshi/be4breach/internal/model"

// Info はサイト概要。
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Service はサービスカタログの1項目。
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Dashboard はロール別ダッシュボードのレスポンス。
type Dashboard struct {
	Role       model.Role `json:"role"`
	Welcome    string     `json:"welcome"`
	Highlights []string   `json:"highlights"`
	Message    string     `json:"message"`
	Status     string     `json:"status"`
}

// UserSummary は一般ユーザー向けダッシュボードの集計値。
type UserSummary struct {
	Alerts           int    `json:"alerts"`
	ComplianceScore  int    `json:"complianceScore"`
	MonitoringStatus string `json:"monitoringStatus"`
}

// AdminSummary は管理者向けダッシュボードの集計値。
type AdminSummary struct {
	Incidents       int `json:"incidents"`
	ComplianceScore int `json:"complianceScore"`
	ActiveClients   int `json:"activeClients"`
}

// 連絡先とサイト文言
const (
	ContactEmail = "contact@be4breach.com"
	ContactPhone = "+91 9461915152"

	AboutMessage   = "Be4Breach is a cybersecurity company headquartered in Pune, India, focused on predicting threats and closing security gaps before they impact business operations."
	ContactMessage = "Contact: " + ContactPhone + " • " + ContactEmail
	AlertsMessage  = "No critical alerts. Systems are operating within baseline."

	dashboardStatusPending = "pending"
)

var services = []Service{
	{ID: "ai-security", Name: "AI Security", Description: "Secure AI models against adversarial and data threats."},
	{ID: "cloud-security", Name: "Cloud Security", Description: "Protect multi-cloud environments with continuous monitoring."},
	{ID: "red-teaming", Name: "Penetration Testing & Red Teaming", Description: "Simulate real-world attacks to expose vulnerabilities."},
	{ID: "soc-monitoring", Name: "SOC Monitoring", Description: "24/7 detection and response through CoE & SOC labs."},
}

var memberServices = []Service{
	{ID: "awareness", Name: "Security Awareness Training", Description: "Continuous education and phishing simulations."},
	{ID: "risk", Name: "Risk Assessment", Description: "Actionable reporting aligned to global frameworks."},
	{ID: "monitoring", Name: "SOC Monitoring", Description: "24/7 threat detection and response coverage."},
}

var highlights = map[model.Role][]string{
	model.RoleAdmin: {
		"CERT-IN empanelled with trusted compliance delivery.",
		"50+ global clients across 20+ countries.",
		"CoE & SOC monitoring labs operational since 2023.",
	},
	model.RoleUser: {
		"Access proactive security awareness training.",
		"Monitor vulnerability and risk assessments.",
		"Engage with vCISO and incident readiness playbooks.",
	},
}

var dashboardMessages = map[model.Role]string{
	model.RoleAdmin: "Admin dashboard insights are ready for integration.",
	model.RoleUser:  "User dashboard data is ready for integration.",
}

// SiteInfo はサイト名と説明を返す。
func SiteInfo() Info {
	return Info{
		Name:        "Be4Breach",
		Description: "Security awareness and breach readiness platform",
	}
}

// Services は公開サービスカタログのコピーを返す。
func Services() []Service {
	return append([]Service(nil), services...)
}

// MemberServices はログインユーザー向けサービスのコピーを返す。
func MemberServices() []Service {
	return append([]Service(nil), memberServices...)
}

// DashboardFor は指定ロールのダッシュボードを組み立てる。
func DashboardFor(role model.Role, subject string) Dashboard {
	return Dashboard{
		Role:       role,
		Welcome:    "Welcome back, " + subject + ".",
		Highlights: append([]string(nil), highlights[role]...),
		Message:    dashboardMessages[role],
		Status:     dashboardStatusPending,
	}
}

// UserDashboardSummary は一般ユーザー向けの集計値を返す。
// 監視基盤との連携前のため固定値。
func UserDashboardSummary() UserSummary {
	return UserSummary{MonitoringStatus: "Standby"}
}

// AdminDashboardSummary は管理者向けの集計値を返す。
// activeClientsにはディレクトリ上の有効アカウント数を渡す。
func AdminDashboardSummary(activeClients int) AdminSummary {
	return AdminSummary{ActiveClients: activeClients}
}
