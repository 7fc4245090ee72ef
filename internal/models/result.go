package models

type SessionResponse struct {
	Session SessionSnapshot `json:"session"`
}

type ReportResponse struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Result    *AnalysisRecord `json:"result"`
	Dashboard DashboardView   `json:"dashboard"`
	ReportURL string          `json:"report_url,omitempty"`
}

type NoticeResponse struct {
	Message string          `json:"message"`
	Session SessionSnapshot `json:"session"`
}
