package api

import "github.com/dmaher/pcaptcha/captcha"

// GenerateChallengeResponse is returned from POST /challenge.
type GenerateChallengeResponse struct {
	Success     bool   `json:"success"`
	ChallengeID string `json:"challenge_id,omitempty"`
	Image       string `json:"image,omitempty"`
	Message     string `json:"message,omitempty"`
}

// VerifyPlacementRequest is the JSON body for POST /verify-placement.
type VerifyPlacementRequest struct {
	ChallengeID string              `json:"challenge_id"`
	X           int                 `json:"x"`
	Y           int                 `json:"y"`
	PointerPath []captcha.PathPoint `json:"pointer_path"`
}

// VerifyPlacementResponse is returned from POST /verify-placement.
type VerifyPlacementResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

// VerifyTokenRequest is the JSON body for POST /verify-token.
type VerifyTokenRequest struct {
	Token          string `json:"token"`
	RequesterIP    string `json:"requester_ip"`
	RequesterAgent string `json:"requester_agent"`
}

// VerifyTokenResponse is returned from POST /verify-token.
type VerifyTokenResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	ChallengeID string `json:"challenge_id,omitempty"`
}

// AttemptPlot is one rendered pointer path on the dashboard.
type AttemptPlot struct {
	SessionID string  `json:"session_id"`
	Success   bool    `json:"success"`
	TimeTaken float64 `json:"time_taken"`
	Image     string  `json:"image"` // base64 PNG
}

// DashboardResponse is returned from GET /dashboard.
type DashboardResponse struct {
	Summary *captcha.Summary `json:"summary"`
	Plots   []AttemptPlot    `json:"plots"`
}

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
