package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmaher/pcaptcha/captcha"
	"github.com/dmaher/pcaptcha/render"
	"github.com/dmaher/pcaptcha/token"
)

// maxDashboardPlots bounds how many pointer-path images one dashboard
// response renders.
const maxDashboardPlots = 20

// GenerateChallenge handles POST /challenge: issues a new puzzle for
// the requesting session and returns the challenge id plus the asset URL.
func (a *API) GenerateChallenge(w http.ResponseWriter, r *http.Request) {
	ip := clientIP(r)
	if ok, retryAfter := a.limiter.allow(ip); !ok {
		a.audit.log(AuditIssueRateLimited, r)
		writeRateLimited(w, retryAfter)
		return
	}

	issued, err := a.issuer.Issue(r.Context(), sessionID(r))
	if err != nil {
		a.audit.log(AuditIssueFailed, r, slog.String("error", err.Error()))
		if errors.Is(err, captcha.ErrRenderingUnavailable) {
			writeJSON(w, http.StatusServiceUnavailable, GenerateChallengeResponse{
				Success: false,
				Message: "challenge image unavailable, please retry",
			})
			return
		}
		mapError(w, err)
		return
	}

	a.audit.logChallenge(AuditChallengeIssued, r, issued.ChallengeID)
	writeJSON(w, http.StatusOK, GenerateChallengeResponse{
		Success:     true,
		ChallengeID: issued.ChallengeID,
		Image:       "/api/v1/assets/" + issued.ChallengeID,
	})
}

// GetAsset handles GET /assets/{challengeID}: serves the rendered PNG.
func (a *API) GetAsset(w http.ResponseWriter, r *http.Request) {
	png, err := a.store.Asset(chi.URLParam(r, "challengeID"))
	if err != nil {
		mapError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(png)
}

// VerifyPlacement handles POST /verify-placement: evaluates the
// submitted placement, finalizes the attempt, and mints a proof token
// on success.
func (a *API) VerifyPlacement(w http.ResponseWriter, r *http.Request) {
	var req VerifyPlacementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sid := sessionID(r)
	ok, err := a.verifier.Check(sid, req.ChallengeID, req.X, req.Y, req.PointerPath)
	if err != nil {
		if errors.Is(err, captcha.ErrChallengeNotFound) {
			a.audit.logChallenge(AuditChallengeNotFound, r, req.ChallengeID)
			writeJSON(w, http.StatusNotFound, VerifyPlacementResponse{
				Success: false,
				Message: "CAPTCHA not found",
			})
			return
		}
		mapError(w, err)
		return
	}

	if !ok {
		a.audit.logChallenge(AuditPlacementFailure, r, req.ChallengeID)
		writeJSON(w, http.StatusOK, VerifyPlacementResponse{
			Success: false,
			Message: "CAPTCHA failed. Please try again.",
		})
		return
	}

	fp := token.Fingerprint(clientIP(r), r.UserAgent())
	signed, err := a.tokenIssuer.Issue(req.ChallengeID, sid, fp)
	if err != nil {
		mapError(w, err)
		return
	}

	a.audit.logChallenge(AuditPlacementSuccess, r, req.ChallengeID)
	writeJSON(w, http.StatusOK, VerifyPlacementResponse{
		Success: true,
		Message: "CAPTCHA solved!",
		Token:   signed,
	})
}

// VerifyToken handles POST /verify-token: a relying party presents a
// proof token together with the identity it observed.
func (a *API) VerifyToken(w http.ResponseWriter, r *http.Request) {
	var req VerifyTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	fp := token.Fingerprint(req.RequesterIP, req.RequesterAgent)
	claims, err := a.tokenVerifier.Verify(req.Token, fp)
	if err != nil {
		resp := VerifyTokenResponse{Success: false}
		switch {
		case errors.Is(err, token.ErrTokenMissing):
			resp.Message = "no token provided"
		case errors.Is(err, token.ErrTokenExpired):
			resp.Message = "token has expired"
		case errors.Is(err, token.ErrIdentityMismatch):
			resp.Message = "identity mismatch"
			// Signature and expiry verified; the id is still reported.
			resp.ChallengeID = claims.ChallengeID
		default:
			resp.Message = "invalid token"
		}
		a.audit.log(AuditTokenRejected, r, slog.String("reason", resp.Message))
		writeJSON(w, http.StatusOK, resp)
		return
	}

	a.audit.logChallenge(AuditTokenVerified, r, claims.ChallengeID)
	writeJSON(w, http.StatusOK, VerifyTokenResponse{
		Success:     true,
		Message:     "CAPTCHA verified",
		ChallengeID: claims.ChallengeID,
	})
}

// Dashboard handles GET /dashboard: cross-session aggregates plus
// rendered pointer-path plots for the most recent resolved attempts.
func (a *API) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := a.analytics.Summarize()
	if err != nil {
		mapError(w, err)
		return
	}

	var plots []AttemptPlot
	err = a.store.ForEachSession(func(sess *captcha.Session) error {
		for i := range sess.Attempts {
			if len(plots) >= maxDashboardPlots {
				return nil
			}
			att := &sess.Attempts[i]
			if !att.Resolved() || len(att.Path) == 0 {
				continue
			}
			png, err := render.PathImage(att.Path, att.Success != nil && *att.Success)
			if err != nil {
				continue
			}
			plots = append(plots, AttemptPlot{
				SessionID: sess.ID,
				Success:   att.Success != nil && *att.Success,
				TimeTaken: att.TimeTaken,
				Image:     base64.StdEncoding.EncodeToString(png),
			})
		}
		return nil
	})
	if err != nil {
		mapError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardResponse{Summary: summary, Plots: plots})
}
