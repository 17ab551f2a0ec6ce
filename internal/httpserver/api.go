package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/divyamohan1993/project-orchestrator/internal/logic/orchestrator"
)

type deployRequest struct {
	RequesterName string `json:"requester_name"`
	Contact       string `json:"contact"`
	Organization  string `json:"organization"`
	CaptchaToken  string `json:"captcha_token"`
}

type deployResponse struct {
	Name         string    `json:"name"`
	ExternalAddr *string   `json:"external_addr"`
	Port         int       `json:"port"`
	ExpiresAt    time.Time `json:"expires_at"`
}

type instanceStatusResponse struct {
	Status       string     `json:"status"`
	Name         string     `json:"name,omitempty"`
	ExternalAddr *string    `json:"external_addr,omitempty"`
	Port         int        `json:"port,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

type terminateResponse struct {
	Terminated []string `json:"terminated"`
}

type rateLimitResponse struct {
	Allowed   bool       `json:"allowed"`
	Remaining int        `json:"remaining"`
	Ceiling   int        `json:"ceiling"`
	ResetAt   *time.Time `json:"reset_at,omitempty"`
}

type projectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	GitHubURL   string `json:"github_url"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
	instanceStatusResponse
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "projectID")

	var req deployRequest

	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		s.writeError(ctx, w, http.StatusBadRequest, "invalid_request", "malformed JSON body")

		return
	}

	score, err := s.verifier.Verify(ctx, req.CaptchaToken, r.RemoteAddr)
	if err != nil {
		var rejected verificationFailed
		if errors.As(err, &rejected) {
			s.writeError(ctx, w, http.StatusForbidden, "verification_failed", err.Error())

			return
		}

		s.logger.ErrorContext(ctx, "verification oracle unavailable", "reason", err)
		s.writeError(ctx, w, http.StatusBadGateway, "verification_unavailable", "try again later")

		return
	}

	requester := orchestrator.Requester{
		Name:         req.RequesterName,
		Contact:      req.Contact,
		Organization: req.Organization,
		SourceAddr:   r.RemoteAddr,
		TrustScore:   score,
	}

	result, err := s.orchestrator.Deploy(ctx, projectID, requester, time.Now())
	if err != nil {
		s.writeDeployError(w, r, err)

		return
	}

	s.writeJSON(ctx, w, http.StatusOK, deployResponse{
		Name:         result.Name,
		ExternalAddr: optional(result.ExternalAddr),
		Port:         result.Port,
		ExpiresAt:    result.ExpiresAt,
	})
}

func (s *Server) writeDeployError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var rateLimited *orchestrator.RateLimitedError
	var gatewayErr *orchestrator.GatewayError

	switch {
	case errors.Is(err, orchestrator.ErrInvalidProject):
		s.writeError(ctx, w, http.StatusBadRequest, "invalid_project", "unknown project identifier")
	case errors.As(err, &rateLimited):
		s.writeJSON(ctx, w, http.StatusTooManyRequests, rateLimitResponse{
			Allowed:   false,
			Remaining: rateLimited.Remaining,
			Ceiling:   rateLimited.Ceiling,
			ResetAt:   &rateLimited.ResetAt,
		})
	case errors.As(err, &gatewayErr):
		s.logger.ErrorContext(ctx, "deploy gateway failure", "reason", err)
		s.writeError(ctx, w, http.StatusBadGateway, "gateway_error", "instance creation failed")
	default:
		s.logger.ErrorContext(ctx, "deploy failure", "reason", err)
		s.writeError(ctx, w, http.StatusInternalServerError, "internal_error", "deploy failed")
	}
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	terminated := s.orchestrator.Evict(ctx)
	if terminated == nil {
		terminated = []string{}
	}

	s.writeJSON(ctx, w, http.StatusOK, terminateResponse{Terminated: terminated})
}

func (s *Server) handleProjectStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID := chi.URLParam(r, "projectID")

	result, err := s.orchestrator.Status(ctx, projectID)
	if err != nil {
		s.logger.ErrorContext(ctx, "status gateway failure", "project", projectID, "reason", err)
		s.writeError(ctx, w, http.StatusBadGateway, "gateway_error", "status check failed")

		return
	}

	s.writeJSON(ctx, w, http.StatusOK, statusPayload(result))
}

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	projects := s.catalog.List()
	out := make([]projectResponse, 0, len(projects))

	for _, p := range projects {
		entry := projectResponse{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			GitHubURL:   p.GitHubURL,
			Icon:        p.Icon,
			Category:    p.Category,
		}

		result, err := s.orchestrator.Status(ctx, p.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "project status", "project", p.ID, "reason", err)

			entry.instanceStatusResponse = instanceStatusResponse{
				Status: orchestrator.PhaseNotRunning.APIStatus(),
			}
		} else {
			entry.instanceStatusResponse = statusPayload(result)
		}

		out = append(out, entry)
	}

	s.writeJSON(ctx, w, http.StatusOK, out)
}

func (s *Server) handleRateLimit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	decision, err := s.limiter.CheckAdmission(time.Now())
	if err != nil {
		s.logger.ErrorContext(ctx, "rate limit inspection", "reason", err)
		s.writeError(ctx, w, http.StatusInternalServerError, "internal_error", "rate limit unavailable")

		return
	}

	resp := rateLimitResponse{
		Allowed:   decision.Allowed,
		Remaining: decision.Remaining,
		Ceiling:   decision.Ceiling,
	}
	if !decision.ResetAt.IsZero() {
		resp.ResetAt = &decision.ResetAt
	}

	s.writeJSON(ctx, w, http.StatusOK, resp)
}

func statusPayload(result *orchestrator.StatusResult) instanceStatusResponse {
	resp := instanceStatusResponse{Status: result.Phase.APIStatus()}

	if result.Phase == orchestrator.PhaseNotRunning {
		return resp
	}

	resp.Name = result.Name
	resp.ExternalAddr = optional(result.ExternalAddr)
	resp.Port = result.Port
	resp.ExpiresAt = &result.ExpiresAt

	return resp
}

// optional maps an empty string to null in JSON; the external address is
// absent until the provider assigns one.
func optional(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}
