package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"git.home.luguber.info/inful/attestbot/internal/attest"
	"git.home.luguber.info/inful/attestbot/internal/foundation/errors"
	"git.home.luguber.info/inful/attestbot/internal/logfields"
	"git.home.luguber.info/inful/attestbot/internal/watch"
)

// attestRequest asks for one concrete commit to be matched and attested.
type attestRequest struct {
	Domain     string `json:"domain,omitempty"`
	RepoOwner  string `json:"repoOwner"`
	RepoName   string `json:"repoName"`
	CommitHash string `json:"commitHash"`
}

// attestResponse mirrors the submitter's terminal state.
type attestResponse struct {
	Success      bool   `json:"success"`
	Outcome      string `json:"outcome"`
	RecordID     string `json:"recordId,omitempty"`
	SettlementID string `json:"settlementId,omitempty"`
	CommitSHA    string `json:"commitSha"`
	Username     string `json:"username,omitempty"`
}

// handleAttest runs the single-commit variant of the pipeline: fetch the
// commit, reject it if the ledger already holds a record for its sha,
// match it against the registered identities, consult the quota, submit.
func (s *Server) handleAttest(w http.ResponseWriter, r *http.Request) {
	var req attestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, errors.ValidationError("malformed request body").WithCause(err).Build())
		return
	}
	if req.RepoOwner == "" || req.RepoName == "" || req.CommitHash == "" {
		s.errorAdapter.WriteErrorResponse(w, r,
			errors.ValidationError("repoOwner, repoName and commitHash are required").Build())
		return
	}

	domain := req.Domain
	if domain == "" {
		domains := s.deps.Registry.Domains()
		if len(domains) != 1 {
			s.errorAdapter.WriteErrorResponse(w, r,
				errors.ValidationError("domain is required when more than one forge is configured").Build())
			return
		}
		domain = domains[0]
	}

	client, ok := s.deps.Registry.ByDomain(domain)
	if !ok {
		s.errorAdapter.WriteErrorResponse(w, r,
			errors.NotFoundError("no forge configured for domain").WithContext("domain", domain).Build())
		return
	}

	commit, err := client.GetCommit(r.Context(), req.RepoOwner, req.RepoName, req.CommitHash)
	if err != nil {
		s.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	// Attestations postdate their commit, so the commit timestamp bounds
	// the ledger read. A failed read falls back to submitting, same as
	// the run loop.
	if shas, err := s.deps.Attested.SHAsSince(r.Context(), commit.Timestamp); err != nil {
		slog.Warn("ledger dedup read failed, proceeding without it", logfields.Error(err))
	} else if shas[strings.ToLower(commit.SHA)] {
		s.errorAdapter.WriteErrorResponse(w, r,
			errors.ValidationError("commit is already attested").
				WithContext("commit_sha", commit.SHA).
				Build())
		return
	}

	matcher := watch.NewMatcher(s.deps.Identities.Resolve(r.Context()))
	identity, ok := matcher.Match(*commit, nil)
	if !ok {
		s.errorAdapter.WriteErrorResponse(w, r,
			errors.NotFoundError("commit does not match a registered identity").
				WithContext("commit_sha", commit.SHA).
				Build())
		return
	}

	decision := s.deps.Limiter.Check(identity.PrincipalAddress)
	if !decision.Allowed {
		s.errorAdapter.WriteErrorResponse(w, r,
			errors.RateLimitError("submission quota exceeded").
				WithContext("window", decision.Reason).
				WithRetryAfter(decision.RetryAfter).
				Build())
		return
	}

	result := s.deps.Submitter.Submit(r.Context(), identity, *commit)
	if result.Outcome == attest.FatalForIdentity || result.Outcome == attest.Rejected {
		s.errorAdapter.WriteErrorResponse(w, r, result.Err)
		return
	}

	writeJSON(w, http.StatusOK, attestResponse{
		Success:      result.Success,
		Outcome:      string(result.Outcome),
		RecordID:     result.RecordID,
		SettlementID: result.SettlementID,
		CommitSHA:    commit.SHA,
		Username:     identity.Username,
	})
}
