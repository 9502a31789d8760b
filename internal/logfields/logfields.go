package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyDomain     = "domain"
	KeyRepo       = "repository"
	KeyOwner      = "owner"
	KeyUsername   = "username"
	KeyCommitSHA  = "commit_sha"
	KeyRecordID   = "record_id"
	KeySettlement = "settlement_id"
	KeyPrincipal  = "principal"
	KeyGlob       = "glob"
	KeyAttempt    = "attempt"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
	KeyMethod     = "method"
	KeyPath       = "path"
	KeyStatus     = "status"
	KeyUserAgent  = "user_agent"
	KeyRemoteAddr = "remote_addr"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr         { return slog.String(KeyRunID, id) }
func Domain(d string) slog.Attr         { return slog.String(KeyDomain, d) }
func Repository(r string) slog.Attr     { return slog.String(KeyRepo, r) }
func Owner(o string) slog.Attr          { return slog.String(KeyOwner, o) }
func Username(u string) slog.Attr       { return slog.String(KeyUsername, u) }
func CommitSHA(sha string) slog.Attr    { return slog.String(KeyCommitSHA, sha) }
func RecordID(id string) slog.Attr      { return slog.String(KeyRecordID, id) }
func SettlementID(id string) slog.Attr  { return slog.String(KeySettlement, id) }
func Principal(addr string) slog.Attr   { return slog.String(KeyPrincipal, addr) }
func Glob(g string) slog.Attr           { return slog.String(KeyGlob, g) }
func Attempt(n int) slog.Attr           { return slog.Int(KeyAttempt, n) }
func DurationMS(ms float64) slog.Attr   { return slog.Float64(KeyDurationMS, ms) }
func Method(m string) slog.Attr         { return slog.String(KeyMethod, m) }
func Path(p string) slog.Attr           { return slog.String(KeyPath, p) }
func Status(code int) slog.Attr         { return slog.Int(KeyStatus, code) }
func UserAgent(ua string) slog.Attr     { return slog.String(KeyUserAgent, ua) }
func RemoteAddr(addr string) slog.Attr  { return slog.String(KeyRemoteAddr, addr) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
