package internaldefs

import (
	farmAuth "github.com/MrEthical07/farmAuth"
)

// CounterDef maps an engine counter to its exported name.
type CounterDef struct {
	ID   farmAuth.MetricID
	Name string
	Help string
}

// HistogramDef maps an engine latency histogram to its exported name.
type HistogramDef struct {
	ID   farmAuth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: farmAuth.MetricLoginSuccess, Name: "farmauth_login_success_total", Help: "Successful sign-ins."},
	{ID: farmAuth.MetricLoginFailure, Name: "farmauth_login_failure_total", Help: "Sign-ins rejected for invalid credentials."},
	{ID: farmAuth.MetricLoginRateLimited, Name: "farmauth_login_rate_limited_total", Help: "Sign-ins refused by the rate limiter."},
	{ID: farmAuth.MetricCredentialsUnavailable, Name: "farmauth_credentials_unavailable_total", Help: "Sign-ins that could not be checked because the credential backend failed."},
	{ID: farmAuth.MetricRegisterSuccess, Name: "farmauth_register_success_total", Help: "Accounts created."},
	{ID: farmAuth.MetricRegisterInvalid, Name: "farmauth_register_invalid_total", Help: "Registrations rejected by validation."},
	{ID: farmAuth.MetricRegisterConflict, Name: "farmauth_register_conflict_total", Help: "Registrations rejected for a duplicate email."},
	{ID: farmAuth.MetricRegisterRateLimited, Name: "farmauth_register_rate_limited_total", Help: "Registrations refused by the rate limiter."},
	{ID: farmAuth.MetricRegisterFailure, Name: "farmauth_register_failure_total", Help: "Registrations that failed in the user store."},
	{ID: farmAuth.MetricLogout, Name: "farmauth_logout_total", Help: "Sign-outs."},
	{ID: farmAuth.MetricSessionIssued, Name: "farmauth_session_issued_total", Help: "Session tokens minted."},
	{ID: farmAuth.MetricSessionRefreshed, Name: "farmauth_session_refreshed_total", Help: "Session tokens re-issued by sliding expiration."},
	{ID: farmAuth.MetricSessionInvalid, Name: "farmauth_session_invalid_total", Help: "Session tokens that failed to decode."},
	{ID: farmAuth.MetricRateLimitHit, Name: "farmauth_rate_limit_hit_total", Help: "Rate-limit checks that denied a request."},
	{ID: farmAuth.MetricRateLimitStoreError, Name: "farmauth_rate_limit_store_error_total", Help: "Counter store failures."},
	{ID: farmAuth.MetricAccessAllowed, Name: "farmauth_access_allowed_total", Help: "Requests allowed by the access controller."},
	{ID: farmAuth.MetricAccessRedirectLogin, Name: "farmauth_access_redirect_login_total", Help: "Requests redirected to the login page."},
	{ID: farmAuth.MetricAccessRedirectLanding, Name: "farmauth_access_redirect_landing_total", Help: "Requests redirected to the landing page."},
	{ID: farmAuth.MetricAccessRejected, Name: "farmauth_access_rejected_total", Help: "API requests answered 401 or 403."},
	{ID: farmAuth.MetricAccessRecovered, Name: "farmauth_access_recovered_total", Help: "Access decisions that recovered from an internal failure."},
}

// HistogramDefs lists the latency histograms.
var HistogramDefs = []HistogramDef{
	{ID: farmAuth.MetricLoginLatency, Name: "farmauth_login_latency_seconds", Help: "Sign-in latency."},
	{ID: farmAuth.MetricDecideLatency, Name: "farmauth_decide_latency_seconds", Help: "Access decision latency."},
}

// HistogramBounds are the upper bounds, in seconds, of the eight engine buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix is HistogramBounds rendered for metric names.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero-filling or
// truncating as needed.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
