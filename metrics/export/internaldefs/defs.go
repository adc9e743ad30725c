package internaldefs

import (
	"github.com/drazzan/go2fa"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   go2fa.MetricID
	Name string
	Help string
}

// HistogramDef names one engine latency histogram for export.
type HistogramDef struct {
	ID   go2fa.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: go2fa.MetricLoginSuccess, Name: "go2fa_login_success_total", Help: "Successful login attempts."},
	{ID: go2fa.MetricLoginFailure, Name: "go2fa_login_failure_total", Help: "Failed login attempts."},
	{ID: go2fa.MetricLoginRateLimited, Name: "go2fa_login_rate_limited_total", Help: "Rate-limited login attempts."},
	{ID: go2fa.MetricSecondFactorRequired, Name: "go2fa_second_factor_required_total", Help: "Logins halted pending a second factor."},
	{ID: go2fa.MetricSetupRequested, Name: "go2fa_setup_requested_total", Help: "Two-factor setup requests."},
	{ID: go2fa.MetricVerifySuccess, Name: "go2fa_verify_success_total", Help: "Successful enrollment verifications."},
	{ID: go2fa.MetricVerifyFailure, Name: "go2fa_verify_failure_total", Help: "Failed enrollment verifications."},
	{ID: go2fa.MetricDisableSuccess, Name: "go2fa_disable_success_total", Help: "Two-factor disable operations."},
	{ID: go2fa.MetricDisableFailure, Name: "go2fa_disable_failure_total", Help: "Rejected two-factor disable attempts."},
	{ID: go2fa.MetricBackupCodeUsed, Name: "go2fa_backup_code_used_total", Help: "Backup codes consumed."},
	{ID: go2fa.MetricBackupCodeFailed, Name: "go2fa_backup_code_failed_total", Help: "Rejected backup code attempts."},
	{ID: go2fa.MetricBackupCodesGenerated, Name: "go2fa_backup_codes_generated_total", Help: "Backup code set generations."},
	{ID: go2fa.MetricRateLimitHit, Name: "go2fa_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
	{ID: go2fa.MetricStoreConflict, Name: "go2fa_store_conflict_total", Help: "Profile writes lost to a concurrent update."},
}

var HistogramDefs = []HistogramDef{
	{ID: go2fa.MetricVerifyLatency, Name: "go2fa_verify_latency_seconds", Help: "Verification latency histogram."},
}

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

// HistogramBoundSuffix mirrors HistogramBounds with characters legal in
// OTel instrument names.
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

// NormalizeBuckets pads or truncates a raw bucket slice to the fixed width.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
