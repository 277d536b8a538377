package contracts

import (
	"fmt"
	"strings"
	"time"
)

// Options selects which result sources a run may use and which side effects it performs
// ⭐ SSOT: 결과 소스 우선순위 FromJSON > FromCache > Calc > skip
type Options struct {
	Calc        bool `json:"calc"`         // 캐시/스냅샷이 없으면 새로 계산
	FromCache   bool `json:"from_cache"`   // 캐시 조회 허용
	UpdateCache bool `json:"update_cache"` // 새로 계산한 결과만 캐시에 저장
	FromJSON    bool `json:"from_json"`    // 디버그 스냅샷 우선 (다른 소스 무시)
	DumpJSON    bool `json:"dump_json"`    // 결과가 있으면 스냅샷 파일로 저장
}

// Legacy bit values, kept for the --options flag and log output
const (
	maskCalc        = 1
	maskFromCache   = 2
	maskUpdateCache = 16
	maskFromJSON    = 1024
	maskDumpJSON    = 2048
)

// AutoOptions returns Calc | FromCache | UpdateCache
func AutoOptions() Options {
	return Options{Calc: true, FromCache: true, UpdateCache: true}
}

// ToggleOptions builds options from the two run toggles: force-calc skips the
// cache read, cache-result writes fresh computations back.
func ToggleOptions(forceCalc, cacheResult bool) Options {
	return Options{
		Calc:        true,
		FromCache:   !forceCalc,
		UpdateCache: cacheResult,
	}
}

// OptionsFromMask decodes the legacy bitmask
func OptionsFromMask(mask int) Options {
	return Options{
		Calc:        mask&maskCalc != 0,
		FromCache:   mask&maskFromCache != 0,
		UpdateCache: mask&maskUpdateCache != 0,
		FromJSON:    mask&maskFromJSON != 0,
		DumpJSON:    mask&maskDumpJSON != 0,
	}
}

// Mask encodes the options as the legacy bitmask
func (o Options) Mask() int {
	mask := 0
	if o.Calc {
		mask |= maskCalc
	}
	if o.FromCache {
		mask |= maskFromCache
	}
	if o.UpdateCache {
		mask |= maskUpdateCache
	}
	if o.FromJSON {
		mask |= maskFromJSON
	}
	if o.DumpJSON {
		mask |= maskDumpJSON
	}
	return mask
}

// String renders the set flags, e.g. "CALC|FROM_CACHE"
func (o Options) String() string {
	var parts []string
	if o.Calc {
		parts = append(parts, "CALC")
	}
	if o.FromCache {
		parts = append(parts, "FROM_CACHE")
	}
	if o.UpdateCache {
		parts = append(parts, "UPDATE_CACHE")
	}
	if o.FromJSON {
		parts = append(parts, "FROM_JSON")
	}
	if o.DumpJSON {
		parts = append(parts, "DUMP_JSON")
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// TimeRange is the analysis window. Since <= Until is the caller's responsibility.
type TimeRange struct {
	Since time.Time `json:"since"`
	Until time.Time `json:"until"`
}

// DefaultTimeRange returns [now - years, now]
func DefaultTimeRange(now time.Time, years int) TimeRange {
	return TimeRange{Since: now.AddDate(-years, 0, 0), Until: now}
}

// DateLayout is the date format accepted for since/until
const DateLayout = "2006-01-02"

// ParseTimeRange parses optional since/until dates. Blank values fall back to
// DefaultTimeRange(now, years).
func ParseTimeRange(since, until string, now time.Time, years int) (TimeRange, error) {
	tr := DefaultTimeRange(now, years)

	if strings.TrimSpace(since) != "" {
		t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(since), now.Location())
		if err != nil {
			return TimeRange{}, fmt.Errorf("%w: since %q (expected YYYY-MM-DD)", ErrInvalidRequest, since)
		}
		tr.Since = t
	}
	if strings.TrimSpace(until) != "" {
		t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(until), now.Location())
		if err != nil {
			return TimeRange{}, fmt.Errorf("%w: until %q (expected YYYY-MM-DD)", ErrInvalidRequest, until)
		}
		tr.Until = t
	}

	return tr, nil
}

// Key returns a stable string used in cache keys
func (tr TimeRange) Key() string {
	return fmt.Sprintf("%s_%s", tr.Since.Format("20060102"), tr.Until.Format("20060102"))
}

// String implements fmt.Stringer
func (tr TimeRange) String() string {
	return fmt.Sprintf("%s ~ %s", tr.Since.Format("2006-01-02"), tr.Until.Format("2006-01-02"))
}
