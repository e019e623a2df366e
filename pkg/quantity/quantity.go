// Package quantity converts resource quantity strings as rendered by the
// cluster API ("250m", "2", "16252928Ki", "128Mi") into canonical numeric
// units: integer millicores and mebibytes for declared resources, float
// variants for live usage samples.
package quantity

import (
	"strconv"
	"strings"

	kgerrors "github.com/kubegraph/kubegraph/pkg/errors"
)

const (
	bytesPerMiB   = 1024 * 1024
	nanosPerMilli = 1_000_000
)

var memoryScales = []struct {
	suffix string
	factor float64
}{
	{"KI", 1.0 / 1024},
	{"MI", 1},
	{"GI", 1024},
	{"TI", 1024 * 1024},
}

// CPUMillicores parses a CPU quantity into integer millicores.
//
// Accepted forms: empty or "0" (zero), "<int>m" (millicores), "<int>n"
// (nanocores, divided down), or a bare core count ("2", "1.5") multiplied by
// 1000 and truncated.
func CPUMillicores(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "0" {
		return 0, nil
	}

	switch {
	case strings.HasSuffix(s, "m"):
		n, err := strconv.ParseInt(strings.TrimSuffix(s, "m"), 10, 64)
		if err != nil {
			return 0, kgerrors.Newf(kgerrors.ErrCodeQuantityParse, "invalid cpu quantity %q", raw)
		}
		return n, nil
	case strings.HasSuffix(s, "n"):
		n, err := strconv.ParseInt(strings.TrimSuffix(s, "n"), 10, 64)
		if err != nil {
			return 0, kgerrors.Newf(kgerrors.ErrCodeQuantityParse, "invalid cpu quantity %q", raw)
		}
		return n / nanosPerMilli, nil
	default:
		cores, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, kgerrors.Newf(kgerrors.ErrCodeQuantityParse, "invalid cpu quantity %q", raw)
		}
		return int64(cores * 1000), nil
	}
}

// CPUMillicoresFloat parses a CPU quantity into fractional millicores.
// Usage samples arrive at nanocore granularity ("156423n"), which integer
// truncation would zero out.
func CPUMillicoresFloat(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "0" {
		return 0, nil
	}

	switch {
	case strings.HasSuffix(s, "m"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "m"), 64)
		if err != nil {
			return 0, kgerrors.Newf(kgerrors.ErrCodeQuantityParse, "invalid cpu quantity %q", raw)
		}
		return v, nil
	case strings.HasSuffix(s, "n"):
		v, err := strconv.ParseFloat(strings.TrimSuffix(s, "n"), 64)
		if err != nil {
			return 0, kgerrors.Newf(kgerrors.ErrCodeQuantityParse, "invalid cpu quantity %q", raw)
		}
		return v / nanosPerMilli, nil
	default:
		cores, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, kgerrors.Newf(kgerrors.ErrCodeQuantityParse, "invalid cpu quantity %q", raw)
		}
		return cores * 1000, nil
	}
}

// MemoryMiB parses a memory quantity into integer mebibytes.
//
// Two-letter binary suffixes Ki, Mi, Gi, Ti are matched case-insensitively
// and scaled to MiB; a bare number is a byte count divided by 1024*1024.
// Results truncate toward zero.
func MemoryMiB(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "0" {
		return 0, nil
	}

	upper := strings.ToUpper(s)
	for _, sc := range memoryScales {
		if !strings.HasSuffix(upper, sc.suffix) {
			continue
		}
		v, err := strconv.ParseFloat(s[:len(s)-len(sc.suffix)], 64)
		if err != nil {
			return 0, kgerrors.Newf(kgerrors.ErrCodeQuantityParse, "invalid memory quantity %q", raw)
		}
		return int64(v * sc.factor), nil
	}

	b, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, kgerrors.Newf(kgerrors.ErrCodeQuantityParse, "invalid memory quantity %q", raw)
	}
	return b / bytesPerMiB, nil
}

// MemoryMiBFloat parses a memory quantity into fractional mebibytes.
func MemoryMiBFloat(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" || s == "0" {
		return 0, nil
	}

	upper := strings.ToUpper(s)
	for _, sc := range memoryScales {
		if !strings.HasSuffix(upper, sc.suffix) {
			continue
		}
		v, err := strconv.ParseFloat(s[:len(s)-len(sc.suffix)], 64)
		if err != nil {
			return 0, kgerrors.Newf(kgerrors.ErrCodeQuantityParse, "invalid memory quantity %q", raw)
		}
		return v * sc.factor, nil
	}

	b, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, kgerrors.Newf(kgerrors.ErrCodeQuantityParse, "invalid memory quantity %q", raw)
	}
	return b / bytesPerMiB, nil
}
