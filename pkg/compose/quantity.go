package compose

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/docker/go-units"
)

// MemoryQuantity is a parsed memory value: either an absolute size in
// bytes or a percentage of host memory. Exactly one of the fields is set.
type MemoryQuantity struct {
	// Bytes is the absolute size in bytes; 0 when the value is a percentage.
	Bytes int64

	// Percent is the percentage of host memory; 0 when the value is absolute.
	Percent int
}

// ParseMemoryQuantity parses a memory limit value: a size with unit
// ("2GB", "512MiB") or a percentage ("50%"). The result must be positive.
func ParseMemoryQuantity(raw string) (MemoryQuantity, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return MemoryQuantity{}, fmt.Errorf("empty memory value")
	}

	if strings.HasSuffix(s, "%") {
		pct, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
		if err != nil {
			return MemoryQuantity{}, fmt.Errorf("invalid memory percentage %q", raw)
		}
		if pct <= 0 || pct > 100 {
			return MemoryQuantity{}, fmt.Errorf("memory percentage %q out of range (1-100)", raw)
		}
		return MemoryQuantity{Percent: pct}, nil
	}

	bytes, err := units.RAMInBytes(s)
	if err != nil {
		return MemoryQuantity{}, fmt.Errorf("invalid memory size %q", raw)
	}
	if bytes <= 0 {
		return MemoryQuantity{}, fmt.Errorf("memory size %q must be positive", raw)
	}
	return MemoryQuantity{Bytes: bytes}, nil
}

// ValidateMemorySwap checks a memory swap value: "true"/"false", or a
// memory quantity.
func ValidateMemorySwap(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "true" || s == "false" {
		return nil
	}
	_, err := ParseMemoryQuantity(s)
	return err
}

// ValidateCPULimit checks a cpu limit value: a positive core count ("2")
// or a core pinning set ("1-3", "0,2,4-7").
func ValidateCPULimit(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fmt.Errorf("empty cpu limit")
	}

	// Plain core count.
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return fmt.Errorf("cpu count %q must be positive", raw)
		}
		return nil
	}

	// Pinning set: comma-separated cores or ranges.
	for _, term := range strings.Split(s, ",") {
		if err := validateCoreTerm(term); err != nil {
			return fmt.Errorf("invalid cpu set %q: %w", raw, err)
		}
	}
	return nil
}

// validateCoreTerm checks one term of a cpu pinning set.
func validateCoreTerm(term string) error {
	low, high, isRange := strings.Cut(term, "-")

	lowN, err := strconv.Atoi(low)
	if err != nil || lowN < 0 {
		return fmt.Errorf("bad core number %q", term)
	}
	if !isRange {
		return nil
	}

	highN, err := strconv.Atoi(high)
	if err != nil || highN < 0 {
		return fmt.Errorf("bad core range %q", term)
	}
	if highN < lowN {
		return fmt.Errorf("descending core range %q", term)
	}
	return nil
}

// ValidateCPUAllowance checks a cpu allowance value: a percentage ("50%")
// or a scheduler time slice ("25ms/100ms").
func ValidateCPUAllowance(raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fmt.Errorf("empty cpu allowance")
	}

	if strings.HasSuffix(s, "%") && !strings.Contains(s, "/") {
		pct, err := strconv.Atoi(strings.TrimSuffix(s, "%"))
		if err != nil {
			return fmt.Errorf("invalid cpu allowance %q", raw)
		}
		if pct <= 0 || pct > 100 {
			return fmt.Errorf("cpu allowance %q out of range (1-100)", raw)
		}
		return nil
	}

	budget, period, ok := strings.Cut(s, "/")
	if !ok {
		return fmt.Errorf("invalid cpu allowance %q", raw)
	}
	budgetMs, err := parseMilliseconds(budget)
	if err != nil {
		return fmt.Errorf("invalid cpu allowance %q: %w", raw, err)
	}
	periodMs, err := parseMilliseconds(period)
	if err != nil {
		return fmt.Errorf("invalid cpu allowance %q: %w", raw, err)
	}
	if budgetMs > periodMs {
		return fmt.Errorf("cpu allowance %q budget exceeds period", raw)
	}
	return nil
}

// parseMilliseconds parses a positive "<n>ms" value.
func parseMilliseconds(s string) (int, error) {
	t := strings.TrimSpace(s)
	v := strings.TrimSuffix(t, "ms")
	if v == t {
		return 0, fmt.Errorf("missing ms suffix in %q", s)
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad duration %q", s)
	}
	return n, nil
}
