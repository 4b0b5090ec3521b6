package table

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/avvvet/chipledger-services/internal/ledgersvc/models"
)

var ErrInvalidChips = errors.New("chips must be a non-negative whole number")

// ParsePolicy converts raw chip input into a chip count.
type ParsePolicy func(raw string) (int, error)

// ParseStrict accepts only plain decimal digits, no sign, up to
// models.MaxChips.
func ParseStrict(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if s == "" || strings.IndexFunc(s, notDigit) >= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChips, raw)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > models.MaxChips {
		return 0, fmt.Errorf("%w: %q", ErrInvalidChips, raw)
	}
	return n, nil
}

// ParseLenient reads the leading digits of raw and treats anything
// unreadable, or negative, as zero chips declared. Counts above
// models.MaxChips are capped.
func ParseLenient(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	end := strings.IndexFunc(s, notDigit)
	if end < 0 {
		end = len(s)
	}
	if end == 0 {
		return 0, nil
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n > models.MaxChips {
		// only digits remain, so the error is an overflow
		return models.MaxChips, nil
	}
	return n, nil
}

func notDigit(r rune) bool {
	return r < '0' || r > '9'
}

// PolicyByName maps a config value to a policy; unknown names are strict.
func PolicyByName(name string) ParsePolicy {
	if strings.EqualFold(strings.TrimSpace(name), "lenient") {
		return ParseLenient
	}
	return ParseStrict
}
