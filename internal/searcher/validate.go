package searcher

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinQueryLength is the minimum discriminating query length in characters.
const MinQueryLength = 30

// longQueryLength marks queries assumed specific enough to skip the generic
// text checks entirely.
const longQueryLength = 300

var (
	// ErrQueryTooShort rejects queries below MinQueryLength.
	ErrQueryTooShort = errors.New("query too short")
	// ErrQueryTooGeneric rejects boilerplate-only queries that would match
	// most of the corpus.
	ErrQueryTooGeneric = errors.New("query too generic")
)

// forbiddenRes match résumé header fragments that carry no search signal.
var forbiddenRes = []*regexp.Regexp{
	regexp.MustCompile(`резюме обновлено|желательное время в пути`),
	regexp.MustCompile(`(?s)^.*(занятость|график работы|специализации:).{0,100}$`),
}

// indicatorRes match fragments specific enough to identify a candidate:
// company suffixes, staffing counts, named duties.
var indicatorRes = []*regexp.Regexp{
	regexp.MustCompile(`ооо\s+[\p{L}\p{N}_]+`),
	regexp.MustCompile(`зао\s+[\p{L}\p{N}_]+`),
	regexp.MustCompile(`ао\s+[\p{L}\p{N}_]+`),
	regexp.MustCompile(`руководство\s+отделом`),
	regexp.MustCompile(`подбор\s+персонала`),
	regexp.MustCompile(`ведение\s+отчетности`),
	regexp.MustCompile(`формирование\s+бюджета`),
	regexp.MustCompile(`мониторинг\s+рынка`),
	regexp.MustCompile(`адаптация\s+сотрудников`),
	regexp.MustCompile(`\d+\s+человек`),
	regexp.MustCompile(`\d+\s+месяц`),
	regexp.MustCompile(`\d+\s+год`),
	regexp.MustCompile(`фортренд`),
	regexp.MustCompile(`эстетик лайн`),
	regexp.MustCompile(`call-центр`),
	regexp.MustCompile(`массовый подбор`),
}

// Validate rejects queries that are too short or too generic to search.
// Callers check queries before invoking the engine so users get a request
// for more specific text instead of an empty result list.
func Validate(query string) error {
	if utf8.RuneCountInString(query) < MinQueryLength {
		return ErrQueryTooShort
	}
	if TooGeneric(query) {
		return ErrQueryTooGeneric
	}
	return nil
}

// TooGeneric reports whether text is résumé boilerplate with too little
// unique content to discriminate between candidates. Long texts pass
// unconditionally; short ones need at least two unique indicators.
func TooGeneric(text string) bool {
	if utf8.RuneCountInString(text) > longQueryLength {
		return false
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	for _, re := range forbiddenRes {
		if re.MatchString(lower) {
			return true
		}
	}

	count := 0
	for _, re := range indicatorRes {
		if re.MatchString(lower) {
			count++
			if count >= 2 {
				return false
			}
		}
	}
	return true
}
