package dataset

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/iwvelando/fi-dashboard/pkg/constants"
)

// Names of the schema checks, in the order they run.
const (
	CheckRowCount            = "row_count"
	CheckRequiredColumns     = "required_columns"
	CheckObservationDateType = "observation_date_type"
	CheckRecordTypes         = "record_types"
	CheckConfidenceLevels    = "confidence_levels"
	CheckValueRanges         = "value_ranges"
	CheckRecentData          = "recent_data"
)

// AllChecks lists every check in run order.
var AllChecks = []string{
	CheckRowCount,
	CheckRequiredColumns,
	CheckObservationDateType,
	CheckRecordTypes,
	CheckConfidenceLevels,
	CheckValueRanges,
	CheckRecentData,
}

var (
	percentagePattern = regexp.MustCompile(`(?i)OWNERSHIP|ACCOUNT|PCT|USAGE`)
	positivePattern   = regexp.MustCompile(`(?i)TOTAL|ACCOUNTS`)
	countPattern      = regexp.MustCompile(`(?i)TOTAL`)
)

// recordValidate checks row-level rules declared in Record struct tags.
var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New()
	_ = recordValidate.RegisterValidation("confidence", confidenceRule)
}

func confidenceRule(fl validator.FieldLevel) bool {
	return isConfidenceLevel(fl.Field().String())
}

func isConfidenceLevel(value string) bool {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return true
	}
	for _, level := range constants.ConfidenceLevels {
		if normalized == level {
			return true
		}
	}
	return false
}

// ValidationOptions tunes the thresholds of the schema checks.
type ValidationOptions struct {
	MinRows       int
	RecentYear    int
	KeyIndicators []string
}

// DefaultValidationOptions returns the production thresholds.
func DefaultValidationOptions() ValidationOptions {
	return ValidationOptions{
		MinRows:       constants.MinEnrichedRows,
		RecentYear:    constants.RecentObservationYear,
		KeyIndicators: append([]string(nil), constants.KeyIndicators...),
	}
}

// Issue is one failed expectation.
type Issue struct {
	Check   string `json:"check"`
	Message string `json:"message"`
}

// Report collects the outcome of every check.
type Report struct {
	Checks []string `json:"checks"`
	Issues []Issue  `json:"issues,omitempty"`
}

// OK reports whether every check passed.
func (r Report) OK() bool { return len(r.Issues) == 0 }

// ByCheck groups issue messages by check name.
func (r Report) ByCheck() map[string][]string {
	grouped := make(map[string][]string)
	for _, issue := range r.Issues {
		grouped[issue.Check] = append(grouped[issue.Check], issue.Message)
	}
	return grouped
}

// Passed reports whether the named check produced no issues.
func (r Report) Passed(check string) bool {
	for _, issue := range r.Issues {
		if issue.Check == check {
			return false
		}
	}
	return true
}

// Err joins all issues into one error, or returns nil.
func (r Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, 0, len(r.Issues))
	for _, issue := range r.Issues {
		errs = append(errs, fmt.Errorf("%s: %s", issue.Check, issue.Message))
	}
	return errors.Join(errs...)
}

func (r *Report) add(check, format string, args ...interface{}) {
	r.Issues = append(r.Issues, Issue{Check: check, Message: fmt.Sprintf(format, args...)})
}

// Validate runs the schema checks over the enriched dataset.
func Validate(e *Enriched, opts ValidationOptions) Report {
	report := Report{Checks: append([]string(nil), AllChecks...)}
	records := e.Records()

	if e.Len() <= opts.MinRows {
		report.add(CheckRowCount, "expected more than %d rows, got %d", opts.MinRows, e.Len())
	}

	var missing []string
	for _, name := range RequiredColumns {
		if !e.HasColumn(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		report.add(CheckRequiredColumns, "missing columns: %s", strings.Join(missing, ", "))
	}

	if !e.HasColumn(ColumnObservationDate) {
		report.add(CheckObservationDateType, "observation_date column is absent")
	} else {
		undated := records.OfType(constants.RecordTypeObservation).Filter(func(r Record) bool { return !r.HasDate })
		if len(undated) > 0 {
			report.add(CheckObservationDateType, "%d observations have no observation_date (first at line %d)", len(undated), undated[0].Line)
		}
	}

	validateRecordTypes(&report, records)
	validateConfidenceLevels(&report, records)
	validateValueRanges(&report, records)
	validateRecentData(&report, records, opts)

	return report
}

func validateRecordTypes(report *Report, records Records) {
	for _, recordType := range []string{constants.RecordTypeObservation, constants.RecordTypeEvent} {
		if len(records.OfType(recordType)) == 0 {
			report.add(CheckRecordTypes, "no %s rows found", recordType)
		}
	}

	blank := 0
	for _, r := range records {
		if err := recordValidate.StructPartial(r, "RecordType"); err != nil {
			blank++
		}
	}
	if blank > 0 {
		report.add(CheckRecordTypes, "%d rows have an empty record_type", blank)
	}
}

func validateConfidenceLevels(report *Report, records Records) {
	invalid := make(map[string]struct{})
	for _, r := range records {
		err := recordValidate.StructPartial(r, "Confidence")
		if err == nil {
			continue
		}
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			invalid[strings.ToLower(strings.TrimSpace(r.Confidence))] = struct{}{}
		}
	}
	if len(invalid) == 0 {
		return
	}
	values := make([]string, 0, len(invalid))
	for v := range invalid {
		values = append(values, v)
	}
	sort.Strings(values)
	report.add(CheckConfidenceLevels, "invalid confidence values found: %s", strings.Join(values, ", "))
}

func validateValueRanges(report *Report, records Records) {
	var negativePct, overPct, nonPositive []string

	for _, r := range records {
		v, ok := r.Value()
		if !ok {
			continue
		}
		code := r.IndicatorCode
		if percentagePattern.MatchString(code) && !countPattern.MatchString(code) {
			if v < 0 {
				negativePct = append(negativePct, fmt.Sprintf("%s=%g (line %d)", code, v, r.Line))
			}
			if v > constants.PercentageMax {
				overPct = append(overPct, fmt.Sprintf("%s=%g (line %d)", code, v, r.Line))
			}
		}
		if positivePattern.MatchString(code) && v <= 0 {
			nonPositive = append(nonPositive, fmt.Sprintf("%s=%g (line %d)", code, v, r.Line))
		}
	}

	if len(negativePct) > 0 {
		report.add(CheckValueRanges, "negative percentage values found: %s", strings.Join(negativePct, "; "))
	}
	if len(overPct) > 0 {
		report.add(CheckValueRanges, "percentage values > 100 found: %s", strings.Join(overPct, "; "))
	}
	if len(nonPositive) > 0 {
		report.add(CheckValueRanges, "negative or zero total accounts found: %s", strings.Join(nonPositive, "; "))
	}
}

func validateRecentData(report *Report, records Records, opts ValidationOptions) {
	recent := records.OfType(constants.RecordTypeObservation).Filter(func(r Record) bool {
		return r.HasDate && r.ObservationDate.Year() >= opts.RecentYear
	})
	if len(recent) == 0 {
		report.add(CheckRecentData, "no observations from %d or later; forecasting will be unreliable", opts.RecentYear)
		return
	}

	if len(opts.KeyIndicators) == 0 {
		return
	}
	keys := make(map[string]struct{}, len(opts.KeyIndicators))
	for _, code := range opts.KeyIndicators {
		keys[code] = struct{}{}
	}
	if !recent.Any(func(r Record) bool {
		_, ok := keys[r.IndicatorCode]
		return ok
	}) {
		report.add(CheckRecentData, "no recent data for key indicators: %s", strings.Join(opts.KeyIndicators, ", "))
	}
}
