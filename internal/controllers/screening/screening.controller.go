package screeningController

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"eyeshield/config"
	"eyeshield/internal/logger"
	. "eyeshield/internal/models"
	"eyeshield/internal/repositories"
	"eyeshield/internal/utils"
)

var (
	ErrInvalidIntake  = errors.New("invalid patient intake")
	ErrInvalidImage   = errors.New("invalid fundus image")
	ErrAnalysisFailed = errors.New("image analysis failed")
)

const (
	MaxAge           = 120
	MaxDurationYears = 80
	MinHbA1c         = 4.0
	MaxHbA1c         = 15.0

	selectPlaceholder = "Select"
	sequenceDayLayout = "20060102"
)

var (
	Sexes          = []string{"", "Male", "Female", "Other"}
	Eyes           = []string{"", "Both Eyes", "Left Eye", "Right Eye"}
	DiabetesTypes  = []string{"", "Type 1", "Type 2", "Gestational", "Other"}
	ImageExtension = []string{".jpg", ".jpeg", ".png"}
)

// Intake is the patient information captured before an image is taken.
type Intake struct {
	Name          string   `json:"name"          form:"name"`
	Birthdate     string   `json:"birthdate"     form:"birthdate"`
	Sex           string   `json:"sex"           form:"sex"`
	Contact       string   `json:"contact"       form:"contact"`
	Eye           string   `json:"eye"           form:"eye"`
	DiabetesType  string   `json:"diabetesType"  form:"diabetesType"`
	DurationYears int      `json:"durationYears" form:"durationYears"`
	HbA1c         *float64 `json:"hba1c"         form:"hba1c"`
	PrevTreatment bool     `json:"prevTreatment" form:"prevTreatment"`
	Notes         string   `json:"notes"         form:"notes"`
}

type Analysis struct {
	Result     string  `json:"result"`
	Confidence string  `json:"confidence"`
	Finding    Finding `json:"finding"`
}

// Analyzer grades a fundus image.
type Analyzer interface {
	Analyze(ctx context.Context, imagePath string) (Analysis, error)
}

// StubAnalyzer stands in for the grading model and always reports no DR.
type StubAnalyzer struct{}

func (StubAnalyzer) Analyze(ctx context.Context, _ string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	result := "No DR Detected"
	return Analysis{
		Result:     result,
		Confidence: "Confidence: 93.8%",
		Finding:    ClassifyResult(result),
	}, nil
}

// ClassifyResult maps a grading label to a finding.
func ClassifyResult(label string) Finding {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "no dr detected":
		return FindingNegative
	case "mild dr", "moderate dr", "severe dr", "proliferative dr":
		return FindingPositive
	}
	return FindingInconclusive
}

// RecordAppender is the part of the record store the workflow writes to.
type RecordAppender interface {
	Append(ctx context.Context, record ScreeningRecord) (ScreeningRecord, error)
}

type ScreeningController struct {
	store        RecordAppender
	sequenceRepo repositories.PatientSequenceRepository
	analyzer     Analyzer
	prefix       string
	now          func() time.Time
	log          logger.Logger
}

func New(
	store RecordAppender,
	sequenceRepo repositories.PatientSequenceRepository,
	analyzer Analyzer,
	config config.Config,
) *ScreeningController {
	if analyzer == nil {
		analyzer = StubAnalyzer{}
	}

	return &ScreeningController{
		store:        store,
		sequenceRepo: sequenceRepo,
		analyzer:     analyzer,
		prefix:       config.PatientIDPrefix,
		now:          time.Now,
		log:          logger.New("ScreeningController"),
	}
}

// PreviewPatientID returns the id the next screening will receive without
// drawing it. Two intakes open at once see the same preview; the id is only
// assigned when Screen saves.
func (c *ScreeningController) PreviewPatientID(ctx context.Context) (string, error) {
	log := c.log.Function("PreviewPatientID")

	day := c.now().Format(sequenceDayLayout)
	current, err := c.sequenceRepo.Current(ctx, day)
	if err != nil {
		return "", log.Err("failed to read patient sequence", err, "day", day)
	}

	return FormatPatientID(c.prefix, day, current+1), nil
}

// NextPatientID draws the next id of the day, PREFIX-YYYYMMDD-NNNN.
func (c *ScreeningController) NextPatientID(ctx context.Context) (string, error) {
	log := c.log.Function("NextPatientID")

	day := c.now().Format(sequenceDayLayout)
	next, err := c.sequenceRepo.Next(ctx, day)
	if err != nil {
		return "", log.Err("failed to draw patient id", err, "day", day)
	}

	return FormatPatientID(c.prefix, day, next), nil
}

func FormatPatientID(prefix, day string, sequence int) string {
	return fmt.Sprintf("%s-%s-%04d", prefix, day, sequence)
}

// Validate checks intake and returns the normalised record it describes,
// without an id or analysis.
func (c *ScreeningController) Validate(intake Intake) (ScreeningRecord, error) {
	today := c.now()

	name := strings.TrimSpace(intake.Name)
	if name == "" {
		return ScreeningRecord{}, invalid("patient name is required")
	}

	if strings.TrimSpace(intake.Birthdate) == "" {
		return ScreeningRecord{}, invalid("birthdate is required")
	}
	birth, err := utils.ParseBirthdate(intake.Birthdate, today)
	if err != nil {
		return ScreeningRecord{}, fmt.Errorf("%w: %w", ErrInvalidIntake, err)
	}

	record := ScreeningRecord{
		Name:      name,
		Birthdate: utils.FormatBirthdate(birth),
		Contact:   strings.TrimSpace(intake.Contact),
		Notes:     normalizeNewlines(strings.TrimSpace(intake.Notes)),
	}

	age := utils.AgeOn(birth, today)
	if age < 0 || age > MaxAge {
		return ScreeningRecord{}, invalid("age must be between 0 and %d, got %d", MaxAge, age)
	}
	if age > 0 {
		record.Age = &age
	}

	if record.Sex, err = oneOf("sex", intake.Sex, Sexes); err != nil {
		return ScreeningRecord{}, err
	}
	if record.Eye, err = oneOf("eye", intake.Eye, Eyes); err != nil {
		return ScreeningRecord{}, err
	}

	diabetesType := strings.TrimSpace(intake.DiabetesType)
	if diabetesType == selectPlaceholder {
		diabetesType = ""
	}
	if record.DiabetesType, err = oneOf("diabetes type", diabetesType, DiabetesTypes); err != nil {
		return ScreeningRecord{}, err
	}

	if intake.DurationYears < 0 || intake.DurationYears > MaxDurationYears {
		return ScreeningRecord{}, invalid("diabetes duration must be between 0 and %d years", MaxDurationYears)
	}
	record.DurationYears = intake.DurationYears

	if intake.HbA1c != nil {
		value := *intake.HbA1c
		if math.IsNaN(value) || value < MinHbA1c || value > MaxHbA1c {
			return ScreeningRecord{}, invalid("HbA1c must be between %.1f and %.1f", MinHbA1c, MaxHbA1c)
		}
		record.HbA1c = fmt.Sprintf("%.1f%%", value)
	}

	record.PrevTreatment = "No"
	if intake.PrevTreatment {
		record.PrevTreatment = "Yes"
	}

	return record, nil
}

func (c *ScreeningController) ValidateImage(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: no image loaded", ErrInvalidImage)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(ImageExtension, ext) {
		return fmt.Errorf("%w: unsupported extension %q", ErrInvalidImage, ext)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrInvalidImage, path)
	}

	return nil
}

// Screen validates intake and image, grades the image, draws a patient id
// and appends the finished record. No record is stored unless every step
// succeeds, but a failed append still consumes its sequence number, so the
// day's ids may have gaps.
func (c *ScreeningController) Screen(ctx context.Context, intake Intake, imagePath string) (ScreeningRecord, error) {
	log := c.log.Function("Screen")

	record, err := c.Validate(intake)
	if err != nil {
		return ScreeningRecord{}, err
	}
	if err := c.ValidateImage(imagePath); err != nil {
		return ScreeningRecord{}, err
	}

	analysis, err := c.analyzer.Analyze(ctx, imagePath)
	if err != nil {
		log.Er("analysis failed", err, "image", imagePath)
		return ScreeningRecord{}, fmt.Errorf("%w: %w", ErrAnalysisFailed, err)
	}
	if analysis.Finding == FindingUnclassified || !analysis.Finding.Valid() {
		analysis.Finding = ClassifyResult(analysis.Result)
	}

	if record.PatientID, err = c.NextPatientID(ctx); err != nil {
		return ScreeningRecord{}, err
	}

	record.Result = analysis.Result
	record.Confidence = analysis.Confidence
	record.Finding = analysis.Finding

	saved, err := c.store.Append(ctx, record)
	if err != nil {
		return ScreeningRecord{}, log.Err("failed to save screening", err, "patientID", record.PatientID)
	}

	log.Info("screening saved", "patientID", saved.PatientID, "finding", saved.Finding)
	return saved, nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidIntake, fmt.Sprintf(format, args...))
}

func oneOf(field, value string, allowed []string) (string, error) {
	value = strings.TrimSpace(value)
	if !slices.Contains(allowed, value) {
		return "", invalid("%s %q is not one of %q", field, value, allowed[1:])
	}
	return value, nil
}

// normalizeNewlines turns CRLF and lone CR into LF so notes read back from a
// CSV export unchanged.
func normalizeNewlines(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}
