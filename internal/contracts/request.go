package contracts

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest wraps every RunRequest validation failure
var ErrInvalidRequest = errors.New("invalid run request")

// Trigger sources
const (
	TriggerManual   = "manual"
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// ReportFormats lists the output extensions a report writer exists for
// ⭐ SSOT: 보고서 출력 형식 목록 (report.WriterFor 와 동일하게 유지)
var ReportFormats = []string{".xlsx", ".csv", ".pdf"}

// IsReportFormat reports whether path ends in a supported report extension
func IsReportFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, f := range ReportFormats {
		if ext == f {
			return true
		}
	}
	return false
}

// NormalizeIDs trims ids, drops blanks and upper-cases the rest
func NormalizeIDs(ids []string) []string {
	var out []string
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, strings.ToUpper(id))
		}
	}
	return out
}

var validate = validator.New()

// RunRequest is one submission from the observer
// ⭐ SSOT: 분석 실행 요청 (CLI, API, 스케줄러 공통)
type RunRequest struct {
	RunID string `json:"run_id"`
	// Securities 가 비어 있으면 실행 시점에 SecuritySource 로 전체 종목을 조회
	Securities []string  `json:"securities,omitempty"`
	Analyzers  []string  `json:"analyzers" validate:"min=1,dive,required"`
	TimeRange  TimeRange `json:"time_range"`
	Options    Options   `json:"options"`
	OutputPath string    `json:"output_path" validate:"required"`
	Trigger    string    `json:"trigger" default:"manual" validate:"oneof=manual api schedule"`
}

// Validate fills defaults and checks the request before it is queued
func (r *RunRequest) Validate(ctx context.Context) error {
	r.OutputPath = strings.TrimSpace(r.OutputPath)

	if err := defaults.Set(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	if err := validate.StructCtx(ctx, r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	// 계산이 끝난 뒤 보고서 단계에서 실패하지 않도록 제출 시점에 거부
	if !IsReportFormat(r.OutputPath) {
		return fmt.Errorf("%w: OutputPath must end in one of: %s",
			ErrInvalidRequest, strings.Join(ReportFormats, ", "))
	}

	return nil
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min":
		return fmt.Sprintf("%s must have at least %s item(s)", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s failed validation: %s", fe.Field(), fe.Tag())
	}
}

// Completion is the single notification delivered to the observer when a run ends
type Completion struct {
	RunID      string        `json:"run_id"`
	Elapsed    time.Duration `json:"elapsed"`
	OutputPath string        `json:"output_path"`
	Results    int           `json:"results"`
	Err        error         `json:"-"`
}

// Succeeded reports whether the run produced its report
func (c Completion) Succeeded() bool {
	return c.Err == nil
}

// ErrorString returns the error text or ""
func (c Completion) ErrorString() string {
	if c.Err == nil {
		return ""
	}
	return c.Err.Error()
}
