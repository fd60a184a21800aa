package monitor

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// 错误中的字段名使用 json 标签
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		validate.RegisterStructValidation(vulnerabilityCountsValidation, VulnerabilityCounts{})
	})
	return validate
}

// vulnerabilityCountsValidation total 必须等于四个严重级别之和
func vulnerabilityCountsValidation(sl validator.StructLevel) {
	counts := sl.Current().Interface().(VulnerabilityCounts)
	if counts.Total != counts.Sum() {
		sl.ReportError(counts.Total, "Total", "total", "sum", "")
	}
}

// ValidateSnapshot 只校验结构不变量：分值范围、漏洞计数之和、必填字段
// 不校验业务正确性(例如风险等级是否与分数匹配)
func ValidateSnapshot(s *SecuritySnapshot) error {
	if s == nil {
		return NewValidationError("snapshot", "is required")
	}
	if err := getValidator().Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return toValidationError(verrs[0])
		}
		return NewValidationError("snapshot", "%v", err)
	}
	if strings.TrimSpace(s.TenantID) == "" {
		return NewValidationError("tenant_id", "is required")
	}
	return nil
}

// toValidationError 把 validator 的字段错误转成领域校验错误
func toValidationError(fe validator.FieldError) *ValidationError {
	field := fieldName(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return NewValidationError(field, "is required")
	case "gte", "lte":
		return NewValidationError(field, "value %v out of range", fe.Value())
	case "oneof":
		return NewValidationError(field, "must be one of [%s]", fe.Param())
	case "sum":
		return NewValidationError(field, "must equal critical+high+medium+low")
	case "max":
		return NewValidationError(field, "exceeds max length %s", fe.Param())
	default:
		return NewValidationError(field, "failed %s validation", fe.Tag())
	}
}

// fieldName SecuritySnapshot.vulnerability_counts.total -> vulnerability_counts.total
func fieldName(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}
