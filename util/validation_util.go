// api/util/validation_util.go

package util

import (
	"fmt"
	"strings"

	"github.com/bastionhq/bastion/api/model"
)

type ValidationUtil struct{}

func NewValidationUtil() *ValidationUtil {
	return &ValidationUtil{}
}

func (v *ValidationUtil) ValidateCheckRequest(req model.CheckRequest) error {
	if req.Subject == "" {
		return fmt.Errorf("check subject cannot be empty")
	}
	if req.Resource == "" {
		return fmt.Errorf("check resource cannot be empty")
	}
	if req.Action == "" {
		return fmt.Errorf("check action cannot be empty")
	}
	if strings.ContainsAny(req.Subject, " \t\n") {
		return fmt.Errorf("check subject cannot contain whitespace")
	}
	return nil
}

func (v *ValidationUtil) ValidateBatchCheckRequest(req model.BatchCheckRequest) error {
	if req.Subject == "" {
		return fmt.Errorf("batch subject cannot be empty")
	}
	if len(req.Checks) == 0 {
		return fmt.Errorf("batch must contain at least one check")
	}
	for i, check := range req.Checks {
		if check.Resource == "" {
			return fmt.Errorf("check %d: resource cannot be empty", i)
		}
		if check.Action == "" {
			return fmt.Errorf("check %d: action cannot be empty", i)
		}
	}
	return nil
}

func (v *ValidationUtil) ValidateInvalidateRequest(req model.InvalidateRequest) error {
	if req.Subject == "" {
		return fmt.Errorf("invalidate subject cannot be empty")
	}
	// Resource and action travel together: a resource without an action
	// does not name one cached decision.
	if (req.Resource == "") != (req.Action == "") {
		return fmt.Errorf("invalidate resource and action must both be set or both be empty")
	}
	return nil
}
