package auth

import (
	"errors"

	"github.com/baechuer/user-service/internal/domain"
)

func domainCode(err error) string {
	if err == nil {
		return ""
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "non_domain_error"
}

// auditFn returns a closure that emits one audit entry for action with the
// given base fields plus result and error code.
func (s *Service) auditFn(action string, base map[string]string) func(result string, err error) {
	return func(result string, err error) {
		fields := make(map[string]string, len(base)+2)
		for k, v := range base {
			fields[k] = v
		}
		fields["result"] = result
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		s.audit(action, fields)
	}
}
