package workflow

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/creative-board/internal/domain"
)

// Policy lists which customer roles receive each capability.
type Policy struct {
	MoveRoles     []domain.CompanyRole `yaml:"move_roles"`
	EditRoles     []domain.CompanyRole `yaml:"edit_roles"`
	BillingRoles  []domain.CompanyRole `yaml:"billing_roles"`
	MarkDoneRoles []domain.CompanyRole `yaml:"mark_done_roles"`
}

// DefaultPolicy: OWNER and PM run the board, OWNER and BILLING handle billing.
func DefaultPolicy() Policy {
	return Policy{
		MoveRoles:     []domain.CompanyRole{domain.CompanyRoleOwner, domain.CompanyRolePM},
		EditRoles:     []domain.CompanyRole{domain.CompanyRoleOwner, domain.CompanyRolePM},
		BillingRoles:  []domain.CompanyRole{domain.CompanyRoleOwner, domain.CompanyRoleBilling},
		MarkDoneRoles: []domain.CompanyRole{domain.CompanyRoleOwner, domain.CompanyRolePM},
	}
}

// LoadPolicy reads a YAML policy file. Sections missing from the file keep
// their defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if strings.TrimSpace(path) == "" {
		return policy, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read workflow policy: %w", err)
	}
	return ParsePolicy(content)
}

// ParsePolicy decodes YAML policy content on top of DefaultPolicy.
func ParsePolicy(content []byte) (Policy, error) {
	var raw struct {
		MoveRoles     *[]string `yaml:"move_roles"`
		EditRoles     *[]string `yaml:"edit_roles"`
		BillingRoles  *[]string `yaml:"billing_roles"`
		MarkDoneRoles *[]string `yaml:"mark_done_roles"`
	}
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return Policy{}, fmt.Errorf("decode workflow policy: %w", err)
	}

	policy := DefaultPolicy()
	var err error
	if raw.MoveRoles != nil {
		if policy.MoveRoles, err = parseRoles("move_roles", *raw.MoveRoles); err != nil {
			return Policy{}, err
		}
	}
	if raw.EditRoles != nil {
		if policy.EditRoles, err = parseRoles("edit_roles", *raw.EditRoles); err != nil {
			return Policy{}, err
		}
	}
	if raw.BillingRoles != nil {
		if policy.BillingRoles, err = parseRoles("billing_roles", *raw.BillingRoles); err != nil {
			return Policy{}, err
		}
	}
	if raw.MarkDoneRoles != nil {
		if policy.MarkDoneRoles, err = parseRoles("mark_done_roles", *raw.MarkDoneRoles); err != nil {
			return Policy{}, err
		}
	}
	return policy, nil
}

// WithMarkDoneRoles overrides the mark-done roles when names is non-empty.
func (p Policy) WithMarkDoneRoles(names []string) (Policy, error) {
	if len(names) == 0 {
		return p, nil
	}
	roles, err := parseRoles("mark_done_roles", names)
	if err != nil {
		return Policy{}, err
	}
	p.MarkDoneRoles = roles
	return p, nil
}

func parseRoles(field string, names []string) ([]domain.CompanyRole, error) {
	roles := make([]domain.CompanyRole, 0, len(names))
	for _, name := range names {
		role := domain.ParseCompanyRole(name)
		if !role.Valid() {
			return nil, fmt.Errorf("%s: unknown company role %q", field, name)
		}
		roles = append(roles, role)
	}
	return roles, nil
}
