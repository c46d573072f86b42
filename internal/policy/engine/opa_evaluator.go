package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	userdomain "laundry-ops/backend/internal/user/domain"
)

const admissionQuery = "data.laundry.channel_admission.allow"

// DefaultAdmissionPolicy is the Rego policy encoding the channel allow-sets.
const DefaultAdmissionPolicy = `package laundry.channel_admission

default allow := false

delivery_order_roles := {"admin", "super_admin", "driver"}

allow if {
	input.channel == "delivery-orders"
	delivery_order_roles[input.role]
}

allow if {
	input.channel == "driver-location"
	input.role == "driver"
}
`

// OPAEvaluator evaluates channel admission with an OPA Rego policy compiled once at construction.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles policy (DefaultAdmissionPolicy when empty) and prepares the allow query.
func NewOPAEvaluator(ctx context.Context, policy string) (*OPAEvaluator, error) {
	if policy == "" {
		policy = DefaultAdmissionPolicy
	}
	compiler, err := ast.CompileModules(map[string]string{"channel_admission.rego": policy})
	if err != nil {
		return nil, fmt.Errorf("compile admission policy: %w", err)
	}
	pq, err := rego.New(
		rego.Query(admissionQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare admission policy: %w", err)
	}
	return &OPAEvaluator{query: pq}, nil
}

// Allow implements AdmissionEvaluator.
func (e *OPAEvaluator) Allow(ctx context.Context, channel Channel, role userdomain.Role) (bool, error) {
	input := map[string]interface{}{
		"channel": string(channel),
		"role":    string(role),
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("eval admission policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, errors.New("admission policy returned no result")
	}
	allowed, ok := rs[0].Expressions[0].Value.(bool)
	if !ok {
		return false, fmt.Errorf("admission policy returned %T, want bool", rs[0].Expressions[0].Value)
	}
	return allowed, nil
}

// HealthCheck evaluates the prepared policy against a known input. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	allowed, err := e.Allow(ctx, ChannelDriverLocation, userdomain.RoleDriver)
	if err != nil {
		return err
	}
	if !allowed {
		return errors.New("admission policy denies driver on driver-location")
	}
	return nil
}
