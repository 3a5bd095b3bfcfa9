package engine

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/rs/zerolog/log"
)

const policyQuery = "data.otpauth.signin"

// DefaultRegoPolicy admits every email. A policy file replaces it and must
// declare the same package with boolean allow and optional string reason.
const DefaultRegoPolicy = `package otpauth.signin

default allow := true

default reason := ""
`

// OPAEvaluator evaluates the email sign-in policy using OPA Rego.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the given Rego modules, or DefaultRegoPolicy when none are given.
func NewOPAEvaluator(ctx context.Context, modules ...string) (*OPAEvaluator, error) {
	if len(modules) == 0 {
		modules = []string{DefaultRegoPolicy}
	}
	compiler, err := compile(modules)
	if err != nil {
		return nil, err
	}
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("policy: prepare: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// NewOPAEvaluatorFromFile reads a Rego policy from path. An empty path uses DefaultRegoPolicy.
func NewOPAEvaluatorFromFile(ctx context.Context, path string) (*OPAEvaluator, error) {
	if strings.TrimSpace(path) == "" {
		return NewOPAEvaluator(ctx)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("policy: read %s: %w", path, err)
	}
	return NewOPAEvaluator(ctx, string(b))
}

func compile(modules []string) (*ast.Compiler, error) {
	m := make(map[string]string, len(modules))
	for i, src := range modules {
		m[fmt.Sprintf("policy_%d.rego", i)] = src
	}
	compiler, err := ast.CompileModules(m)
	if err != nil {
		return nil, fmt.Errorf("policy: compile: %w", err)
	}
	return compiler, nil
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and evaluate the default policy.
// Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	compiler, err := compile([]string{DefaultRegoPolicy})
	if err != nil {
		return err
	}
	rs, err := rego.New(
		rego.Query(policyQuery+".allow"),
		rego.Compiler(compiler),
		rego.Input(buildInput("health@example.com")),
	).Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// AllowEmail evaluates the policy for email. Evaluation problems fail open:
// the email is allowed and a warning is logged.
func (e *OPAEvaluator) AllowEmail(ctx context.Context, email string) (Decision, error) {
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(email)))
	if err != nil {
		log.Warn().Err(err).Msg("policy: evaluation failed, allowing")
		return Decision{Allowed: true}, nil
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		log.Warn().Msg("policy: query returned no result, allowing")
		return Decision{Allowed: true}, nil
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		log.Warn().Msg("policy: unexpected result shape, allowing")
		return Decision{Allowed: true}, nil
	}
	allowed, ok := doc["allow"].(bool)
	if !ok {
		log.Warn().Msg("policy: allow is not a boolean, allowing")
		return Decision{Allowed: true}, nil
	}
	if allowed {
		return Decision{Allowed: true}, nil
	}
	reason, _ := doc["reason"].(string)
	if reason == "" {
		reason = "email not allowed"
	}
	return Decision{Allowed: false, Reason: reason}, nil
}

func buildInput(email string) map[string]interface{} {
	local, domain := email, ""
	if at := strings.LastIndex(email, "@"); at >= 0 {
		local, domain = email[:at], strings.ToLower(email[at+1:])
	}
	return map[string]interface{}{
		"email":  email,
		"local":  local,
		"domain": domain,
	}
}
