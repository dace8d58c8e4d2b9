// Package seed publishes the bundled tax policies into an empty database.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"taxengine/internal/logger"
	"taxengine/internal/repository"
	"taxengine/internal/service"

	"gopkg.in/yaml.v3"
)

//go:embed policies.yaml
var policiesYAML []byte

type policyFile struct {
	Policies []service.PublishPolicyRequest `yaml:"policies"`
}

type ScheduleCounter interface {
	Count(ctx context.Context) (int64, error)
}

type PolicyPublisher interface {
	PublishPolicy(ctx context.Context, req service.PublishPolicyRequest, userRef string) (service.PublishPolicyResponse, error)
}

// Policies parses the bundled policy file
func Policies() ([]service.PublishPolicyRequest, error) {
	return parse(policiesYAML)
}

func parse(data []byte) ([]service.PublishPolicyRequest, error) {
	var file policyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed policies: %w", err)
	}
	return file.Policies, nil
}

// Run publishes every bundled policy in order inside one transaction, so a failure leaves the
// database empty and the next start seeds again. It does nothing when any schedule exists.
func Run(ctx context.Context, txManager repository.TransactionManager, counter ScheduleCounter, publisher PolicyPublisher) error {
	count, err := counter.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count schedules: %w", err)
	}
	if count > 0 {
		logger.L.Info("seed skipped, schedules already published", "schedules", count)
		return nil
	}

	policies, err := Policies()
	if err != nil {
		return err
	}
	return txManager.RunInTx(ctx, func(txCtx context.Context) error {
		for _, p := range policies {
			if _, err := publisher.PublishPolicy(txCtx, p, ""); err != nil {
				return fmt.Errorf("failed to seed policy %s: %w", p.PolicyVersion, err)
			}
			logger.L.Info("seeded tax policy", "policy_version", p.PolicyVersion)
		}
		return nil
	})
}
