/**
 * @description
 * This file implements the classification orchestrator. It combines the
 * service and resource-type classifiers with project-membership knowledge
 * and inventory-sourced resource types to produce the stored triple
 * {project_id, service_type, resource_type} for each raw billing line.
 *
 * Precedence for resource_type, highest first:
 *   1. domain is a known project id   -> cloud_project (+ project_id set)
 *   2. domain has an inventory entry  -> inventory value
 *   3. pattern inference over the domain string
 *
 * @dependencies
 * - internal/domain: enums and models.
 */

package classify

import (
	"github.com/cloudlens/billing-service/internal/domain"
)

// Classifier holds read-only snapshots of the project-membership set and
// the inventory override map for the duration of one import run. Safe for
// concurrent use once built.
type Classifier struct {
	projectIDs map[string]struct{}
	inventory  map[string]domain.ResourceType
}

// NewClassifier builds a Classifier from the current project list and an
// optional inventory map. Either input may be nil or empty; fewer
// overrides then apply and pattern inference decides.
func NewClassifier(projectIDs []string, inventory map[string]domain.ResourceType) *Classifier {
	idSet := make(map[string]struct{}, len(projectIDs))
	for _, id := range projectIDs {
		idSet[id] = struct{}{}
	}
	return &Classifier{projectIDs: idSet, inventory: inventory}
}

// Classify assigns project linkage, service category and resource type to
// one raw billing line. Deterministic for a fixed snapshot: the same
// (domain, description) always yields the identical triple, which makes
// re-imports reproduce byte-identical classified rows.
func (c *Classifier) Classify(dom, description string) (projectID *string, serviceType domain.ServiceCategory, resourceType domain.ResourceType) {
	serviceType = ClassifyService(description)

	if _, ok := c.projectIDs[dom]; ok {
		d := dom
		return &d, serviceType, domain.ResourceCloudProject
	}
	if rt, ok := c.inventory[dom]; ok {
		return nil, serviceType, rt
	}
	return nil, serviceType, ClassifyResourceType(dom)
}
