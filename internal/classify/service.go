/**
 * @description
 * This file implements the service-category classifier: a pure function
 * mapping a billing line's free-text description to one ServiceCategory.
 * Classification is an ordered list of substring rules evaluated
 * first-match-wins; rule order is load-bearing and must not be changed
 * without updating the precedence tests.
 *
 * @dependencies
 * - strings: Standard Go library.
 * - internal/domain: ServiceCategory enum.
 */

package classify

import (
	"strings"

	"github.com/cloudlens/billing-service/internal/domain"
)

// serviceRule binds one ServiceCategory to the predicate that selects it.
type serviceRule struct {
	category domain.ServiceCategory
	matches  func(desc string) bool
}

// anyOf reports whether desc contains at least one of the tokens.
func anyOf(desc string, tokens ...string) bool {
	for _, token := range tokens {
		if strings.Contains(desc, token) {
			return true
		}
	}
	return false
}

// serviceRules is evaluated top to bottom; the first matching rule wins.
var serviceRules = []serviceRule{
	{
		// GPU instances must classify as AI/ML, not Compute, so this rule
		// runs before the generic 'instance' token.
		category: domain.ServiceAIML,
		matches: func(desc string) bool {
			return anyOf(desc,
				"gpu", "l40s", "l4-", "a100", "v100", "t4", "h100",
				"ai ", " ml", "machine learning", "notebook", "training",
				"ai deploy", "ai training", "ai notebook")
		},
	},
	{
		// "Windows Server ... license" contains 'server'; Licenses must win.
		category: domain.ServiceLicenses,
		matches: func(desc string) bool {
			return anyOf(desc, "license", "licence")
		},
	},
	{
		category: domain.ServiceBackup,
		matches: func(desc string) bool {
			return anyOf(desc, "veeam", "backup")
		},
	},
	{
		category: domain.ServiceSupport,
		matches: func(desc string) bool {
			return anyOf(desc, "support", "management fee", "professional service")
		},
	},
	{
		// "Logs - Streams - Hot Storage" must classify as Database, so this
		// rule runs before Storage.
		category: domain.ServiceDatabase,
		matches: func(desc string) bool {
			return anyOf(desc,
				"database", "postgresql", "mysql", "mongodb", "redis", "kafka",
				"opensearch", "cassandra", "mariadb", "m3db", "grafana",
				"logs data platform", "elasticsearch", "timeseries",
				"logs -", "streams -")
		},
	},
	{
		// "Swift container" must classify as Storage, not Compute.
		category: domain.ServiceStorage,
		matches: func(desc string) bool {
			return anyOf(desc,
				"storage", "stockage", "bucket", "swift", "object", "archive",
				"snapshot", "disque", "volume", "disk", "s3", "cold archive",
				"high perf", "classic", "block storage", "additional disk",
				"datastore", "zpool")
		},
	},
	{
		category: domain.ServiceCompute,
		matches: func(desc string) bool {
			if anyOf(desc,
				"instance", "compute", "vm", "forfait mensuel",
				"consommation à l'heure", "kubernetes", "kube", "k8s",
				"managed kubernetes", "container", "registry", "worker node",
				"control plane", "serveur", "server", "vcpu", "ram ", "mémoire",
				// virtualization hosts
				"host ", "host rental", "esxi", "vsphere", "vmware",
				"premier 384", "premier 768", "premier rental",
				// bare-metal ranges
				"scale-", "advance-", "infra-", "hg-", "eg-", "mg-") {
				return true
			}
			// dedicated rentals referencing the Scale/Advance ranges
			return strings.Contains(desc, "rental for 1 month") &&
				(strings.Contains(desc, "scale") || strings.Contains(desc, "advance"))
		},
	},
	{
		category: domain.ServiceNetwork,
		matches: func(desc string) bool {
			return anyOf(desc,
				"network", "loadbalancer", "load balancer", "floating ip",
				"gateway", "bandwidth", "octavia", "private network", "vrack",
				"egress", "ingress", "traffic", "trafic", "ip failover",
				"additional ip", "public ip", "réseau", "outgoing",
				"ip v4 block", "ip block", "/27", "/28", "/29", "/30")
		},
	},
}

// ClassifyService maps a billing line description to its ServiceCategory.
// Total and deterministic: any input, including the empty string, resolves
// to a category, with Other as the fallback.
func ClassifyService(description string) domain.ServiceCategory {
	desc := strings.ToLower(description)
	for _, rule := range serviceRules {
		if rule.matches(desc) {
			return rule.category
		}
	}
	return domain.ServiceOther
}
