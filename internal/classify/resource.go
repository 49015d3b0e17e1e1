/**
 * @description
 * This file implements the resource-type classifier: a pure function
 * mapping a billing line's domain identifier to one ResourceType using an
 * ordered list of compiled regular expressions, most specific first.
 * Independent of the description-based service classifier.
 *
 * @dependencies
 * - regexp: Standard Go library.
 * - internal/domain: ResourceType enum.
 */

package classify

import (
	"regexp"

	"github.com/cloudlens/billing-service/internal/domain"
)

// resourceRule binds one ResourceType to the pattern that selects it.
type resourceRule struct {
	resourceType domain.ResourceType
	pattern      *regexp.Regexp
}

// resourceRules is evaluated top to bottom; the first matching pattern
// wins. The private-cloud sub-resource rules must precede the generic
// pcc- catch-all, and the UUID license rule must precede the dashless
// 32-hex cloud_project rule.
var resourceRules = []resourceRule{
	// Private cloud: management fee billed against the pcc itself.
	{domain.ResourcePrivateCloud, regexp.MustCompile(`^pcc-[^/]+/managementfee$`)},
	// Private cloud hosts: numeric host path or host addressed by IPv4.
	{domain.ResourcePrivateCloudHost, regexp.MustCompile(`^pcc-[^/]+/host/\d+$`)},
	{domain.ResourcePrivateCloudHost, regexp.MustCompile(`^pcc-[^/]+/\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)},
	// Private cloud datastores: zpool, ssd or nested pcc path suffixes.
	{domain.ResourcePrivateCloudDatastore, regexp.MustCompile(`^pcc-[^/]+/zpool/\d+$`)},
	{domain.ResourcePrivateCloudDatastore, regexp.MustCompile(`^pcc-[^/]+/ssd-\d+$`)},
	{domain.ResourcePrivateCloudDatastore, regexp.MustCompile(`^pcc-[^/]+/pcc-\d+$`)},
	// Remaining pcc- entries, plus leading-asterisk / @pcc.pcc- tokens.
	{domain.ResourcePrivateCloud, regexp.MustCompile(`^pcc-`)},
	{domain.ResourcePrivateCloud, regexp.MustCompile(`^\*\d{3,}`)},
	{domain.ResourcePrivateCloud, regexp.MustCompile(`@pcc\.pcc-`)},

	{domain.ResourceTelecom, regexp.MustCompile(`^sms-`)},
	// Backup appliances are provisioned as vm-<digits>.
	{domain.ResourceBackup, regexp.MustCompile(`^vm-\d+$`)},
	// Logs data platform clusters.
	{domain.ResourceStorage, regexp.MustCompile(`^ldp-`)},
	{domain.ResourceSupport, regexp.MustCompile(`^premium\.support\.`)},

	// Windows licenses carry UUID-shaped identifiers. The dash positions
	// keep this mutually exclusive with the 32-hex cloud_project rule.
	{domain.ResourceLicense, regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)},

	// IP blocks and bare IPv4 addresses.
	{domain.ResourceIPService, regexp.MustCompile(`^ip-\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}/\d{1,2}$`)},
	{domain.ResourceIPService, regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)},

	// Dedicated server hostnames, specific forms before the ns catch-all.
	{domain.ResourceDedicatedServer, regexp.MustCompile(`^ns\d+\.ip-[\d-]+\.eu`)},
	{domain.ResourceDedicatedServer, regexp.MustCompile(`^ns\d+\.ovh\.net`)},
	{domain.ResourceDedicatedServer, regexp.MustCompile(`^(ks|rt|sd|hg|eg|mg)\d+`)},
	{domain.ResourceDedicatedServer, regexp.MustCompile(`^ns\d+`)},

	{domain.ResourceVPS, regexp.MustCompile(`^vps(-|\d)`)},
	{domain.ResourceLoadBalancer, regexp.MustCompile(`^lb-`)},
	{domain.ResourceLoadBalancer, regexp.MustCompile(`^loadbalancer-`)},
	{domain.ResourceStorage, regexp.MustCompile(`^storage-`)},
	{domain.ResourceStorage, regexp.MustCompile(`^zpool-`)},

	// Web cloud hosting: *.ovh, after the more specific rules above.
	{domain.ResourceWebCloud, regexp.MustCompile(`\.ovh$`)},

	// Registered domain names on public TLDs. ns-prefixed hostnames are
	// excluded below in ClassifyResourceType.
	{domain.ResourceDomain, regexp.MustCompile(`\.(fr|com|org|net|io|eu|cloud|tech|dev|info|pro)$`)},

	// Phone numbers.
	{domain.ResourceTelephony, regexp.MustCompile(`^\d{10,}$`)},

	// Public-cloud project ids: 32 hex chars, no dashes.
	{domain.ResourceCloudProject, regexp.MustCompile(`(?i)^[0-9a-f]{32}$`)},
}

var nsHostPrefix = regexp.MustCompile(`^ns\d+`)

// ClassifyResourceType maps a domain identifier to its ResourceType.
// Total and deterministic; empty or unmatched input resolves to other.
func ClassifyResourceType(dom string) domain.ResourceType {
	if dom == "" {
		return domain.ResourceOther
	}
	for _, rule := range resourceRules {
		if !rule.pattern.MatchString(dom) {
			continue
		}
		// nsNNN.example.eu is a dedicated server, not a domain name, but
		// only reaches the TLD rule when no dedicated-server form matched.
		if rule.resourceType == domain.ResourceDomain && nsHostPrefix.MatchString(dom) {
			continue
		}
		return rule.resourceType
	}
	return domain.ResourceOther
}
