package classify

import (
	"testing"

	"github.com/cloudlens/billing-service/internal/domain"
)

func TestClassifyResourceType(t *testing.T) {
	cases := []struct {
		name   string
		domain string
		want   domain.ResourceType
	}{
		{"management fee", "pcc-146-59-230-77/managementfee", domain.ResourcePrivateCloud},
		{"host path", "pcc-146-59-230-77/host/123", domain.ResourcePrivateCloudHost},
		{"host by ip", "pcc-146-59-230-77/172.16.0.1", domain.ResourcePrivateCloudHost},
		{"zpool path", "pcc-146-59-230-77/zpool/42", domain.ResourcePrivateCloudDatastore},
		{"ssd datastore", "pcc-146-59-230-77/ssd-1", domain.ResourcePrivateCloudDatastore},
		{"nested pcc", "pcc-146-59-230-77/pcc-001", domain.ResourcePrivateCloudDatastore},
		{"pcc catch-all", "pcc-somename", domain.ResourcePrivateCloud},
		{"asterisk token", "*123456", domain.ResourcePrivateCloud},
		{"at pcc token", "user@pcc.pcc-146-59-230-77", domain.ResourcePrivateCloud},

		{"sms account", "sms-ab12345-1", domain.ResourceTelecom},
		{"backup vm", "vm-123456", domain.ResourceBackup},
		{"logs platform", "ldp-ab-12345", domain.ResourceStorage},
		{"premium support", "premium.support.2024", domain.ResourceSupport},

		// UUID with dashes is a license, never a cloud project.
		{"license uuid", "6f43cde1-0f3b-4b8a-9a10-aabbccddeeff", domain.ResourceLicense},
		{"license uuid upper", "6F43CDE1-0F3B-4B8A-9A10-AABBCCDDEEFF", domain.ResourceLicense},

		{"ip block", "ip-54.36.12.0/24", domain.ResourceIPService},
		{"bare ipv4", "54.36.12.7", domain.ResourceIPService},

		{"ns ip eu host", "ns3112233.ip-54-36-12.eu", domain.ResourceDedicatedServer},
		{"ns ip eu disk", "ns3112233.ip-54-36-12.eu-disk1", domain.ResourceDedicatedServer},
		{"ns ovh net", "ns123.ovh.net", domain.ResourceDedicatedServer},
		{"ks prefix", "ks3389.example.com", domain.ResourceDedicatedServer},
		{"sd prefix", "sd12345", domain.ResourceDedicatedServer},
		{"ns catch-all", "ns5009999", domain.ResourceDedicatedServer},
		// ns-prefixed hostnames never classify as registered domains.
		{"ns with tld", "ns1.example.fr", domain.ResourceDedicatedServer},

		{"vps dashed", "vps-a1b2c3d4.vps.ovh.net", domain.ResourceVPS},
		{"vps numbered", "vps123456.ovh.net", domain.ResourceVPS},
		{"lb prefix", "lb-9f3c2a", domain.ResourceLoadBalancer},
		{"loadbalancer prefix", "loadbalancer-front-1", domain.ResourceLoadBalancer},
		{"storage prefix", "storage-cluster-1", domain.ResourceStorage},
		{"zpool prefix", "zpool-128831", domain.ResourceStorage},

		{"web cloud", "mysite.ovh", domain.ResourceWebCloud},
		{"fr domain", "example.fr", domain.ResourceDomain},
		{"io domain", "my-startup.io", domain.ResourceDomain},

		{"phone number", "0033912345678", domain.ResourceTelephony},

		// 32 hex chars without dashes is a cloud project id.
		{"cloud project", "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6", domain.ResourceCloudProject},
		{"cloud project upper", "A1B2C3D4E5F6A7B8C9D0E1F2A3B4C5D6", domain.ResourceCloudProject},

		{"unknown", "something-unrecognized", domain.ResourceOther},
		{"empty", "", domain.ResourceOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyResourceType(tc.domain)
			if got != tc.want {
				t.Errorf("ClassifyResourceType(%q) = %q, want %q", tc.domain, got, tc.want)
			}
		})
	}
}

func TestClassifyResourceType_LicenseAndProjectPatternsAreExclusive(t *testing.T) {
	// The same 32 hex chars classify differently with and without dashes.
	withDashes := "6f43cde1-0f3b-4b8a-9a10-aabbccddeeff"
	withoutDashes := "6f43cde10f3b4b8a9a10aabbccddeeff"

	if got := ClassifyResourceType(withDashes); got != domain.ResourceLicense {
		t.Fatalf("dashed UUID classified as %q, want license", got)
	}
	if got := ClassifyResourceType(withoutDashes); got != domain.ResourceCloudProject {
		t.Fatalf("dashless hex classified as %q, want cloud_project", got)
	}
}

func TestClassifyResourceType_Deterministic(t *testing.T) {
	inputs := []string{"pcc-1/host/2", "ns123", "", "weird☃input", "vps-x"}
	for _, input := range inputs {
		first := ClassifyResourceType(input)
		second := ClassifyResourceType(input)
		if first != second {
			t.Fatalf("ClassifyResourceType(%q) not deterministic: %q then %q", input, first, second)
		}
	}
}
