package classify

import (
	"testing"

	"github.com/cloudlens/billing-service/internal/domain"
)

func TestClassifyService(t *testing.T) {
	cases := []struct {
		name        string
		description string
		want        domain.ServiceCategory
	}{
		// AI/ML wins over Compute for GPU instances.
		{"gpu instance", "Instance GPU L40S", domain.ServiceAIML},
		{"l4 flavor", "Instances l4-90 rental", domain.ServiceAIML},
		{"a100 flavor", "Instance A100-180", domain.ServiceAIML},
		{"ai notebook", "AI Notebook usage", domain.ServiceAIML},
		{"ai training", "AI Training hours", domain.ServiceAIML},

		// Licenses win over Compute despite 'server'.
		{"windows license", "Windows Server 2022 Standard Edition license - 24 cores rental", domain.ServiceLicenses},
		{"french licence", "Licence cPanel Admin", domain.ServiceLicenses},

		{"veeam", "Veeam Backup Enterprise Rental for 1 month", domain.ServiceBackup},
		{"backup agent", "Backup Agent option", domain.ServiceBackup},

		{"support fee", "Management fees range Premier Rental for 1 month", domain.ServiceSupport},
		{"premium support", "Premium Support subscription", domain.ServiceSupport},

		// Database wins over Storage for log-platform products.
		{"logs streams", "Logs - Streams - Hot Storage 1 to 100 GB", domain.ServiceDatabase},
		{"postgres", "Public Cloud Databases - PostgreSQL", domain.ServiceDatabase},
		{"kafka", "Managed Kafka cluster", domain.ServiceDatabase},

		// Storage wins over Compute for object-storage containers.
		{"swift container", "Swift container", domain.ServiceStorage},
		{"snapshot", "Snapshot volume", domain.ServiceStorage},
		{"cold archive", "Cold Archive storage", domain.ServiceStorage},

		{"instance", "Instance b2-7 rental", domain.ServiceCompute},
		{"registry", "Container Registry", domain.ServiceCompute},
		{"kubernetes", "Managed Kubernetes control plane", domain.ServiceCompute},
		{"pcc host", "Host PREMIER 384 Rental for 1 month", domain.ServiceCompute},
		// Compound rule: rental for 1 month + scale/advance range.
		{"scale rental", "Scale-i2 rental for 1 month", domain.ServiceCompute},
		{"advance rental", "Advance-2 Gen 2 rental for 1 month", domain.ServiceCompute},

		{"ip block", "Additional IP v4 block /27RIPE Rental for 1 month", domain.ServiceNetwork},
		{"bandwidth", "Bandwidth overage", domain.ServiceNetwork},
		{"octavia", "Octavia Load Balancer hourly", domain.ServiceNetwork},

		{"domain renewal", "Domain name renewal", domain.ServiceOther},
		{"ssl cert", "SSL Certificate", domain.ServiceOther},
		{"empty", "", domain.ServiceOther},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ClassifyService(tc.description)
			if got != tc.want {
				t.Errorf("ClassifyService(%q) = %q, want %q", tc.description, got, tc.want)
			}
		})
	}
}

func TestClassifyService_Deterministic(t *testing.T) {
	inputs := []string{"Instance GPU L40S", "Swift container", "", "ランダムな文字列", "\x00\xff"}
	for _, input := range inputs {
		first := ClassifyService(input)
		second := ClassifyService(input)
		if first != second {
			t.Fatalf("ClassifyService(%q) not deterministic: %q then %q", input, first, second)
		}
	}
}

func TestClassifyService_CaseInsensitive(t *testing.T) {
	if got := ClassifyService("VEEAM BACKUP"); got != domain.ServiceBackup {
		t.Fatalf("expected upper-cased description to classify as Backup, got %q", got)
	}
	if got := ClassifyService("swift CONTAINER"); got != domain.ServiceStorage {
		t.Fatalf("expected mixed-case description to classify as Storage, got %q", got)
	}
}

func TestClassifyService_CompoundComputeRuleNeedsRangeToken(t *testing.T) {
	// "rental for 1 month" alone is not enough to classify as Compute.
	if got := ClassifyService("Mystery product rental for 1 month"); got != domain.ServiceOther {
		t.Fatalf("expected rental without scale/advance token to stay Other, got %q", got)
	}
	if got := ClassifyService("Mystery scale thing rental for 1 month"); got != domain.ServiceCompute {
		t.Fatalf("expected rental with scale token to classify as Compute, got %q", got)
	}
}
