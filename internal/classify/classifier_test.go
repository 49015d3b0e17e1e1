package classify

import (
	"testing"

	"github.com/cloudlens/billing-service/internal/domain"
)

func TestClassifier_ProjectMembershipWins(t *testing.T) {
	projectID := "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"
	c := NewClassifier([]string{projectID}, nil)

	gotProject, gotService, gotResource := c.Classify(projectID, "Instance b2-7")
	if gotProject == nil || *gotProject != projectID {
		t.Fatalf("expected project_id %q, got %v", projectID, gotProject)
	}
	if gotResource != domain.ResourceCloudProject {
		t.Fatalf("expected resource_type cloud_project, got %q", gotResource)
	}
	if gotService != domain.ServiceCompute {
		t.Fatalf("expected service_type Compute, got %q", gotService)
	}
}

func TestClassifier_UnknownHexDomainGetsNoProject(t *testing.T) {
	c := NewClassifier([]string{"a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"}, nil)

	// Same shape as a project id but not in the membership set.
	gotProject, _, gotResource := c.Classify("ffffffffffffffffffffffffffffffff", "Instance b2-7")
	if gotProject != nil {
		t.Fatalf("expected nil project_id for unknown domain, got %q", *gotProject)
	}
	if gotResource != domain.ResourceCloudProject {
		t.Fatalf("expected pattern-inferred cloud_project, got %q", gotResource)
	}
}

func TestClassifier_InventoryOverridesPatternInference(t *testing.T) {
	inventory := map[string]domain.ResourceType{
		// Pattern inference alone would say vps.
		"vps-lookalike.example.net": domain.ResourceDedicatedServer,
	}
	c := NewClassifier(nil, inventory)

	gotProject, _, gotResource := c.Classify("vps-lookalike.example.net", "Server rental")
	if gotProject != nil {
		t.Fatalf("expected nil project_id, got %q", *gotProject)
	}
	if gotResource != domain.ResourceDedicatedServer {
		t.Fatalf("expected inventory override dedicated_server, got %q", gotResource)
	}
}

func TestClassifier_ProjectMembershipBeatsInventory(t *testing.T) {
	projectID := "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"
	inventory := map[string]domain.ResourceType{projectID: domain.ResourceStorage}
	c := NewClassifier([]string{projectID}, inventory)

	gotProject, _, gotResource := c.Classify(projectID, "Swift container")
	if gotProject == nil || *gotProject != projectID {
		t.Fatalf("expected project membership to win, got project=%v", gotProject)
	}
	if gotResource != domain.ResourceCloudProject {
		t.Fatalf("expected cloud_project over inventory entry, got %q", gotResource)
	}
}

func TestClassifier_EmptyContextFallsBackToPatterns(t *testing.T) {
	c := NewClassifier(nil, nil)

	gotProject, gotService, gotResource := c.Classify("ns123.ovh.net", "Server rental")
	if gotProject != nil {
		t.Fatalf("expected nil project_id, got %q", *gotProject)
	}
	if gotResource != domain.ResourceDedicatedServer {
		t.Fatalf("expected dedicated_server, got %q", gotResource)
	}
	if gotService != domain.ServiceCompute {
		t.Fatalf("expected Compute, got %q", gotService)
	}
}

func TestClassifier_Deterministic(t *testing.T) {
	c := NewClassifier([]string{"a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"}, map[string]domain.ResourceType{
		"ns123": domain.ResourceDedicatedServer,
	})

	inputs := [][2]string{
		{"a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6", "Instance GPU L40S"},
		{"ns123", "Server rental"},
		{"", ""},
		{"unknown-thing", "SSL Certificate"},
	}
	for _, input := range inputs {
		p1, s1, r1 := c.Classify(input[0], input[1])
		p2, s2, r2 := c.Classify(input[0], input[1])
		if s1 != s2 || r1 != r2 {
			t.Fatalf("Classify(%q, %q) not deterministic", input[0], input[1])
		}
		if (p1 == nil) != (p2 == nil) || (p1 != nil && *p1 != *p2) {
			t.Fatalf("Classify(%q, %q) project_id not deterministic", input[0], input[1])
		}
	}
}
