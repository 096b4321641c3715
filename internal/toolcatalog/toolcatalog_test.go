package toolcatalog

import "testing"

func TestDefaultCatalogIndexesEveryToolByName(t *testing.T) {
	cat := Default()
	names := []string{
		NameTasksClaimNext, NameTasksProgress, NameTasksComplete, NameTasksGetQueue,
		NameOpenLocalFile, NameGmailArchive, NameGmailSearch,
		NameGithubListPRs, NameGithubGetIssue, NameTriageStatus,
		NameCCSend, NameCCGet, NameCCStatus, NameCCCapabilities, NameCCActionRequest,
		NameExtCaptureScreen, NameGetNode, NameGetTree,
	}
	for _, name := range names {
		if _, ok := cat.Lookup(name); !ok {
			t.Errorf("expected catalog to advertise tool %q", name)
		}
	}
	if _, ok := cat.Lookup("does_not_exist"); ok {
		t.Fatalf("expected unknown tool name to not be found")
	}
}

func TestEveryTasksToolIsRoutingLocalQueue(t *testing.T) {
	cat := Default()
	for _, name := range []string{NameTasksClaimNext, NameTasksProgress, NameTasksComplete, NameTasksGetQueue} {
		def, ok := cat.Lookup(name)
		if !ok {
			t.Fatalf("missing tool %q", name)
		}
		if def.RoutingClass != RoutingLocalQueue {
			t.Errorf("expected %q to route to the local queue, got %s", name, def.RoutingClass)
		}
	}
}

func TestEffectiveDeadlineDefaultsWhenUnset(t *testing.T) {
	def := Definition{}
	if def.EffectiveDeadline() != DefaultForwardDeadline {
		t.Fatalf("expected default forward deadline, got %s", def.EffectiveDeadline())
	}

	cat := Default()
	capture, _ := cat.Lookup(NameExtCaptureScreen)
	if capture.EffectiveDeadline() != 15_000_000_000 {
		t.Fatalf("expected capture_screen's explicit 15s deadline, got %s", capture.EffectiveDeadline())
	}
}

func TestMCPToolsProjectsEveryDefinition(t *testing.T) {
	cat := Default()
	tools := cat.MCPTools()
	if len(tools) != len(cat.List()) {
		t.Fatalf("expected MCPTools to project every definition, got %d of %d", len(tools), len(cat.List()))
	}
}

func TestForwardToolsCarryRequiredFields(t *testing.T) {
	cat := Default()
	for _, name := range []string{NameGetNode, NameGetTree, NameExtCaptureScreen} {
		def, ok := cat.Lookup(name)
		if !ok {
			t.Fatalf("missing tool %q", name)
		}
		if def.RoutingClass != RoutingForwardBrowser && def.RoutingClass != RoutingForwardExt {
			t.Errorf("expected %q to be a forward route, got %s", name, def.RoutingClass)
		}
	}
}
