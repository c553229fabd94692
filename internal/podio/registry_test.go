package podio

import (
	"strings"
	"testing"

	"wchic_backend/platform/config"
)

func mustRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := LoadRegistry()
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	return reg
}

func TestLoadRegistryResolvesTitleFields(t *testing.T) {
	reg := mustRegistry(t)

	want := map[WorkspaceKey]string{
		Franqueadora: "title",
		Campinas:     "title",
		LitoralNorte: "titulo",
		RioBH:        "nome-do-lead",
	}
	for key, titleKey := range want {
		m, err := reg.Workspace(key)
		if err != nil {
			t.Fatalf("workspace %s: %v", key, err)
		}
		if m.TitleKey() != titleKey {
			t.Errorf("%s: expected title key %q, got %q", key, titleKey, m.TitleKey())
		}
	}
}

func TestRegistryResolvesAppIDs(t *testing.T) {
	reg := mustRegistry(t)

	m, ok := reg.ByAppIDString("10777978")
	if !ok || m.WorkspaceKey != Campinas {
		t.Fatalf("expected campinas for 10777978, got %+v", m)
	}
	if _, ok := reg.ByAppIDString("999"); ok {
		t.Fatalf("expected unknown app id to miss")
	}
	if _, ok := reg.ByAppIDString("not-a-number"); ok {
		t.Fatalf("expected malformed app id to miss")
	}

	keys := reg.Keys()
	if len(keys) != 4 || keys[0] != HeadOffice {
		t.Fatalf("expected head office first among 4 keys, got %v", keys)
	}
}

func TestInboundStatusIsScopedPerWorkspace(t *testing.T) {
	reg := mustRegistry(t)

	rio, _ := reg.Workspace(RioBH)
	if got, _ := rio.CanonicalStatus("Perdido"); got != "rejected" {
		t.Errorf("expected explicit inbound entry to map Perdido to rejected, got %q", got)
	}

	campinas, _ := reg.Workspace(Campinas)
	if _, ok := campinas.CanonicalStatus("Novo"); ok {
		t.Errorf("campinas has no Novo label and must not resolve it")
	}
	if got, _ := campinas.CanonicalStatus("Recusado"); got != "rejected" {
		t.Errorf("expected Recusado to map to rejected, got %q", got)
	}
}

func TestParseMappingRejectsBrokenSchemas(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		problem string
	}{
		{
			name:    "no title field",
			raw:     `{"workspace_key":"x","app_id":1,"fields":{"telefone":{"field_id":1,"type":"text","label":"Telefone"}}}`,
			problem: "no title-capable",
		},
		{
			name: "status field not category",
			raw: `{"workspace_key":"x","app_id":1,"fields":{"title":{"field_id":1,"type":"text","label":"Nome"},
				"status":{"field_id":2,"type":"text","label":"Status"}},"status":{"field":"status","values":{"new":"Novo"}}}`,
			problem: "want category",
		},
		{
			name: "status label missing from options",
			raw: `{"workspace_key":"x","app_id":1,"fields":{"title":{"field_id":1,"type":"text","label":"Nome"},
				"status":{"field_id":2,"type":"category","label":"Status"}},
				"categories":{"status":{"options":{"Novo":1}}},
				"status":{"field":"status","values":{"new":"Novo","closed":"Fechado"}}}`,
			problem: `"Fechado" is not an option`,
		},
		{
			name: "lossy label without inbound entry",
			raw: `{"workspace_key":"x","app_id":1,"fields":{"title":{"field_id":1,"type":"text","label":"Nome"},
				"status":{"field_id":2,"type":"category","label":"Status"}},
				"categories":{"status":{"options":{"Perdido":1}}},
				"status":{"field":"status","values":{"rejected":"Perdido","cancelled":"Perdido"}}}`,
			problem: "without an inbound entry",
		},
		{
			name: "sla field missing",
			raw: `{"workspace_key":"x","app_id":1,"fields":{"title":{"field_id":1,"type":"text","label":"Nome"}},
				"sla":{"stage_field":"etapa","post_event_fields":[]}}`,
			problem: `"etapa" not in app`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMapping([]byte(tc.raw))
			if err == nil {
				t.Fatalf("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.problem) {
				t.Fatalf("expected error mentioning %q, got %v", tc.problem, err)
			}
		})
	}
}

func TestNewRegistryRequiresHeadOffice(t *testing.T) {
	m, err := ParseMapping([]byte(`{"workspace_key":"campinas","app_id":2,"fields":{"title":{"field_id":1,"type":"text","label":"Nome"}}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, err := NewRegistry(m); err == nil {
		t.Fatalf("expected error without head office mapping")
	}
}

func TestCheckAppIDs(t *testing.T) {
	reg := mustRegistry(t)

	ok := map[string]config.PodioAppCredentials{
		"franqueadora": {AppID: "10094649"},
		"campinas":     {AppID: " 10777978 "},
		"rio_bh":       {AppID: ""},
	}
	if err := reg.CheckAppIDs(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := reg.CheckAppIDs(map[string]config.PodioAppCredentials{
		"campinas": {AppID: "999"},
		"sorocaba": {AppID: "555"},
	})
	if err == nil {
		t.Fatalf("expected mismatch error")
	}
	for _, want := range []string{"campinas: configured app 999, mapping has 10777978", "sorocaba: no mapping"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}
}
