package podiosync

import "wchic_backend/internal/podio"

// AliasTarget is one vendor field a semantic value is written to, together
// with the workspaces that are expected to carry it.
type AliasTarget struct {
	Field      string
	Workspaces []podio.WorkspaceKey
}

// Semantic keys used by the canonical builder.
const (
	KeyTitle            = "title"
	KeyExternalID       = "external_id"
	KeyPhone            = "phone"
	KeyStatus           = "status"
	KeyInterest         = "interest"
	KeyOrigin           = "origin"
	KeyContactDate      = "contact_date"
	KeyFranchiseArea    = "franchise_area"
	KeyCity             = "city"
	KeyState            = "state"
	KeyIBGE             = "ibge"
	KeyEventDate        = "event_date"
	KeyFirstContactDate = "first_contact_date"
	KeyEventProfile     = "event_profile"
	KeyGuests           = "guests"
	KeyDecisionMaker    = "decision_maker"
)

var (
	wsAll        = []podio.WorkspaceKey{podio.Franqueadora, podio.Campinas, podio.LitoralNorte, podio.RioBH}
	wsHeadOffice = []podio.WorkspaceKey{podio.Franqueadora}
)

// FieldAliases declares where each semantic value lands in each workspace.
// Workspaces name the same concept with different field ids, so one value
// fans out to every declared target and each workspace keeps the ones it has.
var FieldAliases = map[string][]AliasTarget{
	KeyTitle: {
		{Field: "title", Workspaces: []podio.WorkspaceKey{podio.Franqueadora, podio.Campinas}},
	},
	KeyExternalID: {
		{Field: "id-externo", Workspaces: wsAll},
	},
	KeyPhone: {
		{Field: "telefone", Workspaces: wsAll},
	},
	KeyStatus: {
		{Field: "status", Workspaces: []podio.WorkspaceKey{podio.Franqueadora, podio.LitoralNorte, podio.RioBH}},
	},
	KeyInterest: {
		{Field: "interesse", Workspaces: wsHeadOffice},
	},
	KeyOrigin: {
		{Field: "origem-do-contrato", Workspaces: wsHeadOffice},
	},
	KeyContactDate: {
		{Field: "data-do-contato", Workspaces: wsHeadOffice},
	},
	KeyFranchiseArea: {
		{Field: "area-da-franquia", Workspaces: wsHeadOffice},
	},
	KeyCity: {
		{Field: "cidade", Workspaces: []podio.WorkspaceKey{podio.Franqueadora, podio.LitoralNorte}},
		{Field: "cidade-do-evento", Workspaces: []podio.WorkspaceKey{podio.Campinas, podio.RioBH}},
	},
	KeyState: {
		{Field: "estado", Workspaces: []podio.WorkspaceKey{podio.Franqueadora, podio.Campinas, podio.RioBH}},
		{Field: "categoria", Workspaces: []podio.WorkspaceKey{podio.LitoralNorte}},
	},
	KeyIBGE: {
		{Field: "codigo-ibge-2", Workspaces: wsHeadOffice},
		{Field: "codigo-ibge", Workspaces: []podio.WorkspaceKey{podio.Campinas, podio.LitoralNorte, podio.RioBH}},
	},
	KeyEventDate: {
		{Field: "data-do-evento", Workspaces: wsAll},
	},
	KeyFirstContactDate: {
		{Field: "data-do-1o-contato", Workspaces: []podio.WorkspaceKey{podio.Campinas}},
	},
	KeyEventProfile: {
		{Field: "perfil-do-evento-2", Workspaces: []podio.WorkspaceKey{podio.Franqueadora, podio.LitoralNorte}},
		{Field: "4-perfil-do-evento-7-dias", Workspaces: []podio.WorkspaceKey{podio.Campinas, podio.RioBH}},
	},
	KeyGuests: {
		{Field: "publico-do-evento-qtde-pessoas", Workspaces: []podio.WorkspaceKey{podio.Franqueadora, podio.LitoralNorte}},
	},
	KeyDecisionMaker: {
		{Field: "decisor", Workspaces: wsHeadOffice},
	},
}

// franchiseAreaLabels is the head-office "area-da-franquia" option for leads
// routed to each franchise workspace.
var franchiseAreaLabels = map[podio.WorkspaceKey]string{
	podio.Campinas:     "Franquia Campinas",
	podio.LitoralNorte: "Franquia Litoral Norte",
	podio.RioBH:        "Franquia Rio de Janeiro e BH",
}
