package ibge

import "strings"

var ufNames = map[string]string{
	"AC": "Acre",
	"AL": "Alagoas",
	"AP": "Amapá",
	"AM": "Amazonas",
	"BA": "Bahia",
	"CE": "Ceará",
	"DF": "Distrito Federal",
	"ES": "Espírito Santo",
	"GO": "Goiás",
	"MA": "Maranhão",
	"MT": "Mato Grosso",
	"MS": "Mato Grosso do Sul",
	"MG": "Minas Gerais",
	"PA": "Pará",
	"PB": "Paraíba",
	"PR": "Paraná",
	"PE": "Pernambuco",
	"PI": "Piauí",
	"RJ": "Rio de Janeiro",
	"RN": "Rio Grande do Norte",
	"RS": "Rio Grande do Sul",
	"RO": "Rondônia",
	"RR": "Roraima",
	"SC": "Santa Catarina",
	"SP": "São Paulo",
	"SE": "Sergipe",
	"TO": "Tocantins",
}

// StateName returns the full state name for a two-letter code.
func StateName(uf string) (string, bool) {
	name, ok := ufNames[strings.ToUpper(strings.TrimSpace(uf))]
	return name, ok
}

// ExpandUF turns a two-letter code into the state name and returns any other
// value trimmed but otherwise unchanged.
func ExpandUF(value string) string {
	v := strings.TrimSpace(value)
	if len(v) == 2 {
		if name, ok := StateName(v); ok {
			return name
		}
	}
	return v
}
