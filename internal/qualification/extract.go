package qualification

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// field accepts a JSON string, number or null. The model sometimes writes
// the literal word "null" inside quotes.
type field string

func (f *field) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		s = n.String()
	}
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "null") {
		s = ""
	}
	*f = field(s)
	return nil
}

// Extracted is the data block appended to every model reply.
type Extracted struct {
	Cidade               field `json:"cidade"`
	UF                   field `json:"uf"`
	DataEvento           field `json:"data_evento"`
	PerfilEvento         field `json:"perfil_evento"`
	NumConvidados        field `json:"num_convidados"`
	QualificacaoCompleta bool  `json:"qualificacao_completa"`
}

// HasData reports whether anything beyond the state was collected.
func (e *Extracted) HasData() bool {
	return e.Cidade != "" || e.DataEvento != "" || e.PerfilEvento != "" || e.NumConvidados != ""
}

// EventDate parses data_evento; ok is false for missing or malformed dates.
func (e *Extracted) EventDate() (time.Time, bool) {
	t, err := time.Parse(time.DateOnly, string(e.DataEvento))
	return t, err == nil
}

// Guests returns the first number in num_convidados ("cerca de 150" → 150).
func (e *Extracted) Guests() (int, bool) {
	s := string(e.NumConvidados)
	start := strings.IndexFunc(s, unicode.IsDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(s[start:end])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// ParseReply splits the customer-facing text from the data block. A reply
// without a readable block yields nil data.
func ParseReply(raw string) (string, *Extracted) {
	start := strings.Index(raw, dataStart)
	end := strings.Index(raw, dataEnd)
	if start < 0 || end < start {
		return strings.TrimSpace(raw), nil
	}

	message := strings.TrimSpace(raw[:start])
	block := strings.TrimSpace(raw[start+len(dataStart) : end])
	block = strings.TrimPrefix(block, "```json")
	block = strings.Trim(block, "` \n")

	var data Extracted
	if err := json.Unmarshal([]byte(block), &data); err != nil {
		return message, nil
	}
	return message, &data
}
