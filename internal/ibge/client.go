// Package ibge resolves Brazilian municipality codes through the public IBGE API.
package ibge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"wchic_backend/platform/logger"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	defaultBaseURL = "https://servicodados.ibge.gov.br/api/v1/localidades"
	requestTimeout = 8 * time.Second
	listTTL        = 24 * time.Hour
	cacheSize      = 1024
	cacheTTL       = 12 * time.Hour
)

// Municipio is a resolved municipality.
type Municipio struct {
	IBGECode string `json:"ibge_code"`
	Cidade   string `json:"cidade"`
	Estado   string `json:"estado"`
	UF       string `json:"uf"`
}

type apiUF struct {
	Sigla string `json:"sigla"`
	Nome  string `json:"nome"`
}

type apiMunicipio struct {
	ID           int64  `json:"id"`
	Nome         string `json:"nome"`
	Microrregiao *struct {
		Mesorregiao *struct {
			UF *apiUF `json:"UF"`
		} `json:"mesorregiao"`
	} `json:"microrregiao"`
	RegiaoImediata *struct {
		RegiaoIntermediaria *struct {
			UF *apiUF `json:"UF"`
		} `json:"regiao-intermediaria"`
	} `json:"regiao-imediata"`
}

func (m apiMunicipio) uf() apiUF {
	if m.Microrregiao != nil && m.Microrregiao.Mesorregiao != nil && m.Microrregiao.Mesorregiao.UF != nil {
		return *m.Microrregiao.Mesorregiao.UF
	}
	if m.RegiaoImediata != nil && m.RegiaoImediata.RegiaoIntermediaria != nil && m.RegiaoImediata.RegiaoIntermediaria.UF != nil {
		return *m.RegiaoImediata.RegiaoIntermediaria.UF
	}
	return apiUF{}
}

// Client looks up municipalities. The full list is fetched lazily and kept for
// a day; individual lookups, hits and misses alike, are kept in a bounded cache.
type Client struct {
	baseURL string
	http    *http.Client
	log     *logger.Logger
	cache   *expirable.LRU[string, *Municipio]

	mu        sync.Mutex
	list      []apiMunicipio
	fetchedAt time.Time
}

func NewClient(log *logger.Logger) *Client {
	return &Client{
		baseURL: defaultBaseURL,
		http:    &http.Client{Timeout: requestTimeout},
		log:     log,
		cache:   expirable.NewLRU[string, *Municipio](cacheSize, nil, cacheTTL),
	}
}

// Find returns the municipality matching cidade, optionally restricted to uf.
// Exact accent-insensitive matches win over substring matches. A nil result
// with a nil error means no match.
func (c *Client) Find(ctx context.Context, cidade, uf string) (*Municipio, error) {
	name := fold(cidade)
	if name == "" {
		return nil, nil
	}
	uf = strings.ToUpper(strings.TrimSpace(uf))
	key := name + ":" + strings.ToLower(uf)
	if hit, ok := c.cache.Get(key); ok {
		return hit, nil
	}

	list, err := c.municipios(ctx)
	if err != nil {
		c.log.WithContext(ctx).Error("ibge lookup failed", "cidade", cidade, "uf", uf, "error", err)
		return nil, err
	}

	var partial *apiMunicipio
	var exact *apiMunicipio
	for i := range list {
		m := &list[i]
		if uf != "" && !strings.EqualFold(m.uf().Sigla, uf) {
			continue
		}
		folded := fold(m.Nome)
		if folded == name {
			exact = m
			break
		}
		if partial == nil && strings.Contains(folded, name) {
			partial = m
		}
	}

	chosen := exact
	if chosen == nil {
		chosen = partial
	}
	if chosen == nil {
		c.log.WithContext(ctx).Warn("ibge city not found", "cidade", cidade, "uf", uf)
		c.cache.Add(key, nil)
		return nil, nil
	}

	state := chosen.uf()
	result := &Municipio{
		IBGECode: strconv.FormatInt(chosen.ID, 10),
		Cidade:   chosen.Nome,
		Estado:   state.Nome,
		UF:       state.Sigla,
	}
	c.cache.Add(key, result)
	c.log.WithContext(ctx).Info("ibge city found", "cidade", result.Cidade, "uf", result.UF, "ibge_code", result.IBGECode)
	return result, nil
}

func (c *Client) municipios(ctx context.Context) ([]apiMunicipio, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.list != nil && time.Since(c.fetchedAt) < listTTL {
		return c.list, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/municipios?orderBy=nome", nil)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.VendorCall("ibge", http.MethodGet, "/municipios", 0, time.Since(start))
		return nil, fmt.Errorf("ibge request: %w", err)
	}
	defer resp.Body.Close()
	c.log.VendorCall("ibge", http.MethodGet, "/municipios", resp.StatusCode, time.Since(start))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ibge returned status %d", resp.StatusCode)
	}

	var list []apiMunicipio
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode ibge municipios: %w", err)
	}
	c.list = list
	c.fetchedAt = time.Now()
	return list, nil
}

// fold lowercases s and strips diacritics.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return strings.ToLower(strings.TrimSpace(s))
	}
	return out
}
