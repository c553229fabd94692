package qualification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wchic_backend/internal/events"
	"wchic_backend/internal/ibge"
	"wchic_backend/internal/leads/domain"
	"wchic_backend/internal/leads/repository"
	"wchic_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"
)

const modelReply = `Que legal, um casamento em Campinas! Quantos convidados você espera?

===DADOS===
{
  "cidade": "Campinas",
  "uf": "SP",
  "data_evento": "2026-11-20",
  "perfil_evento": "casamento",
  "num_convidados": null,
  "qualificacao_completa": false
}
===FIM===`

type testStore struct {
	history  []repository.Message
	inserted []string
	events   []repository.EventUpdate
	failList error
}

func (s *testStore) ListRecentMessages(context.Context, uuid.UUID, int) ([]repository.Message, error) {
	return s.history, s.failList
}

func (s *testStore) InsertMessage(_ context.Context, _ uuid.UUID, role, content string, _ *string) error {
	s.inserted = append(s.inserted, role+":"+content)
	return nil
}

func (s *testStore) UpsertEvent(_ context.Context, _ uuid.UUID, ev repository.EventUpdate) error {
	s.events = append(s.events, ev)
	return nil
}

type testCompleter struct {
	reply   string
	err     error
	history []Turn
}

func (c *testCompleter) Complete(_ context.Context, _ string, history []Turn) (string, error) {
	c.history = history
	return c.reply, c.err
}

type testLocator struct {
	found *ibge.Municipio
}

func (l testLocator) Find(context.Context, string, string) (*ibge.Municipio, error) {
	return l.found, nil
}

type testSender struct {
	sent []string
}

func (s *testSender) SendToClient(_ context.Context, to, text string) error {
	s.sent = append(s.sent, to+"|"+text)
	return nil
}

type testBus struct {
	published []events.Event
}

func (b *testBus) Publish(_ context.Context, e events.Event) { b.published = append(b.published, e) }

func (b *testBus) PublishSync(ctx context.Context, e events.Event) error {
	b.Publish(ctx, e)
	return nil
}

func (b *testBus) Subscribe(string, events.Handler) {}

type testAlerter struct {
	kinds []string
}

func (a *testAlerter) Send(_ context.Context, kind, _ string, _ map[string]any) error {
	a.kinds = append(a.kinds, kind)
	return nil
}

func conversation() []repository.Message {
	return []repository.Message{
		{Role: domain.RoleUser, Content: "Oi, quero orçamento de tenda"},
		{Role: domain.RoleAgent, Content: "Oi! Onde vai ser o evento?"},
		{Role: domain.RoleUser, Content: "Casamento em Campinas SP dia 20/11"},
	}
}

func TestParseReply(t *testing.T) {
	msg, data := ParseReply(modelReply)
	if msg != "Que legal, um casamento em Campinas! Quantos convidados você espera?" {
		t.Errorf("unexpected message %q", msg)
	}
	if data == nil {
		t.Fatalf("expected data block")
	}
	if data.Cidade != "Campinas" || data.UF != "SP" || data.NumConvidados != "" {
		t.Errorf("unexpected data %+v", data)
	}
	if d, ok := data.EventDate(); !ok || d.Format("2006-01-02") != "2026-11-20" {
		t.Errorf("unexpected event date %v %v", d, ok)
	}

	msg, data = ParseReply("  Olá! Em que cidade será o evento?  ")
	if msg != "Olá! Em que cidade será o evento?" || data != nil {
		t.Errorf("expected plain reply, got %q %+v", msg, data)
	}

	_, data = ParseReply("Oi\n===DADOS===\n{not json}\n===FIM===")
	if data != nil {
		t.Errorf("expected nil data for broken block")
	}
}

func TestExtractedFieldShapes(t *testing.T) {
	_, data := ParseReply(`ok ===DADOS=== {"cidade":"null","uf":null,"data_evento":"20/11","perfil_evento":"","num_convidados":150,"qualificacao_completa":true} ===FIM===`)
	if data == nil {
		t.Fatalf("expected data")
	}
	if data.Cidade != "" {
		t.Errorf("quoted null should be empty, got %q", data.Cidade)
	}
	if n, ok := data.Guests(); !ok || n != 150 {
		t.Errorf("expected numeric guests, got %d %v", n, ok)
	}
	if _, ok := data.EventDate(); ok {
		t.Errorf("expected malformed date to be rejected")
	}

	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"cerca de 200 pessoas", 200, true},
		{"80", 80, true},
		{"não sei", 0, false},
		{"0", 0, false},
	}
	for _, tt := range tests {
		e := Extracted{NumConvidados: field(tt.in)}
		got, ok := e.Guests()
		if got != tt.want || ok != tt.ok {
			t.Errorf("Guests(%q) = %d %v, want %d %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestProcessStoresSendsAndLocates(t *testing.T) {
	store := &testStore{history: conversation()}
	completer := &testCompleter{reply: modelReply}
	sender := &testSender{}
	bus := &testBus{}
	svc := NewService(Deps{
		Store:     store,
		Completer: completer,
		Locator:   testLocator{found: &ibge.Municipio{IBGECode: "3509502", Cidade: "Campinas", Estado: "São Paulo", UF: "SP"}},
		Sender:    sender,
		Bus:       bus,
		Log:       logger.New("test"),
	})
	leadID := uuid.New()

	if err := svc.Process(context.Background(), leadID, "+5519998765432"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(completer.history) != 3 || !completer.history[1].FromAgent || completer.history[0].FromAgent {
		t.Errorf("unexpected history roles %+v", completer.history)
	}
	if len(store.inserted) != 1 || !strings.HasPrefix(store.inserted[0], "agent:Que legal") {
		t.Errorf("expected agent reply stored, got %v", store.inserted)
	}
	if len(sender.sent) != 1 || !strings.HasPrefix(sender.sent[0], "+5519998765432|") {
		t.Errorf("expected reply sent, got %v", sender.sent)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected event upsert")
	}
	ev := store.events[0]
	if ev.Estado == nil || *ev.Estado != "São Paulo" {
		t.Errorf("expected expanded state, got %v", ev.Estado)
	}
	if ev.IBGECode == nil || *ev.IBGECode != "3509502" {
		t.Errorf("expected ibge code, got %v", ev.IBGECode)
	}
	if ev.PerfilEvento == nil || *ev.PerfilEvento != "casamento" || ev.PessoasEstimadas != nil {
		t.Errorf("unexpected profile/guests %+v", ev)
	}
	if len(bus.published) != 1 {
		t.Fatalf("expected LeadLocated, got %d events", len(bus.published))
	}
	located, ok := bus.published[0].(events.LeadLocated)
	if !ok || located.LeadID != leadID || located.IBGECode != "3509502" || located.Source != domain.SourceWhatsApp {
		t.Errorf("unexpected event %+v", bus.published[0])
	}
}

func TestProcessWithoutIBGEDoesNotLocate(t *testing.T) {
	store := &testStore{history: conversation()}
	bus := &testBus{}
	svc := NewService(Deps{
		Store:     store,
		Completer: &testCompleter{reply: modelReply},
		Locator:   testLocator{},
		Sender:    &testSender{},
		Bus:       bus,
		Log:       logger.New("test"),
	})

	if err := svc.Process(context.Background(), uuid.New(), "+5519998765432"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.events) != 1 || store.events[0].IBGECode != nil {
		t.Errorf("expected event without ibge code")
	}
	if len(bus.published) != 0 {
		t.Errorf("expected no event without ibge code")
	}
}

func TestProcessFailureRaisesAlert(t *testing.T) {
	alerts := &testAlerter{}
	sender := &testSender{}
	svc := NewService(Deps{
		Store:     &testStore{history: conversation()},
		Completer: &testCompleter{err: errors.New("rate limited")},
		Sender:    sender,
		Alerts:    alerts,
		Log:       logger.New("test"),
	})

	if err := svc.Process(context.Background(), uuid.New(), "+5519998765432"); err == nil {
		t.Fatalf("expected error")
	}
	if len(alerts.kinds) != 1 || alerts.kinds[0] != alertGenericError {
		t.Errorf("expected generic_error alert, got %v", alerts.kinds)
	}
	if len(sender.sent) != 0 {
		t.Errorf("expected nothing sent")
	}
}

func TestProcessDisabledWithoutCompleter(t *testing.T) {
	store := &testStore{history: conversation()}
	svc := NewService(Deps{Store: store, Sender: &testSender{}, Log: logger.New("test")})
	if err := svc.Process(context.Background(), uuid.New(), "+55"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.inserted) != 0 {
		t.Errorf("expected no reply stored")
	}
}

func TestOpenAICompleterMapsRoles(t *testing.T) {
	var got openai.ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Oi!"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("key")
	cfg.BaseURL = srv.URL + "/v1"
	c := newOpenAICompleter(cfg, "gpt-4.1-mini")

	reply, err := c.Complete(context.Background(), "sys", []Turn{{Content: "oi"}, {FromAgent: true, Content: "olá"}})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if reply != "Oi!" {
		t.Errorf("unexpected reply %q", reply)
	}
	if len(got.Messages) != 3 || got.Messages[0].Role != openai.ChatMessageRoleSystem || got.Messages[2].Role != openai.ChatMessageRoleAssistant {
		t.Errorf("unexpected messages %+v", got.Messages)
	}
	if got.Model != "gpt-4.1-mini" || got.MaxTokens != maxReplyTokens {
		t.Errorf("unexpected request settings model=%s max=%d", got.Model, got.MaxTokens)
	}
}
