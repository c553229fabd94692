package jobs

import (
	"context"
	"fmt"

	"wchic_backend/internal/leads/domain"
	"wchic_backend/internal/podio"
	"wchic_backend/internal/statussync"
)

// ItemReader fetches franchise items from Podio.
type ItemReader interface {
	GetItem(ctx context.Context, key podio.WorkspaceKey, itemID int64) (*podio.Item, error)
}

// Verdict is the outcome of one SLA check. Charge is empty when the
// franchise is on track.
type Verdict struct {
	Charge string
	Log    string
}

// Checker inspects the franchise item a job points at.
type Checker struct {
	items  ItemReader
	mapper *statussync.Mapper
}

func NewChecker(items ItemReader, mapper *statussync.Mapper) *Checker {
	return &Checker{items: items, mapper: mapper}
}

// progressed lists statuses that count as "the franchise reached the client".
var progressed = map[domain.Status]bool{
	domain.StatusContacted:  true,
	domain.StatusQuoted:     true,
	domain.StatusNoResponse: true,
	domain.StatusRejected:   true,
	domain.StatusCancelled:  true,
	domain.StatusClosed:     true,
}

func (c *Checker) Check(ctx context.Context, job Job, ws *podio.WorkspaceMapping, itemID int64) (Verdict, error) {
	item, err := c.items.GetItem(ctx, ws.WorkspaceKey, itemID)
	if err != nil {
		return Verdict{}, fmt.Errorf("get podio item %d: %w", itemID, err)
	}

	switch job.Type {
	case TypeSLA24h:
		field := c.mapper.StatusField(ws.WorkspaceKey)
		status, ok := c.mapper.Inbound(ws.WorkspaceKey, item.CategoryLabel(field))
		if ok && progressed[status] {
			return Verdict{Log: "SLA 24h ok"}, nil
		}
		return Verdict{
			Charge: fmt.Sprintf("SLA 24h: lead %s ainda não está como Contatado no Podio.", job.LeadID),
			Log:    "SLA 24h cobrança enviada",
		}, nil

	case TypeSLA7d:
		if ws.SLA == nil || ws.SLA.StageField == "" {
			return Verdict{Log: "SLA 7d sem campo de etapa no mapeamento"}, nil
		}
		if item.Filled(ws.SLA.StageField) {
			return Verdict{Log: "SLA 7d ok"}, nil
		}
		return Verdict{
			Charge: fmt.Sprintf("SLA 7 dias: evento %s sem etapa/status no Podio.", job.LeadID),
			Log:    "SLA 7d cobrança enviada",
		}, nil

	case TypePostEvento:
		var missing int
		if ws.SLA != nil {
			for _, f := range ws.SLA.PostEventFields {
				if !item.Filled(f) {
					missing++
				}
			}
		}
		if missing == 0 {
			return Verdict{Log: "Pós-evento ok"}, nil
		}
		return Verdict{
			Charge: fmt.Sprintf("Pós-evento: campos pendentes (%d) para lead %s.", missing, job.LeadID),
			Log:    "Pós-evento cobrança enviada",
		}, nil
	}
	return Verdict{}, fmt.Errorf("unknown job type %q", job.Type)
}
