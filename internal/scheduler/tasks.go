package scheduler

import (
	"encoding/json"

	"wchic_backend/internal/statussync"

	"github.com/hibiken/asynq"
)

const TaskPodioSyncLead = "podio.sync_lead"

const TaskPodioHookReconcile = "podio.hook_reconcile"

type PodioSyncLeadPayload struct {
	LeadID string `json:"leadId"`
	Reason string `json:"reason,omitempty"`
}

func NewPodioSyncLeadTask(payload PodioSyncLeadPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPodioSyncLead, data), nil
}

func ParsePodioSyncLeadPayload(task *asynq.Task) (PodioSyncLeadPayload, error) {
	var payload PodioSyncLeadPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return PodioSyncLeadPayload{}, err
	}
	return payload, nil
}

func NewPodioHookReconcileTask(hook statussync.InboundHook) (*asynq.Task, error) {
	data, err := json.Marshal(hook)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPodioHookReconcile, data), nil
}

func ParsePodioHookReconcilePayload(task *asynq.Task) (statussync.InboundHook, error) {
	var hook statussync.InboundHook
	if err := json.Unmarshal(task.Payload(), &hook); err != nil {
		return statussync.InboundHook{}, err
	}
	return hook, nil
}
