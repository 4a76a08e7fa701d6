package usecase

import (
	"context"

	"QuantCore/pkg/logger"
	"QuantCore/pkg/queue"
)

// RebalanceMessageType routes on-demand rebalance requests through the queue.
const RebalanceMessageType = "portfolio.rebalance"

// RebalanceRequest is the queue payload for an on-demand rebalance.
type RebalanceRequest struct {
	Reason string `json:"reason,omitempty"`
}

// RebalanceJob runs a portfolio rebalance when a request is dequeued. The
// scheduled rebalancer keeps its own ticker; this job serves operator- and
// API-triggered runs.
type RebalanceJob struct {
	rebalancer *Rebalancer
	log        *logger.Logger
}

func NewRebalanceJob(rebalancer *Rebalancer, log *logger.Logger) *RebalanceJob {
	if log == nil {
		log = logger.Nop()
	}
	return &RebalanceJob{rebalancer: rebalancer, log: log}
}

func (j *RebalanceJob) Name() string { return "rebalance" }

func (j *RebalanceJob) Type() string { return RebalanceMessageType }

func (j *RebalanceJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := queue.ParsePayload[RebalanceRequest](payload)
	if err != nil {
		return err
	}
	j.log.Info("on-demand rebalance", logger.String("reason", req.Reason))
	j.rebalancer.RebalanceOnce(ctx)
	return nil
}
