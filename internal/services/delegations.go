package services

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/taskivo/taskivo/internal/contact"
	"github.com/taskivo/taskivo/internal/model"
	"github.com/taskivo/taskivo/internal/store"
)

// Delegations hands tasks to assignees identified by phone number.
type Delegations struct {
	store store.Store
	log   zerolog.Logger
	now   func() time.Time
}

func NewDelegations(st store.Store, log zerolog.Logger) *Delegations {
	return &Delegations{store: st, log: log.With().Str("service", "delegations").Logger(), now: time.Now}
}

// Delegate records a delegation of taskID to the contact and retypes the
// task as delegated. The outbound invite is the caller's concern; a
// successful delegation with a failed invite stays committed.
func (s *Delegations) Delegate(ctx context.Context, delegatorID, taskID int64, card *contact.Card) (*model.Delegation, *model.Task, error) {
	task, err := s.store.Tasks().GetByID(ctx, delegatorID, taskID)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load task for delegation")
	}
	name := card.Name
	d, err := s.store.Delegations().Create(ctx, &model.Delegation{
		TaskID:        taskID,
		DelegatorID:   delegatorID,
		AssigneePhone: card.Phone,
		AssigneeName:  &name,
	})
	if err != nil {
		return nil, nil, errors.Wrap(err, "create delegation")
	}
	task.Type = model.TaskDelegated
	if err := s.store.Tasks().Update(ctx, task); err != nil {
		s.log.Warn().Err(err).Int64("task_id", taskID).Msg("retype delegated task failed")
	}
	return d, task, nil
}

// MarkSent stamps the invite send time. Best effort.
func (s *Delegations) MarkSent(ctx context.Context, delegationID int64) {
	if err := s.store.Delegations().MarkSent(ctx, delegationID, s.now()); err != nil {
		s.log.Warn().Err(err).Int64("delegation_id", delegationID).Msg("mark delegation sent failed")
	}
}

// Respond resolves the newest pending delegation addressed to phone and
// records the assignee's answer. The delegated task is returned so the
// caller can name it in the acknowledgement.
func (s *Delegations) Respond(ctx context.Context, phone string, accept bool) (*model.Delegation, *model.Task, error) {
	d, err := s.store.Delegations().LatestForAssignee(ctx, phone)
	if err != nil {
		return nil, nil, err
	}
	status := model.DelegationAccepted
	if !accept {
		status = model.DelegationRejected
	}
	d, err = s.store.Delegations().UpdateStatus(ctx, d.ID, status, s.now())
	if err != nil {
		return nil, nil, err
	}
	task, err := s.store.Tasks().GetByID(ctx, d.DelegatorID, d.TaskID)
	if err != nil {
		s.log.Warn().Err(err).Int64("delegation_id", d.ID).Msg("load delegated task failed")
		return d, nil, nil
	}
	return d, task, nil
}

func (s *Delegations) ListByDelegator(ctx context.Context, userID int64) ([]*model.Delegation, error) {
	return s.store.Delegations().ListByDelegator(ctx, userID)
}

func (s *Delegations) Get(ctx context.Context, delegationID int64) (*model.Delegation, error) {
	return s.store.Delegations().GetByID(ctx, delegationID)
}
