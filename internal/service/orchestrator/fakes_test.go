package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	awsx "github.com/kartikmanimuthu/nucleus-platform-sub001/internal/aws"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/domain"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/store"
	"github.com/kartikmanimuthu/nucleus-platform-sub001/internal/service/tracker"
)

// Mock metadata store
type fakeStore struct {
	mu        sync.Mutex
	schedules []domain.Schedule
	accounts  []domain.Account
	listErr   error
	recorded  []string
}

func (f *fakeStore) ListActiveSchedulesStrict(ctx context.Context) ([]domain.Schedule, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.schedules, nil
}

func (f *fakeStore) GetSchedule(ctx context.Context, scheduleID, tenantID string) (*domain.Schedule, error) {
	for _, s := range f.schedules {
		if s.ScheduleID == scheduleID && (tenantID == "" || s.TenantID == tenantID) {
			s := s
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrScheduleNotFound, scheduleID)
}

func (f *fakeStore) FindScheduleByName(ctx context.Context, name, tenantID string) (*domain.Schedule, error) {
	for _, s := range f.schedules {
		if s.Name == name && (tenantID == "" || s.TenantID == tenantID) {
			s := s
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", store.ErrScheduleNotFound, name)
}

func (f *fakeStore) ListActiveAccounts(ctx context.Context) ([]domain.Account, error) {
	return f.accounts, nil
}

func (f *fakeStore) RecordLastExecution(ctx context.Context, schedule domain.Schedule, executionID string, status domain.ExecutionStatus, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recorded = append(f.recorded, schedule.ScheduleID+":"+string(status))
}

// Mock credential broker
type fakeBroker struct {
	mu     sync.Mutex
	inputs []awsx.AssumeRoleInput
}

func (f *fakeBroker) AssumeRole(ctx context.Context, in awsx.AssumeRoleInput) (awsx.Credentials, error) {
	f.mu.Lock()
	f.inputs = append(f.inputs, in)
	f.mu.Unlock()
	if in.RoleArn == "" || in.RoleArn == "invalid" {
		return awsx.Credentials{}, &awsx.CredentialError{AccountID: in.AccountID, Region: in.Region, RoleArn: in.RoleArn, Code: "AccessDenied", Err: errors.New("not authorized")}
	}
	return awsx.Credentials{AccessKeyID: "AKIA" + in.AccountID, Region: in.Region}, nil
}

// Mock execution tracker (in-memory)
type fakeTracker struct {
	mu         sync.Mutex
	executions []domain.ExecutionRecord
	states     map[string][]domain.LastKnownState
	saveErr    error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{states: make(map[string][]domain.LastKnownState)}
}

func (f *fakeTracker) SaveExecution(ctx context.Context, record domain.ExecutionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.executions = append(f.executions, record)
	return nil
}

func (f *fakeTracker) GetLastKnownState(ctx context.Context, tenantID, scheduleID, resourceArn string) (*domain.LastKnownState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.states[tracker.StateKey(tenantID, scheduleID, resourceArn)]
	if len(entries) == 0 {
		return nil, nil
	}
	last := entries[len(entries)-1]
	return &last, nil
}

func (f *fakeTracker) PutLastKnownState(ctx context.Context, state domain.LastKnownState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := tracker.StateKey(state.TenantID, state.ScheduleID, state.ResourceArn)
	f.states[key] = append(f.states[key], state)
	return nil
}

// Mock audit sink
type fakeAudit struct {
	mu     sync.Mutex
	events []string
	actors []domain.Actor
	runs   []domain.RunResult
}

func (f *fakeAudit) add(event string, actor domain.Actor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	f.actors = append(f.actors, actor)
}

func (f *fakeAudit) count(event string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, e := range f.events {
		if e == event {
			n++
		}
	}
	return n
}

func (f *fakeAudit) ExecutionSummary(ctx context.Context, actor domain.Actor, schedule domain.Schedule, executionID string, status domain.ExecutionStatus, tally domain.Tally, duration time.Duration) {
	f.add("execution", actor)
}

func (f *fakeAudit) RunSummary(ctx context.Context, actor domain.Actor, result domain.RunResult) {
	f.add("run", actor)
	f.mu.Lock()
	f.runs = append(f.runs, result)
	f.mu.Unlock()
}

func (f *fakeAudit) CredentialFailure(ctx context.Context, actor domain.Actor, schedule domain.Schedule, accountID, region string, resources int, err error) {
	f.add("credential", actor)
}

func (f *fakeAudit) ResourceFailure(ctx context.Context, actor domain.Actor, schedule domain.Schedule, executionID string, r domain.ResourceResult) {
	f.add("resource", actor)
}

func (f *fakeAudit) ScheduleSkipped(ctx context.Context, actor domain.Actor, schedule domain.Schedule, reason string) {
	f.add("skipped", actor)
}

func (f *fakeAudit) RunFailed(ctx context.Context, actor domain.Actor, executionID string, mode domain.RunMode, err error) {
	f.add("failed", actor)
}

// Mock notifier
type fakeNotifier struct {
	subjects []string
}

func (f *fakeNotifier) Notify(ctx context.Context, subject, message string) error {
	f.subjects = append(f.subjects, subject)
	return nil
}

// fakeCloud はARNごとの稼働状態を持つ疑似クラウド
type fakeCloud struct {
	mu        sync.Mutex
	running   map[string]bool
	failArns  map[string]bool
	panicArn  string
	mutations int
	regions   []string
}

func newFakeCloud() *fakeCloud {
	return &fakeCloud{running: make(map[string]bool), failArns: make(map[string]bool)}
}

func (c *fakeCloud) factory(cfg aws.Config) map[domain.ResourceKind]domain.Reconciler {
	c.mu.Lock()
	c.regions = append(c.regions, cfg.Region)
	c.mu.Unlock()
	return map[domain.ResourceKind]domain.Reconciler{
		domain.KindComputeInstance:  &fakeReconciler{kind: domain.KindComputeInstance, cloud: c},
		domain.KindManagedDatabase:  &fakeReconciler{kind: domain.KindManagedDatabase, cloud: c},
		domain.KindContainerService: &fakeReconciler{kind: domain.KindContainerService, cloud: c},
	}
}

type fakeReconciler struct {
	kind  domain.ResourceKind
	cloud *fakeCloud
}

func (r *fakeReconciler) Kind() domain.ResourceKind { return r.kind }

func (r *fakeReconciler) Reconcile(ctx context.Context, req domain.ReconcileRequest) domain.ResourceResult {
	c := r.cloud
	arn := req.Resource.Arn
	if arn == c.panicArn {
		panic("unexpected nil pointer")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	state := stateName(c.running[arn])
	if c.failArns[arn] {
		return domain.FailedResult(req.Resource, r.kind, req.Action, errors.New("ThrottlingException"))
	}
	want := req.Action == domain.ActionStart
	if c.running[arn] == want {
		return domain.SkippedResult(req.Resource, r.kind, state)
	}
	c.running[arn] = want
	c.mutations++
	return domain.ResourceResult{
		ResourceID:    req.Resource.ID,
		Arn:           arn,
		Kind:          r.kind,
		Action:        req.Action,
		Status:        domain.ResultSuccess,
		PreviousState: state,
		NewState:      stateName(want),
	}
}

func stateName(running bool) string {
	if running {
		return "running"
	}
	return "stopped"
}
