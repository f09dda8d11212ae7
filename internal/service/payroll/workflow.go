package payroll

import (
	"fmt"

	"github.com/cmlabs-hris/hris-payroll-batch/internal/domain/payroll"
)

// RunState is the whole state of one payroll run. Only Reduce produces a new one.
type RunState struct {
	Stage payroll.RunStage
	Form  payroll.RunForm

	AllowUnresolved bool
	Resolution      *ScopeResolution
	Overlap         *payroll.OverlapVerdict
	Preview         *payroll.PreviewResult
	Result          *payroll.BatchApprovalResult
	Failure         *payroll.RunFailure
}

// Locked reports whether period and scope are frozen for the current run.
func (s RunState) Locked() bool {
	return s.Stage != payroll.StageIdle
}

// Event is an input to Reduce.
type Event interface {
	Name() string
}

type DraftChanged struct{ Form payroll.RunForm }

// OverlapChecked records the duplicate check of the preview gate. The stage is unchanged.
type OverlapChecked struct{ Verdict payroll.OverlapVerdict }

// PreviewStarted keeps the verdict of the preceding OverlapChecked.
type PreviewStarted struct {
	Resolution      ScopeResolution
	AllowUnresolved bool
}

type PreviewSucceeded struct{ Preview payroll.PreviewResult }

type PreviewFailed struct{ Err error }

type SubmitStarted struct{}

type SubmitSucceeded struct{ Result payroll.BatchApprovalResult }

type SubmitFailed struct{ Err error }

type Acknowledged struct{}

type ResetRequested struct{}

func (DraftChanged) Name() string { return "draft_changed" }
func (OverlapChecked) Name() string { return "overlap_checked" }
func (PreviewStarted) Name() string { return "preview_started" }
func (PreviewSucceeded) Name() string { return "preview_succeeded" }
func (PreviewFailed) Name() string { return "preview_failed" }
func (SubmitStarted) Name() string { return "submit_started" }
func (SubmitSucceeded) Name() string { return "submit_succeeded" }
func (SubmitFailed) Name() string { return "submit_failed" }
func (Acknowledged) Name() string { return "acknowledged" }
func (ResetRequested) Name() string { return "reset_requested" }

// CanApply reports whether event is legal in the current stage without applying it.
func CanApply(s RunState, event Event) error {
	_, err := Reduce(s, event)
	return err
}

// Reduce applies event to s. It never mutates s. Illegal events return
// payroll.ErrIllegalTransition, or payroll.ErrScopeLocked for draft edits
// after a preview was requested.
func Reduce(s RunState, event Event) (RunState, error) {
	next := s

	switch e := event.(type) {
	case DraftChanged:
		if s.Stage != payroll.StageIdle {
			return s, payroll.ErrScopeLocked
		}
		next.Form = e.Form
		next.Resolution = nil
		next.Overlap = nil
		next.Preview = nil
		return next, nil

	case OverlapChecked:
		if s.Stage != payroll.StageIdle && s.Stage != payroll.StageError {
			return s, illegal(s.Stage, event)
		}
		verdict := e.Verdict
		next.Overlap = &verdict
		return next, nil

	case PreviewStarted:
		if s.Stage != payroll.StageIdle && s.Stage != payroll.StageError {
			return s, illegal(s.Stage, event)
		}
		resolution := e.Resolution
		next.Stage = payroll.StagePreviewing
		next.AllowUnresolved = e.AllowUnresolved
		next.Resolution = &resolution
		next.Preview = nil
		next.Result = nil
		next.Failure = nil
		return next, nil

	case PreviewSucceeded:
		if s.Stage != payroll.StagePreviewing {
			return s, illegal(s.Stage, event)
		}
		preview := e.Preview
		next.Stage = payroll.StagePreviewed
		next.Preview = &preview
		return next, nil

	case PreviewFailed:
		if s.Stage != payroll.StagePreviewing {
			return s, illegal(s.Stage, event)
		}
		next.Stage = payroll.StageError
		next.Failure = failure(payroll.StepPreview, e.Err)
		return next, nil

	case SubmitStarted:
		switch {
		case s.Stage == payroll.StagePreviewed:
		case s.Stage == payroll.StageError && s.Failure != nil && s.Failure.Step == payroll.StepSubmit && s.Preview != nil:
		default:
			return s, illegal(s.Stage, event)
		}
		next.Stage = payroll.StageProcessing
		next.Failure = nil
		return next, nil

	case SubmitSucceeded:
		if s.Stage != payroll.StageProcessing {
			return s, illegal(s.Stage, event)
		}
		result := e.Result
		next.Stage = payroll.StageCompleted
		next.Result = &result
		return next, nil

	case SubmitFailed:
		if s.Stage != payroll.StageProcessing {
			return s, illegal(s.Stage, event)
		}
		next.Stage = payroll.StageError
		next.Failure = failure(payroll.StepSubmit, e.Err)
		return next, nil

	case Acknowledged:
		if s.Stage != payroll.StageError {
			return s, illegal(s.Stage, event)
		}
		return cleared(s), nil

	case ResetRequested:
		if s.Stage == payroll.StagePreviewing || s.Stage == payroll.StageProcessing {
			return s, illegal(s.Stage, event)
		}
		return cleared(s), nil
	}

	return s, fmt.Errorf("%w: unknown event %T", payroll.ErrIllegalTransition, event)
}

// cleared keeps the form and drops everything derived from it.
func cleared(s RunState) RunState {
	return RunState{Stage: payroll.StageIdle, Form: s.Form}
}

func failure(step payroll.RunStep, err error) *payroll.RunFailure {
	f := &payroll.RunFailure{Step: step, Retryable: true}
	if err != nil {
		f.Message = err.Error()
		f.Retryable = payroll.IsRetryable(err)
	}
	return f
}

func illegal(stage payroll.RunStage, event Event) error {
	return fmt.Errorf("%w: %s is not allowed while %s", payroll.ErrIllegalTransition, event.Name(), stage)
}
