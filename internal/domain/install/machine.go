package install

import (
	"github.com/felixgeelhaar/statekit"
)

// Stage is a step of the install workflow.
type Stage string

// State ids as passed to statekit.
const (
	stateIdle             = "idle"
	stateResolving        = "resolving"
	stateFetchingManifest = "fetching_manifest"
	stateDownloading      = "downloading"
	stateValidating       = "validating"
	stateRegistering      = "registering"
	stateInstalled        = "installed"
	stateFailed           = "failed"
)

// Workflow stages.
const (
	StageIdle             Stage = stateIdle
	StageResolving        Stage = stateResolving
	StageFetchingManifest Stage = stateFetchingManifest
	StageDownloading      Stage = stateDownloading
	StageValidating       Stage = stateValidating
	StageRegistering      Stage = stateRegistering
	StageInstalled        Stage = stateInstalled
	StageFailed           Stage = stateFailed
)

// Event types for the install state machine.
const (
	EventResolve  = "RESOLVE"
	EventFetch    = "FETCH"
	EventDownload = "DOWNLOAD"
	EventValidate = "VALIDATE"
	EventRegister = "REGISTER"
	EventDone     = "DONE"
	EventFail     = "FAIL"
	EventReset    = "RESET"
)

// machineContext is the statekit context type. Actions write through the
// captured *Report rather than this value.
type machineContext struct {
	ExtensionID string
}

// buildMachine constructs the install workflow. Every working stage can
// fail; installed and failed can only be reset.
func buildMachine(report *Report) (*statekit.Interpreter[machineContext], error) {
	machine, err := statekit.NewMachine[machineContext]("extkit-install").
		WithInitial(stateIdle).
		WithContext(machineContext{ExtensionID: report.ExtensionID}).
		WithAction("recordFailure", func(_ *machineContext, event statekit.Event) {
			if err, ok := event.Payload.(error); ok {
				report.Err = err
			}
		}).
		State(stateIdle).
		On(EventResolve).Target(stateResolving).Done().
		State(stateResolving).
		On(EventFetch).Target(stateFetchingManifest).
		On(EventFail).Target(stateFailed).Done().
		State(stateFetchingManifest).
		On(EventDownload).Target(stateDownloading).
		On(EventFail).Target(stateFailed).Done().
		State(stateDownloading).
		On(EventValidate).Target(stateValidating).
		On(EventFail).Target(stateFailed).Done().
		State(stateValidating).
		On(EventRegister).Target(stateRegistering).
		On(EventFail).Target(stateFailed).Done().
		State(stateRegistering).
		On(EventDone).Target(stateInstalled).
		On(EventFail).Target(stateFailed).Done().
		State(stateInstalled).
		On(EventReset).Target(stateIdle).Done().
		State(stateFailed).
		OnEntry("recordFailure").
		On(EventReset).Target(stateIdle).Done().
		Build()
	if err != nil {
		return nil, err
	}

	return statekit.NewInterpreter(machine), nil
}
