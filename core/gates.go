package core

import "github.com/signalsfoundry/surface-survey/model"

// Status strings reported by an instrument.
const (
	StatusDisabled         = "Disabled"
	StatusActivating       = "Activating"
	StatusDisconnected     = "Disconnected"
	StatusNoCrew           = "No Crew"
	StatusNoStorage        = "No Storage"
	StatusWrongEnvironment = "Wrong Environment"
	StatusWrongSpeed       = "Wrong Speed"
	StatusNoPower          = "No Power"
	StatusNoOutput         = "No Output"
	StatusContainerFull    = "Container Full"
)

// gateInputs is what the precondition gates look at.
type gateInputs struct {
	active               bool
	experiment           *model.Experiment
	requireControlSource bool
	container            Container
	seat                 Seat
}

// gateOutcome is either a terminal status, a silent skip, or a container to
// proceed with.
type gateOutcome struct {
	status    string
	skip      bool
	container Container
}

func (o gateOutcome) proceed() bool { return !o.skip && o.status == "" }

// evaluateGates runs the precondition gates in their fixed order.
func evaluateGates(in gateInputs, env Environment) gateOutcome {
	if !in.active {
		return gateOutcome{status: StatusDisabled}
	}
	if env.WarpRate > 1 && env.HighWarp {
		return gateOutcome{skip: true}
	}

	seatOccupied := in.seat != nil && in.seat.Occupied()

	if in.experiment == nil || env.Vessel == nil || env.Body == nil ||
		(in.container == nil && in.seat == nil) || !env.Vessel.Controllable {
		return gateOutcome{status: StatusDisconnected}
	}

	if in.requireControlSource && !env.ControlSource && !seatOccupied {
		return gateOutcome{status: StatusNoCrew}
	}

	container := in.container
	if container == nil && seatOccupied {
		container = in.seat.OccupantContainer()
	}
	if container == nil {
		return gateOutcome{status: StatusNoStorage}
	}

	return gateOutcome{container: container}
}
