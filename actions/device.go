//go:generate go run ../codegen/cmd/actiongen .

package actions

import (
	"context"
	"errors"

	"github.com/simon020286/go-flightplan/builder"
	"github.com/simon020286/go-flightplan/device"
	"github.com/simon020286/go-flightplan/models"
)

// @action name=calibrate category=device description=Flat trim; the drone must rest on a flat surface
type CalibrateConfig struct{}

// @action name=keep_alive category=device description=Starts the periodic ping the firmware needs to accept commands
type KeepAliveConfig struct{}

// @action name=takeoff category=device description=Takes off and climbs to hover height
type TakeOffConfig struct{}

// @action name=land category=device description=Lands in place
type LandConfig struct{}

var errNoDevice = errors.New("action requires a device")

// deviceCommand adapts one device method into an action.
// The device call itself takes no context; a cancelled context only
// prevents the command from being sent.
func deviceCommand(command func(device.Device) error) builder.ActionFactory {
	return func(cfg map[string]any, env *builder.Env) (models.Action, error) {
		if env.Device == nil {
			return nil, errNoDevice
		}
		dev := env.Device
		return func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return command(dev)
		}, nil
	}
}

func init() {
	builder.RegisterActionType("calibrate", deviceCommand(device.Device.Calibrate))
	builder.RegisterActionType("keep_alive", deviceCommand(device.Device.StartKeepAlive))
	builder.RegisterActionType("takeoff", deviceCommand(device.Device.TakeOff))
	builder.RegisterActionType("land", deviceCommand(device.Device.Land))
}
