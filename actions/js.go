package actions

import (
	"context"
	"errors"
	"fmt"

	"github.com/dop251/goja"

	"github.com/simon020286/go-flightplan/builder"
	"github.com/simon020286/go-flightplan/models"
)

// @action name=js category=script description=Runs JavaScript with drone and log bindings; returning false fails the step
type JsConfig struct {
	Code string `action:"name=code,required,desc=Function body; may use return"`
}

var errScriptFalse = errors.New("script returned false")

type jsAction struct {
	code string
	env  *builder.Env
}

func (s *jsAction) run(ctx context.Context) error {
	runtime := goja.New()

	// Interrupt the script when the step is cancelled or times out
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			runtime.Interrupt(ctx.Err())
		case <-stop:
		}
	}()

	if err := s.bind(runtime); err != nil {
		return fmt.Errorf("failed to set bindings in JavaScript runtime: %w", err)
	}

	// Wrap the code in an anonymous function to allow return usage
	wrappedCode := "(function() {\n" + s.code + "\n})()"

	result, err := runtime.RunString(wrappedCode)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) && ctx.Err() != nil {
			return fmt.Errorf("script interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("JavaScript execution error: %w", err)
	}

	if ok, isBool := result.Export().(bool); isBool && !ok {
		return errScriptFalse
	}
	return nil
}

// bind exposes log(msg) and, when a device is present, the drone object
func (s *jsAction) bind(runtime *goja.Runtime) error {
	logger := s.env.Logger
	if err := runtime.Set("log", func(call goja.FunctionCall) goja.Value {
		logger.Info(call.Argument(0).String())
		return goja.Undefined()
	}); err != nil {
		return err
	}

	if s.env.Device == nil {
		return nil
	}
	dev := s.env.Device

	command := func(f func() error) func(goja.FunctionCall) goja.Value {
		return func(goja.FunctionCall) goja.Value {
			if err := f(); err != nil {
				panic(runtime.NewGoError(err))
			}
			return goja.Undefined()
		}
	}

	drone := runtime.NewObject()
	bindings := map[string]any{
		"takeOff":   command(dev.TakeOff),
		"land":      command(dev.Land),
		"calibrate": command(dev.Calibrate),
		"keepAlive": command(dev.StartKeepAlive),
		"name": func(goja.FunctionCall) goja.Value {
			return runtime.ToValue(dev.Name())
		},
	}
	for name, fn := range bindings {
		if err := drone.Set(name, fn); err != nil {
			return err
		}
	}
	return runtime.Set("drone", drone)
}

func init() {
	builder.RegisterActionType("js", func(cfg map[string]any, env *builder.Env) (models.Action, error) {
		code, err := builder.RequiredStringParam(cfg, "code")
		if err != nil {
			return nil, err
		}
		if _, err := goja.Compile("flightplan.js", "(function() {\n"+code+"\n})()", false); err != nil {
			return nil, fmt.Errorf("invalid script: %w", err)
		}

		s := &jsAction{code: code, env: env}
		return s.run, nil
	})
}
