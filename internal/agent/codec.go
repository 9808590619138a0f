package agent

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/Vincent-lau/hpcsim/internal/launcher"
)

var ErrBadMessage = errors.New("malformed step message")

func encodeStep(step launcher.Step) (*structpb.Struct, error) {
	argv := make([]interface{}, len(step.Argv))
	for i, a := range step.Argv {
		argv[i] = a
	}
	return structpb.NewStruct(map[string]interface{}{
		"argv": argv,
		"seq":  step.Seq,
		"slot": step.Slot,
		"job":  step.JobNum,
	})
}

func decodeStep(s *structpb.Struct) (launcher.Step, error) {
	fields := s.GetFields()
	list := fields["argv"].GetListValue()
	if list == nil {
		return launcher.Step{}, fmt.Errorf("%w: no argv", ErrBadMessage)
	}

	step := launcher.Step{
		Seq:    int(fields["seq"].GetNumberValue()),
		Slot:   int(fields["slot"].GetNumberValue()),
		JobNum: int(fields["job"].GetNumberValue()),
	}
	for _, v := range list.GetValues() {
		a, ok := v.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return launcher.Step{}, fmt.Errorf("%w: argv holds a non string", ErrBadMessage)
		}
		step.Argv = append(step.Argv, a.StringValue)
	}
	return step, nil
}

func encodeResult(r launcher.Result) (*structpb.Struct, error) {
	m := map[string]interface{}{
		"stdout":      base64.StdEncoding.EncodeToString(r.Stdout),
		"stderr":      base64.StdEncoding.EncodeToString(r.Stderr),
		"exit_code":   r.ExitCode,
		"node":        r.Node,
		"start":       r.Start.Format(time.RFC3339Nano),
		"duration_us": r.Duration.Microseconds(),
	}
	if r.Err != nil {
		m["error"] = r.Err.Error()
	}
	return structpb.NewStruct(m)
}

func decodeResult(step launcher.Step, s *structpb.Struct) (launcher.Result, error) {
	fields := s.GetFields()
	r := launcher.Result{
		Step:     step,
		ExitCode: int(fields["exit_code"].GetNumberValue()),
		Node:     fields["node"].GetStringValue(),
		Duration: time.Duration(fields["duration_us"].GetNumberValue()) * time.Microsecond,
	}

	var err error
	if r.Stdout, err = base64.StdEncoding.DecodeString(fields["stdout"].GetStringValue()); err != nil {
		return r, fmt.Errorf("%w: stdout: %v", ErrBadMessage, err)
	}
	if r.Stderr, err = base64.StdEncoding.DecodeString(fields["stderr"].GetStringValue()); err != nil {
		return r, fmt.Errorf("%w: stderr: %v", ErrBadMessage, err)
	}
	if start := fields["start"].GetStringValue(); start != "" {
		if r.Start, err = time.Parse(time.RFC3339Nano, start); err != nil {
			return r, fmt.Errorf("%w: start: %v", ErrBadMessage, err)
		}
	}
	if msg := fields["error"].GetStringValue(); msg != "" {
		r.Err = errors.New(msg)
	}
	return r, nil
}
