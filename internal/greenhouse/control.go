package greenhouse

import (
	"context"
	"fmt"
	"strconv"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The control service lets automation read the simulated state and inject
// activation commands without going through the broker. Messages are
// protobuf well-known types, so no generated code is needed.
const (
	controlServiceName    = "greenhouse.Control"
	controlGetStateMethod = "/" + controlServiceName + "/GetState"
	controlActivateMethod = "/" + controlServiceName + "/Activate"
)

// ControlServer is the server API of greenhouse.Control.
type ControlServer interface {
	GetState(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Activate takes {"topic": "...", "payload": "..."} and reports whether
	// the command was applied.
	Activate(context.Context, *structpb.Struct) (*wrapperspb.BoolValue, error)
}

// ControlServiceDesc describes greenhouse.Control for grpc.Server.RegisterService.
var ControlServiceDesc = grpc.ServiceDesc{
	ServiceName: controlServiceName,
	HandlerType: (*ControlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetState", Handler: controlGetStateHandler},
		{MethodName: "Activate", Handler: controlActivateHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "greenhouse/control.proto",
}

// RegisterControlServer registers srv on s.
func RegisterControlServer(s grpc.ServiceRegistrar, srv ControlServer) {
	s.RegisterService(&ControlServiceDesc, srv)
}

func controlGetStateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).GetState(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: controlGetStateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).GetState(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func controlActivateHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ControlServer).Activate(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: controlActivateMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ControlServer).Activate(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// ControlHandler implements ControlServer on top of an Engine.
type ControlHandler struct {
	engine *Engine
}

var _ ControlServer = (*ControlHandler)(nil)

func NewControlHandler(e *Engine) *ControlHandler { return &ControlHandler{engine: e} }

func (h *ControlHandler) GetState(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return stateToStruct(h.engine.Snapshot())
}

// Activate routes the command like an MQTT delivery; a dropped command is
// reported as false, not as an RPC error.
func (h *ControlHandler) Activate(_ context.Context, req *structpb.Struct) (*wrapperspb.BoolValue, error) {
	fields := req.GetFields()
	topic := fields["topic"].GetStringValue()
	payload := fields["payload"].GetStringValue()
	err := h.engine.Router().Route(topic, []byte(payload))
	return wrapperspb.Bool(err == nil), nil
}

// ControlClient calls greenhouse.Control.
type ControlClient struct {
	cc grpc.ClientConnInterface
}

func NewControlClient(cc grpc.ClientConnInterface) *ControlClient {
	return &ControlClient{cc: cc}
}

func (c *ControlClient) GetState(ctx context.Context, opts ...grpc.CallOption) (State, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, controlGetStateMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return State{}, err
	}
	return structToState(out)
}

func (c *ControlClient) Activate(ctx context.Context, topic, payload string, opts ...grpc.CallOption) (bool, error) {
	in, err := structpb.NewStruct(map[string]interface{}{"topic": topic, "payload": payload})
	if err != nil {
		return false, err
	}
	out := new(wrapperspb.BoolValue)
	if err := c.cc.Invoke(ctx, controlActivateMethod, in, out, opts...); err != nil {
		return false, err
	}
	return out.GetValue(), nil
}

func stateToStruct(st State) (*structpb.Struct, error) {
	moisture := make(map[string]interface{}, len(st.Moisture))
	for plant, v := range st.Moisture {
		moisture[strconv.Itoa(plant)] = v
	}
	return structpb.NewStruct(map[string]interface{}{
		"temperature":     st.Temperature,
		"humidity":        st.Humidity,
		"light":           st.Light,
		"light_forced_on": st.LightForcedOn,
		"moisture":        moisture,
	})
}

func structToState(s *structpb.Struct) (State, error) {
	f := s.GetFields()
	st := State{
		Temperature:   int(f["temperature"].GetNumberValue()),
		Humidity:      int(f["humidity"].GetNumberValue()),
		Light:         int(f["light"].GetNumberValue()),
		LightForcedOn: f["light_forced_on"].GetBoolValue(),
		Moisture:      make(map[int]int),
	}
	for k, v := range f["moisture"].GetStructValue().GetFields() {
		plant, err := strconv.Atoi(k)
		if err != nil {
			return State{}, fmt.Errorf("bad plant id %q in state", k)
		}
		st.Moisture[plant] = int(v.GetNumberValue())
	}
	return st, nil
}
