package service

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName = "tacotruck.v1.Submission"

	SubmitMethod = "/" + ServiceName + "/Submit"
	ProbeMethod  = "/" + ServiceName + "/Probe"

	protoFile = "tacotruck/v1/submission.proto"
)

// SubmissionFile describes the service the way protoc would, and is
// registered globally so server reflection can answer describe requests.
var SubmissionFile = registerSubmissionFile()

func registerSubmissionFile() protoreflect.FileDescriptor {
	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(protoFile),
		Package:    proto.String("tacotruck.v1"),
		Dependency: []string{"google/protobuf/empty.proto", "google/protobuf/struct.proto"},
		Syntax:     proto.String("proto3"),
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("Submission"),
			Method: []*descriptorpb.MethodDescriptorProto{
				{
					Name:       proto.String("Submit"),
					InputType:  proto.String(".google.protobuf.Struct"),
					OutputType: proto.String(".google.protobuf.Struct"),
				},
				{
					Name:       proto.String("Probe"),
					InputType:  proto.String(".google.protobuf.Empty"),
					OutputType: proto.String(".google.protobuf.Struct"),
				},
			},
		}},
	}
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		panic(fmt.Sprintf("service: build %s: %v", protoFile, err))
	}
	if err := protoregistry.GlobalFiles.RegisterFile(fd); err != nil {
		panic(fmt.Sprintf("service: register %s: %v", protoFile, err))
	}
	return fd
}

// SubmissionService is the server side of tacotruck.v1.Submission. Messages
// are well-known types so no generated code is needed.
type SubmissionService interface {
	Submit(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Probe(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var SubmissionServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*SubmissionService)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: submitHandler},
		{MethodName: "Probe", Handler: probeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: protoFile,
}

func RegisterSubmissionServer(s grpc.ServiceRegistrar, srv SubmissionService) {
	s.RegisterService(&SubmissionServiceDesc, srv)
}

func submitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SubmissionService).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SubmitMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SubmissionService).Submit(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func probeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SubmissionService).Probe(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ProbeMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SubmissionService).Probe(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// SubmissionClient calls tacotruck.v1.Submission.
type SubmissionClient struct {
	cc grpc.ClientConnInterface
}

func NewSubmissionClient(cc grpc.ClientConnInterface) *SubmissionClient {
	return &SubmissionClient{cc: cc}
}

func (c *SubmissionClient) Submit(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, SubmitMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *SubmissionClient) Probe(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, ProbeMethod, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
