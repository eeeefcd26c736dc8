package hierarchy

import (
	"context"

	"github.com/cockroachdb/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// #region service-desc
// The hierarchy service speaks protobuf well-known types only:
//
//	GetParents(StringValue) returns (ListValue)
//	GetChildren(StringValue) returns (ListValue)
//	Export(Empty) returns (Struct)   // parent -> list of children
const serviceName = "hpat.hierarchy.v1.Hierarchy"

const (
	methodGetParents  = "/" + serviceName + "/GetParents"
	methodGetChildren = "/" + serviceName + "/GetChildren"
	methodExport      = "/" + serviceName + "/Export"
)

// HierarchyServer is the server side of the hierarchy service.
type HierarchyServer interface {
	GetParents(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	GetChildren(context.Context, *wrapperspb.StringValue) (*structpb.ListValue, error)
	Export(context.Context, *emptypb.Empty) (*structpb.Struct, error)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*HierarchyServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetParents", Handler: getParentsHandler},
		{MethodName: "GetChildren", Handler: getChildrenHandler},
		{MethodName: "Export", Handler: exportHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hpat/hierarchy/v1/hierarchy.proto",
}

// RegisterHierarchyServer attaches srv to a gRPC server.
func RegisterHierarchyServer(s grpc.ServiceRegistrar, srv HierarchyServer) {
	s.RegisterService(&serviceDesc, srv)
}

func getParentsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HierarchyServer).GetParents(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetParents}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HierarchyServer).GetParents(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func getChildrenHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HierarchyServer).GetChildren(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetChildren}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HierarchyServer).GetChildren(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func exportHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(HierarchyServer).Export(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodExport}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(HierarchyServer).Export(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

// #endregion service-desc

// #region server
// Server serves a Static hierarchy.
type Server struct {
	h *Static
}

// NewServer wraps h.
func NewServer(h *Static) *Server {
	return &Server{h: h}
}

func (s *Server) GetParents(_ context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "concept is required")
	}
	return stringList(s.h.Parents(req.GetValue()))
}

func (s *Server) GetChildren(_ context.Context, req *wrapperspb.StringValue) (*structpb.ListValue, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "concept is required")
	}
	return stringList(s.h.Children(req.GetValue()))
}

func (s *Server) Export(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	fields := map[string]any{}
	for parent, kids := range s.h.Edges() {
		vals := make([]any, len(kids))
		for i, k := range kids {
			vals[i] = k
		}
		fields[parent] = vals
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode edges: %v", err)
	}
	return out, nil
}

func stringList(values []string) (*structpb.ListValue, error) {
	vals := make([]any, len(values))
	for i, v := range values {
		vals[i] = v
	}
	out, err := structpb.NewList(vals)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode list: %v", err)
	}
	return out, nil
}

// #endregion server

// #region client
// Client talks to a remote hierarchy service.
type Client struct {
	conn *grpc.ClientConn
	cc   grpc.ClientConnInterface
}

// Dial connects to the hierarchy service at addr.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "grpc dial %s", addr)
	}
	return &Client{conn: conn, cc: conn}, nil
}

// NewClientWithConn wraps an existing connection. Close is a no-op for it.
func NewClientWithConn(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close shuts down a connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Parents returns the transitive ancestors of concept.
func (c *Client) Parents(ctx context.Context, concept string) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodGetParents, wrapperspb.String(concept), out); err != nil {
		return nil, errors.Wrapf(err, "get parents of %s", concept)
	}
	return listStrings(out), nil
}

// Children returns the direct children of concept.
func (c *Client) Children(ctx context.Context, concept string) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, methodGetChildren, wrapperspb.String(concept), out); err != nil {
		return nil, errors.Wrapf(err, "get children of %s", concept)
	}
	return listStrings(out), nil
}

// Snapshot fetches every edge and builds a local Static provider.
func (c *Client) Snapshot(ctx context.Context) (*Static, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, methodExport, &emptypb.Empty{}, out); err != nil {
		return nil, errors.Wrap(err, "export hierarchy")
	}
	children := map[string][]string{}
	for parent, v := range out.GetFields() {
		children[parent] = listStrings(v.GetListValue())
	}
	return NewStatic(children), nil
}

func listStrings(lv *structpb.ListValue) []string {
	out := make([]string, 0, len(lv.GetValues()))
	for _, v := range lv.GetValues() {
		out = append(out, v.GetStringValue())
	}
	return out
}

// #endregion client
