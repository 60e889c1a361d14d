package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client calls SorterService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client { return &Client{cc: cc} }

func (c *Client) invoke(ctx context.Context, method string, req map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(req)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Run queues a run; stages may be empty for all of them.
func (c *Client) Run(ctx context.Context, stages []string, master string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	req := map[string]any{}
	if len(stages) > 0 {
		list := make([]any, len(stages))
		for i, s := range stages {
			list[i] = s
		}
		req["stages"] = list
	}
	if master != "" {
		req["master"] = master
	}
	return c.invoke(ctx, "Run", req, opts...)
}

func (c *Client) GetRun(ctx context.Context, runID string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetRun", map[string]any{"run_id": runID}, opts...)
}

func (c *Client) ListRuns(ctx context.Context, limit int, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "ListRuns", map[string]any{"limit": limit}, opts...)
}
