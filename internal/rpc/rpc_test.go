package rpc

import (
	"context"
	"io"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/honing-forecast/internal/rules"
	"github.com/xtding233/honing-forecast/internal/service"
)

func dial(t *testing.T) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	Register(s, NewHandler(service.New(rules.NewLoader(""), nil, "")))
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { cc.Close() })
	return NewClient(cc)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	return s
}

// one armor piece at +4: a real search over skips
func level4() []interface{} {
	row := make([]interface{}, 25)
	for i := range row {
		row[i] = i == 3
	}
	return []interface{}{row}
}

func TestSolveUnary(t *testing.T) {
	c := dial(t)
	var header metadata.MD
	out, err := c.Solve(context.Background(), mustStruct(t, map[string]interface{}{
		"budget":   []interface{}{0, 0, 0, 0, 0, 0, 0},
		"max_iter": 50,
	}), grpc.Header(&header))
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if got := out.Fields["chance"].GetNumberValue(); got != 1 {
		t.Fatalf("chance = %v, want 1", got)
	}
	if len(header.Get(RequestIDKey)) != 1 {
		t.Fatalf("request id header missing: %v", header)
	}
}

func TestSolveInvalidArgument(t *testing.T) {
	c := dial(t)
	_, err := c.Solve(context.Background(), mustStruct(t, map[string]interface{}{
		"desired_chance": 3,
	}))
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v, want InvalidArgument", status.Code(err))
	}
}

func TestSolveStreamSendsProgressThenResult(t *testing.T) {
	c := dial(t)
	stream, err := c.SolveStream(context.Background(), mustStruct(t, map[string]interface{}{
		"normal_hone_ticks": level4(),
		"mode":              "chance_to_cost",
		"desired_chance":    0.5,
		"seed":              9,
		"max_iter":          300,
	}))
	if err != nil {
		t.Fatalf("SolveStream: %v", err)
	}
	var progress int
	var final *structpb.Struct
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Recv: %v", err)
		}
		switch typ := msg.Fields["type"].GetStringValue(); typ {
		case "intermediate_result":
			if final != nil {
				t.Fatal("progress after final result")
			}
			if _, ok := msg.Fields["state_bundle"]; !ok {
				t.Fatal("progress without state_bundle")
			}
			progress++
		case "final_result":
			final = msg.Fields["result"].GetStructValue()
		default:
			t.Fatalf("unexpected message type %q", typ)
		}
	}
	if progress == 0 {
		t.Fatal("no intermediate results")
	}
	if final == nil {
		t.Fatal("no final result")
	}
	if got := final.Fields["realized_chance"].GetNumberValue(); got < 0.49 {
		t.Fatalf("realized chance = %v", got)
	}
	if _, ok := final.Fields["purchase"]; !ok {
		t.Fatal("final result has no purchase plan")
	}
}
