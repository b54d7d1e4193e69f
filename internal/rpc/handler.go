package rpc

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtding233/honing-forecast/internal/payload"
	"github.com/xtding233/honing-forecast/internal/service"
)

// RequestIDKey is the metadata key carrying the request ID.
const RequestIDKey = "x-request-id"

// Handler implements SolverServer on top of a service.
type Handler struct {
	svc *service.Service
}

func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Solve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id := requestID(ctx)
	_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, id))

	req, err := decode(in)
	if err != nil {
		return nil, toStatus(err)
	}
	reply, err := h.svc.Solve(ctx, req, nil)
	if err != nil {
		log.Warn().Err(err).Str("request_id", id).Msg("grpc solve failed")
		return nil, toStatus(err)
	}
	return encode(reply)
}

func (h *Handler) SolveStream(in *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	ctx := stream.Context()
	id := requestID(ctx)
	_ = stream.SetHeader(metadata.Pairs(RequestIDKey, id))

	req, err := decode(in)
	if err != nil {
		return toStatus(err)
	}
	// progress runs on the solving goroutine, so sends are serialized
	var sendErr error
	reply, err := h.svc.Solve(ctx, req, func(p payload.Progress) {
		if sendErr != nil {
			return
		}
		msg, err := encode(p)
		if err == nil {
			err = stream.Send(msg)
		}
		sendErr = err
	})
	if err != nil {
		log.Warn().Err(err).Str("request_id", id).Msg("grpc stream solve failed")
		return toStatus(err)
	}
	if sendErr != nil {
		return sendErr
	}
	msg, err := encode(map[string]interface{}{"type": "final_result", "result": reply})
	if err != nil {
		return err
	}
	return stream.Send(msg)
}

func requestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(RequestIDKey); len(v) > 0 {
			if _, err := uuid.Parse(v[0]); err == nil {
				return v[0]
			}
		}
	}
	return uuid.New().String()
}

func decode(in *structpb.Struct) (payload.Request, error) {
	b, err := protojson.Marshal(in)
	if err != nil {
		return payload.Request{}, errors.Wrap(err, "decode request")
	}
	return payload.Parse(b)
}

func encode(v interface{}) (*structpb.Struct, error) {
	b, err := payload.Encode(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(b, out); err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch payload.Kind(err) {
	case payload.KindInputShape:
		return status.Error(codes.InvalidArgument, err.Error())
	case payload.KindConfig:
		return status.Error(codes.FailedPrecondition, err.Error())
	case payload.KindCancelled:
		if errors.Is(err, context.DeadlineExceeded) {
			return status.Error(codes.DeadlineExceeded, err.Error())
		}
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}
