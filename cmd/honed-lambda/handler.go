package main

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"github.com/xtding233/honing-forecast/internal/payload"
	"github.com/xtding233/honing-forecast/internal/service"
)

var jsonHeader = map[string]string{
	"Content-Type": "application/json",
}

type handler struct {
	svc *service.Service
}

func (h handler) handle(ctx context.Context, event events.LambdaFunctionURLRequest) (events.LambdaFunctionURLResponse, error) {
	body := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return respond(http.StatusBadRequest, payload.ErrorReply{Error: "invalid base64 body", Kind: payload.KindInputShape})
		}
		body = string(decoded)
	}

	req, err := payload.Parse([]byte(body))
	if err != nil {
		return respond(http.StatusBadRequest, payload.NewError(err))
	}
	reply, err := h.svc.Solve(ctx, req, nil)
	if err != nil {
		log.Warn().Err(err).Str("request_id", event.RequestContext.RequestID).Msg("solve failed")
		code := http.StatusInternalServerError
		switch payload.Kind(err) {
		case payload.KindInputShape:
			code = http.StatusBadRequest
		case payload.KindCancelled:
			code = http.StatusServiceUnavailable
		}
		return respond(code, payload.NewError(err))
	}
	return respond(http.StatusOK, reply)
}

func respond(code int, v interface{}) (events.LambdaFunctionURLResponse, error) {
	b, err := payload.Encode(v)
	if err != nil {
		return events.LambdaFunctionURLResponse{}, err
	}
	return events.LambdaFunctionURLResponse{StatusCode: code, Headers: jsonHeader, Body: string(b)}, nil
}
