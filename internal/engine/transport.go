package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"signclient/internal/domain"
	"signclient/internal/jsonrpc"
)

// sendRequest records req in history, encrypts it for topic and publishes it.
// A waiter registered under (req.Method, req.ID) is dropped on failure.
func (e *Engine) sendRequest(ctx context.Context, topic string, req jsonrpc.Request, chainID string) error {
	if err := e.history.Set(topic, req, chainID); err != nil {
		e.waiters.cancel(req.Method, req.ID)
		return err
	}
	if err := e.publish(ctx, topic, req); err != nil {
		e.waiters.cancel(req.Method, req.ID)
		e.logTeardown("history", e.history.Delete(topic, req.ID))
		return fmt.Errorf("send %s: %w", req.Method, err)
	}
	e.log.Debug("sent request", zap.String("method", req.Method), zap.Int64("id", req.ID), zap.String("topic", topic))
	return nil
}

func (e *Engine) sendResult(ctx context.Context, topic string, id int64, result any) error {
	res, err := jsonrpc.FormatResult(id, result)
	if err != nil {
		return err
	}
	return e.sendResponse(ctx, topic, res)
}

func (e *Engine) sendError(ctx context.Context, topic string, id int64, reason domain.ErrorReason) error {
	return e.sendResponse(ctx, topic, jsonrpc.FormatError(id, reason))
}

func (e *Engine) sendResponse(ctx context.Context, topic string, res jsonrpc.Response) error {
	if err := e.publish(ctx, topic, res); err != nil {
		return fmt.Errorf("send response %d: %w", res.ID, err)
	}
	e.log.Debug("sent response", zap.Int64("id", res.ID), zap.Bool("error", res.IsError()), zap.String("topic", topic))
	return e.history.Resolve(res)
}

func (e *Engine) publish(ctx context.Context, topic string, payload any) error {
	message, err := e.crypto.Encode(topic, payload)
	if err != nil {
		return err
	}
	return e.relayer.Publish(ctx, topic, message)
}

func (e *Engine) onMessage(ev domain.MessageEvent) {
	if e.ctx.Err() != nil {
		return
	}
	payload, err := e.crypto.Decode(ev.Topic, ev.Message)
	if err != nil {
		e.log.Warn("undecodable message", zap.String("topic", ev.Topic), zap.Error(err))
		return
	}
	switch {
	case payload.IsRequest():
		e.onRequest(e.ctx, ev.Topic, payload.Request())
	case payload.IsResponse():
		e.onResponse(e.ctx, ev.Topic, payload.Response())
	default:
		e.log.Debug("ignored payload", zap.String("topic", ev.Topic), zap.Int64("id", payload.ID))
	}
}

func (e *Engine) onRequest(ctx context.Context, topic string, req jsonrpc.Request) {
	log := e.log.With(zap.String("method", req.Method), zap.Int64("id", req.ID), zap.String("topic", topic))
	handler, ok := e.requests[req.Method]
	if !ok {
		log.Debug("ignored unknown method")
		return
	}
	if e.history.Exists(topic, req.ID) {
		log.Debug("ignored duplicate request")
		return
	}
	if err := e.history.Set(topic, req, chainIDOf(req)); err != nil {
		log.Error("record request", zap.Error(err))
		return
	}
	log.Debug("received request")
	if err := handler(ctx, topic, req); err != nil {
		log.Warn("request failed", zap.Error(err))
		if err := e.sendError(ctx, topic, req.ID, domain.ReasonOf(err)); err != nil {
			log.Error("send error reply", zap.Error(err))
		}
	}
}

func (e *Engine) onResponse(ctx context.Context, topic string, res jsonrpc.Response) {
	log := e.log.With(zap.Int64("id", res.ID), zap.String("topic", topic))
	rec, err := e.history.Get(topic, res.ID)
	if err != nil {
		log.Debug("ignored uncorrelated response", zap.Error(err))
		return
	}
	if rec.Response != nil {
		log.Debug("ignored duplicate response")
		return
	}
	if err := e.history.Resolve(res); err != nil {
		log.Error("record response", zap.Error(err))
		return
	}
	log.Debug("received response", zap.String("method", rec.Request.Method), zap.Bool("error", res.IsError()))
	if handler, ok := e.responses[rec.Request.Method]; ok {
		handler(ctx, topic, rec, res)
		return
	}
	e.waiters.deliver(rec.Request.Method, res.ID, outcomeOf(res))
}

func outcomeOf(res jsonrpc.Response) outcome {
	if res.IsError() {
		return outcome{err: *res.Error}
	}
	return outcome{result: res.Result}
}

// chainIDOf extracts the chainId carried by session requests and events.
func chainIDOf(req jsonrpc.Request) string {
	var p struct {
		ChainID string `json:"chainId"`
	}
	if len(req.Params) == 0 || json.Unmarshal(req.Params, &p) != nil {
		return ""
	}
	return p.ChainID
}

func (e *Engine) logTeardown(what string, err error) {
	if err != nil {
		e.log.Warn("cleanup failed", zap.String("entity", what), zap.Error(err))
	}
}
