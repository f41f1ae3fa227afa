// Package broker serves the api contracts over NATS request/reply.
package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/nats-io/nats.go"

	"range-equity/server/api"
)

const (
	SubjectPreflop  = "equity.preflop"
	SubjectPostflop = "equity.postflop"
	SubjectExpand   = "range.expand"
	SubjectValidate = "range.validate"

	// Workers share one queue group so each request is served once.
	QueueGroup = "equity-workers"
)

var Subjects = []string{SubjectPreflop, SubjectPostflop, SubjectExpand, SubjectValidate}

// errReply is the body sent instead of a response when a request fails.
type errReply struct {
	Err    string `json:"err"`
	Status int    `json:"status"`
}

func Connect(url, name string) (*nats.Conn, error) {
	if url == "" {
		url = os.Getenv("NATS_URL")
	}
	if url == "" {
		url = nats.DefaultURL
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.Timeout(10 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(5),
	}
	return nats.Connect(url, opts...)
}

type Worker struct {
	nc      *nats.Conn
	svc     *api.Service
	timeout time.Duration
	subs    []*nats.Subscription
}

// NewWorker bounds every computation by timeout (0 means none).
func NewWorker(nc *nats.Conn, svc *api.Service, timeout time.Duration) *Worker {
	return &Worker{nc: nc, svc: svc, timeout: timeout}
}

func (w *Worker) Start() error {
	for _, subj := range Subjects {
		sub, err := w.nc.QueueSubscribe(subj, QueueGroup, func(m *nats.Msg) {
			if m.Reply == "" {
				return
			}
			if err := w.nc.Publish(m.Reply, w.Handle(subj, m.Data)); err != nil {
				log.Printf("nats reply %s: %v", subj, err)
			}
		})
		if err != nil {
			w.Stop()
			return fmt.Errorf("subscribe %s: %w", subj, err)
		}
		w.subs = append(w.subs, sub)
	}
	return nil
}

func (w *Worker) Stop() {
	for _, s := range w.subs {
		_ = s.Unsubscribe()
	}
	w.subs = nil
}

// Handle decodes one request for subject and returns the encoded reply.
func (w *Worker) Handle(subject string, data []byte) []byte {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	var (
		out any
		err error
	)
	switch subject {
	case SubjectPreflop, SubjectPostflop:
		var req api.EquityRequest
		if err = json.Unmarshal(data, &req); err != nil {
			break
		}
		if subject == SubjectPreflop {
			out, err = w.svc.Preflop(ctx, req)
		} else {
			out, err = w.svc.Postflop(ctx, req)
		}
	case SubjectExpand:
		var req api.ExpandRequest
		if err = json.Unmarshal(data, &req); err == nil {
			out, err = w.svc.Expand(req)
		}
	case SubjectValidate:
		var req api.RangeRequest
		if err = json.Unmarshal(data, &req); err == nil {
			out, err = w.svc.ParseRange(req)
		}
	default:
		return encodeErr(&api.Error{Status: http.StatusNotFound, Msg: "unknown subject " + subject})
	}
	if err != nil {
		var se *json.SyntaxError
		var te *json.UnmarshalTypeError
		if errors.As(err, &se) || errors.As(err, &te) {
			return encodeErr(&api.Error{Status: http.StatusBadRequest, Msg: "bad json: " + err.Error()})
		}
		return encodeErr(api.Classify(err))
	}
	b, err := json.Marshal(out)
	if err != nil {
		return encodeErr(api.Classify(err))
	}
	return b
}

func encodeErr(e *api.Error) []byte {
	b, _ := json.Marshal(errReply{Err: e.Msg, Status: e.Status})
	return b
}

// Call sends one request and decodes the reply into resp, turning error
// replies back into *api.Error.
func Call(ctx context.Context, nc *nats.Conn, subject string, req, resp any) error {
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	msg, err := nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		return err
	}
	return decodeReply(msg.Data, resp)
}

func decodeReply(data []byte, resp any) error {
	var e errReply
	if json.Unmarshal(data, &e) == nil && e.Err != "" {
		return &api.Error{Status: e.Status, Msg: e.Err}
	}
	return json.Unmarshal(data, resp)
}
