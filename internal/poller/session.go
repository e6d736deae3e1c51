package poller

import (
	"fmt"

	"github.com/jpalmerr/snmpfetch/internal/oid"
	"github.com/jpalmerr/snmpfetch/internal/transport"
)

// status is the request state of a session.
type status int

const (
	// statusIdle means no request is outstanding.
	statusIdle status = iota
	// statusWaiting means a request was sent and no outcome has arrived.
	statusWaiting
	// statusRetrying means the transport retransmitted the outstanding request.
	statusRetrying
)

func (s status) String() string {
	switch s {
	case statusIdle:
		return "idle"
	case statusWaiting:
		return "waiting"
	case statusRetrying:
		return "retrying"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// session is the per-host collection state for one run.
type session struct {
	tag    uint64
	host   *Host
	conn   transport.Conn
	status status

	cfg            Config
	communityIndex uint64

	// partitions is the work queue; the front partition is the one dispatched.
	// A nil slot means that root is finished.
	partitions [][]oid.OID

	run *run
}

// front returns the partition at the head of the queue, or nil.
func (s *session) front() []oid.OID {
	if len(s.partitions) == 0 {
		return nil
	}
	return s.partitions[0]
}

// apply is the session's transition function. It consumes one event from the
// conn and updates the session, the run's result columns and its error log.
func (s *session) apply(ev transport.Event) {
	s.status = statusIdle

	dispatched := append([]oid.OID(nil), s.front()...)

	switch ev.Op {
	case transport.OpReceived:
		s.receive(ev.Response)
	case transport.OpTimedOut:
		s.fail(Error{Type: TimeoutError, Message: "Timeout error"})
	case transport.OpSendFailed:
		s.fail(Error{Type: AsyncProbeError, Message: "Async probe error"})
	case transport.OpDisconnect:
		s.fail(Error{Type: TransportDisconnectError, Message: "Transport disconnect error"})
	case transport.OpResend:
		s.status = statusRetrying
	default:
		s.run.logger.Warn("unknown transport op", "host_id", s.host.ID, "op", ev.Op.String())
	}

	if s.status != statusIdle {
		return
	}

	// a root whose slot did not advance this round is finished
	front := s.front()
	for i := range front {
		if front[i] == nil {
			continue
		}
		if i >= len(dispatched) || dispatched[i] == nil || oid.Compare(front[i], dispatched[i]) <= 0 {
			front[i] = nil
		}
	}
}

// receive handles a response to the outstanding request.
func (s *session) receive(resp *transport.Response) {
	if resp == nil {
		s.fail(Error{Type: CreateResponsePDUError, Message: "Failed to allocate memory for the response PDU"})
		return
	}

	if resp.Type != transport.GetResponse {
		s.fail(Error{
			Type:    BadResponsePDUError,
			Message: fmt.Sprintf("Expected RESPONSE-PDU but got %s-PDU", resp.Type),
		})
		return
	}

	if resp.ErrorStatus != 0 {
		stat, index := resp.ErrorStatus, resp.ErrorIndex
		e := Error{
			Type:     BadResponsePDUError,
			ErrStat:  &stat,
			ErrIndex: &index,
			Message:  transport.ErrorStatusText(stat),
		}
		if index >= 1 && index <= int64(len(resp.Variables)) {
			e.ErrOID = resp.Variables[index-1].OID.Clone()
		}
		s.fail(e)
		return
	}

	for _, v := range resp.Variables {
		s.appendResult(v)
	}
}

// fail records e against the session's host and abandons all remaining work.
func (s *session) fail(e Error) {
	s.run.record(s.host, e)
	s.partitions = nil
}
