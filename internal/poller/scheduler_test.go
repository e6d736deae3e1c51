package poller

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/snmpfetch/internal/oid"
	"github.com/jpalmerr/snmpfetch/internal/row"
	"github.com/jpalmerr/snmpfetch/internal/transport"
	"github.com/jpalmerr/snmpfetch/internal/transport/transporttest"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func testHost(id uint64, address string) Host {
	return Host{
		ID:          id,
		Hostname:    address,
		Communities: []Community{{Version: transport.Version2c, String: "public"}},
	}
}

func testVarBind(name string) VarBind {
	return VarBind{OID: oid.MustParse(name), OIDSize: 128, ValueSize: 64}
}

func newTestScheduler(tr transport.Transport, opts Options) *Scheduler {
	opts.Logger = testLogger()
	opts.Now = func() time.Time { return testNow }
	return NewScheduler(tr, opts)
}

func decodeColumn(t *testing.T, buf []byte, vb VarBind) []row.Row {
	t.Helper()
	rows, err := row.Decode(buf, vb.OIDSize, vb.ValueSize)
	require.NoError(t, err)
	return rows
}

func rowOID(r row.Row) string {
	return oid.FromBytes(r.OID[:r.OIDLen*8]).String()
}

func rowValue(r row.Row) string {
	return string(r.Value[:min(r.ValueLen, uint64(len(r.Value)))])
}

func requestedOIDs(reqs []transport.Request) [][]string {
	out := make([][]string, len(reqs))
	for i, req := range reqs {
		for _, o := range req.OIDs {
			out[i] = append(out[i], o.String())
		}
	}
	return out
}

// recordingObserver tracks session counts and everything reported by a run.
type recordingObserver struct {
	opened, closed int
	maxActive      int
	errors         []Error
	rows           map[int]int
}

func (o *recordingObserver) SessionOpened(_ uint64, active int) {
	o.opened++
	o.maxActive = max(o.maxActive, active)
}

func (o *recordingObserver) SessionClosed(uint64, int) { o.closed++ }
func (o *recordingObserver) ErrorRecorded(e Error)     { o.errors = append(o.errors, e) }

func (o *recordingObserver) RowAppended(column int) {
	if o.rows == nil {
		o.rows = make(map[int]int)
	}
	o.rows[column]++
}

func TestRun_GetSingleValue(t *testing.T) {
	tr := transporttest.New()
	agent := tr.Add("10.0.0.1", transporttest.NewAgent(
		transporttest.Var(".1.3.6.1.2.1.1.5.0", "core1"),
	))

	vb := testVarBind(".1.3.6.1.2.1.1.5.0")
	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetRequest, []Host{testHost(7, "10.0.0.1")}, []VarBind{vb})

	assert.Empty(t, errs)
	require.Len(t, cols, 1)

	rows := decodeColumn(t, cols[0], vb)
	require.Len(t, rows, 1)
	r := rows[0]
	assert.Equal(t, uint64(7), r.HostID)
	assert.Equal(t, uint64(0), r.CommunityIndex)
	assert.Equal(t, uint64(9), r.OIDLen)
	assert.Equal(t, uint64(5), r.ValueLen)
	assert.Equal(t, uint64(transport.TypeOctetString), r.Type)
	assert.Equal(t, testNow.Unix(), r.Timestamp)
	assert.Equal(t, ".1.3.6.1.2.1.1.5.0", rowOID(r))
	assert.Equal(t, "core1", rowValue(r))

	reqs := agent.Requests()
	require.Len(t, reqs, 1, "a completed get is not asked again")
	assert.Equal(t, transport.GetRequest, reqs[0].Type)
	assert.Equal(t, 0, tr.OpenConns())
}

func TestRun_TimeoutLeavesEmptyColumnAndOneError(t *testing.T) {
	tr := transporttest.New()
	agent := tr.Add("10.0.0.1", &transporttest.Agent{Silent: true})

	obs := &recordingObserver{}
	vb := testVarBind(".1.3.6.1.2.1.1.3.0")
	cols, errs := newTestScheduler(tr, Options{Observer: obs}).Run(transport.GetRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{vb})

	require.Len(t, cols, 1)
	assert.Len(t, cols[0], 0)

	require.Len(t, errs, 1)
	assert.Equal(t, TimeoutError, errs[0].Type)
	assert.Equal(t, uint64(1), errs[0].Host.ID)
	assert.Equal(t, "10.0.0.1", errs[0].Host.Hostname)

	assert.Len(t, agent.Requests(), 1, "retries are the transport's business")
	assert.Equal(t, 1, obs.opened)
	assert.Equal(t, 1, obs.closed)
	assert.Equal(t, 0, tr.OpenConns())
}

func TestRun_WalkToEndOfView(t *testing.T) {
	tr := transporttest.New()
	tr.Add("10.0.0.1", transporttest.NewAgent(
		transporttest.Var(".1.1", "a"),
		transporttest.Var(".1.2", "b"),
		transporttest.Var(".1.3", "c"),
	))

	vb := testVarBind(".1")
	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetNextRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{vb})

	rows := decodeColumn(t, cols[0], vb)
	require.Len(t, rows, 3)
	assert.Equal(t, ".1.1", rowOID(rows[0]))
	assert.Equal(t, ".1.2", rowOID(rows[1]))
	assert.Equal(t, ".1.3", rowOID(rows[2]))
	assert.Equal(t, "c", rowValue(rows[2]))

	require.Len(t, errs, 1)
	assert.Equal(t, ValueWarning, errs[0].Type)
	assert.Equal(t, "END_OF_MIB_VIEW", errs[0].Message)
	assert.Equal(t, ".1.3", errs[0].ErrOID.String())
	assert.Equal(t, 0, tr.OpenConns())
}

func TestRun_WalkStopsAtSubtreeBoundary(t *testing.T) {
	tr := transporttest.New()
	tr.Add("10.0.0.1", transporttest.NewAgent(
		transporttest.Var(".1.1", "a"),
		transporttest.Var(".1.2", "b"),
		transporttest.Var(".2.1", "outside"),
	))

	vb := testVarBind(".1")
	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetNextRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{vb})

	rows := decodeColumn(t, cols[0], vb)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.True(t, oid.HasPrefix(oid.FromBytes(r.OID[:r.OIDLen*8]), vb.OID))
	}
	assert.Empty(t, errs, "leaving the subtree ends the walk without an error")
}

func TestRun_AdmissionBound(t *testing.T) {
	tr := transporttest.New()
	var hosts []Host
	for i := 1; i <= 25; i++ {
		addr := fmt.Sprintf("10.0.0.%d", i)
		tr.Add(addr, transporttest.NewAgent(transporttest.Var(".1.3.6.1.2.1.1.5.0", addr)))
		hosts = append(hosts, testHost(uint64(i), addr))
	}

	obs := &recordingObserver{}
	vb := testVarBind(".1.3.6.1.2.1.1.5.0")
	cols, errs := newTestScheduler(tr, Options{MaxActiveSessions: 10, Observer: obs}).
		Run(transport.GetRequest, hosts, []VarBind{vb})

	assert.Empty(t, errs)
	assert.LessOrEqual(t, obs.maxActive, 10)
	assert.LessOrEqual(t, tr.PeakConns(), 10)
	assert.Equal(t, 25, obs.opened)
	assert.Equal(t, 25, obs.closed)

	rows := decodeColumn(t, cols[0], vb)
	require.Len(t, rows, 25)
	seen := make(map[uint64]bool)
	for _, r := range rows {
		seen[r.HostID] = true
		assert.Equal(t, fmt.Sprintf("10.0.0.%d", r.HostID), rowValue(r))
	}
	assert.Len(t, seen, 25)
}

func TestRun_PartitionsRotateAndDrop(t *testing.T) {
	tr := transporttest.New()
	agent := tr.Add("10.0.0.1", transporttest.NewAgent(
		transporttest.Var(".1.1", "a"),
		transporttest.Var(".2.1", "x"),
		transporttest.Var(".2.2", "y"),
		transporttest.Var(".2.3", "z"),
	))

	host := testHost(1, "10.0.0.1")
	host.Config = &Config{Retries: 0, VarBindsPerPDU: 1}
	vbs := []VarBind{testVarBind(".1"), testVarBind(".2")}

	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetNextRequest, []Host{host}, vbs)

	assert.Equal(t, [][]string{
		{".1"}, {".2"}, // first round of each partition
		{".1.1"}, {".2.1"}, // partition 1 finishes here and is dropped
		{".2.2"}, {".2.3"},
	}, requestedOIDs(agent.Requests()))

	assert.Len(t, decodeColumn(t, cols[0], vbs[0]), 1)
	assert.Len(t, decodeColumn(t, cols[1], vbs[1]), 3)

	require.Len(t, errs, 1)
	assert.Equal(t, ValueWarning, errs[0].Type)
	assert.Equal(t, 0, tr.OpenConns())
}

func TestRun_FinishedRootsAreNotRequested(t *testing.T) {
	tr := transporttest.New()
	agent := tr.Add("10.0.0.1", transporttest.NewAgent(
		transporttest.Var(".1.1", "a"),
		transporttest.Var(".2.1", "x"),
		transporttest.Var(".2.2", "y"),
	))

	vbs := []VarBind{testVarBind(".1"), testVarBind(".2")}
	_, errs := newTestScheduler(tr, Options{}).Run(transport.GetNextRequest, []Host{testHost(1, "10.0.0.1")}, vbs)

	assert.Equal(t, [][]string{
		{".1", ".2"},
		{".1.1", ".2.1"},
		{".2.2"},
	}, requestedOIDs(agent.Requests()))
	require.Len(t, errs, 1)
	assert.Equal(t, ".2.2", errs[0].ErrOID.String())
}

func TestRun_BulkWalk(t *testing.T) {
	tr := transporttest.New()
	agent := tr.Add("10.0.0.1", transporttest.NewAgent(
		transporttest.Var(".1.1", "1"),
		transporttest.Var(".1.2", "2"),
		transporttest.Var(".1.3", "3"),
		transporttest.Var(".1.4", "4"),
		transporttest.Var(".1.5", "5"),
	))

	host := testHost(1, "10.0.0.1")
	host.Config = &Config{Retries: 1, VarBindsPerPDU: 10, BulkRepetitions: 2}
	vb := testVarBind(".1")

	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetBulkRequest, []Host{host}, []VarBind{vb})

	rows := decodeColumn(t, cols[0], vb)
	require.Len(t, rows, 5)
	for i, r := range rows {
		assert.Equal(t, fmt.Sprintf(".1.%d", i+1), rowOID(r))
	}

	// the end marker arrives once alongside .1.5 and once on its own
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.Equal(t, ValueWarning, e.Type)
	}

	reqs := agent.Requests()
	require.NotEmpty(t, reqs)
	for _, req := range reqs {
		assert.Equal(t, transport.GetBulkRequest, req.Type)
		assert.Equal(t, 0, req.NonRepeaters)
		assert.Equal(t, 2, req.MaxRepetitions)
	}
}

func TestRun_AcceptsOnlyIncreasingIdentifiers(t *testing.T) {
	tr := transporttest.New()
	agent := transporttest.NewAgent()
	agent.Respond = func(req *transport.Request) *transport.Response {
		resp := &transport.Response{Type: transport.GetResponse}
		if req.OIDs[0].String() == ".1" {
			for _, name := range []string{".1.2", ".1.1", ".1.2", ".1.3"} {
				resp.Variables = append(resp.Variables, transporttest.Var(name, name))
			}
			return resp
		}
		// no progress: echo the request
		resp.Variables = append(resp.Variables, transporttest.Var(req.OIDs[0].String(), "same"))
		return resp
	}
	tr.Add("10.0.0.1", agent)

	vb := testVarBind(".1")
	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetBulkRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{vb})

	rows := decodeColumn(t, cols[0], vb)
	require.Len(t, rows, 2)
	assert.Equal(t, ".1.2", rowOID(rows[0]))
	assert.Equal(t, ".1.3", rowOID(rows[1]))
	assert.Empty(t, errs)
	assert.Len(t, agent.Requests(), 2)
}

func TestRun_UnknownAndOverrunValuesAreDiscarded(t *testing.T) {
	tr := transporttest.New()
	agent := transporttest.NewAgent()
	agent.Respond = func(req *transport.Request) *transport.Response {
		return &transport.Response{
			Type: transport.GetResponse,
			Variables: []transport.Variable{
				transporttest.Var(".9.9", "unrelated"),
				transporttest.Var(".1.0", "ok"),
			},
		}
	}
	tr.Add("10.0.0.1", agent)

	vb := testVarBind(".1.0")
	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{vb})

	rows := decodeColumn(t, cols[0], vb)
	require.Len(t, rows, 1)
	assert.Equal(t, "ok", rowValue(rows[0]))
	assert.Empty(t, errs)
}

func TestRun_GetMissingValueIsWarning(t *testing.T) {
	tr := transporttest.New()
	tr.Add("10.0.0.1", transporttest.NewAgent())

	vb := testVarBind(".1.3.6.1.2.1.1.99.0")
	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{vb})

	assert.Empty(t, cols[0])
	require.Len(t, errs, 1)
	assert.Equal(t, ValueWarning, errs[0].Type)
	assert.Equal(t, "NO_SUCH_OBJECT", errs[0].Message)
	assert.Equal(t, vb.OID.String(), errs[0].ErrOID.String())
}

func TestRun_ErrorStatusAbandonsHost(t *testing.T) {
	tr := transporttest.New()
	agent := tr.Add("10.0.0.1", transporttest.NewAgent(
		transporttest.Var(".1.1", "a"),
		transporttest.Var(".2.1", "b"),
	))
	agent.ErrorStatus = 2
	agent.ErrorIndex = 1

	host := testHost(1, "10.0.0.1")
	host.Config = &Config{VarBindsPerPDU: 1}
	vbs := []VarBind{testVarBind(".1"), testVarBind(".2")}

	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetNextRequest, []Host{host}, vbs)

	assert.Empty(t, cols[0])
	assert.Empty(t, cols[1])
	assert.Len(t, agent.Requests(), 1, "remaining partitions are abandoned")

	require.Len(t, errs, 1)
	e := errs[0]
	assert.Equal(t, BadResponsePDUError, e.Type)
	require.NotNil(t, e.ErrStat)
	require.NotNil(t, e.ErrIndex)
	assert.Equal(t, int64(2), *e.ErrStat)
	assert.Equal(t, int64(1), *e.ErrIndex)
	assert.Equal(t, ".1.1", e.ErrOID.String())
	assert.Equal(t, "noSuchName", e.Message)
}

func TestRun_ErrorIndexOutOfRange(t *testing.T) {
	tr := transporttest.New()
	agent := tr.Add("10.0.0.1", transporttest.NewAgent(transporttest.Var(".1.1", "a")))
	agent.ErrorStatus = 5
	agent.ErrorIndex = 9

	_, errs := newTestScheduler(tr, Options{}).Run(transport.GetNextRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{testVarBind(".1")})

	require.Len(t, errs, 1)
	assert.Equal(t, BadResponsePDUError, errs[0].Type)
	assert.Nil(t, errs[0].ErrOID)
	assert.Equal(t, "genErr", errs[0].Message)
}

func TestRun_TerminalFailures(t *testing.T) {
	tests := []struct {
		name    string
		agent   *transporttest.Agent
		want    ErrorType
		message string
	}{
		{
			name:    "wrong pdu",
			agent:   &transporttest.Agent{ResponseType: transport.GetRequest},
			want:    BadResponsePDUError,
			message: "Expected RESPONSE-PDU but got GET-PDU",
		},
		{
			name:    "no response",
			agent:   &transporttest.Agent{NilResponse: true},
			want:    CreateResponsePDUError,
			message: "Failed to allocate memory for the response PDU",
		},
		{
			name:    "disconnect",
			agent:   &transporttest.Agent{Disconnect: true},
			want:    TransportDisconnectError,
			message: "Transport disconnect error",
		},
		{
			name:    "probe failure",
			agent:   &transporttest.Agent{ProbeFail: true},
			want:    AsyncProbeError,
			message: "Async probe error",
		},
		{
			name:    "timeout",
			agent:   &transporttest.Agent{Silent: true},
			want:    TimeoutError,
			message: "Timeout error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := transporttest.New()
			tr.Add("10.0.0.1", tt.agent)

			host := testHost(1, "10.0.0.1")
			host.Config = &Config{Retries: 1, VarBindsPerPDU: 1}
			vbs := []VarBind{testVarBind(".1"), testVarBind(".2")}

			cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetNextRequest, []Host{host}, vbs)

			assert.Empty(t, cols[0])
			assert.Empty(t, cols[1])
			require.Len(t, errs, 1)
			assert.Equal(t, tt.want, errs[0].Type)
			assert.Equal(t, tt.message, errs[0].Message)
			assert.Len(t, tt.agent.Requests(), 1, "remaining partitions are abandoned")
			assert.Equal(t, 0, tr.OpenConns())
		})
	}
}

func TestRun_OpenFailureSkipsHost(t *testing.T) {
	tr := transporttest.New()
	openErr := errors.New("no route to host")
	tr.Add("10.0.0.1", &transporttest.Agent{OpenErr: openErr})
	tr.Add("10.0.0.2", transporttest.NewAgent(transporttest.Var(".1.0", "up")))

	obs := &recordingObserver{}
	vb := testVarBind(".1.0")
	hosts := []Host{testHost(1, "10.0.0.1"), testHost(2, "10.0.0.2"), testHost(3, "10.0.0.3")}

	cols, errs := newTestScheduler(tr, Options{MaxActiveSessions: 1, Observer: obs}).Run(transport.GetRequest, hosts, []VarBind{vb})

	rows := decodeColumn(t, cols[0], vb)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(2), rows[0].HostID)

	require.Len(t, errs, 2)
	assert.Equal(t, SessionError, errs[0].Type)
	assert.Equal(t, uint64(1), errs[0].Host.ID)
	assert.ErrorIs(t, errs[0], openErr)
	assert.Equal(t, SessionError, errs[1].Type)
	assert.Equal(t, uint64(3), errs[1].Host.ID)

	assert.Equal(t, 1, obs.opened, "failed opens take no session slot")
}

func TestRun_HostWithoutCommunity(t *testing.T) {
	tr := transporttest.New()
	_, errs := newTestScheduler(tr, Options{}).Run(transport.GetRequest, []Host{{ID: 1, Hostname: "10.0.0.1"}}, []VarBind{testVarBind(".1")})

	require.Len(t, errs, 1)
	assert.Equal(t, SessionError, errs[0].Type)
	assert.Empty(t, tr.Targets())
}

func TestRun_SendFailureReapsSession(t *testing.T) {
	tr := transporttest.New()
	sendErr := errors.New("message too long")
	tr.Add("10.0.0.1", &transporttest.Agent{SendErr: sendErr})

	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{testVarBind(".1")})

	assert.Empty(t, cols[0])
	require.Len(t, errs, 1)
	assert.Equal(t, SendError, errs[0].Type)
	assert.ErrorIs(t, errs[0], sendErr)
	assert.Equal(t, 0, tr.OpenConns())
}

func TestRun_RequestBuildFailure(t *testing.T) {
	tr := transporttest.New()
	agent := tr.Add("10.0.0.1", transporttest.NewAgent())

	_, errs := newTestScheduler(tr, Options{}).Run(transport.SetRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{testVarBind(".1")})

	require.Len(t, errs, 1)
	assert.Equal(t, CreateRequestPDUError, errs[0].Type)
	assert.Empty(t, agent.Requests())
	assert.Equal(t, 0, tr.OpenConns())
}

func TestRun_ResendsAreNotErrors(t *testing.T) {
	tr := transporttest.New()
	agent := tr.Add("10.0.0.1", transporttest.NewAgent(transporttest.Var(".1.0", "late")))
	agent.Resends = 2

	vb := testVarBind(".1.0")
	cols, errs := newTestScheduler(tr, Options{}).Run(transport.GetRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{vb})

	assert.Empty(t, errs)
	assert.Len(t, decodeColumn(t, cols[0], vb), 1)
}

func TestRun_TruncatesToDeclaredCapacity(t *testing.T) {
	tr := transporttest.New()
	tr.Add("10.0.0.1", transporttest.NewAgent(transporttest.Var(".1.0", "abcdefghijkl")))

	vb := VarBind{OID: oid.MustParse(".1.0"), OIDSize: 8, ValueSize: 4}
	cols, _ := newTestScheduler(tr, Options{}).Run(transport.GetRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{vb})

	rows := decodeColumn(t, cols[0], vb)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(12), rows[0].ValueLen)
	assert.Equal(t, uint64(2), rows[0].OIDLen)
	assert.Equal(t, []byte("abcd\x00\x00\x00\x00"), rows[0].Value)
	assert.Equal(t, oid.MustParse(".1").Bytes(), rows[0].OID, "only the first element fits")
}

func TestRun_HostConfigReachesTransport(t *testing.T) {
	tr := transporttest.New()
	tr.Add("10.0.0.1", transporttest.NewAgent())
	tr.Add("10.0.0.2", transporttest.NewAgent())

	withOwn := testHost(1, "10.0.0.1")
	withOwn.Config = &Config{Retries: 1, Timeout: time.Second, VarBindsPerPDU: 5}
	withOwn.Communities = append(withOwn.Communities, Community{String: "ignored"})
	withDefault := testHost(2, "10.0.0.2")
	withDefault.Communities[0] = Community{Version: transport.Version1, String: "v1"}

	def := &Config{Retries: 2, Timeout: 2 * time.Second, VarBindsPerPDU: 5}
	newTestScheduler(tr, Options{Config: def}).Run(transport.GetRequest, []Host{withOwn, withDefault}, []VarBind{testVarBind(".1")})

	targets := tr.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, 1, targets[0].Retries)
	assert.Equal(t, time.Second, targets[0].Timeout)
	assert.Equal(t, "public", targets[0].Community)
	assert.Equal(t, 2, targets[1].Retries)
	assert.Equal(t, 2*time.Second, targets[1].Timeout)
	assert.Equal(t, "v1", targets[1].Community)
	assert.Equal(t, transport.Version1, targets[1].Version)
	assert.NotEqual(t, targets[0].Tag, targets[1].Tag)
}

func TestRun_ErrorSnapshotKeepsFirstCommunity(t *testing.T) {
	tr := transporttest.New()
	tr.Add("10.0.0.1", &transporttest.Agent{Disconnect: true})

	host := testHost(1, "10.0.0.1")
	host.Communities = append(host.Communities, Community{String: "backup"})

	_, errs := newTestScheduler(tr, Options{}).Run(transport.GetRequest, []Host{host}, []VarBind{testVarBind(".1")})

	require.Len(t, errs, 1)
	assert.Equal(t, []Community{{Version: transport.Version2c, String: "public"}}, errs[0].Host.Communities)
}

func TestRun_ObserverSeesRowsAndErrors(t *testing.T) {
	tr := transporttest.New()
	tr.Add("10.0.0.1", transporttest.NewAgent(transporttest.Var(".1.1", "a"), transporttest.Var(".2.1", "b")))

	obs := &recordingObserver{}
	newTestScheduler(tr, Options{Observer: Observers{obs}}).
		Run(transport.GetNextRequest, []Host{testHost(1, "10.0.0.1")}, []VarBind{testVarBind(".1"), testVarBind(".2")})

	assert.Equal(t, map[int]int{0: 1, 1: 1}, obs.rows)
	require.Len(t, obs.errors, 1, "only .2.1 runs off the end of the table")
	assert.Equal(t, ValueWarning, obs.errors[0].Type)
}

func TestRun_NoHostsReturnsEmptyColumns(t *testing.T) {
	cols, errs := newTestScheduler(transporttest.New(), Options{}).Run(transport.GetRequest, nil, []VarBind{testVarBind(".1"), testVarBind(".2")})
	assert.Len(t, cols, 2)
	assert.Empty(t, errs)
}

func TestErrorMessage(t *testing.T) {
	e := Error{
		Type:    ValueWarning,
		Host:    Host{ID: 3, Hostname: "edge1"},
		ErrOID:  oid.MustParse(".1.2"),
		Message: "NO_SUCH_INSTANCE",
	}
	assert.Equal(t, "VALUE_WARNING: host 3 (edge1): NO_SUCH_INSTANCE [.1.2]", e.Error())
	assert.Nil(t, errors.Unwrap(e))
}
