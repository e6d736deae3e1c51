package poller

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpalmerr/snmpfetch/internal/oid"
)

func rootsN(n int) []VarBind {
	vbs := make([]VarBind, n)
	for i := range vbs {
		vbs[i] = VarBind{OID: oid.MustParse(fmt.Sprintf(".1.3.6.1.%d", i+1))}
	}
	return vbs
}

func TestPartition_Properties(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for size := 1; size <= 12; size++ {
			vbs := rootsN(n)
			parts := partition(vbs, size)

			require.Len(t, parts, (n+size-1)/size, "n=%d size=%d", n, size)

			var flat []oid.OID
			for _, p := range parts {
				assert.LessOrEqual(t, len(p), size)
				assert.NotEmpty(t, p)
				flat = append(flat, p...)
			}
			require.Len(t, flat, n)
			for i, vb := range vbs {
				assert.True(t, flat[i].Equal(vb.OID), "slot %d", i)
				assert.True(t, parts[i/size][i%size].Equal(vb.OID), "root %d at %d/%d", i, i/size, i%size)
			}
		}
	}
}

func TestPartition_SlotsDoNotAliasRoots(t *testing.T) {
	vbs := rootsN(3)
	parts := partition(vbs, 2)

	parts[0][0][0] = 99
	assert.Equal(t, ".1.3.6.1.1", vbs[0].OID.String())
}

func TestPartition_NonPositiveSizeUsesDefault(t *testing.T) {
	parts := partition(rootsN(25), 0)
	assert.Len(t, parts, 3)
	assert.Len(t, parts[0], DefaultVarBindsPerPDU)
}

func TestExhausted(t *testing.T) {
	assert.True(t, exhausted(nil))
	assert.True(t, exhausted([]oid.OID{nil, nil}))
	assert.False(t, exhausted([]oid.OID{nil, oid.MustParse(".1")}))
}

func TestResolveConfig(t *testing.T) {
	hostCfg := &Config{Retries: 1, VarBindsPerPDU: 2}
	callerCfg := &Config{Retries: 5, VarBindsPerPDU: 7, BulkRepetitions: 4}

	got := resolveConfig(hostCfg, callerCfg)
	assert.Equal(t, 1, got.Retries)
	assert.Equal(t, 2, got.VarBindsPerPDU)
	assert.Equal(t, DefaultBulkRepetitions, got.BulkRepetitions, "unusable sizes fall back")

	got = resolveConfig(nil, callerCfg)
	assert.Equal(t, *callerCfg, got)

	assert.Equal(t, DefaultConfig(), resolveConfig(nil, nil))
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "SESSION_ERROR", SessionError.String())
	assert.Equal(t, "TIMEOUT_ERROR", TimeoutError.String())
	assert.Equal(t, "VALUE_WARNING", ValueWarning.String())
	assert.Equal(t, "ErrorType(42)", ErrorType(42).String())
}

func TestHostSnapshotKeepsFirstEntries(t *testing.T) {
	h := &Host{
		ID:       4,
		Hostname: "core1",
		Communities: []Community{
			{String: "public"},
			{String: "private"},
		},
		Parameters: []Parameter{
			{Start: oid.MustParse(".1"), End: oid.MustParse(".2")},
			{Start: oid.MustParse(".3"), End: oid.MustParse(".4")},
		},
	}

	s := h.snapshot()
	assert.Equal(t, uint64(4), s.ID)
	assert.Equal(t, []Community{{String: "public"}}, s.Communities)
	require.Len(t, s.Parameters, 1)
	assert.Equal(t, ".1", s.Parameters[0].Start.String())
}
