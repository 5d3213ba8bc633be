package summary

import (
	"bytes"
	"encoding/json"
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pennsieve/promptcheck/llm"
)

func TestRecord_CountsByLabel(t *testing.T) {
	a := NewAggregator()
	a.Record("toxic", llm.Blocked("Sorry"))
	a.Record("benign", llm.Success("hi"))
	a.Record("toxic", llm.Success("oops"))
	a.Record("benign", llm.Success("hello"))

	toxic, ok := a.Lookup("toxic")
	require.True(t, ok)
	assert.Equal(t, Tally{Label: "toxic", Total: 2, Allowed: 1, Blocked: 1}, toxic)

	benign, ok := a.Lookup("benign")
	require.True(t, ok)
	assert.Equal(t, Tally{Label: "benign", Total: 2, Allowed: 2}, benign)
}

func TestRecord_FirstSeenOrder(t *testing.T) {
	a := NewAggregator()
	for _, label := range []string{"zeta", "alpha", "zeta", "mid", "alpha"} {
		a.Record(label, llm.Success(""))
	}
	labels := make([]string, 0)
	for _, tl := range a.Tallies() {
		labels = append(labels, tl.Label)
	}
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, labels)
	assert.Equal(t, 3, a.Len())
}

func TestRecord_FailuresKeptOutOfTotal(t *testing.T) {
	a := NewAggregator()
	a.Record("toxic", llm.Failed(llm.FailureTransport, errors.New("down")))
	a.Record("toxic", llm.Blocked("Sorry"))

	toxic, _ := a.Lookup("toxic")
	assert.Equal(t, 1, toxic.Total)
	assert.Equal(t, 1, toxic.Blocked)
	assert.Equal(t, 0, toxic.Allowed)
	assert.Equal(t, 1, toxic.Errors)
	assert.Equal(t, 1, a.Failed())
}

func TestRecord_TotalInvariant(t *testing.T) {
	outcomes := []llm.Outcome{
		llm.Success("a"),
		llm.Blocked("b"),
		llm.Failed(llm.FailureParse, errors.New("bad")),
	}
	labels := []string{"toxic", "benign", "pii", "jailbreak"}
	rng := rand.New(rand.NewSource(7))

	a := NewAggregator()
	for i := 0; i < 500; i++ {
		a.Record(labels[rng.Intn(len(labels))], outcomes[rng.Intn(len(outcomes))])
		for _, tl := range a.Tallies() {
			require.Equal(t, tl.Allowed+tl.Blocked, tl.Total, "label %s after %d records", tl.Label, i+1)
		}
	}
}

func TestLookup_Missing(t *testing.T) {
	_, ok := NewAggregator().Lookup("nope")
	assert.False(t, ok)
}

func sampleReport() Report {
	a := NewAggregator()
	a.Record("safe", llm.Success("hi"))
	a.Record("unsafe", llm.Blocked("Sorry"))
	a.Record("unsafe", llm.Failed(llm.FailureClient, errors.New("throttled")))
	return NewReport("run-1", "mistral.mistral-7b-instruct-v0:2", a)
}

func TestWriteText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, sampleReport()))

	out := buf.String()
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Summary report:", lines[0])
	assert.Equal(t, []string{"LABEL", "TOTAL", "ALLOWED", "BLOCKED", "ERRORS"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"safe", "1", "1", "0", "0"}, strings.Fields(lines[2]))
	assert.Equal(t, []string{"unsafe", "1", "0", "1", "1"}, strings.Fields(lines[3]))
}

func TestBuildMarkdown(t *testing.T) {
	md := BuildMarkdown(sampleReport())
	assert.Contains(t, md, "# Guardrail Batch Summary")
	assert.Contains(t, md, "Run: `run-1`")
	assert.Contains(t, md, "Failed invocations: `1`")
	assert.Contains(t, md, "| safe | 1 | 1 | 0 | 0 |")
	assert.Contains(t, md, "| unsafe | 1 | 0 | 1 | 1 |")
}

func TestBuildMarkdown_EscapesPipesAndEmptyLabels(t *testing.T) {
	a := NewAggregator()
	a.Record("a|b", llm.Success(""))
	a.Record("", llm.Success(""))
	md := BuildMarkdown(NewReport("r", "m", a))
	assert.Contains(t, md, `| a\|b |`)
	assert.Contains(t, md, "| - | 1 |")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReport()))

	var r Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &r))
	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, 1, r.Failed)
	require.Len(t, r.Labels, 2)
	assert.Equal(t, "safe", r.Labels[0].Label)
	assert.Equal(t, 1, r.Labels[1].Blocked)
	assert.NotEmpty(t, r.GeneratedAt)
}
