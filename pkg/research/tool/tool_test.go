package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ai-research-be/pkg/costs"
	"ai-research-be/pkg/llm"
	"ai-research-be/pkg/research/rerrors"
)

func echoTool(name string) Tool {
	return Tool{
		Name:        name,
		Description: "echoes its input",
		Schema:      llm.ToolParameterSchema{Type: "object"},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return stringArg(args, "text", ""), nil
		},
	}
}

func failingTool(name string, err error) Tool {
	return Tool{
		Name:   name,
		Schema: llm.ToolParameterSchema{Type: "object"},
		Invoke: func(ctx context.Context, args map[string]interface{}) (string, error) {
			return "", err
		},
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(echoTool("echo"), echoTool("echo"))
	if !errors.Is(err, rerrors.ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool, got %v", err)
	}
}

func TestRegistryAddMergeRejectsExisting(t *testing.T) {
	r, err := NewRegistry(echoTool("echo"))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Add(echoTool("other"), echoTool("echo")); !errors.Is(err, rerrors.ErrDuplicateTool) {
		t.Fatalf("expected ErrDuplicateTool on merge, got %v", err)
	}
}

func TestRegistrySchemasKeepRegistrationOrder(t *testing.T) {
	r, err := NewRegistry(echoTool("alpha"), echoTool("beta"), echoTool("gamma"))
	if err != nil {
		t.Fatal(err)
	}

	schemas := r.Schemas()
	want := []string{"alpha", "beta", "gamma"}
	if len(schemas) != len(want) {
		t.Fatalf("schemas = %d, want %d", len(schemas), len(want))
	}
	for i, name := range want {
		if schemas[i].Name != name {
			t.Errorf("schemas[%d] = %s, want %s", i, schemas[i].Name, name)
		}
	}
}

func TestExecuteUnknownTool(t *testing.T) {
	r, _ := NewRegistry(echoTool("echo"))

	got := r.Execute(context.Background(), llm.ToolCall{ID: "call_1", Name: "missing"})
	if got != "Unknown tool: missing" {
		t.Errorf("result = %q", got)
	}
}

func TestExecuteRecoversToolFailure(t *testing.T) {
	r, _ := NewRegistry(failingTool("broken", errors.New("disk on fire")))

	got := r.Execute(context.Background(), llm.ToolCall{ID: "call_1", Name: "broken"})
	if got != "Tool execution error: disk on fire" {
		t.Errorf("result = %q", got)
	}
}

func TestExecutePassesArguments(t *testing.T) {
	r, _ := NewRegistry(echoTool("echo"))

	got := r.Execute(context.Background(), llm.ToolCall{
		ID:        "call_1",
		Name:      "echo",
		Arguments: map[string]interface{}{"text": "hello"},
	})
	if got != "hello" {
		t.Errorf("result = %q", got)
	}
}

func TestThinkToolRecordsReflection(t *testing.T) {
	ledger := costs.NewLedger(costs.DefaultPriceTable())
	session := ledger.StartSession("Basic", "q")

	think := Think(ledger, session)
	got, err := think.Invoke(context.Background(), map[string]interface{}{
		"reflection": "I should search for primary sources next",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Reflection recorded: I should search for primary sources next" {
		t.Errorf("result = %q", got)
	}

	if len(session.Calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(session.Calls))
	}
	call := session.Calls[0]
	if call.Operation != "reflect" {
		t.Errorf("operation = %q", call.Operation)
	}
	if call.CostUSD != 0 {
		t.Errorf("reflection should be free, cost = %f", call.CostUSD)
	}
}

func TestAcademicSearchHelperGuidance(t *testing.T) {
	helper := AcademicSearchHelper()

	got, err := helper.Invoke(context.Background(), map[string]interface{}{
		"topic":          "quantum error correction",
		"academic_level": "PhD/Research",
		"citation_style": "IEEE",
	})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"Academic Research Guidance for: quantum error correction",
		"quantum error correction peer-reviewed systematic review",
		"Emphasize recent publications, primary sources, and methodological papers",
		"Use [1] format with full reference list",
		"arxiv.org",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("guidance missing %q", want)
		}
	}
}

func TestAcademicSearchHelperDefaults(t *testing.T) {
	helper := AcademicSearchHelper()

	got, err := helper.Invoke(context.Background(), map[string]interface{}{
		"topic":          "protein folding",
		"academic_level": "Sophomore", // unknown level falls back to Graduate
	})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "Prioritize peer-reviewed journals, systematic reviews, and empirical studies") {
		t.Error("expected Graduate guidance fallback")
	}
	if !strings.Contains(got, "Include (Author, Year) format and DOI when available") {
		t.Error("expected APA citation fallback")
	}
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"s":     "value",
		"empty": "",
		"f":     float64(7),
		"i":     3,
		"b":     true,
	}

	if got := stringArg(args, "s", "x"); got != "value" {
		t.Errorf("stringArg = %q", got)
	}
	if got := stringArg(args, "empty", "fallback"); got != "fallback" {
		t.Errorf("stringArg empty = %q", got)
	}
	if got := stringArg(args, "missing", "fallback"); got != "fallback" {
		t.Errorf("stringArg missing = %q", got)
	}
	if got := intArg(args, "f", 0); got != 7 {
		t.Errorf("intArg float = %d", got)
	}
	if got := intArg(args, "i", 0); got != 3 {
		t.Errorf("intArg int = %d", got)
	}
	if got := intArg(args, "missing", 9); got != 9 {
		t.Errorf("intArg missing = %d", got)
	}
	if got := boolArg(args, "b", false); got != true {
		t.Errorf("boolArg = %v", got)
	}
	if got := boolArg(args, "missing", true); got != true {
		t.Errorf("boolArg missing = %v", got)
	}
}
